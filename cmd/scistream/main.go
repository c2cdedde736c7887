// Command scistream evaluates online ensembles prequentially on a synthetic
// or file-backed stream.
//
// Configuration is read from an optional file (--config), SCISTREAM_*
// environment variables and flags. Example:
//
//	scistream -e ozabag,leveraging_bag,srp --limit 50000 --plot curve.png --metrics-addr :9090
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"

	"github.com/YuminosukeSato/scistream/ensemble"
	"github.com/YuminosukeSato/scistream/evaluation"
	"github.com/YuminosukeSato/scistream/learner"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
	"github.com/YuminosukeSato/scistream/pkg/telemetry"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.GetLogger().Error("scistream failed", err)
		fmt.Fprintf(os.Stderr, "scistream: %v\n", err)
		os.Exit(1)
	}
}

func newLogger(cfg logConfig) (log.Logger, error) {
	level, err := log.ToLogLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	switch cfg.Format {
	case "json":
		return log.NewZerologLogger(os.Stderr, log.Level(level)), nil
	case "console":
		return log.NewConsoleLogger(os.Stderr, log.Level(level)), nil
	case "slog":
		return log.SetupLogger(os.Stderr, cfg.Level)
	}
	return nil, errors.NewValidationError("log.format", "must be json, console or slog", cfg.Format)
}

func run(args []string) error {
	fs := newFlagSet()
	if err := fs.Parse(args); err != nil {
		return err
	}
	if list, _ := fs.GetBool("list"); list {
		fmt.Println("ensembles:", strings.Join(ensemble.Names(), ", "))
		fmt.Println("learners: ", strings.Join(learner.Names(), ", "))
		return nil
	}

	cfg, err := loadConfig(fs)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	log.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := telemetry.NewMetrics(reg)
	if cfg.MetricsAddr != "" {
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           telemetry.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics endpoint stopped", err, "addr", cfg.MetricsAddr)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info("serving metrics", "addr", cfg.MetricsAddr)
	}

	series, err := evaluate(ctx, cfg, logger, metrics)
	if err != nil {
		return err
	}

	for _, s := range series {
		final := evaluation.Point{}
		if len(s.Curve) > 0 {
			final = s.Curve[len(s.Curve)-1]
		}
		if cfg.Evaluation.Regression {
			fmt.Printf("%-24s instances=%d mse=%.4f mae=%.4f\n", s.Name, final.Instances, final.MSE, final.MAE)
			continue
		}
		fmt.Printf("%-24s instances=%d accuracy=%.4f kappa=%.4f windowed=%.4f\n",
			s.Name, final.Instances, final.Accuracy, final.Kappa, final.WindowedAccuracy)
	}

	if cfg.Plot.Path != "" {
		metric, err := evaluation.MetricByName(cfg.Plot.Metric)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("%s on %s", cfg.Learner.Name, cfg.Source.Type)
		if err := evaluation.PlotCurves(cfg.Plot.Path, title, cfg.Plot.Metric, metric, series...); err != nil {
			return err
		}
		logger.Info("learning curve written", "path", cfg.Plot.Path)
	}
	return nil
}
