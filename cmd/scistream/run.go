package main

import (
	"context"
	"math"
	"os"

	"github.com/sourcegraph/conc/pool"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/ensemble"
	"github.com/YuminosukeSato/scistream/evaluation"
	"github.com/YuminosukeSato/scistream/learner"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
	"github.com/YuminosukeSato/scistream/stream"
)

// sourceFactory returns a fresh source over the same instances on every call,
// so that every ensemble sees an identical stream.
type sourceFactory func() (stream.Source, error)

func newSourceFactory(ctx context.Context, cfg sourceConfig) (sourceFactory, error) {
	if cfg.Type == "sea" {
		opts := []stream.SEAOption{
			stream.WithSEANoise(cfg.Noise),
			stream.WithSEADriftEvery(cfg.DriftEvery),
			stream.WithSEALimit(cfg.Limit),
		}
		if _, err := stream.NewSEAGenerator(cfg.Seed, opts...); err != nil {
			return nil, err
		}
		return func() (stream.Source, error) { return stream.NewSEAGenerator(cfg.Seed, opts...) }, nil
	}

	// ファイルは一度だけ読み込み、各評価で再生する
	var (
		src stream.Source
		err error
	)
	switch cfg.Type {
	case "csv":
		f, openErr := os.Open(cfg.Path)
		if openErr != nil {
			return nil, errors.Wrapf(openErr, "open %s", cfg.Path)
		}
		defer f.Close()
		src, err = stream.NewCSVSource(f,
			stream.WithTargetColumn(cfg.TargetColumn),
			stream.WithDelimiter([]rune(cfg.Delimiter)[0]))
	case "npy":
		src, err = stream.OpenNPY(cfg.Path)
	}
	if err != nil {
		return nil, err
	}
	limit := cfg.Limit
	if limit == 0 {
		limit = math.MaxInt32
	}
	instances, err := stream.Take(ctx, src, limit)
	if err != nil {
		return nil, err
	}
	if len(instances) == 0 {
		return nil, errors.Wrapf(errors.ErrEmptyData, "source %s", cfg.Path)
	}
	return func() (stream.Source, error) { return stream.NewSliceSource(instances), nil }, nil
}

// evaluate runs one prequential evaluation per configured ensemble, at most
// cfg.Evaluation.Parallel at a time. The first failure cancels the others.
func evaluate(ctx context.Context, cfg *config, logger log.Logger, observer ensemble.Observer) ([]evaluation.Series, error) {
	factory, err := learner.NewFactory(cfg.Learner)
	if err != nil {
		return nil, err
	}
	sources, err := newSourceFactory(ctx, cfg.Source)
	if err != nil {
		return nil, err
	}

	learners := make([]model.Learner, len(cfg.Ensembles))
	for i, s := range cfg.Ensembles {
		opts := append(s.Options(), ensemble.WithLogger(logger), ensemble.WithObserver(observer))
		if cfg.Evaluation.Regression {
			opts = append(opts, ensemble.WithRegression())
		}
		e, err := ensemble.New(s.Name, factory, opts...)
		if err != nil {
			return nil, errors.Wrapf(err, "ensemble %d (%s)", i, s.Name)
		}
		learners[i] = e
	}

	series := make([]evaluation.Series, len(learners))
	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
	if cfg.Evaluation.Parallel > 0 {
		p = p.WithMaxGoroutines(cfg.Evaluation.Parallel)
	}
	for i, l := range learners {
		p.Go(func(ctx context.Context) error {
			opts := []evaluation.Option{
				evaluation.WithSampleEvery(cfg.Evaluation.SampleEvery),
				evaluation.WithWindow(cfg.Evaluation.Window),
				evaluation.WithMaxInstances(cfg.Evaluation.MaxInstances),
				evaluation.WithLogger(logger),
			}
			if cfg.Evaluation.Regression {
				opts = append(opts, evaluation.WithRegression())
			}
			pq, err := evaluation.NewPrequential(l, opts...)
			if err != nil {
				return err
			}
			src, err := sources()
			if err != nil {
				return err
			}
			res, err := pq.Run(ctx, src)
			if err != nil {
				return errors.Wrapf(err, "evaluate %s", model.NameOf(l))
			}
			series[i] = evaluation.Series{Name: model.NameOf(l), Curve: res.Curve}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return series, nil
}
