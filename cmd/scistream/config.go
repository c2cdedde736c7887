package main

import (
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/YuminosukeSato/scistream/ensemble"
	"github.com/YuminosukeSato/scistream/learner"
	"github.com/YuminosukeSato/scistream/pkg/errors"
)

type sourceConfig struct {
	// Type is "sea", "csv" or "npy".
	Type         string  `mapstructure:"type"`
	Path         string  `mapstructure:"path"`
	TargetColumn int     `mapstructure:"target_column"`
	Delimiter    string  `mapstructure:"delimiter"`
	Seed         uint64  `mapstructure:"seed"`
	Noise        float64 `mapstructure:"noise"`
	DriftEvery   int     `mapstructure:"drift_every"`
	Limit        int     `mapstructure:"limit"`
}

type evaluationConfig struct {
	SampleEvery  int   `mapstructure:"sample_every"`
	Window       int   `mapstructure:"window"`
	MaxInstances int64 `mapstructure:"max_instances"`
	Regression   bool  `mapstructure:"regression"`
	// Parallel bounds how many ensembles are evaluated at once.
	Parallel int `mapstructure:"parallel"`
}

type logConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type plotConfig struct {
	Path   string `mapstructure:"path"`
	Metric string `mapstructure:"metric"`
}

type config struct {
	Learner     learner.Spec        `mapstructure:"learner"`
	Ensembles   []ensemble.Settings `mapstructure:"ensembles"`
	Source      sourceConfig        `mapstructure:"source"`
	Evaluation  evaluationConfig    `mapstructure:"evaluation"`
	Log         logConfig           `mapstructure:"log"`
	Plot        plotConfig          `mapstructure:"plot"`
	MetricsAddr string              `mapstructure:"metrics_addr"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("learner.name", "gaussian_nb")
	v.SetDefault("ensembles", []map[string]any{{"name": "ozabag"}})
	v.SetDefault("source.type", "sea")
	v.SetDefault("source.target_column", -1)
	v.SetDefault("source.delimiter", ",")
	v.SetDefault("source.seed", 1)
	v.SetDefault("source.noise", 0.1)
	v.SetDefault("source.drift_every", 5000)
	v.SetDefault("source.limit", 20000)
	v.SetDefault("evaluation.sample_every", 500)
	v.SetDefault("evaluation.window", 1000)
	v.SetDefault("evaluation.parallel", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("plot.metric", "windowed_accuracy")
}

// newFlagSet declares the command line flags. Flags that name a config key
// override the file and the environment.
func newFlagSet() *pflag.FlagSet {
	fs := pflag.NewFlagSet("scistream", pflag.ContinueOnError)
	fs.StringP("config", "c", "", "path to a YAML/JSON/TOML config file")
	fs.StringSliceP("ensemble", "e", nil, "ensemble names to evaluate with default settings (overrides the config list)")
	fs.String("learner", "", "base learner name")
	fs.Int("limit", 0, "maximum number of source instances")
	fs.String("source", "", "source type: sea, csv or npy")
	fs.String("path", "", "source file for csv or npy")
	fs.String("plot", "", "write the learning curves to this image file")
	fs.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.Bool("list", false, "list registered ensembles and learners and exit")
	return fs
}

var flagKeys = map[string]string{
	"learner":      "learner.name",
	"limit":        "source.limit",
	"source":       "source.type",
	"path":         "source.path",
	"plot":         "plot.path",
	"metrics-addr": "metrics_addr",
	"log-level":    "log.level",
}

// loadConfig merges defaults, the optional config file, SCISTREAM_* environment
// variables and flags, in increasing priority.
func loadConfig(fs *pflag.FlagSet) (*config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("SCISTREAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, errors.Wrapf(err, "bind flag %s", flag)
		}
	}

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	}

	cfg := &config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	if names, _ := fs.GetStringSlice("ensemble"); len(names) > 0 {
		cfg.Ensembles = cfg.Ensembles[:0]
		for _, n := range names {
			cfg.Ensembles = append(cfg.Ensembles, ensemble.Settings{Name: n})
		}
	}
	return cfg, cfg.validate()
}

func (c *config) validate() error {
	if len(c.Ensembles) == 0 {
		return errors.NewValidationError("ensembles", "at least one ensemble is required", nil)
	}
	switch c.Source.Type {
	case "sea":
	case "csv", "npy":
		if c.Source.Path == "" {
			return errors.NewValidationError("source.path", "required for file sources", c.Source.Type)
		}
	default:
		return errors.NewValidationError("source.type", "must be sea, csv or npy", c.Source.Type)
	}
	if len([]rune(c.Source.Delimiter)) != 1 {
		return errors.NewValidationError("source.delimiter", "must be a single character", c.Source.Delimiter)
	}
	if c.Source.Limit < 0 {
		return errors.NewValidationError("source.limit", "must be non-negative", c.Source.Limit)
	}
	return nil
}
