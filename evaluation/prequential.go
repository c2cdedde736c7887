// Package evaluation runs prequential (test-then-train) evaluation of online
// learners over a stream.Source and records learning curves.
package evaluation

import (
	"context"
	"time"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/metrics"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
	"github.com/YuminosukeSato/scistream/stream"
)

// Point is one sample of a learning curve.
type Point struct {
	Instances int64 `json:"instances"`
	// classification
	Accuracy         float64 `json:"accuracy,omitempty"`
	WindowedAccuracy float64 `json:"windowed_accuracy,omitempty"`
	Kappa            float64 `json:"kappa,omitempty"`
	// regression
	MSE float64 `json:"mse,omitempty"`
	MAE float64 `json:"mae,omitempty"`
}

// Result is the outcome of a prequential run.
type Result struct {
	Instances      int64
	Elapsed        time.Duration
	Curve          []Point
	Classification *metrics.ClassificationMetrics
	Regression     *metrics.RegressionMetrics
}

// Final returns the last point of the curve, or a zero Point.
func (r *Result) Final() Point {
	if len(r.Curve) == 0 {
		return Point{}
	}
	return r.Curve[len(r.Curve)-1]
}

// Option configures a Prequential run.
type Option func(*Prequential)

// WithRegression scores single-element votes with regression metrics.
func WithRegression() Option {
	return func(p *Prequential) { p.regression = true }
}

// WithSampleEvery records a curve point every n instances.
func WithSampleEvery(n int) Option {
	return func(p *Prequential) { p.every = n }
}

// WithWindow sets the window of the windowed accuracy.
func WithWindow(n int) Option {
	return func(p *Prequential) { p.window = n }
}

// WithMaxInstances stops after n instances; 0 means until the source ends.
func WithMaxInstances(n int64) Option {
	return func(p *Prequential) { p.max = n }
}

// WithLogger sets the logger for progress records.
func WithLogger(l log.Logger) Option {
	return func(p *Prequential) { p.logger = l }
}

// Prequential predicts every instance before training on it.
type Prequential struct {
	learner    model.Learner
	regression bool
	every      int
	window     int
	max        int64
	logger     log.Logger
}

// NewPrequential validates the options and returns an evaluator for l.
func NewPrequential(l model.Learner, opts ...Option) (*Prequential, error) {
	p := &Prequential{learner: l, every: 1000, window: metrics.DefaultWindow}
	for _, opt := range opts {
		opt(p)
	}
	switch {
	case l == nil:
		return nil, errors.NewValidationError("learner", "learner is required", nil)
	case p.every < 1:
		return nil, errors.NewValidationError("sample_every", "must be at least 1", p.every)
	case p.window < 1:
		return nil, errors.NewValidationError("window", "must be at least 1", p.window)
	case p.max < 0:
		return nil, errors.NewValidationError("max_instances", "must be non-negative", p.max)
	}
	if p.logger == nil {
		p.logger = log.GetLogger()
	}
	p.logger = p.logger.With(log.ComponentKey, "evaluation", log.ModelNameKey, model.NameOf(l))
	return p, nil
}

// Run consumes src until it ends, ctx is done, or the instance limit is reached.
// Instances flow through stream.Channel into model.FitPredictStream, so the
// source is read concurrently with the learner. A prediction or training
// error stops the run and is returned with the partial result.
func (p *Prequential) Run(ctx context.Context, src stream.Source) (*Result, error) {
	start := time.Now()
	res := &Result{}
	if p.regression {
		res.Regression = metrics.NewRegressionMetrics()
	} else {
		res.Classification = metrics.NewClassificationMetrics(p.window)
	}
	if err := ctx.Err(); err != nil {
		return p.finish(res, start), errors.Wrap(err, "read instance")
	}
	if p.max > 0 {
		src = stream.Limit(src, p.max)
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	in, stop := stream.Channel(runCtx, src)
	for pr := range model.FitPredictStream(runCtx, p.learner, in) {
		n := res.Instances + 1
		if pr.Err != nil {
			return p.finish(res, start), errors.Wrapf(pr.Err, "predict instance %d", n)
		}
		if err := p.score(res, pr.Instance, pr.Vote); err != nil {
			return p.finish(res, start), errors.Wrapf(err, "predict instance %d", n)
		}
		if pr.TrainErr != nil {
			return p.finish(res, start), errors.Wrapf(pr.TrainErr, "train instance %d", n)
		}
		res.Instances = n
		if n%int64(p.every) == 0 {
			pt := p.point(res)
			res.Curve = append(res.Curve, pt)
			p.logger.Debug("prequential checkpoint",
				log.SamplesKey, pt.Instances,
				log.AccuracyKey, pt.Accuracy,
				log.KappaKey, pt.Kappa,
				log.LossKey, pt.MSE,
			)
		}
	}
	if err := stop(); err != nil {
		return p.finish(res, start), errors.Wrap(err, "read instance")
	}
	if err := ctx.Err(); err != nil {
		return p.finish(res, start), errors.Wrap(err, "read instance")
	}
	return p.finish(res, start), nil
}

func (p *Prequential) score(res *Result, inst model.Instance, vote []float64) error {
	w := inst.EffectiveWeight()
	if p.regression {
		pred := 0.0
		if len(vote) > 0 {
			pred = vote[0]
		}
		res.Regression.Update(inst.Y, pred, w)
		return nil
	}
	pred := -1
	if model.UsableVote(vote) {
		pred = model.ArgMax(vote)
	}
	return res.Classification.Update(inst.Class(), pred, w)
}

func (p *Prequential) point(res *Result) Point {
	pt := Point{Instances: res.Instances}
	if p.regression {
		pt.MSE = res.Regression.MSE()
		pt.MAE = res.Regression.MAE()
		return pt
	}
	pt.Accuracy = res.Classification.Accuracy()
	pt.WindowedAccuracy = res.Classification.WindowedAccuracy()
	pt.Kappa = res.Classification.Kappa()
	return pt
}

// finish appends a final point when the last instance was not sampled.
func (p *Prequential) finish(res *Result, start time.Time) *Result {
	res.Elapsed = time.Since(start)
	if res.Instances > 0 && res.Instances%int64(p.every) != 0 {
		res.Curve = append(res.Curve, p.point(res))
	}
	final := res.Final()
	p.logger.Info("prequential evaluation finished",
		log.SamplesKey, res.Instances,
		log.AccuracyKey, final.Accuracy,
		log.KappaKey, final.Kappa,
		log.LossKey, final.MSE,
		log.DurationMsKey, res.Elapsed.Milliseconds(),
	)
	return res
}
