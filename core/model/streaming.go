package model

import (
	"context"
)

// Prediction pairs an instance with the vote produced for it. Err is the
// prediction error and TrainErr the error of the training step that followed.
type Prediction struct {
	Instance Instance
	Vote     []float64
	Err      error
	TrainErr error
}

// FitPredictStream predicts each instance and then trains on it
// (test-then-train). The output channel is closed when the input channel is
// closed, ctx ends, or after the first Prediction carrying an error; an
// instance whose prediction failed is not trained on.
func FitPredictStream(ctx context.Context, l Learner, in <-chan Instance) <-chan Prediction {
	out := make(chan Prediction)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case inst, ok := <-in:
				if !ok {
					return
				}
				p := Prediction{Instance: inst}
				p.Vote, p.Err = l.Predict(inst)
				if p.Err == nil {
					p.TrainErr = l.Train(inst, inst.EffectiveWeight())
				}
				select {
				case out <- p:
				case <-ctx.Done():
					return
				}
				if p.Err != nil || p.TrainErr != nil {
					return
				}
			}
		}
	}()
	return out
}
