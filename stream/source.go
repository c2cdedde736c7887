// Package stream provides instance sources for online learners: in-memory
// slices, CSV and .npy files, and a synthetic generator with concept drift.
package stream

import (
	"context"
	"io"

	"github.com/YuminosukeSato/scistream/core/model"
)

// Source yields instances one at a time. Next returns io.EOF when the
// source is exhausted and ctx.Err() when the context is done.
type Source interface {
	Next(ctx context.Context) (model.Instance, error)
}

// SliceSource replays a fixed slice of instances.
type SliceSource struct {
	instances []model.Instance
	pos       int
}

// NewSliceSource returns a source over instances. The slice is not copied.
func NewSliceSource(instances []model.Instance) *SliceSource {
	return &SliceSource{instances: instances}
}

// Next returns the next instance.
func (s *SliceSource) Next(ctx context.Context) (model.Instance, error) {
	if err := ctx.Err(); err != nil {
		return model.Instance{}, err
	}
	if s.pos >= len(s.instances) {
		return model.Instance{}, io.EOF
	}
	inst := s.instances[s.pos]
	s.pos++
	return inst, nil
}

// Rewind restarts the replay.
func (s *SliceSource) Rewind() { s.pos = 0 }

// limited stops a source after n instances.
type limited struct {
	src  Source
	left int64
}

// Limit returns a source that yields at most n instances of src.
func Limit(src Source, n int64) Source {
	return &limited{src: src, left: n}
}

func (l *limited) Next(ctx context.Context) (model.Instance, error) {
	if l.left <= 0 {
		return model.Instance{}, io.EOF
	}
	inst, err := l.src.Next(ctx)
	if err == nil {
		l.left--
	}
	return inst, err
}

// Take reads up to n instances from src.
func Take(ctx context.Context, src Source, n int) ([]model.Instance, error) {
	out := make([]model.Instance, 0, n)
	for len(out) < n {
		inst, err := src.Next(ctx)
		if err == io.EOF {
			break
		}
		if err != nil {
			return out, err
		}
		out = append(out, inst)
	}
	return out, nil
}

// Channel pumps src into a channel, for use with model.FitPredictStream. The
// channel is closed at the end of the source or when ctx is done; the
// returned function reports the error that stopped the pump, if any.
func Channel(ctx context.Context, src Source) (<-chan model.Instance, func() error) {
	ch := make(chan model.Instance)
	done := make(chan struct{})
	var stopErr error
	go func() {
		defer close(done)
		defer close(ch)
		for {
			inst, err := src.Next(ctx)
			if err == io.EOF {
				return
			}
			if err != nil {
				stopErr = err
				return
			}
			select {
			case ch <- inst:
			case <-ctx.Done():
				stopErr = ctx.Err()
				return
			}
		}
	}()
	return ch, func() error {
		<-done
		return stopErr
	}
}
