package ensemble

import (
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/scistream/core/model"
	"github.com/YuminosukeSato/scistream/learner"
	"github.com/YuminosukeSato/scistream/pkg/errors"
	"github.com/YuminosukeSato/scistream/pkg/log"
)

// blobs returns two separated Gaussian classes in two dimensions. flip swaps
// the labels, which makes an abrupt concept drift.
func blobs(n int, seed uint64, flip bool) []model.Instance {
	rng := rand.New(rand.NewPCG(seed, seed+7))
	out := make([]model.Instance, n)
	for i := range out {
		c := i % 2
		center := -2.0
		if c == 1 {
			center = 2.0
		}
		y := c
		if flip {
			y = 1 - c
		}
		out[i] = model.Instance{
			X: []float64{center + rng.NormFloat64()*0.7, center + rng.NormFloat64()*0.7},
			Y: float64(y),
		}
	}
	return out
}

func nbFactory() model.Learner       { return learner.NewGaussianNB() }
func majorityFactory() model.Learner { return learner.NewMajorityClass() }

func trainAll(t *testing.T, l model.Learner, data []model.Instance) {
	t.Helper()
	for _, inst := range data {
		require.NoError(t, l.Train(inst, 1))
	}
}

func accuracy(t *testing.T, l model.Learner, data []model.Instance) float64 {
	t.Helper()
	correct := 0
	for _, inst := range data {
		k, err := PredictClass(l, inst)
		require.NoError(t, err)
		if k == inst.Class() {
			correct++
		}
	}
	return float64(correct) / float64(len(data))
}

func predictions(t *testing.T, l model.Learner, data []model.Instance) [][]float64 {
	t.Helper()
	out := make([][]float64, len(data))
	for i, inst := range data {
		v, err := l.Predict(inst)
		require.NoError(t, err)
		out[i] = v
	}
	return out
}

// failingLearner fails every training call, or panics when panicky is set.
type failingLearner struct {
	panicky bool
}

func (f *failingLearner) Train(model.Instance, float64) error {
	if f.panicky {
		panic("corrupted learner state")
	}
	return errors.New("malformed instance")
}

func (f *failingLearner) Predict(model.Instance) ([]float64, error) {
	if f.panicky {
		panic("corrupted learner state")
	}
	return nil, errors.New("malformed instance")
}

func (f *failingLearner) Reset()               {}
func (f *failingLearner) Clone() model.Learner { return &failingLearner{panicky: f.panicky} }

// event is one recorded observer call.
type event struct {
	Kind   string
	Member int
	Value  float64
	Action string
}

type recorder struct {
	mu     sync.Mutex
	events []event
}

func (r *recorder) add(e event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) Trained(_ string, m int, k float64) {
	r.add(event{Kind: "trained", Member: m, Value: k})
}
func (r *recorder) Drift(_ string, m int)   { r.add(event{Kind: "drift", Member: m}) }
func (r *recorder) Warning(_ string, m int) { r.add(event{Kind: "warning", Member: m}) }
func (r *recorder) Replaced(_ string, m int, a string) {
	r.add(event{Kind: "replaced", Member: m, Action: a})
}
func (r *recorder) Failed(_ string, m int) { r.add(event{Kind: "failed", Member: m}) }
func (r *recorder) Chunk(_ string, c int)  { r.add(event{Kind: "chunk", Value: float64(c)}) }

func (r *recorder) filter(kind string) []event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []event
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

func testLogger() *log.TestLogger {
	l, _ := log.NewTestLogger(log.LevelDebug)
	return l
}
