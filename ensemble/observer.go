package ensemble

// Observer receives ensemble events. Calls are made from the goroutine that
// drives the ensemble, never from member workers.
type Observer interface {
	// Trained reports the multiplicity used for one member on one instance.
	Trained(ensemble string, member int, multiplicity float64)
	// Drift reports a confirmed change on a member.
	Drift(ensemble string, member int)
	// Warning reports a warning signal, usually followed by a background learner.
	Warning(ensemble string, member int)
	// Replaced reports a pool action (reset, promote, replace, add, reuse) on a slot.
	Replaced(ensemble string, member int, action string)
	// Failed reports a recovered member failure.
	Failed(ensemble string, member int)
	// Chunk reports a processed chunk boundary.
	Chunk(ensemble string, chunk int)
}

// NopObserver ignores every event.
type NopObserver struct{}

func (NopObserver) Trained(string, int, float64) {}
func (NopObserver) Drift(string, int)            {}
func (NopObserver) Warning(string, int)          {}
func (NopObserver) Replaced(string, int, string) {}
func (NopObserver) Failed(string, int)           {}
func (NopObserver) Chunk(string, int)            {}

// Observers fans events out to several observers.
type Observers []Observer

func (o Observers) Trained(e string, m int, k float64) {
	for _, x := range o {
		x.Trained(e, m, k)
	}
}

func (o Observers) Drift(e string, m int) {
	for _, x := range o {
		x.Drift(e, m)
	}
}

func (o Observers) Warning(e string, m int) {
	for _, x := range o {
		x.Warning(e, m)
	}
}

func (o Observers) Replaced(e string, m int, action string) {
	for _, x := range o {
		x.Replaced(e, m, action)
	}
}

func (o Observers) Failed(e string, m int) {
	for _, x := range o {
		x.Failed(e, m)
	}
}

func (o Observers) Chunk(e string, c int) {
	for _, x := range o {
		x.Chunk(e, c)
	}
}
