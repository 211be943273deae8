package sim

import "github.com/san-kum/pmsim/internal/body"

// Observer is notified after every completed step.
type Observer interface {
	OnStep(t float64, bodies []*body.Body)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(t float64, bodies []*body.Body)

func (f ObserverFunc) OnStep(t float64, bodies []*body.Body) { f(t, bodies) }

// RunConfig bounds a run. A zero Duration runs until every attached
// controller has finished its motion.
type RunConfig struct {
	Duration    float64
	RecordEvery int
}

// Result holds the recorded rows of a run. States rows follow Header,
// Controls rows follow ControlHeader.
type Result struct {
	Header        []string
	ControlHeader []string
	Times         []float64
	States        [][]float64
	Controls      [][]float64
	Metrics       map[string]float64
	Steps         int
	Warnings      []string
}

// Column returns the recorded values of the named state column.
func (r *Result) Column(name string) ([]float64, bool) {
	idx := -1
	for i, h := range r.Header {
		if h == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	out := make([]float64, len(r.States))
	for i, row := range r.States {
		out[i] = row[idx]
	}
	return out, true
}
