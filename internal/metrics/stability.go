package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pmsim/internal/body"
)

// Stability is the fraction of samples in which no link moved faster than
// the threshold (m/s).
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
	maxSpeed   float64
	speeds     []float64
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(bodies []*body.Body, t float64) {
	s.samples++
	s.speeds = s.speeds[:0]
	for _, b := range bodies {
		for _, l := range b.Links() {
			s.speeds = append(s.speeds, l.V.Len())
		}
	}
	if len(s.speeds) == 0 {
		return
	}
	fastest := floats.Max(s.speeds)
	if fastest > s.maxSpeed {
		s.maxSpeed = fastest
	}
	if fastest > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

// MaxSpeed is the fastest link speed seen so far.
func (s *Stability) MaxSpeed() float64 { return s.maxSpeed }

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
	s.maxSpeed = 0
}
