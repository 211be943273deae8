// Package metrics observes a running simulation and reduces it to scalar
// figures stored with each run.
package metrics

import "github.com/san-kum/pmsim/internal/body"

type Metric interface {
	Name() string
	Observe(bodies []*body.Body, t float64)
	Value() float64
	Reset()
}
