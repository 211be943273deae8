package metrics

import (
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pmsim/internal/body"
)

// ControlEffort is the mean over samples of the summed absolute joint torque.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
	torques []float64
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(bodies []*body.Body, t float64) {
	c.torques = c.torques[:0]
	for _, b := range bodies {
		for _, j := range b.Joints() {
			c.torques = append(c.torques, j.U)
		}
	}
	if len(c.torques) > 0 {
		c.sum += floats.Norm(c.torques, 1)
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}
