package metrics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/pmsim/internal/body"
)

// MechanicalEnergy is the kinetic plus potential energy of b under gravity g.
func MechanicalEnergy(b *body.Body, g mgl64.Vec3) float64 {
	parts := make([]float64, 0, 2*b.NumLinks())
	for _, l := range b.Links() {
		if l.Mass == 0 {
			continue
		}
		c := l.COMWorld()
		v := l.PointVelocity(c)
		iw := l.InertiaWorld().Mul3x1(l.W)
		parts = append(parts,
			0.5*l.Mass*v.Dot(v)+0.5*l.W.Dot(iw),
			-l.Mass*g.Dot(c))
	}
	return floats.Sum(parts)
}

func totalEnergy(bodies []*body.Body, g mgl64.Vec3) float64 {
	e := 0.0
	for _, b := range bodies {
		e += MechanicalEnergy(b, g)
	}
	return e
}

// Energy is the mean mechanical energy over all samples.
type Energy struct {
	name        string
	gravity     mgl64.Vec3
	samples     int
	totalEnergy float64
}

func NewEnergy(gravity mgl64.Vec3) *Energy {
	return &Energy{
		name:    "energy",
		gravity: gravity,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(bodies []*body.Body, t float64) {
	e.totalEnergy += totalEnergy(bodies, e.gravity)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of the mechanical energy from
// the first sample. Contact and joint torques do work, so it is only a
// conservation check for free or unactuated bodies.
type EnergyDrift struct {
	name          string
	gravity       mgl64.Vec3
	initialEnergy float64
	currentEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift(gravity mgl64.Vec3) *EnergyDrift {
	return &EnergyDrift{
		name:    "energy_drift",
		gravity: gravity,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(bodies []*body.Body, t float64) {
	energy := totalEnergy(bodies, e.gravity)

	if e.samples == 0 {
		e.initialEnergy = energy
	}

	e.currentEnergy = energy
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.currentEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
