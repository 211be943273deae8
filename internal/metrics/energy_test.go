package metrics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

var gravity = mgl64.Vec3{0, 0, -9.81}

func pointMass(t *testing.T, z, vx float64) *body.Body {
	t.Helper()
	root := body.NewLink("mass")
	root.JointType = body.JointFree
	root.Mass = 2
	root.P = mgl64.Vec3{0, 0, z}
	root.V = mgl64.Vec3{vx, 0, 0}
	b, err := body.New("mass", root)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestMechanicalEnergy(t *testing.T) {
	b := pointMass(t, 3, 4)
	want := 0.5*2*16 + 2*9.81*3
	if got := MechanicalEnergy(b, gravity); math.Abs(got-want) > 1e-9 {
		t.Errorf("energy = %g, want %g", got, want)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(gravity)
	bodies := []*body.Body{pointMass(t, 1, 1)}

	m.Observe(bodies, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift(gravity)
	b := pointMass(t, 1, 0)
	bodies := []*body.Body{b}

	m.Observe(bodies, 0)
	b.Root().P = mgl64.Vec3{0, 0, 1.1}
	m.Observe(bodies, 0.1)
	b.Root().P = mgl64.Vec3{0, 0, 1}
	m.Observe(bodies, 0.2)

	if got := m.Value(); math.Abs(got-0.1) > 1e-9 {
		t.Errorf("drift = %g, want 0.1", got)
	}
}
