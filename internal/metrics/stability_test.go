package metrics

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

func TestStability(t *testing.T) {
	m := NewStability(10)
	if m.Value() != 1 {
		t.Errorf("stability without samples = %g, want 1", m.Value())
	}

	b := pointMass(t, 0, 1)
	bodies := []*body.Body{b}

	m.Observe(bodies, 0)
	b.Root().V = mgl64.Vec3{0, 20, 0}
	m.Observe(bodies, 0.1)

	if m.Value() != 0.5 {
		t.Errorf("stability = %g, want 0.5", m.Value())
	}
	if m.MaxSpeed() != 20 {
		t.Errorf("max speed = %g, want 20", m.MaxSpeed())
	}

	m.Reset()
	if m.Value() != 1 || m.MaxSpeed() != 0 {
		t.Errorf("after reset: stability = %g, max speed = %g", m.Value(), m.MaxSpeed())
	}
}

func TestControlEffort(t *testing.T) {
	root := body.NewLink("base")
	j := root.AddChild(body.NewLink("hinge"))
	j.JointType = body.JointRevolute
	j.Axis = mgl64.Vec3{0, 0, 1}
	b, err := body.New("arm", root)
	if err != nil {
		t.Fatal(err)
	}

	m := NewControlEffort()
	j.U = -3
	m.Observe([]*body.Body{b}, 0)
	j.U = 1
	m.Observe([]*body.Body{b}, 0.1)
	if m.Value() != 2 {
		t.Errorf("effort = %g, want 2", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("effort after reset = %g, want 0", m.Value())
	}
}
