package control

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

func oneJoint(t *testing.T) *body.Body {
	t.Helper()
	root := body.NewLink("base")
	j := root.AddChild(body.NewLink("hinge"))
	j.JointType = body.JointRevolute
	j.Axis = mgl64.Vec3{0, 0, 1}
	b, err := body.New("hinge", root)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestServoPushesTowardsTarget(t *testing.T) {
	b := oneJoint(t)
	s := NewServo(10, 0.1, 5, []float64{0})
	if err := s.Start(b, 0.001); err != nil {
		t.Fatal(err)
	}
	b.Joint(0).Q = 1
	if !s.Step(0) {
		t.Fatal("servo stopped")
	}
	if u := b.Joint(0).U; u != -10 {
		t.Errorf("first torque = %g, want -10", u)
	}
	b.Joint(0).Q = 0.9
	s.Step(0.1)
	if u := b.Joint(0).U; u >= 0 {
		t.Errorf("servo should push back, got %g", u)
	}
	if s.HighGain() {
		t.Error("servo is not a high-gain controller")
	}
}

func TestServoHoldsInitialPosture(t *testing.T) {
	b := oneJoint(t)
	b.Joint(0).Q = 0.4
	s := NewServo(10, 0, 0, nil)
	if err := s.Start(b, 0.001); err != nil {
		t.Fatal(err)
	}
	s.Step(0)
	if u := b.Joint(0).U; u != 0 {
		t.Errorf("torque at target = %g", u)
	}
}

func TestServoParams(t *testing.T) {
	s := NewServo(1, 2, 3, nil)
	s.SetParam("Kd", 7)
	s.SetParam("bogus", 1)
	p := s.GetParams()
	if p["Kp"] != 1 || p["Ki"] != 2 || p["Kd"] != 7 {
		t.Errorf("params = %v", p)
	}
}
