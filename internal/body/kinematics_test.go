package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func planarArm(t *testing.T) *Body {
	t.Helper()
	root := NewLink("base")
	j1 := root.AddChild(NewLink("shoulder"))
	j1.JointType = JointRevolute
	j1.Axis = mgl64.Vec3{0, 0, 1}
	j2 := j1.AddChild(NewLink("elbow"))
	j2.JointType = JointRevolute
	j2.Axis = mgl64.Vec3{0, 0, 1}
	j2.Offset = mgl64.Vec3{1, 0, 0}
	tip := j2.AddChild(NewLink("tip"))
	tip.Offset = mgl64.Vec3{1, 0, 0}

	b, err := New("arm", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

func vecNear(a, b mgl64.Vec3, tol float64) bool {
	return a.Sub(b).Len() <= tol
}

func TestForwardKinematicsPositions(t *testing.T) {
	b := planarArm(t)
	tests := []struct {
		name   string
		q1, q2 float64
		tip    mgl64.Vec3
	}{
		{"straight", 0, 0, mgl64.Vec3{2, 0, 0}},
		{"shoulder up", math.Pi / 2, 0, mgl64.Vec3{0, 2, 0}},
		{"elbow folded", 0, math.Pi, mgl64.Vec3{0, 0, 0}},
		{"right angle", 0, math.Pi / 2, mgl64.Vec3{1, 1, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b.Joint(0).Q = tt.q1
			b.Joint(1).Q = tt.q2
			b.CalcForwardKinematics(false, false)
			got := b.LinkByName("tip").P
			if !vecNear(got, tt.tip, 1e-9) {
				t.Errorf("tip = %v, want %v", got, tt.tip)
			}
		})
	}
}

func TestForwardKinematicsVelocity(t *testing.T) {
	b := planarArm(t)
	b.Joint(0).Q = math.Pi / 2
	b.Joint(0).DQ = 1
	b.CalcForwardKinematics(true, true)

	tip := b.LinkByName("tip")
	if !vecNear(tip.V, mgl64.Vec3{-2, 0, 0}, 1e-9) {
		t.Errorf("tip velocity = %v, want (-2,0,0)", tip.V)
	}
	// centripetal acceleration points back to the shoulder
	if !vecNear(tip.DV, mgl64.Vec3{0, -2, 0}, 1e-9) {
		t.Errorf("tip acceleration = %v, want (0,-2,0)", tip.DV)
	}
}

func TestJointIDsFollowTreeOrder(t *testing.T) {
	b := planarArm(t)
	if b.NumJoints() != 2 {
		t.Fatalf("expected 2 joints, got %d", b.NumJoints())
	}
	for i, j := range b.Joints() {
		if j.JointID != i {
			t.Errorf("joint %s has id %d, want %d", j.Name, j.JointID, i)
		}
	}
	if b.LinkByName("tip").JointID != -1 {
		t.Error("fixed link must not have a joint id")
	}
}

func TestNewRejectsBadTrees(t *testing.T) {
	root := NewLink("a")
	root.AddChild(NewLink("a"))
	if _, err := New("dup", root); err == nil {
		t.Error("expected duplicate-name error")
	}

	root = NewLink("a")
	c := root.AddChild(NewLink("b"))
	c.JointType = JointFree
	if _, err := New("free", root); err == nil {
		t.Error("expected free-joint error")
	}

	root = NewLink("a")
	c = root.AddChild(NewLink("b"))
	c.JointType = JointRevolute
	if _, err := New("axis", root); err == nil {
		t.Error("expected zero-axis error")
	}
}

func bipedLike(t *testing.T) *Body {
	t.Helper()
	waist := NewLink("waist")
	waist.JointType = JointFree
	waist.Mass = 5

	addLeg := func(side string, y float64) {
		hip := waist.AddChild(NewLink(side + "_hip"))
		hip.JointType = JointRevolute
		hip.Axis = mgl64.Vec3{0, 1, 0}
		hip.Offset = mgl64.Vec3{0, y, -0.1}
		knee := hip.AddChild(NewLink(side + "_knee"))
		knee.JointType = JointRevolute
		knee.Axis = mgl64.Vec3{0, 1, 0}
		knee.Offset = mgl64.Vec3{0, 0, -0.3}
		slider := knee.AddChild(NewLink(side + "_slider"))
		slider.JointType = JointPrismatic
		slider.Axis = mgl64.Vec3{0, 0, 1}
		slider.Offset = mgl64.Vec3{0.02, 0, -0.3}
		ankle := slider.AddChild(NewLink(side + "_ankle"))
		ankle.JointType = JointRevolute
		ankle.Axis = mgl64.Vec3{1, 0, 0}
		ankle.Offset = mgl64.Vec3{0, 0, -0.05}
	}
	addLeg("r", -0.1)
	addLeg("l", 0.1)

	b, err := New("biped", waist)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.FootNames = []string{"r_ankle", "l_ankle"}
	return b
}

func TestLinkTraverseInvertsForwardKinematics(t *testing.T) {
	b := bipedLike(t)
	root := b.Root()
	root.P = mgl64.Vec3{0.1, -0.2, 0.8}
	root.R = rotation(mgl64.Vec3{1, 1, 0}.Normalize(), 0.3)
	root.V = mgl64.Vec3{0.3, 0.1, -0.2}
	root.W = mgl64.Vec3{0.05, -0.4, 0.2}
	root.DV = mgl64.Vec3{1, 2, -3}
	root.DW = mgl64.Vec3{-0.5, 0.25, 0.1}
	for i, j := range b.Joints() {
		j.Q = 0.1 * float64(i+1)
		j.DQ = -0.2 * float64(i)
		j.DDQ = 0.3 * float64(i%3)
	}
	b.CalcForwardKinematics(true, true)

	type snapshot struct{ p, v, w, dv, dw mgl64.Vec3 }
	want := make([]snapshot, b.NumLinks())
	for i, l := range b.Links() {
		want[i] = snapshot{l.P, l.V, l.W, l.DV, l.DW}
	}

	foot := b.LinkByName("l_ankle")
	for _, l := range b.Links() {
		if l != foot {
			l.P, l.R = mgl64.Vec3{}, mgl64.Ident3()
			l.clearState()
		}
	}

	tr := NewLinkTraverse(foot)
	if tr.Base() != foot {
		t.Fatalf("base = %s, want l_ankle", tr.Base().Name)
	}
	if len(tr.Links()) != b.NumLinks() {
		t.Fatalf("traverse visits %d links, want %d", len(tr.Links()), b.NumLinks())
	}
	tr.CalcForwardKinematics(true, true)

	for i, l := range b.Links() {
		s := want[i]
		if !vecNear(l.P, s.p, 1e-9) || !vecNear(l.V, s.v, 1e-9) || !vecNear(l.W, s.w, 1e-9) ||
			!vecNear(l.DV, s.dv, 1e-9) || !vecNear(l.DW, s.dw, 1e-9) {
			t.Errorf("link %s differs after traverse: p=%v want %v, dv=%v want %v", l.Name, l.P, s.p, l.DV, s.dv)
		}
	}
}

func TestCloneIsIndependent(t *testing.T) {
	b := planarArm(t)
	b.Joint(0).Q = 0.5
	c := b.Clone()
	c.Joint(0).Q = 1.5

	if b.Joint(0).Q != 0.5 {
		t.Error("clone shares joint state with the source")
	}
	if c.LinkByName("tip").Parent != c.LinkByName("elbow") {
		t.Error("clone tree is not rewired")
	}
	if c.NumJoints() != b.NumJoints() {
		t.Errorf("clone has %d joints, want %d", c.NumJoints(), b.NumJoints())
	}
}
