package world

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/collision"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/penalty"
)

func ball(t *testing.T, z float64) *body.Body {
	t.Helper()
	root := body.NewLink("ball")
	root.JointType = body.JointFree
	root.Mass = 1
	root.Inertia = mgl64.Diag3(mgl64.Vec3{0.004, 0.004, 0.004})
	root.Spheres = []body.Sphere{{Radius: 0.1}}
	root.P = mgl64.Vec3{0, 0, z}
	b, err := body.New("ball", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return b
}

// pendulum has a point mass one meter along x from a revolute joint about y.
func pendulum(t *testing.T, floating bool) *body.Body {
	t.Helper()
	root := body.NewLink("base")
	if floating {
		root.JointType = body.JointFree
		root.Mass = 1
		root.Inertia = mgl64.Diag3(mgl64.Vec3{0.1, 0.1, 0.1})
	}
	arm := root.AddChild(body.NewLink("arm"))
	arm.JointType = body.JointRevolute
	arm.Axis = mgl64.Vec3{0, 1, 0}
	arm.Mass = 1
	arm.COM = mgl64.Vec3{1, 0, 0}
	if floating {
		arm.Inertia = mgl64.Diag3(mgl64.Vec3{0.01, 0.01, 0.01})
	}
	b, err := body.New("pendulum", root)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	b.CalcForwardKinematics(true, true)
	return b
}

func TestInitializeRejectsTimeStep(t *testing.T) {
	for _, dt := range []float64{0, -0.001, math.NaN(), math.Inf(1)} {
		w := New()
		w.SetTimeStep(dt)
		if err := w.Initialize(); !errors.Is(err, dynamo.ErrInvalidTimeStep) {
			t.Errorf("dt=%g: err = %v, want ErrInvalidTimeStep", dt, err)
		}
	}
}

func TestFreeFall(t *testing.T) {
	w := New()
	w.SetTimeStep(0.01)
	b := ball(t, 10)
	w.AddBody(b, ForwardDynamicsStrategy)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		if err := w.CalcNextState(); err != nil {
			t.Fatal(err)
		}
	}
	root := b.Root()
	if got, want := root.V.Z(), -9.80665*0.1; math.Abs(got-want) > 1e-9 {
		t.Errorf("vz = %g, want %g", got, want)
	}
	if math.Abs(w.CurrentTime()-0.1) > 1e-12 {
		t.Errorf("time = %g", w.CurrentTime())
	}
	if root.P.Z() >= 10 {
		t.Errorf("ball did not fall: z = %g", root.P.Z())
	}
}

func TestBallSettlesOnGround(t *testing.T) {
	w := New()
	w.SetTimeStep(0.001)
	w.EnableSensors(true)
	b := ball(t, 0.1)
	idx := w.AddBody(b, ForwardDynamicsStrategy)
	w.ConstraintForceSolver.SetCollisionDetector(collision.NewSphereDetector())
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3000; i++ {
		w.ConstraintForceSolver.ClearExternalForces()
		if err := w.CalcNextState(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}

	cfg := penalty.DefaultConfig()
	g := 9.80665
	want := (g + cfg.Kv*cfg.CorrectionVelocityRatio*cfg.CorrectionDepth) / (cfg.Kp + cfg.Kv*cfg.CorrectionVelocityRatio)
	depth := 0.1 - b.Root().P.Z()
	if math.Abs(depth-want) > 1e-5 {
		t.Errorf("depth = %g, want %g", depth, want)
	}
	if fz := w.ContactForce(idx).Z(); math.Abs(fz-g) > 0.05 {
		t.Errorf("contact force = %g, want %g", fz, g)
	}
	if v := b.Root().V.Len(); v > 1e-3 {
		t.Errorf("ball still moving: %g", v)
	}
}

func TestContactForceNeedsSensors(t *testing.T) {
	w := New()
	b := ball(t, 0.095)
	idx := w.AddBody(b, ForwardDynamicsStrategy)
	w.ConstraintForceSolver.SetCollisionDetector(collision.NewSphereDetector())
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := w.CalcNextState(); err != nil {
		t.Fatal(err)
	}
	if f := w.ContactForce(idx); f.Len() != 0 {
		t.Errorf("contact force = %v with sensors disabled", f)
	}
	if len(w.LastSolve().Contacts) != 1 {
		t.Errorf("contacts = %d, want 1", len(w.LastSolve().Contacts))
	}
}

func TestPendulumAcceleration(t *testing.T) {
	w := New()
	b := pendulum(t, false)
	w.AddBody(b, ForwardDynamicsStrategy)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	if err := w.CalcNextState(); err != nil {
		t.Fatal(err)
	}
	arm := b.LinkByName("arm")
	if math.Abs(arm.DDQ-9.80665) > 1e-9 {
		t.Errorf("ddq = %g, want g", arm.DDQ)
	}
	if arm.Q <= 0 {
		t.Errorf("q = %g, want the arm to swing down", arm.Q)
	}
}

func TestHighGainIgnoresDisturbance(t *testing.T) {
	run := func(push bool) (ddq, u float64) {
		w := New()
		b := pendulum(t, false)
		w.AddBody(b, HighGainStrategy)
		if err := w.Initialize(); err != nil {
			t.Fatal(err)
		}
		arm := b.LinkByName("arm")
		arm.DDQ = 2
		if push {
			arm.AddExternalForce(mgl64.Vec3{0, 0, -5}, arm.COMWorld())
		}
		if err := w.CalcNextState(); err != nil {
			t.Fatal(err)
		}
		return arm.DDQ, arm.U
	}

	ddq0, u0 := run(false)
	ddq1, u1 := run(true)
	if ddq0 != 2 || ddq1 != 2 {
		t.Errorf("ddq = %g, %g, want 2", ddq0, ddq1)
	}
	if math.Abs(u0-(2-9.80665)) > 1e-9 {
		t.Errorf("u = %g, want %g", u0, 2-9.80665)
	}
	if math.Abs((u0-u1)-5) > 1e-9 {
		t.Errorf("torque change = %g, want 5", u0-u1)
	}
}

func TestHighGainFloatingBase(t *testing.T) {
	w := New()
	b := pendulum(t, true)
	w.AddBody(b, HighGainStrategy)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}
	arm := b.LinkByName("arm")
	arm.DDQ = 1
	b.Root().AddExternalForce(mgl64.Vec3{3, 0, 0}, b.Root().P)
	if err := w.CalcNextState(); err != nil {
		t.Fatal(err)
	}
	if arm.DDQ != 1 {
		t.Errorf("ddq = %g, want 1", arm.DDQ)
	}
	if b.Root().DV.X() <= 0 {
		t.Errorf("root not pushed: dv = %v", b.Root().DV)
	}
}

func TestDelassusPointMass(t *testing.T) {
	w := New()
	root := body.NewLink("box")
	root.JointType = body.JointFree
	root.Mass = 2
	root.Inertia = mgl64.Ident3()
	b, err := body.New("box", root)
	if err != nil {
		t.Fatal(err)
	}
	w.AddBody(b, ForwardDynamicsStrategy)
	if err := w.Initialize(); err != nil {
		t.Fatal(err)
	}

	x := mgl64.Vec3{1, 0, 0}
	a := w.Delassus([]penalty.Direction{
		{LinkA: root, Point: root.P, Dir: x},
		{LinkA: root, Point: mgl64.Vec3{0, 1, 0}, Dir: x},
	})
	tests := []struct {
		i, j int
		want float64
	}{
		{0, 0, 0.5},
		{1, 1, 1.5},
		{0, 1, 0.5},
	}
	for _, tt := range tests {
		if got := a.At(tt.i, tt.j); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("A[%d,%d] = %g, want %g", tt.i, tt.j, got, tt.want)
		}
	}
}

func TestOrthonormalize(t *testing.T) {
	r := mgl64.HomogRotate3D(0.3, mgl64.Vec3{0, 0, 1}).Mat3()
	r[0] *= 1.01
	o := orthonormalize(r)
	d := o.Mul3(o.Transpose()).Sub(mgl64.Ident3())
	for i, v := range d {
		if math.Abs(v) > 1e-12 {
			t.Errorf("not orthonormal: R R^T - I has %g at %d", v, i)
		}
	}
	if math.Abs(o.Det()-1) > 1e-12 {
		t.Errorf("det = %g", o.Det())
	}
}
