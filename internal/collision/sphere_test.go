package collision

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

func ball(t *testing.T, name string, pos mgl64.Vec3, radius float64) *body.Body {
	t.Helper()
	root := body.NewLink(name)
	root.JointType = body.JointFree
	root.Mass = 1
	root.Spheres = []body.Sphere{{Radius: radius}}
	b, err := body.New(name, root)
	if err != nil {
		t.Fatal(err)
	}
	b.Root().P = pos
	return b
}

func TestGroundContacts(t *testing.T) {
	tests := []struct {
		name      string
		z         float64
		wantCount int
		wantDepth float64
	}{
		{"penetrating", 0.099, 1, 0.001},
		{"touching", 0.1, 1, 0},
		{"within margin", 0.105, 1, -0.005},
		{"far above", 0.5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewSphereDetector()
			contacts := d.Detect([]*body.Body{ball(t, "b", mgl64.Vec3{0, 0, tt.z}, 0.1)})
			if len(contacts) != tt.wantCount {
				t.Fatalf("got %d contacts, want %d", len(contacts), tt.wantCount)
			}
			if tt.wantCount == 0 {
				return
			}
			c := contacts[0]
			if math.Abs(c.Depth-tt.wantDepth) > 1e-12 {
				t.Errorf("depth = %g, want %g", c.Depth, tt.wantDepth)
			}
			if c.LinkB != nil {
				t.Error("ground contact must have a nil LinkB")
			}
			if c.Normal != (mgl64.Vec3{0, 0, 1}) {
				t.Errorf("normal = %v", c.Normal)
			}
		})
	}
}

func TestSphereSphereContact(t *testing.T) {
	a := ball(t, "a", mgl64.Vec3{0.19, 0, 1}, 0.1)
	b := ball(t, "b", mgl64.Vec3{0, 0, 1}, 0.1)
	d := &SphereDetector{Margin: DefaultMargin}

	contacts := d.Detect([]*body.Body{a, b})
	if len(contacts) != 1 {
		t.Fatalf("got %d contacts, want 1", len(contacts))
	}
	c := contacts[0]
	if math.Abs(c.Depth-0.01) > 1e-12 {
		t.Errorf("depth = %g, want 0.01", c.Depth)
	}
	if c.Normal.Sub(mgl64.Vec3{1, 0, 0}).Len() > 1e-12 {
		t.Errorf("normal should point from B to A, got %v", c.Normal)
	}
	if math.Abs(c.Position.X()-0.095) > 1e-12 {
		t.Errorf("contact point x = %g, want 0.095", c.Position.X())
	}
	if c.Separation() != 0 {
		t.Errorf("penetrating contact has separation %g", c.Separation())
	}
}

func TestSameBodySpheresIgnored(t *testing.T) {
	b := ball(t, "a", mgl64.Vec3{0, 0, 1}, 0.1)
	b.Root().Spheres = append(b.Root().Spheres, body.Sphere{Center: mgl64.Vec3{0.05, 0, 0}, Radius: 0.1})
	d := &SphereDetector{Margin: DefaultMargin}
	if got := d.Detect([]*body.Body{b}); len(got) != 0 {
		t.Errorf("self contacts reported: %d", len(got))
	}
}
