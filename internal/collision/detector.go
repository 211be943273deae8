// Package collision supplies contact points to the constraint solver.
//
// The solver only depends on the [Detector] interface; [SphereDetector] is a
// small narrow phase that checks link spheres against each other and against
// the ground plane z = 0.
package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

// Contact is one contact point between two links. LinkB is nil for contacts
// with the static environment.
type Contact struct {
	Position mgl64.Vec3
	// Normal is a unit vector pointing from B towards A.
	Normal mgl64.Vec3
	// Depth is positive for penetration and negative for a gap.
	Depth float64
	LinkA *body.Link
	LinkB *body.Link
}

// Separation returns the gap between the two surfaces, zero when touching or penetrating.
func (c Contact) Separation() float64 {
	if c.Depth >= 0 {
		return 0
	}
	return -c.Depth
}

// Detector finds the contacts among a set of bodies for the current poses.
type Detector interface {
	Detect(bodies []*body.Body) []Contact
}

// DetectorFunc adapts a plain function to Detector.
type DetectorFunc func(bodies []*body.Body) []Contact

func (f DetectorFunc) Detect(bodies []*body.Body) []Contact { return f(bodies) }
