package collision

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

// DefaultMargin is the gap below which separated pairs are still reported.
const DefaultMargin = 0.01

// SphereDetector tests link spheres against the ground plane and against the
// spheres of other bodies. Links of the same body never collide with each other.
type SphereDetector struct {
	Ground bool
	Margin float64
}

// NewSphereDetector returns a detector with the ground plane enabled.
func NewSphereDetector() *SphereDetector {
	return &SphereDetector{Ground: true, Margin: DefaultMargin}
}

type worldSphere struct {
	link   *body.Link
	body   int
	center mgl64.Vec3
	radius float64
}

func (d *SphereDetector) Detect(bodies []*body.Body) []Contact {
	var spheres []worldSphere
	for bi, b := range bodies {
		for _, l := range b.Links() {
			for _, s := range l.Spheres {
				spheres = append(spheres, worldSphere{
					link:   l,
					body:   bi,
					center: l.P.Add(l.R.Mul3x1(s.Center)),
					radius: s.Radius,
				})
			}
		}
	}

	var contacts []Contact
	if d.Ground {
		up := mgl64.Vec3{0, 0, 1}
		for _, s := range spheres {
			depth := s.radius - s.center.Z()
			if depth < -d.Margin {
				continue
			}
			contacts = append(contacts, Contact{
				Position: mgl64.Vec3{s.center.X(), s.center.Y(), s.center.Z() - s.radius},
				Normal:   up,
				Depth:    depth,
				LinkA:    s.link,
			})
		}
	}

	for i := range spheres {
		for j := i + 1; j < len(spheres); j++ {
			a, b := spheres[i], spheres[j]
			if a.body == b.body {
				continue
			}
			delta := a.center.Sub(b.center)
			dist := delta.Len()
			depth := a.radius + b.radius - dist
			if depth < -d.Margin || dist == 0 {
				continue
			}
			n := delta.Mul(1 / dist)
			contacts = append(contacts, Contact{
				Position: b.center.Add(n.Mul(b.radius - depth/2)),
				Normal:   n,
				Depth:    depth,
				LinkA:    a.link,
				LinkB:    b.link,
			})
		}
	}
	return contacts
}
