package body

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Body is an articulated structure of links. Links are stored parent before
// child, which is the order every recursive pass relies on.
type Body struct {
	Name string
	// FootNames lists the links that act as feet for kinematic walking.
	FootNames []string

	links  []*Link
	joints []*Link
	byName map[string]*Link
}

// New indexes the link tree rooted at root.
func New(name string, root *Link) (*Body, error) {
	if root == nil {
		return nil, fmt.Errorf("body %s: nil root link", name)
	}
	if root.Parent != nil {
		return nil, fmt.Errorf("body %s: root link %s has a parent", name, root.Name)
	}
	b := &Body{Name: name, byName: make(map[string]*Link)}

	var walk func(l *Link) error
	walk = func(l *Link) error {
		if _, dup := b.byName[l.Name]; dup {
			return fmt.Errorf("body %s: duplicate link name %q", name, l.Name)
		}
		if l.JointType == JointFree && l != root {
			return fmt.Errorf("body %s: free joint on non-root link %s", name, l.Name)
		}
		l.Index = len(b.links)
		b.links = append(b.links, l)
		b.byName[l.Name] = l
		if l.HasJoint() {
			if l.Axis.Len() == 0 {
				return fmt.Errorf("body %s: joint %s has a zero axis", name, l.Name)
			}
			l.Axis = l.Axis.Normalize()
			l.JointID = len(b.joints)
			b.joints = append(b.joints, l)
		} else {
			l.JointID = -1
		}
		for _, c := range l.Children {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Body) Root() *Link      { return b.links[0] }
func (b *Body) Links() []*Link   { return b.links }
func (b *Body) NumLinks() int    { return len(b.links) }
func (b *Body) Link(i int) *Link { return b.links[i] }
func (b *Body) Joints() []*Link  { return b.joints }
func (b *Body) NumJoints() int   { return len(b.joints) }
func (b *Body) Joint(i int) *Link {
	return b.joints[i]
}

// LinkByName returns nil when no link has that name.
func (b *Body) LinkByName(name string) *Link {
	return b.byName[name]
}

// IsStatic reports whether the body has no degree of freedom at all.
func (b *Body) IsStatic() bool {
	return b.Root().JointType != JointFree && len(b.joints) == 0
}

// ClearExternalForces zeroes FExt and TauExt on every link.
func (b *Body) ClearExternalForces() {
	for _, l := range b.links {
		l.FExt = mgl64.Vec3{}
		l.TauExt = mgl64.Vec3{}
	}
}

// TotalMass sums link masses.
func (b *Body) TotalMass() float64 {
	m := 0.0
	for _, l := range b.links {
		m += l.Mass
	}
	return m
}

// CenterOfMass returns the mass-weighted COM in world coordinates.
func (b *Body) CenterOfMass() mgl64.Vec3 {
	var c mgl64.Vec3
	m := 0.0
	for _, l := range b.links {
		c = c.Add(l.COMWorld().Mul(l.Mass))
		m += l.Mass
	}
	if m == 0 {
		return b.Root().P
	}
	return c.Mul(1 / m)
}

// JointPositions copies the joint angles in joint-id order.
func (b *Body) JointPositions() []float64 {
	q := make([]float64, len(b.joints))
	for i, j := range b.joints {
		q[i] = j.Q
	}
	return q
}

// Clone deep-copies the body, including the current state.
func (b *Body) Clone() *Body {
	copies := make([]*Link, len(b.links))
	for i, l := range b.links {
		c := *l
		c.Parent = nil
		c.Children = nil
		c.Spheres = append([]Sphere(nil), l.Spheres...)
		copies[i] = &c
	}
	for i, l := range b.links {
		if l.Parent != nil {
			copies[l.Parent.Index].AddChild(copies[i])
		}
	}
	nb, err := New(b.Name, copies[0])
	if err != nil {
		// the source body was already validated
		panic(err)
	}
	nb.FootNames = append([]string(nil), b.FootNames...)
	return nb
}
