package body

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// JointType is the joint connecting a link to its parent.
type JointType int

const (
	JointFixed JointType = iota
	JointFree
	JointRevolute
	JointPrismatic
)

func (j JointType) String() string {
	switch j {
	case JointFixed:
		return "fixed"
	case JointFree:
		return "free"
	case JointRevolute:
		return "revolute"
	case JointPrismatic:
		return "prismatic"
	}
	return fmt.Sprintf("JointType(%d)", int(j))
}

// ParseJointType maps the model-file spelling to a JointType.
func ParseJointType(s string) (JointType, error) {
	switch s {
	case "fixed", "":
		return JointFixed, nil
	case "free":
		return JointFree, nil
	case "revolute", "rotate":
		return JointRevolute, nil
	case "prismatic", "slide":
		return JointPrismatic, nil
	}
	return JointFixed, fmt.Errorf("unknown joint type %q", s)
}

// Sphere is a contact sphere attached to a link, centered in link coordinates.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

// Link is one rigid segment of a body. Kinematic state is expressed in world
// coordinates; P and V refer to the link origin (the joint position).
type Link struct {
	Name     string
	Index    int
	Parent   *Link
	Children []*Link

	JointType JointType
	// JointID is the position in Body.Joints, -1 without a 1-DOF joint.
	JointID int
	// Axis is the joint axis in the link frame.
	Axis mgl64.Vec3
	// Offset is the joint origin in the parent frame.
	Offset mgl64.Vec3

	Mass    float64
	COM     mgl64.Vec3
	Inertia mgl64.Mat3
	Spheres []Sphere

	Q, DQ, DDQ, U float64

	P      mgl64.Vec3
	R      mgl64.Mat3
	V, W   mgl64.Vec3
	DV, DW mgl64.Vec3

	// FExt is a force acting on the link origin, TauExt a torque, both in world coordinates.
	FExt, TauExt mgl64.Vec3
}

// NewLink returns a massless fixed link at the identity pose.
func NewLink(name string) *Link {
	return &Link{
		Name:    name,
		JointID: -1,
		R:       mgl64.Ident3(),
	}
}

// AddChild attaches c below l.
func (l *Link) AddChild(c *Link) *Link {
	c.Parent = l
	l.Children = append(l.Children, c)
	return c
}

func (l *Link) IsRoot() bool { return l.Parent == nil }

// HasJoint reports whether the link carries a 1-DOF joint.
func (l *Link) HasJoint() bool {
	return l.JointType == JointRevolute || l.JointType == JointPrismatic
}

// WorldAxis returns the joint axis in world coordinates.
func (l *Link) WorldAxis() mgl64.Vec3 {
	return l.R.Mul3x1(l.Axis)
}

// COMWorld returns the center of mass in world coordinates.
func (l *Link) COMWorld() mgl64.Vec3 {
	return l.P.Add(l.R.Mul3x1(l.COM))
}

// InertiaWorld returns the inertia tensor about the COM in world axes.
func (l *Link) InertiaWorld() mgl64.Mat3 {
	return l.R.Mul3(l.Inertia).Mul3(l.R.Transpose())
}

// PointVelocity returns the velocity of the world point x rigidly attached to l.
func (l *Link) PointVelocity(x mgl64.Vec3) mgl64.Vec3 {
	return l.V.Add(l.W.Cross(x.Sub(l.P)))
}

// PointAcceleration returns the acceleration of the world point x rigidly attached to l.
func (l *Link) PointAcceleration(x mgl64.Vec3) mgl64.Vec3 {
	r := x.Sub(l.P)
	return l.DV.Add(l.DW.Cross(r)).Add(l.W.Cross(l.W.Cross(r)))
}

// AddExternalForce applies f at the world point x.
func (l *Link) AddExternalForce(f, x mgl64.Vec3) {
	l.FExt = l.FExt.Add(f)
	l.TauExt = l.TauExt.Add(x.Sub(l.P).Cross(f))
}

func (l *Link) clearState() {
	l.V, l.W, l.DV, l.DW = mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}
}

func rotation(axis mgl64.Vec3, angle float64) mgl64.Mat3 {
	if angle == 0 {
		return mgl64.Ident3()
	}
	return mgl64.HomogRotate3D(angle, axis).Mat3()
}
