package body

import (
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pmsim/internal/dynamo"
)

// ModelSpec is the YAML description of a body.
type ModelSpec struct {
	Name     string     `yaml:"name"`
	Position []float64  `yaml:"position"`
	Feet     []string   `yaml:"feet"`
	Links    []LinkSpec `yaml:"links"`
}

// LinkSpec describes one link. The link without a parent is the root.
type LinkSpec struct {
	Name    string       `yaml:"name"`
	Parent  string       `yaml:"parent"`
	Joint   string       `yaml:"joint"`
	Axis    []float64    `yaml:"axis"`
	Offset  []float64    `yaml:"offset"`
	Q       float64      `yaml:"q"`
	Mass    float64      `yaml:"mass"`
	COM     []float64    `yaml:"com"`
	Inertia []float64    `yaml:"inertia"`
	Spheres []SphereSpec `yaml:"spheres"`
}

type SphereSpec struct {
	Center []float64 `yaml:"center"`
	Radius float64   `yaml:"radius"`
}

// LoadModel reads a model file and builds the body with forward kinematics applied.
func LoadModel(path string) (*Body, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var spec ModelSpec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return spec.Build()
}

// Build validates the model, reporting every problem at once.
func (s *ModelSpec) Build() (*Body, error) {
	var errs error
	links := make(map[string]*Link, len(s.Links))
	var root *Link

	for i, ls := range s.Links {
		if ls.Name == "" {
			errs = multierr.Append(errs, fmt.Errorf("link #%d has no name", i))
			continue
		}
		if _, dup := links[ls.Name]; dup {
			errs = multierr.Append(errs, fmt.Errorf("duplicate link %q", ls.Name))
			continue
		}
		l, err := ls.link()
		if err != nil {
			errs = multierr.Append(errs, err)
			continue
		}
		links[ls.Name] = l
		if ls.Parent == "" {
			if root != nil {
				errs = multierr.Append(errs, fmt.Errorf("link %q: second root (first is %q)", ls.Name, root.Name))
				continue
			}
			root = l
		}
	}
	if root == nil {
		errs = multierr.Append(errs, fmt.Errorf("no root link"))
	}
	for _, ls := range s.Links {
		if ls.Parent == "" {
			continue
		}
		parent, ok := links[ls.Parent]
		child := links[ls.Name]
		if !ok {
			errs = multierr.Append(errs, fmt.Errorf("link %q: unknown parent %q", ls.Name, ls.Parent))
			continue
		}
		if child != nil && child.Parent == nil {
			parent.AddChild(child)
		}
	}
	for _, foot := range s.Feet {
		if _, ok := links[foot]; !ok {
			errs = multierr.Append(errs, fmt.Errorf("foot %q is not a link", foot))
		}
	}
	if errs != nil {
		return nil, fmt.Errorf("%w %s: %w", dynamo.ErrInvalidModel, s.Name, errs)
	}

	b, err := New(s.Name, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrInvalidModel, err)
	}
	if len(b.links) != len(s.Links) {
		return nil, fmt.Errorf("%w %s: %d links are not connected to the root", dynamo.ErrInvalidModel, s.Name, len(s.Links)-len(b.links))
	}
	b.FootNames = append([]string(nil), s.Feet...)
	if p, err := vec3(s.Position, "position"); err == nil {
		b.Root().P = p
	} else {
		return nil, fmt.Errorf("%w %s: %w", dynamo.ErrInvalidModel, s.Name, err)
	}
	b.CalcForwardKinematics(true, true)
	return b, nil
}

func (ls *LinkSpec) link() (*Link, error) {
	var errs error
	l := NewLink(ls.Name)

	jt, err := ParseJointType(ls.Joint)
	errs = multierr.Append(errs, err)
	l.JointType = jt
	if ls.Parent != "" && jt == JointFree {
		errs = multierr.Append(errs, fmt.Errorf("free joint on non-root link"))
	}

	l.Axis, err = vec3(ls.Axis, "axis")
	errs = multierr.Append(errs, err)
	if l.HasJoint() && l.Axis.Len() == 0 {
		errs = multierr.Append(errs, fmt.Errorf("joint needs a non-zero axis"))
	}
	l.Offset, err = vec3(ls.Offset, "offset")
	errs = multierr.Append(errs, err)
	l.COM, err = vec3(ls.COM, "com")
	errs = multierr.Append(errs, err)
	l.Inertia, err = inertia(ls.Inertia)
	errs = multierr.Append(errs, err)

	if ls.Mass < 0 {
		errs = multierr.Append(errs, fmt.Errorf("negative mass %g", ls.Mass))
	}
	l.Mass = ls.Mass
	l.Q = ls.Q

	for _, sp := range ls.Spheres {
		c, err := vec3(sp.Center, "sphere center")
		errs = multierr.Append(errs, err)
		if sp.Radius <= 0 {
			errs = multierr.Append(errs, fmt.Errorf("sphere radius must be positive, got %g", sp.Radius))
		}
		l.Spheres = append(l.Spheres, Sphere{Center: c, Radius: sp.Radius})
	}
	if errs != nil {
		return nil, fmt.Errorf("link %q: %w", ls.Name, errs)
	}
	return l, nil
}

func vec3(v []float64, field string) (mgl64.Vec3, error) {
	switch len(v) {
	case 0:
		return mgl64.Vec3{}, nil
	case 3:
		return mgl64.Vec3{v[0], v[1], v[2]}, nil
	}
	return mgl64.Vec3{}, fmt.Errorf("%s needs 3 values, got %d", field, len(v))
}

// inertia accepts a diagonal (3 values) or a row-major 3x3 tensor.
func inertia(v []float64) (mgl64.Mat3, error) {
	switch len(v) {
	case 0:
		return mgl64.Mat3{}, nil
	case 3:
		return mgl64.Diag3(mgl64.Vec3{v[0], v[1], v[2]}), nil
	case 9:
		// mgl64 matrices are column-major
		return mgl64.Mat3{v[0], v[3], v[6], v[1], v[4], v[7], v[2], v[5], v[8]}, nil
	}
	return mgl64.Mat3{}, fmt.Errorf("inertia needs 3 or 9 values, got %d", len(v))
}
