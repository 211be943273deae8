package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/spf13/cast"

	"github.com/san-kum/pmsim/internal/dynamo"
)

// Property is one row of the configuration surface.
type Property struct {
	Name  string
	Key   string
	Value string
	// Symbols lists the accepted values of a selection, nil otherwise.
	Symbols []string
}

type property struct {
	name    string
	key     string
	get     func(Config) string
	set     func(*Config, string) error
	symbols func() []string
}

var properties = []property{
	{
		name: "Dynamics mode", key: "dynamicsMode",
		get: func(c Config) string { return c.DynamicsMode.String() },
		set: func(c *Config, s string) (err error) {
			c.DynamicsMode, err = dynamo.ParseDynamicsMode(s)
			return err
		},
		symbols: dynamo.DynamicsModeSymbols,
	},
	{
		name: "Integration mode", key: "integrationMode",
		get: func(c Config) string { return c.IntegrationMode.String() },
		set: func(c *Config, s string) (err error) {
			c.IntegrationMode, err = dynamo.ParseIntegrationMode(s)
			return err
		},
		symbols: dynamo.IntegrationModeSymbols,
	},
	{
		name: "Gravity", key: "gravity",
		get: func(c Config) string { return formatVec(c.Gravity) },
		set: func(c *Config, s string) (err error) {
			c.Gravity, err = parseVec(s)
			return err
		},
	},
	{
		name: "Static friction", key: "staticFriction",
		get: func(c Config) string { return formatFloat(c.StaticFriction) },
		set: func(c *Config, s string) error { return setMin0(&c.StaticFriction, s) },
	},
	{
		name: "Slip friction", key: "slipFriction",
		get: func(c Config) string { return formatFloat(c.SlipFriction) },
		set: func(c *Config, s string) error { return setMin0(&c.SlipFriction, s) },
	},
	{
		name: "Contact culling distance", key: "cullingThresh",
		get: func(c Config) string { return c.CullingThresh.String() },
		set: func(c *Config, s string) error { return setNumber(&c.CullingThresh, s, false) },
	},
	{
		name: "Contact culling depth", key: "contactCullingDepth",
		get: func(c Config) string { return c.ContactCullingDepth.String() },
		set: func(c *Config, s string) error { return setNumber(&c.ContactCullingDepth, s, false) },
	},
	{
		name: "Error criterion", key: "errorCriterion",
		get: func(c Config) string { return c.ErrorCriterion.String() },
		set: func(c *Config, s string) error { return setNumber(&c.ErrorCriterion, s, true) },
	},
	{
		name: "Max iterations", key: "maxNumIterations",
		get: func(c Config) string { return strconv.Itoa(c.MaxNumIterations) },
		set: func(c *Config, s string) error {
			n, err := cast.ToIntE(strings.TrimSpace(s))
			if err != nil {
				return fmt.Errorf("invalid integer %q", s)
			}
			if n < 1 {
				return fmt.Errorf("%d must be at least 1", n)
			}
			c.MaxNumIterations = n
			return nil
		},
	},
	{
		name: "Contact correction depth", key: "contactCorrectionDepth",
		get: func(c Config) string { return c.ContactCorrectionDepth.String() },
		set: func(c *Config, s string) error { return setNumber(&c.ContactCorrectionDepth, s, false) },
	},
	{
		name: "Contact correction velocity ratio", key: "contactCorrectionVelocityRatio",
		get: func(c Config) string { return c.ContactCorrectionVelocityRatio.String() },
		set: func(c *Config, s string) error { return setNumber(&c.ContactCorrectionVelocityRatio, s, false) },
	},
	{
		name: "Coefficient of restitution", key: "epsilon",
		get: func(c Config) string { return formatFloat(c.Epsilon) },
		set: func(c *Config, s string) error {
			var v float64
			if err := setMin0(&v, s); err != nil {
				return err
			}
			if v > MaxRestitution {
				return fmt.Errorf("%g must not exceed %g", v, MaxRestitution)
			}
			c.Epsilon = v
			return nil
		},
	},
	{
		name: "Kinematic walking", key: "kinematicWalking",
		get: func(c Config) string { return strconv.FormatBool(c.KinematicWalking) },
		set: func(c *Config, s string) error { return setBool(&c.KinematicWalking, s) },
	},
	{
		name: "2D mode", key: "2Dmode",
		get: func(c Config) string { return strconv.FormatBool(c.Is2D) },
		set: func(c *Config, s string) error { return setBool(&c.Is2D, s) },
	},
	{
		name: "Penalty Kp", key: "penaltyKp",
		get: func(c Config) string { return formatFloat(c.PenaltyKp) },
		set: func(c *Config, s string) error { return setMin0(&c.PenaltyKp, s) },
	},
	{
		name: "Penalty Kv", key: "penaltyKv",
		get: func(c Config) string { return formatFloat(c.PenaltyKv) },
		set: func(c *Config, s string) error { return setMin0(&c.PenaltyKv, s) },
	},
	{
		name: "Time step", key: "timeStep",
		get: func(c Config) string { return formatFloat(c.TimeStep) },
		set: func(c *Config, s string) error {
			v, err := parseFloat(s)
			if err != nil {
				return err
			}
			if v <= 0 {
				return fmt.Errorf("%w: %g", dynamo.ErrInvalidTimeStep, v)
			}
			c.TimeStep = v
			return nil
		},
	},
}

// Properties lists the configuration surface in display order.
func (c Config) Properties() []Property {
	out := make([]Property, len(properties))
	for i, p := range properties {
		out[i] = Property{Name: p.name, Key: p.key, Value: p.get(c)}
		if p.symbols != nil {
			out[i].Symbols = p.symbols()
		}
	}
	return out
}

// Set returns a copy of c with one property changed. The property is found
// by display name or record key, case-insensitively. c is never modified; an
// invalid value leaves the copy unchanged and returns an error.
func (c Config) Set(name, value string) (Config, error) {
	for _, p := range properties {
		if !strings.EqualFold(name, p.name) && !strings.EqualFold(name, p.key) {
			continue
		}
		next := c
		if err := p.set(&next, value); err != nil {
			return c, &dynamo.ConfigurationError{Field: p.key, Wrapped: err}
		}
		return next, nil
	}
	return c, &dynamo.ConfigurationError{Field: name, Wrapped: fmt.Errorf("unknown property")}
}

func parseFloat(s string) (float64, error) {
	v, err := cast.ToFloat64E(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return v, nil
}

func setMin0(dst *float64, s string) error {
	v, err := parseFloat(s)
	if err != nil {
		return err
	}
	if v < 0 {
		return fmt.Errorf("%g must not be negative", v)
	}
	*dst = v
	return nil
}

func setNumber(dst *Number, s string, positive bool) error {
	n, err := ParseNumber(s)
	if err != nil {
		return err
	}
	switch {
	case positive && n.Float() <= 0:
		return fmt.Errorf("%s must be positive", n)
	case n.Float() < 0:
		return fmt.Errorf("%s must not be negative", n)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, s string) error {
	v, err := cast.ToBoolE(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("invalid boolean %q", s)
	}
	*dst = v
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func formatVec(v mgl64.Vec3) string {
	return fmt.Sprintf("%s %s %s", formatFloat(v.X()), formatFloat(v.Y()), formatFloat(v.Z()))
}

func parseVec(s string) (mgl64.Vec3, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' })
	if len(fields) != 3 {
		return mgl64.Vec3{}, fmt.Errorf("want 3 values, got %q", s)
	}
	var v mgl64.Vec3
	for i, f := range fields {
		x, err := parseFloat(f)
		if err != nil {
			return mgl64.Vec3{}, err
		}
		v[i] = x
	}
	return v, nil
}
