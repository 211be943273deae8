package config

import (
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/penalty"
)

const (
	DefaultTimeStep = 0.001
	// MaxRestitution bounds the coefficient of restitution.
	MaxRestitution = 1.0
)

// Config is the persisted state of the simulator. It is a value: copying a
// Config duplicates the simulator settings, and the setters in this package
// return a new validated copy.
type Config struct {
	DynamicsMode                   dynamo.DynamicsMode
	IntegrationMode                dynamo.IntegrationMode
	Gravity                        mgl64.Vec3
	StaticFriction                 float64
	SlipFriction                   float64
	CullingThresh                  Number
	ContactCullingDepth            Number
	ErrorCriterion                 Number
	MaxNumIterations               int
	ContactCorrectionDepth         Number
	ContactCorrectionVelocityRatio Number
	Epsilon                        float64
	KinematicWalking               bool
	Is2D                           bool
	PenaltyKp                      float64
	PenaltyKv                      float64
	TimeStep                       float64
}

func DefaultConfig() Config {
	p := penalty.DefaultConfig()
	return Config{
		DynamicsMode:                   dynamo.ForwardDynamics,
		IntegrationMode:                dynamo.Euler,
		Gravity:                        mgl64.Vec3{0, 0, -9.80665},
		StaticFriction:                 p.StaticFriction,
		SlipFriction:                   p.SlipFriction,
		CullingThresh:                  NewNumber(p.CullingDistance),
		ContactCullingDepth:            NewNumber(p.CullingDepth),
		ErrorCriterion:                 NewNumber(p.ErrorCriterion),
		MaxNumIterations:               p.MaxIterations,
		ContactCorrectionDepth:         NewNumber(p.CorrectionDepth),
		ContactCorrectionVelocityRatio: NewNumber(p.CorrectionVelocityRatio),
		Epsilon:                        p.Restitution,
		PenaltyKp:                      p.Kp,
		PenaltyKv:                      p.Kv,
		TimeStep:                       DefaultTimeStep,
	}
}

// Validate reports every violated invariant at once.
func (c Config) Validate() error {
	var err error
	check := func(field string, ok bool, format string, args ...any) {
		if !ok {
			err = multierr.Append(err, &dynamo.ConfigurationError{Field: field, Wrapped: fmt.Errorf(format, args...)})
		}
	}
	nonNegative := func(field string, v float64) {
		check(field, v >= 0 && !math.IsInf(v, 0), "%g must not be negative", v)
	}

	check("dynamicsMode", c.DynamicsMode.Valid(), "%w: %d", dynamo.ErrUnknownMode, int(c.DynamicsMode))
	check("integrationMode", c.IntegrationMode.Valid(), "%w: %d", dynamo.ErrUnknownMode, int(c.IntegrationMode))
	nonNegative("staticFriction", c.StaticFriction)
	nonNegative("slipFriction", c.SlipFriction)
	nonNegative("cullingThresh", c.CullingThresh.Float())
	nonNegative("contactCullingDepth", c.ContactCullingDepth.Float())
	check("errorCriterion", c.ErrorCriterion.Float() > 0, "%s must be positive", c.ErrorCriterion)
	check("maxNumIterations", c.MaxNumIterations >= 1, "%d must be at least 1", c.MaxNumIterations)
	nonNegative("contactCorrectionDepth", c.ContactCorrectionDepth.Float())
	nonNegative("contactCorrectionVelocityRatio", c.ContactCorrectionVelocityRatio.Float())
	check("epsilon", c.Epsilon >= 0 && c.Epsilon <= MaxRestitution, "%g must be within [0, %g]", c.Epsilon, MaxRestitution)
	nonNegative("penaltyKp", c.PenaltyKp)
	nonNegative("penaltyKv", c.PenaltyKv)
	check("timeStep", c.TimeStep > 0 && !math.IsInf(c.TimeStep, 0), "%w: %g", dynamo.ErrInvalidTimeStep, c.TimeStep)
	return err
}

// PenaltyConfig returns the contact solver parameters.
func (c Config) PenaltyConfig() penalty.Config {
	return penalty.Config{
		StaticFriction:          c.StaticFriction,
		SlipFriction:            c.SlipFriction,
		CullingDistance:         c.CullingThresh.Float(),
		CullingDepth:            c.ContactCullingDepth.Float(),
		ErrorCriterion:          c.ErrorCriterion.Float(),
		MaxIterations:           c.MaxNumIterations,
		CorrectionDepth:         c.ContactCorrectionDepth.Float(),
		CorrectionVelocityRatio: c.ContactCorrectionVelocityRatio.Float(),
		Restitution:             c.Epsilon,
		Kp:                      c.PenaltyKp,
		Kv:                      c.PenaltyKv,
		Is2D:                    c.Is2D,
	}.Sanitize()
}

// Load overlays the record in path onto the defaults.
func Load(path string) (Config, error) {
	return LoadOnto(DefaultConfig(), path)
}

// LoadOnto overlays the record in path onto base. Keys missing from the
// file keep the values of base.
func LoadOnto(base Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var r Record
	if err := yaml.Unmarshal(data, &r); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return base.Restore(r)
}

func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg.Store())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
