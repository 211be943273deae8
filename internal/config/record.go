package config

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/dynamo"
)

// Record is the flat key/value form of Config written to project files. A
// nil field is a missing key.
type Record struct {
	DynamicsMode                   *string   `yaml:"dynamicsMode,omitempty"`
	IntegrationMode                *string   `yaml:"integrationMode,omitempty"`
	Gravity                        []float64 `yaml:"gravity,omitempty,flow"`
	StaticFriction                 *float64  `yaml:"staticFriction,omitempty"`
	SlipFriction                   *float64  `yaml:"slipFriction,omitempty"`
	CullingThresh                  *Number   `yaml:"cullingThresh,omitempty"`
	ContactCullingDepth            *Number   `yaml:"contactCullingDepth,omitempty"`
	ErrorCriterion                 *Number   `yaml:"errorCriterion,omitempty"`
	MaxNumIterations               *int      `yaml:"maxNumIterations,omitempty"`
	ContactCorrectionDepth         *Number   `yaml:"contactCorrectionDepth,omitempty"`
	ContactCorrectionVelocityRatio *Number   `yaml:"contactCorrectionVelocityRatio,omitempty"`
	Epsilon                        *float64  `yaml:"epsilon,omitempty"`
	KinematicWalking               *bool     `yaml:"kinematicWalking,omitempty"`
	Is2D                           *bool     `yaml:"2Dmode,omitempty"`
	PenaltyKp                      *float64  `yaml:"penaltyKp,omitempty"`
	PenaltyKv                      *float64  `yaml:"penaltyKv,omitempty"`
	TimeStep                       *float64  `yaml:"timeStep,omitempty"`
}

func ptr[T any](v T) *T { return &v }

// Store returns the complete record of c.
func (c Config) Store() Record {
	return Record{
		DynamicsMode:                   ptr(c.DynamicsMode.String()),
		IntegrationMode:                ptr(c.IntegrationMode.String()),
		Gravity:                        []float64{c.Gravity.X(), c.Gravity.Y(), c.Gravity.Z()},
		StaticFriction:                 ptr(c.StaticFriction),
		SlipFriction:                   ptr(c.SlipFriction),
		CullingThresh:                  ptr(c.CullingThresh),
		ContactCullingDepth:            ptr(c.ContactCullingDepth),
		ErrorCriterion:                 ptr(c.ErrorCriterion),
		MaxNumIterations:               ptr(c.MaxNumIterations),
		ContactCorrectionDepth:         ptr(c.ContactCorrectionDepth),
		ContactCorrectionVelocityRatio: ptr(c.ContactCorrectionVelocityRatio),
		Epsilon:                        ptr(c.Epsilon),
		KinematicWalking:               ptr(c.KinematicWalking),
		Is2D:                           ptr(c.Is2D),
		PenaltyKp:                      ptr(c.PenaltyKp),
		PenaltyKv:                      ptr(c.PenaltyKv),
		TimeStep:                       ptr(c.TimeStep),
	}
}

// Restore applies the keys present in r on top of c. Missing keys keep the
// values of c. The result is validated.
func (c Config) Restore(r Record) (Config, error) {
	if r.DynamicsMode != nil {
		m, err := dynamo.ParseDynamicsMode(*r.DynamicsMode)
		if err != nil {
			return c, &dynamo.ConfigurationError{Field: "dynamicsMode", Wrapped: err}
		}
		c.DynamicsMode = m
	}
	if r.IntegrationMode != nil {
		m, err := dynamo.ParseIntegrationMode(*r.IntegrationMode)
		if err != nil {
			return c, &dynamo.ConfigurationError{Field: "integrationMode", Wrapped: err}
		}
		c.IntegrationMode = m
	}
	if r.Gravity != nil {
		if len(r.Gravity) != 3 {
			return c, &dynamo.ConfigurationError{Field: "gravity", Wrapped: fmt.Errorf("want 3 values, got %d", len(r.Gravity))}
		}
		c.Gravity = mgl64.Vec3{r.Gravity[0], r.Gravity[1], r.Gravity[2]}
	}
	restore(&c.StaticFriction, r.StaticFriction)
	restore(&c.SlipFriction, r.SlipFriction)
	restore(&c.CullingThresh, r.CullingThresh)
	restore(&c.ContactCullingDepth, r.ContactCullingDepth)
	restore(&c.ErrorCriterion, r.ErrorCriterion)
	restore(&c.MaxNumIterations, r.MaxNumIterations)
	restore(&c.ContactCorrectionDepth, r.ContactCorrectionDepth)
	restore(&c.ContactCorrectionVelocityRatio, r.ContactCorrectionVelocityRatio)
	restore(&c.Epsilon, r.Epsilon)
	restore(&c.KinematicWalking, r.KinematicWalking)
	restore(&c.Is2D, r.Is2D)
	restore(&c.PenaltyKp, r.PenaltyKp)
	restore(&c.PenaltyKv, r.PenaltyKv)
	restore(&c.TimeStep, r.TimeStep)

	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func restore[T any](dst *T, src *T) {
	if src != nil {
		*dst = *src
	}
}
