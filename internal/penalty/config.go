package penalty

import "math"

const (
	DefaultStaticFriction                 = 1.0
	DefaultSlipFriction                   = 1.0
	DefaultContactCullingDistance         = 0.005
	DefaultContactCullingDepth            = 1e-5
	DefaultErrorCriterion                 = 1e-3
	DefaultMaxIterations                  = 50
	DefaultContactCorrectionDepth         = 1e-4
	DefaultContactCorrectionVelocityRatio = 1.0
	DefaultRestitution                    = 0.0
	DefaultKp                             = 50000.0
	DefaultKv                             = 500.0

	// MinErrorCriterion is the floor applied to non-positive error criteria.
	MinErrorCriterion = 1e-12

	// SlipVelocityThreshold separates sticking from sliding contacts (m/s).
	SlipVelocityThreshold = 1e-3
)

// Config holds every tunable of the contact solver.
type Config struct {
	StaticFriction          float64
	SlipFriction            float64
	CullingDistance         float64
	CullingDepth            float64
	ErrorCriterion          float64
	MaxIterations           int
	CorrectionDepth         float64
	CorrectionVelocityRatio float64
	Restitution             float64
	Kp                      float64
	Kv                      float64
	Is2D                    bool
}

func DefaultConfig() Config {
	return Config{
		StaticFriction:          DefaultStaticFriction,
		SlipFriction:            DefaultSlipFriction,
		CullingDistance:         DefaultContactCullingDistance,
		CullingDepth:            DefaultContactCullingDepth,
		ErrorCriterion:          DefaultErrorCriterion,
		MaxIterations:           DefaultMaxIterations,
		CorrectionDepth:         DefaultContactCorrectionDepth,
		CorrectionVelocityRatio: DefaultContactCorrectionVelocityRatio,
		Restitution:             DefaultRestitution,
		Kp:                      DefaultKp,
		Kv:                      DefaultKv,
	}
}

// Sanitize clamps every field to its nearest valid value. NaN falls back to the default.
func (c Config) Sanitize() Config {
	d := DefaultConfig()
	c.StaticFriction = nonNegative(c.StaticFriction, d.StaticFriction)
	c.SlipFriction = nonNegative(c.SlipFriction, d.SlipFriction)
	c.CullingDistance = nonNegative(c.CullingDistance, d.CullingDistance)
	c.CullingDepth = nonNegative(c.CullingDepth, d.CullingDepth)
	c.CorrectionDepth = nonNegative(c.CorrectionDepth, d.CorrectionDepth)
	c.CorrectionVelocityRatio = nonNegative(c.CorrectionVelocityRatio, d.CorrectionVelocityRatio)
	c.Kp = nonNegative(c.Kp, d.Kp)
	c.Kv = nonNegative(c.Kv, d.Kv)
	c.Restitution = math.Min(nonNegative(c.Restitution, d.Restitution), 1)

	switch {
	case math.IsNaN(c.ErrorCriterion):
		c.ErrorCriterion = d.ErrorCriterion
	case c.ErrorCriterion < MinErrorCriterion:
		c.ErrorCriterion = MinErrorCriterion
	}
	if c.MaxIterations < 1 {
		c.MaxIterations = 1
	}
	return c
}

// SlipCoefficient is the friction coefficient used for sliding contacts.
func (c Config) SlipCoefficient() float64 {
	return math.Min(c.SlipFriction, c.StaticFriction)
}

func nonNegative(v, fallback float64) float64 {
	if math.IsNaN(v) {
		return fallback
	}
	return math.Max(v, 0)
}
