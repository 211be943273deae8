// Package world advances articulated bodies through time under gravity,
// applied forces and penalty contact.
package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/penalty"
)

// DefaultGravity points down the z axis.
var DefaultGravity = mgl64.Vec3{0, 0, -9.80665}

// Strategy selects how the joints of a body are resolved.
type Strategy int

const (
	// ForwardDynamicsStrategy computes joint accelerations from joint torques.
	ForwardDynamicsStrategy Strategy = iota
	// HighGainStrategy follows the joint trajectory written into Q, DQ and
	// DDQ and computes the torques that realize it.
	HighGainStrategy
)

func (s Strategy) String() string {
	switch s {
	case ForwardDynamicsStrategy:
		return "forward-dynamics"
	case HighGainStrategy:
		return "high-gain"
	default:
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
}

// World owns the bodies of one simulation.
type World struct {
	ConstraintForceSolver *penalty.Solver

	gravity  mgl64.Vec3
	dt       float64
	time     float64
	sensors  bool
	bodies   []*bodyState
	raw      []*body.Body
	logger   *zap.Logger
	last     penalty.Result
	contacts []mgl64.Vec3
	owner    map[*body.Link]int
	err      error
}

type Option func(*World)

func WithLogger(l *zap.Logger) Option {
	return func(w *World) { w.logger = l }
}

// New returns an empty world with default gravity and solver settings.
func New(opts ...Option) *World {
	w := &World{
		gravity: DefaultGravity,
		dt:      0.001,
		logger:  zap.NewNop(),
		owner:   make(map[*body.Link]int),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.ConstraintForceSolver = penalty.New(penalty.DefaultConfig(), penalty.WithLogger(w.logger))
	return w
}

// SetLogger replaces the logger of the world and its solver.
func (w *World) SetLogger(l *zap.Logger) {
	w.logger = l
	w.ConstraintForceSolver.SetLogger(l)
}

func (w *World) SetGravityAcceleration(g mgl64.Vec3) { w.gravity = g }
func (w *World) GravityAcceleration() mgl64.Vec3     { return w.gravity }
func (w *World) SetTimeStep(dt float64)              { w.dt = dt }
func (w *World) TimeStep() float64                   { return w.dt }
func (w *World) SetCurrentTime(t float64)            { w.time = t }
func (w *World) CurrentTime() float64                { return w.time }
func (w *World) EnableSensors(on bool)               { w.sensors = on }

// ClearBodies removes every body.
func (w *World) ClearBodies() {
	w.bodies = w.bodies[:0]
	w.raw = w.raw[:0]
	w.contacts = w.contacts[:0]
	clear(w.owner)
}

// AddBody registers b and returns its index.
func (w *World) AddBody(b *body.Body, s Strategy) int {
	w.bodies = append(w.bodies, newBodyState(b, s))
	w.raw = append(w.raw, b)
	w.contacts = append(w.contacts, mgl64.Vec3{})
	i := len(w.bodies) - 1
	for _, l := range b.Links() {
		w.owner[l] = i
	}
	return i
}

func (w *World) NumBodies() int            { return len(w.bodies) }
func (w *World) Body(i int) *body.Body     { return w.bodies[i].body }
func (w *World) Bodies() []*body.Body      { return w.raw }
func (w *World) Strategy(i int) Strategy   { return w.bodies[i].strategy }
func (w *World) LastSolve() penalty.Result { return w.last }

// ContactForce returns the total contact force on body i during the last
// step. It stays zero while sensors are disabled.
func (w *World) ContactForce(i int) mgl64.Vec3 {
	return w.contacts[i]
}

// Initialize validates the time step and brings every body to a consistent
// kinematic state.
func (w *World) Initialize() error {
	if w.dt <= 0 || math.IsNaN(w.dt) || math.IsInf(w.dt, 0) {
		return fmt.Errorf("world time step %g: %w", w.dt, dynamo.ErrInvalidTimeStep)
	}
	w.err = nil
	w.last = penalty.Result{}
	for i, bs := range w.bodies {
		bs.body.CalcForwardKinematics(true, true)
		bs.invalidate()
		w.contacts[i] = mgl64.Vec3{}
	}
	return nil
}

// CalcNextState advances the world by one time step.
func (w *World) CalcNextState() error {
	w.err = nil
	for _, bs := range w.bodies {
		bs.invalidate()
	}

	solver := w.ConstraintForceSolver
	w.last = solver.Solve(w, solver.Detect(w.raw))
	if w.sensors {
		w.recordContactForces()
	}

	for _, bs := range w.bodies {
		if err := w.calcAccelerations(bs); err != nil {
			return err
		}
	}
	if w.err != nil {
		return w.err
	}
	for _, bs := range w.bodies {
		w.integrate(bs)
		if !bs.finite() {
			w.logger.Debug("body diverged", zap.String("body", bs.body.Name), zap.Float64("time", w.time))
			return fmt.Errorf("body %s: %w", bs.body.Name, dynamo.ErrUnstable)
		}
	}
	w.time += w.dt
	return nil
}

// UpdateAccelerations recomputes link accelerations for the forces currently
// applied. Errors are kept until the end of the step.
func (w *World) UpdateAccelerations() {
	for _, bs := range w.bodies {
		if err := w.calcAccelerations(bs); err != nil && w.err == nil {
			w.err = err
		}
	}
}

func (w *World) recordContactForces() {
	for i := range w.contacts {
		w.contacts[i] = mgl64.Vec3{}
	}
	for _, c := range w.last.Contacts {
		if i, ok := w.owner[c.LinkA]; ok {
			w.contacts[i] = w.contacts[i].Add(c.Force)
		}
		if i, ok := w.owner[c.LinkB]; ok {
			w.contacts[i] = w.contacts[i].Sub(c.Force)
		}
	}
}
