// Package stepper advances a set of bodies one time step at a time in one of
// the three dynamics modes.
package stepper

import (
	"context"
	"fmt"
	"maps"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/collision"
	"github.com/san-kum/pmsim/internal/config"
	"github.com/san-kum/pmsim/internal/control"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/logging"
	"github.com/san-kum/pmsim/internal/world"
)

// kinematicsChunk is the smallest number of bodies handed to one goroutine.
const kinematicsChunk = 4

// SimBody is a body taking part in the simulation.
type SimBody struct {
	Body       *body.Body
	Controller control.Controller
	// HighGain is set when the attached controller prescribes joint
	// trajectories.
	HighGain bool
}

// Stepper owns the world and drives it step by step. Calls must be
// serialized by the caller.
type Stepper struct {
	cfg      config.Config
	world    *world.World
	detector collision.Detector
	logger   *zap.Logger
	log      *zap.Logger
	debugDir string
	debug    *logging.DebugFile

	bodies []*SimBody
	index  map[*body.Body]int
	legged []*body.Legged
	stance [][]footPose
	steps  int
}

// footPose is a foot placement kept between kinematic walking steps.
type footPose struct {
	P mgl64.Vec3
	R mgl64.Mat3
}

type Option func(*Stepper)

func WithLogger(l *zap.Logger) Option {
	return func(s *Stepper) { s.logger = l }
}

// WithCollisionDetector replaces the default sphere detector.
func WithCollisionDetector(d collision.Detector) Option {
	return func(s *Stepper) { s.detector = d }
}

// WithDebugLog writes a debug log file into dir for every initialization.
func WithDebugLog(dir string) Option {
	return func(s *Stepper) { s.debugDir = dir }
}

// New validates cfg and builds a stepper with an empty world.
func New(cfg config.Config, opts ...Option) (*Stepper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if !cfg.IntegrationMode.Supported() {
		return nil, &dynamo.ConfigurationError{
			Field:   "integrationMode",
			Wrapped: fmt.Errorf("%w: %s", dynamo.ErrIntegrationUnsupported, cfg.IntegrationMode),
		}
	}
	s := &Stepper{
		cfg:      cfg,
		detector: collision.NewSphereDetector(),
		logger:   zap.NewNop(),
		index:    make(map[*body.Body]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.logger
	s.world = world.New(world.WithLogger(s.logger))
	return s, nil
}

func (s *Stepper) Config() config.Config { return s.cfg }
func (s *Stepper) World() *world.World   { return s.world }
func (s *Stepper) Time() float64         { return s.world.CurrentTime() }
func (s *Stepper) Steps() int            { return s.steps }

// Index returns a copy of the body index map built by Initialize.
func (s *Stepper) Index() map[*body.Body]int {
	return maps.Clone(s.index)
}

// BodyIndex returns the world index of b.
func (s *Stepper) BodyIndex(b *body.Body) (int, bool) {
	i, ok := s.index[b]
	return i, ok
}

// Initialize resets the world and registers bodies. A non-positive time step
// or a world that cannot initialize is a *dynamo.ConfigurationError.
func (s *Stepper) Initialize(bodies []*SimBody, timeStep float64) error {
	if timeStep <= 0 || math.IsNaN(timeStep) || math.IsInf(timeStep, 0) {
		return &dynamo.ConfigurationError{
			Field:   "timeStep",
			Wrapped: fmt.Errorf("%w: %g", dynamo.ErrInvalidTimeStep, timeStep),
		}
	}
	if err := s.openDebugLog(); err != nil {
		return &dynamo.ConfigurationError{Field: "debugLog", Wrapped: err}
	}

	w := s.world
	w.ConstraintForceSolver.ClearExternalForces()
	w.ClearBodies()
	clear(s.index)
	s.bodies = append(s.bodies[:0], bodies...)
	s.legged = s.legged[:0]
	s.stance = s.stance[:0]
	s.steps = 0

	for _, sb := range bodies {
		b := sb.Body
		root := b.Root()
		root.V, root.W, root.DV, root.DW = mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}, mgl64.Vec3{}
		for _, j := range b.Joints() {
			j.U, j.DQ, j.DDQ = 0, 0, 0
		}
		b.ClearExternalForces()
		b.CalcForwardKinematics(true, true)

		strategy := world.ForwardDynamicsStrategy
		if sb.HighGain || s.cfg.DynamicsMode == dynamo.HighGainDynamics {
			strategy = world.HighGainStrategy
		}
		s.index[b] = w.AddBody(b, strategy)
		lg := body.NewLegged(b)
		s.legged = append(s.legged, lg)
		s.stance = append(s.stance, make([]footPose, lg.NumFeet()))
		s.keepStance(len(s.legged) - 1)
	}

	solver := w.ConstraintForceSolver
	solver.Configure(s.cfg.PenaltyConfig())
	solver.SetCollisionDetector(s.detector)
	w.SetGravityAcceleration(s.cfg.Gravity)
	w.SetTimeStep(timeStep)
	w.EnableSensors(true)
	w.SetCurrentTime(0)
	if err := w.Initialize(); err != nil {
		return &dynamo.ConfigurationError{Field: "world", Wrapped: err}
	}

	s.log.Info("simulation initialized",
		zap.Stringer("mode", s.cfg.DynamicsMode),
		zap.Stringer("integration", s.cfg.IntegrationMode),
		zap.Int("bodies", len(bodies)),
		zap.Float64("timeStep", timeStep))
	return nil
}

// Step advances the simulation by one time step. In kinematics mode only
// the active bodies are updated.
func (s *Stepper) Step(active []*SimBody) error {
	w := s.world
	w.ConstraintForceSolver.ClearExternalForces()

	switch s.cfg.DynamicsMode {
	case dynamo.ForwardDynamics, dynamo.HighGainDynamics:
		if err := w.CalcNextState(); err != nil {
			return &dynamo.SimulationError{Step: s.steps, Time: w.CurrentTime(), Wrapped: err}
		}
		if s.log.Core().Enabled(zap.DebugLevel) {
			res := w.LastSolve()
			s.log.Debug("step",
				zap.Int("step", s.steps),
				zap.Float64("time", w.CurrentTime()),
				zap.Int("contacts", len(res.Contacts)),
				zap.Int("culled", res.Culled),
				zap.Int("iterations", res.Iterations),
				zap.Float64("residual", res.Residual))
		}
	case dynamo.Kinematics:
		if err := s.stepKinematics(active); err != nil {
			return &dynamo.SimulationError{Step: s.steps, Time: w.CurrentTime(), Wrapped: err}
		}
		w.SetCurrentTime(w.CurrentTime() + w.TimeStep())
	default:
		return &dynamo.SimulationError{
			Step:    s.steps,
			Time:    w.CurrentTime(),
			Wrapped: fmt.Errorf("%w: %s", dynamo.ErrUnknownMode, s.cfg.DynamicsMode),
		}
	}
	s.steps++
	return nil
}

func (s *Stepper) stepKinematics(active []*SimBody) error {
	return dynamo.ParallelFor(context.Background(), len(active), kinematicsChunk, func(start, end int) error {
		for _, sb := range active[start:end] {
			s.updateKinematics(sb.Body)
		}
		return nil
	})
}

// updateKinematics propagates the joint positions. When walking, the feet
// are put back where the previous step left them and the lowest one stays
// in place while the rest of the body moves around it.
func (s *Stepper) updateKinematics(b *body.Body) {
	if s.cfg.KinematicWalking {
		if i, ok := s.index[b]; ok && s.legged[i].IsValid() {
			lg := s.legged[i]
			for k, pose := range s.stance[i] {
				foot := lg.FootLink(k)
				foot.P, foot.R = pose.P, pose.R
			}
			if foot := lg.SupportFoot(); foot != nil {
				body.NewLinkTraverse(foot).CalcForwardKinematics(true, true)
				s.keepStance(i)
				return
			}
		}
	}
	b.CalcForwardKinematics(true, true)
}

func (s *Stepper) keepStance(i int) {
	lg := s.legged[i]
	for k := range s.stance[i] {
		foot := lg.FootLink(k)
		s.stance[i][k] = footPose{P: foot.P, R: foot.R}
	}
}

// Finalize closes the debug log of the run.
func (s *Stepper) Finalize() error {
	if s.debug == nil {
		return nil
	}
	s.log.Info("simulation finalized", zap.Int("steps", s.steps), zap.Float64("time", s.Time()))
	err := s.debug.Close()
	s.debug = nil
	s.log = s.logger
	s.world.SetLogger(s.log)
	return err
}

func (s *Stepper) openDebugLog() error {
	if s.debug != nil {
		if err := s.debug.Close(); err != nil {
			return err
		}
		s.debug = nil
		s.log = s.logger
		s.world.SetLogger(s.log)
	}
	if s.debugDir == "" {
		return nil
	}
	d, err := logging.OpenDebugFile(s.debugDir)
	if err != nil {
		return err
	}
	s.debug = d
	s.log = d.Tee(s.logger)
	s.world.SetLogger(s.log)
	return nil
}
