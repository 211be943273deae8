// Package sim hosts a simulation run: it attaches controllers, drives the
// stepper and records the state of every body.
package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/config"
	"github.com/san-kum/pmsim/internal/control"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/metrics"
	"github.com/san-kum/pmsim/internal/motion"
	"github.com/san-kum/pmsim/internal/stepper"
)

// maxUnboundedSteps caps runs that wait for their controllers to finish.
const maxUnboundedSteps = 10_000_000

type Simulator struct {
	cfg       config.Config
	stepper   *stepper.Stepper
	logger    *zap.Logger
	stepOpts  []stepper.Option
	bodies    []*stepper.SimBody
	pending   []control.Controller
	metrics   []metrics.Metric
	observers []Observer
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithStepperOptions forwards options to the underlying stepper.
func WithStepperOptions(opts ...stepper.Option) Option {
	return func(s *Simulator) { s.stepOpts = append(s.stepOpts, opts...) }
}

func New(cfg config.Config, opts ...Option) (*Simulator, error) {
	s := &Simulator{cfg: cfg, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	st, err := stepper.New(cfg, append([]stepper.Option{stepper.WithLogger(s.logger)}, s.stepOpts...)...)
	if err != nil {
		return nil, err
	}
	s.stepper = st
	return s, nil
}

// FromFiles loads every model and, when motionPath is set, drives the
// first model with a high-gain controller replaying that motion.
func FromFiles(cfg config.Config, modelPaths []string, motionPath string, opts ...Option) (*Simulator, error) {
	s, err := New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	var ctrl control.Controller
	if motionPath != "" {
		seq, err := motion.Load(motionPath)
		if err != nil {
			return nil, fmt.Errorf("load motion: %w", err)
		}
		s.logger.Info("motion loaded",
			zap.String("name", seq.Name()),
			zap.Int("frames", seq.NumFrames()),
			zap.Float64("duration", seq.Duration()))
		ctrl = control.NewHighGain(seq, control.WithLogger(s.logger))
	}
	for i, path := range modelPaths {
		b, err := body.LoadModel(path)
		if err != nil {
			return nil, fmt.Errorf("load model %s: %w", path, err)
		}
		if i == 0 {
			s.AddBody(b, ctrl)
		} else {
			s.AddBody(b, nil)
		}
	}
	return s, nil
}

func (s *Simulator) Config() config.Config      { return s.cfg }
func (s *Simulator) Stepper() *stepper.Stepper  { return s.stepper }
func (s *Simulator) Bodies() []*stepper.SimBody { return s.bodies }
func (s *Simulator) AddMetric(m metrics.Metric) { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer)     { s.observers = append(s.observers, o) }

// AddBody registers b. The controller, which may be nil, is attached when
// the run starts.
func (s *Simulator) AddBody(b *body.Body, c control.Controller) *stepper.SimBody {
	sb := &stepper.SimBody{Body: b}
	s.bodies = append(s.bodies, sb)
	s.pending = append(s.pending, c)
	return sb
}

// SetController replaces the controller attached to body i at the next run.
func (s *Simulator) SetController(i int, c control.Controller) {
	s.pending[i] = c
}

// Attach starts c on the body and records whether it prescribes the joint
// trajectories. The body is left untouched when Start fails.
func Attach(sb *stepper.SimBody, c control.Controller, worldTimeStep float64) error {
	if err := c.Start(sb.Body, worldTimeStep); err != nil {
		return err
	}
	sb.Controller = c
	sb.HighGain = c.HighGain()
	return nil
}

// Run initializes the stepper and steps until the configured duration is
// reached, the context is done or a step fails. The rows recorded so far
// are returned in every case.
func (s *Simulator) Run(ctx context.Context, rc RunConfig) (res *Result, err error) {
	if len(s.bodies) == 0 {
		return nil, dynamo.ErrNoBodies
	}
	if rc.Duration < 0 || math.IsNaN(rc.Duration) {
		return nil, fmt.Errorf("duration must not be negative, got %g", rc.Duration)
	}
	every := max(1, rc.RecordEvery)
	dt := s.cfg.TimeStep

	res = &Result{Metrics: make(map[string]float64)}

	controlled := 0
	for i, sb := range s.bodies {
		sb.Controller, sb.HighGain = nil, false
		c := s.pending[i]
		if c == nil {
			continue
		}
		if err := Attach(sb, c, dt); err != nil {
			var attachErr *dynamo.ControllerAttachError
			if !errors.As(err, &attachErr) {
				return nil, err
			}
			s.logger.Warn("controller not attached",
				zap.String("body", sb.Body.Name),
				zap.String("controller", c.Name()),
				zap.Error(err))
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", sb.Body.Name, err))
			continue
		}
		controlled++
	}
	if rc.Duration == 0 && controlled == 0 {
		return nil, errors.New("a run without duration needs an attached controller")
	}

	if err := s.stepper.Initialize(s.bodies, dt); err != nil {
		return nil, err
	}
	defer func() {
		err = multierr.Append(err, s.stepper.Finalize())
	}()

	raw := make([]*body.Body, len(s.bodies))
	for i, sb := range s.bodies {
		raw[i] = sb.Body
	}
	res.Header, res.ControlHeader = header(raw)

	for _, m := range s.metrics {
		m.Reset()
		m.Observe(raw, 0)
	}
	s.record(res, raw, 0)

	steps := maxUnboundedSteps
	if rc.Duration > 0 {
		steps = int(math.Round(rc.Duration / dt))
	}
	finished := make([]bool, len(s.bodies))

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.collect(res)
			return res, ctx.Err()
		default:
		}

		t := s.stepper.Time()
		running := 0
		for j, sb := range s.bodies {
			if sb.Controller == nil || finished[j] {
				continue
			}
			if sb.Controller.Step(t) {
				running++
				continue
			}
			finished[j] = true
			s.logger.Debug("controller finished",
				zap.String("body", sb.Body.Name),
				zap.Float64("time", t))
		}
		if rc.Duration == 0 && running == 0 {
			break
		}

		if err := s.stepper.Step(s.bodies); err != nil {
			s.collect(res)
			return res, err
		}
		res.Steps++

		t = s.stepper.Time()
		for _, m := range s.metrics {
			m.Observe(raw, t)
		}
		for _, o := range s.observers {
			o.OnStep(t, raw)
		}
		if res.Steps%every == 0 {
			s.record(res, raw, t)
		}
	}

	s.collect(res)
	return res, nil
}

func (s *Simulator) collect(res *Result) {
	for _, m := range s.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
}

// ContactForce returns the contact force the solver applied to b in the
// last step, zero for a body the stepper does not know.
func (s *Simulator) ContactForce(b *body.Body) mgl64.Vec3 {
	i, ok := s.stepper.BodyIndex(b)
	if !ok {
		return mgl64.Vec3{}
	}
	return s.stepper.World().ContactForce(i)
}

func (s *Simulator) record(res *Result, bodies []*body.Body, t float64) {
	state := make([]float64, 0, len(res.Header))
	controls := make([]float64, 0, len(res.ControlHeader))
	for _, b := range bodies {
		p := b.Root().P
		state = append(state, p[0], p[1], p[2])
		for _, j := range b.Joints() {
			state = append(state, j.Q)
			controls = append(controls, j.U)
		}
		state = append(state, s.ContactForce(b)[2])
	}
	res.Times = append(res.Times, t)
	res.States = append(res.States, state)
	res.Controls = append(res.Controls, controls)
}

// header names the recorded columns: root position, joint positions and
// vertical contact force per body.
func header(bodies []*body.Body) (state, controls []string) {
	for _, b := range bodies {
		state = append(state, b.Name+".x", b.Name+".y", b.Name+".z")
		for _, j := range b.Joints() {
			state = append(state, b.Name+"."+j.Name)
			controls = append(controls, b.Name+"."+j.Name+".u")
		}
		state = append(state, b.Name+".fz")
	}
	return state, controls
}
