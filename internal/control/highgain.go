package control

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/motion"
)

// FrameRateTolerance is the largest accepted difference between the motion
// frame rate and the world frame rate, in Hz.
const FrameRateTolerance = 1e-6

type State int

const (
	NotStarted State = iota
	Running
	Finished
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not started"
	case Running:
		return "running"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Target is the joint command derived from one motion frame.
type Target struct {
	Frame int
	Q     []float64
	DQ    []float64
	DDQ   []float64
}

// HighGain replays a reference motion on the joints of a body.
type HighGain struct {
	seq    *motion.Sequence
	body   *body.Body
	logger *zap.Logger

	state     State
	frame     int
	lastFrame int
	numJoints int
	dt        float64
	fresh     bool
	target    Target
}

type Option func(*HighGain)

func WithLogger(l *zap.Logger) Option {
	return func(c *HighGain) { c.logger = l }
}

func NewHighGain(seq *motion.Sequence, opts ...Option) *HighGain {
	c := &HighGain{seq: seq, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *HighGain) Name() string {
	name := ""
	if c.seq != nil {
		name = c.seq.Name()
	}
	return "HighGain Controller with " + name
}

func (c *HighGain) HighGain() bool { return true }
func (c *HighGain) State() State   { return c.state }
func (c *HighGain) Frame() int     { return c.frame }
func (c *HighGain) NumJoints() int { return c.numJoints }

// Start checks the motion against the world and rewinds to frame 0.
func (c *HighGain) Start(b *body.Body, worldTimeStep float64) error {
	if c.seq == nil || c.seq.NumFrames() == 0 {
		return &dynamo.ControllerAttachError{
			Controller: c.Name(),
			Message:    "reference motion has no frames",
			Wrapped:    dynamo.ErrEmptyMotion,
		}
	}
	worldRate := 1 / worldTimeStep
	if math.Abs(c.seq.FrameRate()-worldRate) > FrameRateTolerance {
		return &dynamo.ControllerAttachError{
			Controller: c.Name(),
			Message: fmt.Sprintf("frame rate %g Hz of the reference motion differs from the world frame rate %g Hz",
				c.seq.FrameRate(), worldRate),
			Wrapped: dynamo.ErrFrameRateMismatch,
		}
	}

	c.body = b
	c.frame = 0
	c.lastFrame = max(0, c.seq.NumFrames()-1)
	c.numJoints = min(b.NumJoints(), c.seq.NumParts())
	c.dt = c.seq.TimeStep()
	c.fresh = true
	c.state = Running
	c.target = Target{
		Q:   make([]float64, c.numJoints),
		DQ:  make([]float64, c.numJoints),
		DDQ: make([]float64, c.numJoints),
	}
	c.logger.Debug("high-gain controller started",
		zap.String("motion", c.seq.Name()),
		zap.Int("frames", c.seq.NumFrames()),
		zap.Int("joints", c.numJoints))
	return nil
}

// Advance moves to the next frame and returns its target. The first call
// after Start yields frame 0. Once the last frame has been delivered the
// controller finishes, stays on the last frame and returns false.
func (c *HighGain) Advance() (Target, bool) {
	if c.state != Running {
		return c.copyTarget(), false
	}
	if c.fresh {
		c.fresh = false
	} else if c.frame+1 > c.lastFrame {
		c.frame = c.lastFrame
		c.state = Finished
		c.logger.Debug("reference motion finished", zap.String("motion", c.seq.Name()))
		return c.copyTarget(), false
	} else {
		c.frame++
	}
	c.calcTarget()
	return c.copyTarget(), true
}

func (c *HighGain) calcTarget() {
	f := c.frame
	prev := max(f-1, 0)
	next := min(f+1, c.lastFrame)
	dt2 := c.dt * c.dt
	c.target.Frame = f
	for j := 0; j < c.numJoints; j++ {
		q := c.seq.At(f, j)
		qn := c.seq.At(next, j)
		qp := c.seq.At(prev, j)
		c.target.Q[j] = q
		c.target.DQ[j] = (qn - q) / c.dt
		c.target.DDQ[j] = (qn - 2*q + qp) / dt2
	}
}

func (c *HighGain) copyTarget() Target {
	return Target{
		Frame: c.target.Frame,
		Q:     append([]float64(nil), c.target.Q...),
		DQ:    append([]float64(nil), c.target.DQ...),
		DDQ:   append([]float64(nil), c.target.DDQ...),
	}
}

// Input reads the body state. Joint trajectories are prescribed, so there
// is nothing to read.
func (c *HighGain) Input() {}

// Control advances one frame and reports whether the motion continues.
func (c *HighGain) Control() bool {
	_, ok := c.Advance()
	return ok
}

// Output writes the current target into the joints and updates the link
// poses and velocities to match.
func (c *HighGain) Output() {
	if c.body == nil {
		return
	}
	for j := 0; j < c.numJoints; j++ {
		l := c.body.Joint(j)
		l.Q = c.target.Q[j]
		l.DQ = c.target.DQ[j]
		l.DDQ = c.target.DDQ[j]
	}
	c.body.CalcForwardKinematics(true, false)
}

func (c *HighGain) Step(t float64) bool {
	c.Input()
	ok := c.Control()
	if ok {
		c.Output()
	}
	return ok
}
