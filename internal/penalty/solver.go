package penalty

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/collision"
)

// Direction is one unknown of the sticking-friction problem: a force along
// Dir applied to LinkA at Point and the opposite force to LinkB.
type Direction struct {
	LinkA, LinkB *body.Link
	Point        mgl64.Vec3
	Dir          mgl64.Vec3
}

// ContactSystem is what the solver needs from the world that owns the bodies.
type ContactSystem interface {
	TimeStep() float64
	// UpdateAccelerations runs forward dynamics with the external forces
	// currently applied to the links and refreshes link accelerations.
	UpdateAccelerations()
	// Delassus returns the relative acceleration along each direction caused
	// by a unit force along every direction.
	Delassus(dirs []Direction) *mat.SymDense
}

// ContactForce is a contact that took part in the solve.
type ContactForce struct {
	collision.Contact
	NormalForce float64
	// Force is the total force applied to LinkA; LinkB receives the opposite.
	Force    mgl64.Vec3
	Sticking bool
}

// Result summarizes one Solve call.
type Result struct {
	Contacts   []ContactForce
	Culled     int
	Iterations int
	Residual   float64
	Converged  bool
}

type appliedWrench struct {
	link   *body.Link
	force  mgl64.Vec3
	torque mgl64.Vec3
}

// Solver is the penalty-method contact solver.
type Solver struct {
	cfg      Config
	detector collision.Detector
	logger   *zap.Logger
	applied  []appliedWrench
	warned   bool
}

type Option func(*Solver)

func WithLogger(l *zap.Logger) Option {
	return func(s *Solver) { s.logger = l }
}

func New(cfg Config, opts ...Option) *Solver {
	s := &Solver{cfg: cfg.Sanitize(), logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Solver) SetLogger(l *zap.Logger) { s.logger = l }

// Configure replaces the parameters; invalid values are clamped.
func (s *Solver) Configure(cfg Config) {
	s.cfg = cfg.Sanitize()
}

func (s *Solver) Config() Config { return s.cfg }

func (s *Solver) SetFriction(static, slip float64) {
	s.cfg.StaticFriction, s.cfg.SlipFriction = static, slip
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetContactCullingDistance(v float64) {
	s.cfg.CullingDistance = v
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetContactCullingDepth(v float64) {
	s.cfg.CullingDepth = v
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetGaussSeidelErrorCriterion(v float64) {
	s.cfg.ErrorCriterion = v
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetGaussSeidelMaxNumIterations(n int) {
	s.cfg.MaxIterations = n
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetContactDepthCorrection(depth, velocityRatio float64) {
	s.cfg.CorrectionDepth, s.cfg.CorrectionVelocityRatio = depth, velocityRatio
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetCoefficientOfRestitution(e float64) {
	s.cfg.Restitution = e
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) SetPenaltyGains(kp, kv float64) {
	s.cfg.Kp, s.cfg.Kv = kp, kv
	s.cfg = s.cfg.Sanitize()
}

func (s *Solver) Set2DMode(on bool) { s.cfg.Is2D = on }

// SetCollisionDetector binds the narrow phase used by Detect.
func (s *Solver) SetCollisionDetector(d collision.Detector) {
	s.detector = d
	s.warned = false
}

// Detect returns the contacts for the current poses, none without a detector.
func (s *Solver) Detect(bodies []*body.Body) []collision.Contact {
	if s.detector == nil {
		if !s.warned {
			s.logger.Debug("no collision detector bound, contacts are ignored")
			s.warned = true
		}
		return nil
	}
	return s.detector.Detect(bodies)
}

// ClearExternalForces removes the contact wrenches the previous Solve added
// to the links. Forces applied by anyone else are left untouched.
func (s *Solver) ClearExternalForces() {
	for _, a := range s.applied {
		a.link.FExt = a.link.FExt.Sub(a.force)
		a.link.TauExt = a.link.TauExt.Sub(a.torque)
	}
	s.applied = s.applied[:0]
}

// Culled reports whether the contact is excluded from the solve.
func (s *Solver) Culled(c collision.Contact) bool {
	if c.Depth < 0 {
		return c.Separation() > s.cfg.CullingDistance
	}
	return c.Depth < s.cfg.CullingDepth
}

// NormalForce is the penalty force for penetration depth and relative normal
// velocity vn (positive when separating).
func (s *Solver) NormalForce(depth, vn float64) float64 {
	if depth <= 0 {
		return 0
	}
	vc := s.cfg.CorrectionVelocityRatio * math.Max(0, depth-s.cfg.CorrectionDepth)
	damping := s.cfg.Kv * (vc - vn)
	if vn > 0 {
		damping *= 1 - s.cfg.Restitution
	}
	return math.Max(0, s.cfg.Kp*depth+damping)
}

// Solve computes and applies the contact forces for one step.
func (s *Solver) Solve(sys ContactSystem, contacts []collision.Contact) Result {
	var res Result
	for _, c := range contacts {
		if s.Culled(c) {
			res.Culled++
			continue
		}
		res.Contacts = append(res.Contacts, ContactForce{Contact: c})
	}

	var sticking []int
	for i := range res.Contacts {
		cf := &res.Contacts[i]
		n := cf.Normal
		vrel := relativeVelocity(cf.Contact)
		vn := vrel.Dot(n)
		cf.NormalForce = s.NormalForce(cf.Depth, vn)
		if cf.NormalForce == 0 {
			continue
		}
		f := n.Mul(cf.NormalForce)

		vt := s.project(vrel.Sub(n.Mul(vn)))
		if speed := vt.Len(); speed > SlipVelocityThreshold {
			f = f.Add(vt.Mul(-s.cfg.SlipCoefficient() * cf.NormalForce / speed))
		} else if s.cfg.StaticFriction > 0 {
			cf.Sticking = true
			sticking = append(sticking, i)
		}
		cf.Force = s.project(f)
		s.apply(cf.Contact, cf.Force)
	}

	res.Converged = true
	if len(sticking) > 0 {
		stats := s.solveSticking(sys, res.Contacts, sticking)
		res.Iterations = stats.Iterations
		res.Residual = stats.Residual
		res.Converged = stats.Converged
		if !stats.Converged {
			s.logger.Debug("gauss-seidel budget exhausted",
				zap.Int("iterations", stats.Iterations),
				zap.Float64("residual", stats.Residual),
				zap.Int("sticking", len(sticking)))
		}
	}
	return res
}

func (s *Solver) solveSticking(sys ContactSystem, contacts []ContactForce, sticking []int) GSStats {
	dt := sys.TimeStep()
	sys.UpdateAccelerations()

	var dirs []Direction
	var rhs []float64
	groups := make([]Group, 0, len(sticking))
	for _, ci := range sticking {
		cf := &contacts[ci]
		vrel := relativeVelocity(cf.Contact)
		arel := relativeAcceleration(cf.Contact)

		g := Group{Limit: s.cfg.StaticFriction * cf.NormalForce}
		for _, t := range s.tangents(cf.Normal) {
			g.Rows = append(g.Rows, len(dirs))
			dirs = append(dirs, Direction{LinkA: cf.LinkA, LinkB: cf.LinkB, Point: cf.Position, Dir: t})
			rhs = append(rhs, -(vrel.Dot(t)/dt + arel.Dot(t)))
		}
		groups = append(groups, g)
	}
	if len(dirs) == 0 {
		return GSStats{Converged: true}
	}

	p := &Problem{A: sys.Delassus(dirs), B: rhs, Groups: groups}
	stats := GaussSeidel(p, s.cfg.ErrorCriterion, s.cfg.MaxIterations)

	gi := 0
	for _, ci := range sticking {
		cf := &contacts[ci]
		var ft mgl64.Vec3
		for _, row := range groups[gi].Rows {
			ft = ft.Add(dirs[row].Dir.Mul(p.X[row]))
		}
		gi++
		ft = s.project(ft)
		cf.Force = cf.Force.Add(ft)
		s.apply(cf.Contact, ft)
	}
	return stats
}

// tangents spans the friction plane; in 2D mode only the in-plane direction.
func (s *Solver) tangents(n mgl64.Vec3) []mgl64.Vec3 {
	if s.cfg.Is2D {
		t := mgl64.Vec3{n.Z(), 0, -n.X()}
		if t.Len() < 1e-9 {
			return nil
		}
		return []mgl64.Vec3{t.Normalize()}
	}
	ref := mgl64.Vec3{1, 0, 0}
	if math.Abs(n.X()) > 0.9 {
		ref = mgl64.Vec3{0, 1, 0}
	}
	t1 := n.Cross(ref).Normalize()
	t2 := n.Cross(t1)
	return []mgl64.Vec3{t1, t2}
}

// project removes the out-of-plane component in 2D mode.
func (s *Solver) project(v mgl64.Vec3) mgl64.Vec3 {
	if s.cfg.Is2D {
		v[1] = 0
	}
	return v
}

func (s *Solver) apply(c collision.Contact, f mgl64.Vec3) {
	if c.LinkA != nil {
		s.applyTo(c.LinkA, f, c.Position)
	}
	if c.LinkB != nil {
		s.applyTo(c.LinkB, f.Mul(-1), c.Position)
	}
}

func (s *Solver) applyTo(l *body.Link, f, x mgl64.Vec3) {
	tau := x.Sub(l.P).Cross(f)
	l.FExt = l.FExt.Add(f)
	l.TauExt = l.TauExt.Add(tau)
	s.applied = append(s.applied, appliedWrench{link: l, force: f, torque: tau})
}

func relativeVelocity(c collision.Contact) mgl64.Vec3 {
	var v mgl64.Vec3
	if c.LinkA != nil {
		v = c.LinkA.PointVelocity(c.Position)
	}
	if c.LinkB != nil {
		v = v.Sub(c.LinkB.PointVelocity(c.Position))
	}
	return v
}

func relativeAcceleration(c collision.Contact) mgl64.Vec3 {
	var a mgl64.Vec3
	if c.LinkA != nil {
		a = c.LinkA.PointAcceleration(c.Position)
	}
	if c.LinkB != nil {
		a = a.Sub(c.LinkB.PointAcceleration(c.Position))
	}
	return a
}
