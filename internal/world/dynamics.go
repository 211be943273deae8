package world

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/pmsim/internal/body"
	"github.com/san-kum/pmsim/internal/dynamo"
	"github.com/san-kum/pmsim/internal/penalty"
)

// regularization added to the mass matrix diagonal when it is not positive definite
const massRegularization = 1e-9

// bodyState caches the generalized coordinates of one body. The full
// coordinate vector holds the six root coordinates of a free root (linear
// then angular acceleration of the root origin) followed by one entry per
// joint in joint-id order. Free coordinates are the unknowns of the
// dynamics; the others are prescribed.
type bodyState struct {
	body     *body.Body
	strategy Strategy

	rootDofs int
	free     []int
	freeOf   []int

	acc  []float64
	bias []float64
	cols [][]float64
	mass *mat.SymDense
	chol mat.Cholesky
	ok   bool

	dv, dw, f, n []mgl64.Vec3
}

func newBodyState(b *body.Body, s Strategy) *bodyState {
	bs := &bodyState{body: b, strategy: s}
	if b.Root().JointType == body.JointFree {
		bs.rootDofs = 6
	}
	size := bs.rootDofs + b.NumJoints()
	bs.freeOf = make([]int, size)
	for i := range bs.freeOf {
		bs.freeOf[i] = -1
		if i < bs.rootDofs || s == ForwardDynamicsStrategy {
			bs.freeOf[i] = len(bs.free)
			bs.free = append(bs.free, i)
		}
	}
	bs.acc = make([]float64, size)
	bs.bias = make([]float64, size)
	bs.cols = make([][]float64, len(bs.free))
	for k := range bs.cols {
		bs.cols[k] = make([]float64, size)
	}
	if len(bs.free) > 0 {
		bs.mass = mat.NewSymDense(len(bs.free), nil)
	}
	nl := b.NumLinks()
	bs.dv = make([]mgl64.Vec3, nl)
	bs.dw = make([]mgl64.Vec3, nl)
	bs.f = make([]mgl64.Vec3, nl)
	bs.n = make([]mgl64.Vec3, nl)
	return bs
}

func (bs *bodyState) invalidate() { bs.ok = false }

// divergenceLimit bounds every position and velocity magnitude.
const divergenceLimit = 1e12

func (bs *bodyState) finite() bool {
	for _, l := range bs.body.Links() {
		for _, v := range []float64{l.P.Len(), l.V.Len(), l.W.Len(), math.Abs(l.Q), math.Abs(l.DQ)} {
			if math.IsNaN(v) || v > divergenceLimit {
				return false
			}
		}
	}
	return true
}

// calcAccelerations solves the dynamics of bs for the forces currently on its
// links and writes the result into the link state. High-gain joints receive
// the torque that realizes their prescribed acceleration.
func (w *World) calcAccelerations(bs *bodyState) error {
	b := bs.body
	if len(bs.free) == 0 && b.NumJoints() == 0 {
		return nil
	}

	for i := range bs.acc {
		bs.acc[i] = 0
	}
	for _, j := range b.Joints() {
		if bs.freeOf[bs.rootDofs+j.JointID] < 0 {
			bs.acc[bs.rootDofs+j.JointID] = j.DDQ
		}
	}
	bs.inverseDynamics(bs.acc, true, w.gravity, bs.bias)

	nf := len(bs.free)
	if nf > 0 {
		if err := bs.factorize(); err != nil {
			return err
		}
		rhs := mat.NewVecDense(nf, nil)
		for k, i := range bs.free {
			tau := 0.0
			if i >= bs.rootDofs {
				tau = b.Joint(i - bs.rootDofs).U
			}
			rhs.SetVec(k, tau-bs.bias[i])
		}
		var x mat.VecDense
		if err := bs.chol.SolveVecTo(&x, rhs); err != nil {
			return fmt.Errorf("body %s: %w: %v", b.Name, dynamo.ErrUnstable, err)
		}
		for k, i := range bs.free {
			bs.acc[i] = x.AtVec(k)
		}
	}

	if bs.strategy == HighGainStrategy {
		for _, j := range b.Joints() {
			i := bs.rootDofs + j.JointID
			u := bs.bias[i]
			for k, fi := range bs.free {
				u += bs.cols[k][i] * bs.acc[fi]
			}
			j.U = u
		}
	}

	root := b.Root()
	root.DV, root.DW = mgl64.Vec3{}, mgl64.Vec3{}
	if bs.rootDofs == 6 {
		root.DV = mgl64.Vec3{bs.acc[0], bs.acc[1], bs.acc[2]}
		root.DW = mgl64.Vec3{bs.acc[3], bs.acc[4], bs.acc[5]}
	}
	for _, j := range b.Joints() {
		j.DDQ = bs.acc[bs.rootDofs+j.JointID]
	}
	b.CalcForwardKinematics(true, true)
	return nil
}

// factorize builds and factors the mass matrix restricted to the free
// coordinates, once per step. The full columns are kept in cols for the
// high-gain torques.
func (bs *bodyState) factorize() error {
	if bs.ok {
		return nil
	}
	nf := len(bs.free)
	unit := make([]float64, len(bs.acc))
	for k, i := range bs.free {
		unit[i] = 1
		bs.inverseDynamics(unit, false, mgl64.Vec3{}, bs.cols[k])
		unit[i] = 0
		for r := k; r < nf; r++ {
			bs.mass.SetSym(k, r, bs.cols[k][bs.free[r]])
		}
	}
	if !bs.chol.Factorize(bs.mass) {
		for k := 0; k < nf; k++ {
			bs.mass.SetSym(k, k, bs.mass.At(k, k)+massRegularization)
		}
		if !bs.chol.Factorize(bs.mass) {
			return fmt.Errorf("body %s: mass matrix is singular: %w", bs.body.Name, dynamo.ErrUnstable)
		}
	}
	bs.ok = true
	return nil
}

// inverseDynamics is the recursive Newton-Euler pass. It writes into out the
// generalized forces needed for the accelerations acc. With bias the current
// velocities, gravity and external forces take part, otherwise the result is
// a column of the mass matrix.
func (bs *bodyState) inverseDynamics(acc []float64, bias bool, g mgl64.Vec3, out []float64) {
	links := bs.body.Links()
	var dv0, dw0 mgl64.Vec3
	if bs.rootDofs == 6 {
		dv0 = mgl64.Vec3{acc[0], acc[1], acc[2]}
		dw0 = mgl64.Vec3{acc[3], acc[4], acc[5]}
	}
	if bias {
		dv0 = dv0.Sub(g)
	}

	for i, l := range links {
		var w mgl64.Vec3
		if bias {
			w = l.W
		}
		if i == 0 {
			bs.dv[0], bs.dw[0] = dv0, dw0
		} else {
			p := l.Parent
			arm := l.P.Sub(p.P)
			sv := p.R.Mul3x1(l.Axis)
			var wp mgl64.Vec3
			dq := 0.0
			if bias {
				wp, dq = p.W, l.DQ
			}
			ddq := 0.0
			if l.HasJoint() {
				ddq = acc[bs.rootDofs+l.JointID]
			}
			bs.dw[i] = bs.dw[p.Index]
			bs.dv[i] = bs.dv[p.Index].Add(bs.dw[p.Index].Cross(arm)).Add(wp.Cross(wp.Cross(arm)))
			switch l.JointType {
			case body.JointRevolute:
				bs.dw[i] = bs.dw[i].Add(wp.Cross(sv.Mul(dq))).Add(sv.Mul(ddq))
			case body.JointPrismatic:
				bs.dv[i] = bs.dv[i].Add(wp.Cross(sv.Mul(dq)).Mul(2)).Add(sv.Mul(ddq))
			}
		}

		r := l.R.Mul3x1(l.COM)
		inertia := l.InertiaWorld()
		ac := bs.dv[i].Add(bs.dw[i].Cross(r)).Add(w.Cross(w.Cross(r)))
		f := ac.Mul(l.Mass)
		n := inertia.Mul3x1(bs.dw[i]).Add(w.Cross(inertia.Mul3x1(w))).Add(r.Cross(f))
		if bias {
			f = f.Sub(l.FExt)
			n = n.Sub(l.TauExt)
		}
		bs.f[i], bs.n[i] = f, n
	}

	for i := len(links) - 1; i > 0; i-- {
		l := links[i]
		p := l.Parent.Index
		bs.f[p] = bs.f[p].Add(bs.f[i])
		bs.n[p] = bs.n[p].Add(bs.n[i]).Add(l.P.Sub(links[p].P).Cross(bs.f[i]))
	}

	if bs.rootDofs == 6 {
		copy(out[0:3], bs.f[0][:])
		copy(out[3:6], bs.n[0][:])
	}
	for _, j := range bs.body.Joints() {
		sv := j.WorldAxis()
		if j.JointType == body.JointPrismatic {
			out[bs.rootDofs+j.JointID] = bs.f[j.Index].Dot(sv)
		} else {
			out[bs.rootDofs+j.JointID] = bs.n[j.Index].Dot(sv)
		}
	}
}

// jacobianRow adds sign * dir^T J(x) for the point x on link l to row, where
// J maps free coordinates to the velocity of x.
func (bs *bodyState) jacobianRow(l *body.Link, x, dir mgl64.Vec3, sign float64, row []float64) {
	if bs.rootDofs == 6 {
		arm := x.Sub(bs.body.Root().P).Cross(dir)
		for k := 0; k < 3; k++ {
			row[bs.freeOf[k]] += sign * dir[k]
			row[bs.freeOf[3+k]] += sign * arm[k]
		}
	}
	for j := l; j != nil; j = j.Parent {
		if !j.HasJoint() {
			continue
		}
		fi := bs.freeOf[bs.rootDofs+j.JointID]
		if fi < 0 {
			continue
		}
		sv := j.WorldAxis()
		if j.JointType == body.JointPrismatic {
			row[fi] += sign * sv.Dot(dir)
		} else {
			row[fi] += sign * sv.Cross(x.Sub(j.P)).Dot(dir)
		}
	}
}

// Delassus returns the relative acceleration along each direction caused by
// a unit force along every direction, G M^-1 G^T summed over the bodies.
func (w *World) Delassus(dirs []penalty.Direction) *mat.SymDense {
	n := len(dirs)
	a := mat.NewSymDense(n, nil)
	if n == 0 {
		return a
	}
	for bi, bs := range w.bodies {
		nf := len(bs.free)
		if nf == 0 {
			continue
		}
		g := mat.NewDense(n, nf, nil)
		touched := false
		for i, d := range dirs {
			row := g.RawRowView(i)
			if oi, ok := w.owner[d.LinkA]; ok && oi == bi {
				bs.jacobianRow(d.LinkA, d.Point, d.Dir, 1, row)
				touched = true
			}
			if oi, ok := w.owner[d.LinkB]; ok && oi == bi {
				bs.jacobianRow(d.LinkB, d.Point, d.Dir, -1, row)
				touched = true
			}
		}
		if !touched {
			continue
		}
		if err := bs.factorize(); err != nil {
			if w.err == nil {
				w.err = err
			}
			continue
		}
		var y mat.Dense
		if err := bs.chol.SolveTo(&y, g.T()); err != nil {
			continue
		}
		var prod mat.Dense
		prod.Mul(g, &y)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				a.SetSym(i, j, a.At(i, j)+prod.At(i, j))
			}
		}
	}
	return a
}
