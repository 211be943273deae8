package world

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/pmsim/internal/body"
)

// integrate applies one semi-implicit Euler step: velocities first, then
// positions from the new velocities.
func (w *World) integrate(bs *bodyState) {
	b := bs.body
	dt := w.dt
	root := b.Root()
	if root.JointType == body.JointFree {
		root.V = root.V.Add(root.DV.Mul(dt))
		root.W = root.W.Add(root.DW.Mul(dt))
		root.P = root.P.Add(root.V.Mul(dt))
		if angle := root.W.Len() * dt; angle > 0 {
			root.R = orthonormalize(mgl64.HomogRotate3D(angle, root.W.Normalize()).Mat3().Mul3(root.R))
		}
	}
	for _, j := range b.Joints() {
		j.DQ += j.DDQ * dt
		j.Q += j.DQ * dt
	}
	b.CalcForwardKinematics(true, true)
}

// orthonormalize removes the drift accumulated by repeated rotation products.
func orthonormalize(r mgl64.Mat3) mgl64.Mat3 {
	x := r.Col(0).Normalize()
	y := r.Col(1)
	y = y.Sub(x.Mul(x.Dot(y))).Normalize()
	z := x.Cross(y)
	return mgl64.Mat3FromCols(x, y, z)
}
