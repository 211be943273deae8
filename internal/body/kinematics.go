package body

// CalcForwardKinematics propagates the root state to every link. Velocities
// and accelerations are only updated when requested.
func (b *Body) CalcForwardKinematics(calcVelocity, calcAcceleration bool) {
	for _, l := range b.links[1:] {
		propagateDown(l.Parent, l, calcVelocity, calcAcceleration)
	}
}

func propagateDown(p, c *Link, calcVelocity, calcAcceleration bool) {
	switch c.JointType {
	case JointRevolute:
		c.R = p.R.Mul3(rotation(c.Axis, c.Q))
		c.P = p.P.Add(p.R.Mul3x1(c.Offset))
	case JointPrismatic:
		c.R = p.R
		c.P = p.P.Add(p.R.Mul3x1(c.Offset.Add(c.Axis.Mul(c.Q))))
	default:
		c.R = p.R
		c.P = p.P.Add(p.R.Mul3x1(c.Offset))
	}
	if !calcVelocity {
		return
	}

	arm := c.P.Sub(p.P)
	sv := p.R.Mul3x1(c.Axis)

	c.W = p.W
	c.V = p.V.Add(p.W.Cross(arm))
	switch c.JointType {
	case JointRevolute:
		c.W = c.W.Add(sv.Mul(c.DQ))
	case JointPrismatic:
		c.V = c.V.Add(sv.Mul(c.DQ))
	}
	if !calcAcceleration {
		return
	}

	c.DW = p.DW
	c.DV = p.DV.Add(p.DW.Cross(arm)).Add(p.W.Cross(p.W.Cross(arm)))
	switch c.JointType {
	case JointRevolute:
		c.DW = c.DW.Add(p.W.Cross(sv.Mul(c.DQ))).Add(sv.Mul(c.DDQ))
	case JointPrismatic:
		c.DV = c.DV.Add(p.W.Cross(sv.Mul(c.DQ)).Mul(2)).Add(sv.Mul(c.DDQ))
	}
}

// propagateUp is the exact inverse of propagateDown: it recovers the parent
// state from the child state through the child's joint.
func propagateUp(c, p *Link, calcVelocity, calcAcceleration bool) {
	switch c.JointType {
	case JointRevolute:
		p.R = c.R.Mul3(rotation(c.Axis, c.Q).Transpose())
		p.P = c.P.Sub(p.R.Mul3x1(c.Offset))
	case JointPrismatic:
		p.R = c.R
		p.P = c.P.Sub(p.R.Mul3x1(c.Offset.Add(c.Axis.Mul(c.Q))))
	default:
		p.R = c.R
		p.P = c.P.Sub(p.R.Mul3x1(c.Offset))
	}
	if !calcVelocity {
		return
	}

	arm := c.P.Sub(p.P)
	sv := p.R.Mul3x1(c.Axis)

	p.W = c.W
	if c.JointType == JointRevolute {
		p.W = c.W.Sub(sv.Mul(c.DQ))
	}
	p.V = c.V.Sub(p.W.Cross(arm))
	if c.JointType == JointPrismatic {
		p.V = p.V.Sub(sv.Mul(c.DQ))
	}
	if !calcAcceleration {
		return
	}

	p.DW = c.DW
	if c.JointType == JointRevolute {
		p.DW = c.DW.Sub(p.W.Cross(sv.Mul(c.DQ))).Sub(sv.Mul(c.DDQ))
	}
	p.DV = c.DV.Sub(p.DW.Cross(arm)).Sub(p.W.Cross(p.W.Cross(arm)))
	if c.JointType == JointPrismatic {
		p.DV = p.DV.Sub(p.W.Cross(sv.Mul(c.DQ)).Mul(2)).Sub(sv.Mul(c.DDQ))
	}
}

type traverseStep struct {
	link *Link
	from *Link
	up   bool
}

// LinkTraverse visits every link of a body starting at an arbitrary base
// link: first the ancestors of the base, then the remaining subtrees.
type LinkTraverse struct {
	steps []traverseStep
}

// NewLinkTraverse builds the visiting order for base.
func NewLinkTraverse(base *Link) *LinkTraverse {
	t := &LinkTraverse{}
	t.build(base, nil)
	return t
}

func (t *LinkTraverse) build(l, from *Link) {
	t.steps = append(t.steps, traverseStep{link: l, from: from, up: from != nil && from.Parent == l})
	if l.Parent != nil && l.Parent != from {
		t.build(l.Parent, l)
	}
	for _, c := range l.Children {
		if c != from {
			t.build(c, l)
		}
	}
}

// Base returns the link whose state is kept fixed.
func (t *LinkTraverse) Base() *Link { return t.steps[0].link }

// Links returns the visiting order.
func (t *LinkTraverse) Links() []*Link {
	out := make([]*Link, len(t.steps))
	for i, s := range t.steps {
		out[i] = s.link
	}
	return out
}

// CalcForwardKinematics derives every link from the state of the base link.
func (t *LinkTraverse) CalcForwardKinematics(calcVelocity, calcAcceleration bool) {
	for _, s := range t.steps[1:] {
		if s.up {
			propagateUp(s.from, s.link, calcVelocity, calcAcceleration)
		} else {
			propagateDown(s.from, s.link, calcVelocity, calcAcceleration)
		}
	}
}
