package body

// Legged exposes the foot links of a body for kinematic walking.
type Legged struct {
	body  *Body
	feet  []*Link
	valid bool
}

// NewLegged resolves b.FootNames. The helper is valid only when at least one
// foot is declared and every declared foot exists.
func NewLegged(b *Body) *Legged {
	lg := &Legged{body: b, valid: len(b.FootNames) > 0}
	for _, name := range b.FootNames {
		l := b.LinkByName(name)
		if l == nil {
			lg.valid = false
			continue
		}
		lg.feet = append(lg.feet, l)
	}
	return lg
}

func (lg *Legged) IsValid() bool        { return lg.valid }
func (lg *Legged) NumFeet() int         { return len(lg.feet) }
func (lg *Legged) FootLink(i int) *Link { return lg.feet[i] }

// SupportFoot returns the foot with the lowest world z. Feet at the same
// height resolve to the lowest link index. Nil when the helper is invalid.
func (lg *Legged) SupportFoot() *Link {
	if !lg.valid {
		return nil
	}
	var support *Link
	for _, foot := range lg.feet {
		if support == nil {
			support = foot
			continue
		}
		z, sz := foot.P.Z(), support.P.Z()
		if z < sz || (z == sz && foot.Index < support.Index) {
			support = foot
		}
	}
	return support
}
