package penalty

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Group couples rows whose joint magnitude is bounded by Limit, e.g. the two
// tangential components of one contact. A negative Limit means unbounded.
type Group struct {
	Rows  []int
	Limit float64
}

// Problem is A x = B with x projected group by group after every update.
type Problem struct {
	A      mat.Symmetric
	B      []float64
	X      []float64
	Groups []Group
}

// GSStats describes one Gauss-Seidel run.
type GSStats struct {
	Iterations int
	Residual   float64
	Converged  bool
}

// diagonals at or below this are treated as immovable rows
const minDiagonal = 1e-12

// GaussSeidel sweeps until the largest change of one sweep is below criterion
// or maxIter sweeps have run. p.X holds the warm start and receives the result.
func GaussSeidel(p *Problem, criterion float64, maxIter int) GSStats {
	n := len(p.B)
	if len(p.X) != n {
		p.X = make([]float64, n)
	}
	if maxIter < 1 {
		maxIter = 1
	}
	groups := p.Groups
	if groups == nil {
		groups = make([]Group, n)
		for i := range groups {
			groups[i] = Group{Rows: []int{i}, Limit: -1}
		}
	}

	var stats GSStats
	x := p.X
	prev := make([]float64, 0, 3)
	vals := make([]float64, 0, 3)

	for it := 1; it <= maxIter; it++ {
		residual := 0.0
		for _, g := range groups {
			prev = prev[:0]
			for _, k := range g.Rows {
				prev = append(prev, x[k])
				akk := p.A.At(k, k)
				if akk <= minDiagonal {
					x[k] = 0
					continue
				}
				sum := p.B[k]
				for j := 0; j < n; j++ {
					sum -= p.A.At(k, j) * x[j]
				}
				x[k] += sum / akk
			}
			if g.Limit >= 0 {
				vals = vals[:0]
				for _, k := range g.Rows {
					vals = append(vals, x[k])
				}
				if norm := floats.Norm(vals, 2); norm > g.Limit {
					scale := 0.0
					if norm > 0 {
						scale = g.Limit / norm
					}
					for _, k := range g.Rows {
						x[k] *= scale
					}
				}
			}
			for i, k := range g.Rows {
				residual = math.Max(residual, math.Abs(x[k]-prev[i]))
			}
		}
		stats.Iterations = it
		stats.Residual = residual
		if residual < criterion {
			stats.Converged = true
			break
		}
	}
	return stats
}
