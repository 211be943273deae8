package penalty

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestGaussSeidelSolvesDiagonallyDominant(t *testing.T) {
	a := mat.NewSymDense(3, []float64{
		4, 1, 0,
		1, 3, 1,
		0, 1, 5,
	})
	p := &Problem{A: a, B: []float64{1, 2, 3}}
	stats := GaussSeidel(p, 1e-12, 200)
	if !stats.Converged {
		t.Fatalf("not converged: %+v", stats)
	}

	var x, got mat.VecDense
	x.CloneFromVec(mat.NewVecDense(3, p.X))
	got.MulVec(a, &x)
	for i, b := range p.B {
		if d := got.AtVec(i) - b; d > 1e-9 || d < -1e-9 {
			t.Errorf("row %d: residual %g", i, d)
		}
	}
}

func TestGaussSeidelIterationBound(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0.9, 0.9, 1})
	tests := []struct {
		name      string
		criterion float64
		maxIter   int
	}{
		{"one sweep", 1e-12, 1},
		{"five sweeps", 1e-12, 5},
		{"zero budget", 1e-12, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Problem{A: a, B: []float64{1, -1}}
			stats := GaussSeidel(p, tt.criterion, tt.maxIter)
			limit := tt.maxIter
			if limit < 1 {
				limit = 1
			}
			if stats.Iterations > limit {
				t.Errorf("iterations = %d, want <= %d", stats.Iterations, limit)
			}
			if stats.Converged {
				t.Errorf("converged with residual %g", stats.Residual)
			}
		})
	}
}

func TestGaussSeidelStopsBelowCriterion(t *testing.T) {
	a := mat.NewSymDense(2, []float64{2, 0, 0, 2})
	p := &Problem{A: a, B: []float64{2, 4}}
	stats := GaussSeidel(p, 1e-3, 50)
	if stats.Iterations != 2 || !stats.Converged {
		t.Fatalf("stats = %+v, want 2 converged iterations", stats)
	}
	if p.X[0] != 1 || p.X[1] != 2 {
		t.Errorf("x = %v", p.X)
	}
}

func TestGaussSeidelDiskProjection(t *testing.T) {
	a := mat.NewSymDense(2, []float64{1, 0, 0, 1})
	p := &Problem{
		A:      a,
		B:      []float64{3, 4},
		Groups: []Group{{Rows: []int{0, 1}, Limit: 1}},
	}
	GaussSeidel(p, 1e-9, 50)
	if d := p.X[0] - 0.6; d > 1e-9 || d < -1e-9 {
		t.Errorf("x0 = %g, want 0.6", p.X[0])
	}
	if d := p.X[1] - 0.8; d > 1e-9 || d < -1e-9 {
		t.Errorf("x1 = %g, want 0.8", p.X[1])
	}
}

func TestGaussSeidelSingularRow(t *testing.T) {
	a := mat.NewSymDense(2, []float64{0, 0, 0, 1})
	p := &Problem{A: a, B: []float64{5, 1}}
	GaussSeidel(p, 1e-9, 10)
	if p.X[0] != 0 || p.X[1] != 1 {
		t.Errorf("x = %v", p.X)
	}
}
