package motion

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewCopiesFrames(t *testing.T) {
	frames := [][]float64{{0, 1}, {2, 3}}
	s, err := New("walk", 500, frames)
	if err != nil {
		t.Fatal(err)
	}
	frames[0][0] = 99
	if s.At(0, 0) != 0 {
		t.Errorf("sequence shares caller storage")
	}
	if s.NumParts() != 2 || s.NumFrames() != 2 {
		t.Errorf("parts=%d frames=%d", s.NumParts(), s.NumFrames())
	}
	if s.TimeStep() != 0.002 {
		t.Errorf("TimeStep() = %g", s.TimeStep())
	}
	if s.Duration() != 0.002 {
		t.Errorf("Duration() = %g, want 0.002", s.Duration())
	}
}

func TestNewRejects(t *testing.T) {
	tests := []struct {
		name   string
		rate   float64
		frames [][]float64
	}{
		{"zero rate", 0, [][]float64{{1}}},
		{"negative rate", -10, nil},
		{"ragged", 100, [][]float64{{1, 2}, {3}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := New("m", tt.rate, tt.frames); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestEmptySequence(t *testing.T) {
	s, err := New("empty", 1000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.NumFrames() != 0 || s.Duration() != 0 {
		t.Errorf("frames=%d duration=%g", s.NumFrames(), s.Duration())
	}
}

func TestReadCSV(t *testing.T) {
	in := "# frameRate: 250\n0, 0.1\n0.2,0.3\n\n0.4, 0.5\n"
	s, err := ReadCSV(strings.NewReader(in), "squat", 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.FrameRate() != 250 {
		t.Errorf("FrameRate() = %g", s.FrameRate())
	}
	if s.NumFrames() != 3 || s.At(2, 1) != 0.5 {
		t.Errorf("frames = %d, last = %g", s.NumFrames(), s.At(2, 1))
	}

	if _, err := ReadCSV(strings.NewReader("1,x\n"), "bad", 100); err == nil {
		t.Error("expected parse error")
	}
	s, err = ReadCSV(strings.NewReader("1\n2\n"), "plain", 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.FrameRate() != DefaultFrameRate {
		t.Errorf("FrameRate() = %g, want default", s.FrameRate())
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wave.yaml")
	s, err := New("wave", 1000, [][]float64{{0, 0.5}, {0.1, 0.6}})
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(path, s); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "wave" || got.FrameRate() != 1000 || got.At(1, 1) != 0.6 {
		t.Errorf("loaded %s at %g Hz, last = %g", got.Name(), got.FrameRate(), got.At(1, 1))
	}

	csvPath := filepath.Join(dir, "steps.csv")
	if err := os.WriteFile(csvPath, []byte("# frameRate: 500\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = Load(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name() != "steps" || got.FrameRate() != 500 {
		t.Errorf("csv: %s at %g Hz", got.Name(), got.FrameRate())
	}
}
