// Package motion holds recorded joint trajectories sampled at a fixed rate.
package motion

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

// Sequence is an immutable list of joint-angle frames.
type Sequence struct {
	name      string
	frameRate float64
	numParts  int
	frames    [][]float64
}

// New copies frames into a sequence. Every frame must have the same number
// of joint values.
func New(name string, frameRate float64, frames [][]float64) (*Sequence, error) {
	if frameRate <= 0 || math.IsNaN(frameRate) || math.IsInf(frameRate, 0) {
		return nil, fmt.Errorf("motion %s: frame rate %g must be positive", name, frameRate)
	}
	s := &Sequence{name: name, frameRate: frameRate}
	if len(frames) > 0 {
		s.numParts = len(frames[0])
	}
	s.frames = make([][]float64, len(frames))
	for i, f := range frames {
		if len(f) != s.numParts {
			return nil, fmt.Errorf("motion %s: frame %d has %d values, want %d", name, i, len(f), s.numParts)
		}
		s.frames[i] = append([]float64(nil), f...)
	}
	return s, nil
}

func (s *Sequence) Name() string       { return s.name }
func (s *Sequence) FrameRate() float64 { return s.frameRate }
func (s *Sequence) NumFrames() int     { return len(s.frames) }
func (s *Sequence) NumParts() int      { return s.numParts }

// TimeStep is the time between two frames.
func (s *Sequence) TimeStep() float64 { return 1 / s.frameRate }

// Duration of the whole sequence.
func (s *Sequence) Duration() float64 {
	if len(s.frames) == 0 {
		return 0
	}
	return float64(len(s.frames)-1) / s.frameRate
}

// At returns joint part of frame i.
func (s *Sequence) At(i, part int) float64 { return s.frames[i][part] }

type fileFormat struct {
	Name      string      `yaml:"name"`
	FrameRate float64     `yaml:"frameRate"`
	Frames    [][]float64 `yaml:"frames"`
}

// Load reads a sequence from a YAML file, or a CSV file when the extension is
// .csv. CSV files carry one frame per row; the frame rate then comes from a
// "# frameRate: N" comment line or defaults to DefaultFrameRate.
func Load(path string) (*Sequence, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return ReadCSV(f, name, 0)
	}
	var ff fileFormat
	if err := yaml.NewDecoder(f).Decode(&ff); err != nil {
		return nil, fmt.Errorf("motion %s: %w", path, err)
	}
	if ff.Name != "" {
		name = ff.Name
	}
	return New(name, ff.FrameRate, ff.Frames)
}

// DefaultFrameRate is used for CSV input without a rate line.
const DefaultFrameRate = 1000.0

// ReadCSV parses one frame per row. A zero frameRate is taken from a leading
// "# frameRate: N" line, falling back to DefaultFrameRate.
func ReadCSV(r io.Reader, name string, frameRate float64) (*Sequence, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	var body []string
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			key, val, ok := strings.Cut(strings.TrimSpace(strings.TrimPrefix(trimmed, "#")), ":")
			if ok && strings.EqualFold(strings.TrimSpace(key), "frameRate") && frameRate == 0 {
				if frameRate, err = cast.ToFloat64E(strings.TrimSpace(val)); err != nil {
					return nil, fmt.Errorf("motion %s: frame rate: %w", name, err)
				}
			}
			continue
		}
		if trimmed != "" {
			body = append(body, line)
		}
	}
	if frameRate == 0 {
		frameRate = DefaultFrameRate
	}

	cr := csv.NewReader(strings.NewReader(strings.Join(body, "\n")))
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("motion %s: %w", name, err)
	}
	frames := make([][]float64, 0, len(records))
	for i, rec := range records {
		frame := make([]float64, len(rec))
		for j, field := range rec {
			v, err := cast.ToFloat64E(strings.TrimSpace(field))
			if err != nil {
				return nil, fmt.Errorf("motion %s: row %d column %d: %w", name, i+1, j+1, err)
			}
			frame[j] = v
		}
		frames = append(frames, frame)
	}
	return New(name, frameRate, frames)
}

// Save writes s as YAML.
func Save(path string, s *Sequence) error {
	data, err := yaml.Marshal(fileFormat{Name: s.name, FrameRate: s.frameRate, Frames: s.frames})
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
