// Package storage keeps simulation runs on disk, one directory per run with
// a metadata.json and a states.csv.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/pmsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID           string             `json:"id"`
	Model        string             `json:"model"`
	Motion       string             `json:"motion,omitempty"`
	Timestamp    time.Time          `json:"timestamp"`
	TimeStep     float64            `json:"timeStep"`
	Duration     float64            `json:"duration"`
	DynamicsMode string             `json:"dynamicsMode"`
	Steps        int                `json:"steps"`
	Metrics      map[string]float64 `json:"metrics"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// Save writes a new run and returns its id. ID, Timestamp, Steps, Metrics
// and Warnings of meta are filled in from the run.
func (s *Store) Save(meta RunMetadata, result *sim.Result) (string, error) {
	meta.ID = uuid.NewString()
	meta.Timestamp = time.Now()
	meta.Steps = result.Steps
	meta.Metrics = result.Metrics
	meta.Warnings = result.Warnings

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, metadataFile))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, statesFile))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	if err := WriteCSV(csvFile, result); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// WriteCSV writes the recorded rows of result, one per time, with state
// columns followed by control columns.
func WriteCSV(out io.Writer, result *sim.Result) error {
	w := csv.NewWriter(out)

	header := append([]string{"time"}, result.Header...)
	header = append(header, result.ControlHeader...)
	if err := w.Write(header); err != nil {
		return err
	}

	numControls := len(result.ControlHeader)
	for i := range result.States {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(result.Times[i], 'f', 6, 64))
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'g', 10, 64))
		}
		if i < len(result.Controls) && len(result.Controls[i]) == numControls {
			for _, val := range result.Controls[i] {
				row = append(row, strconv.FormatFloat(val, 'g', 10, 64))
			}
		} else {
			for j := 0; j < numControls; j++ {
				row = append(row, "0")
			}
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	if _, err := uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("run id %q: %w", runID, err)
	}
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// States is the content of a states.csv.
type States struct {
	Header []string
	Times  []float64
	Rows   [][]float64
}

// Column returns the values of the named column.
func (st *States) Column(name string) ([]float64, bool) {
	for i, h := range st.Header {
		if h != name {
			continue
		}
		out := make([]float64, 0, len(st.Rows))
		for _, row := range st.Rows {
			if i < len(row) {
				out = append(out, row[i])
			}
		}
		return out, true
	}
	return nil, false
}

func (s *Store) LoadStates(runID string) (*States, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	st := &States{}
	if len(records) == 0 {
		return st, nil
	}
	if len(records[0]) > 0 {
		st.Header = records[0][1:]
	}

	st.Times = make([]float64, 0, len(records)-1)
	st.Rows = make([][]float64, 0, len(records)-1)
	for _, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			continue
		}

		row := make([]float64, 0, len(record)-1)
		for _, field := range record[1:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				val = 0
			}
			row = append(row, val)
		}
		st.Times = append(st.Times, t)
		st.Rows = append(st.Rows, row)
	}
	return st, nil
}

// ExportCSV copies the states of a stored run to w.
func (s *Store) ExportCSV(runID string, w io.Writer) error {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}
