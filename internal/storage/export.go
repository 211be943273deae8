package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/pmsim/internal/sim"
)

type ExportData struct {
	RunMetadata
	Header        []string    `json:"header"`
	ControlHeader []string    `json:"controlHeader"`
	Times         []float64   `json:"times"`
	States        [][]float64 `json:"states"`
	Controls      [][]float64 `json:"controls"`
}

func exportData(meta RunMetadata, result *sim.Result) ExportData {
	meta.Steps = result.Steps
	meta.Metrics = result.Metrics
	meta.Warnings = result.Warnings
	return ExportData{
		RunMetadata:   meta,
		Header:        result.Header,
		ControlHeader: result.ControlHeader,
		Times:         result.Times,
		States:        result.States,
		Controls:      result.Controls,
	}
}

func ExportJSON(path string, meta RunMetadata, result *sim.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return EncodeJSON(file, meta, result)
}

// EncodeJSON writes the run as one indented JSON document.
func EncodeJSON(w io.Writer, meta RunMetadata, result *sim.Result) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportData(meta, result))
}
