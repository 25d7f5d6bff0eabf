// Package export writes the load and drop series of a finished run to files
// (CSV, JSON, YAML) or to a ClickHouse table.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/inference-sim/floodsim/sim"
)

// Point is one sampling instant carrying both series.
type Point struct {
	TimeUs  int64   `json:"time_us" yaml:"time_us"`
	TimeSec float64 `json:"time_s" yaml:"time_s"`
	Load    float64 `json:"load" yaml:"load"`
	Dropped int64   `json:"dropped" yaml:"dropped"`
}

// Run is the exportable result of one simulation.
type Run struct {
	Config  sim.Config  `json:"config" yaml:"config"`
	Summary sim.Summary `json:"summary" yaml:"summary"`
	Points  []Point     `json:"points" yaml:"points"`
}

// FromSimulator captures the series and summary of s.
func FromSimulator(s *sim.Simulator) (Run, error) {
	points, err := Zip(s.Metrics.LoadSeries(), s.Metrics.DropSeries())
	if err != nil {
		return Run{}, err
	}
	return Run{Config: s.Config(), Summary: s.Summarize(), Points: points}, nil
}

// Zip joins the load and drop series, which are sampled at the same instants.
func Zip(load, drops []sim.MetricSample) ([]Point, error) {
	if len(load) != len(drops) {
		return nil, fmt.Errorf("series length mismatch: %d load samples, %d drop samples", len(load), len(drops))
	}
	points := make([]Point, len(load))
	for i := range load {
		if load[i].Time != drops[i].Time {
			return nil, fmt.Errorf("sample %d: load at %d, drops at %d", i, load[i].Time, drops[i].Time)
		}
		points[i] = Point{
			TimeUs:  load[i].Time,
			TimeSec: sim.TicksToSeconds(load[i].Time),
			Load:    load[i].Value,
			Dropped: int64(drops[i].Value),
		}
	}
	return points, nil
}

// CSV column headers.
var csvColumns = []string{"time_us", "time_s", "load", "dropped"}

// WriteCSV writes one row per sample. Timestamps use integer formatting to
// keep microsecond precision.
func WriteCSV(w io.Writer, run Run) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvColumns); err != nil {
		return fmt.Errorf("writing CSV header: %w", err)
	}
	for i, p := range run.Points {
		row := []string{
			strconv.FormatInt(p.TimeUs, 10),
			strconv.FormatFloat(p.TimeSec, 'f', -1, 64),
			strconv.FormatFloat(p.Load, 'f', -1, 64),
			strconv.FormatInt(p.Dropped, 10),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("writing CSV row %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteJSON writes the whole run as indented JSON.
func WriteJSON(w io.Writer, run Run) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}
	return nil
}

// WriteYAML writes the whole run as YAML.
func WriteYAML(w io.Writer, run Run) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(run); err != nil {
		return fmt.Errorf("encoding YAML: %w", err)
	}
	return enc.Close()
}

// WriteFile picks the format from the file extension: .csv, .json, .yaml or .yml.
func WriteFile(path string, run Run) (err error) {
	var write func(io.Writer, Run) error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		write = WriteCSV
	case ".json":
		write = WriteJSON
	case ".yaml", ".yml":
		write = WriteYAML
	default:
		return fmt.Errorf("unsupported output format %q (want .csv, .json, .yaml)", filepath.Ext(path))
	}

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("closing output file: %w", cerr)
		}
	}()
	return write(file, run)
}
