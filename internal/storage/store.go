package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/gcmi/internal/gcm"
	"github.com/san-kum/gcmi/internal/runner"
)

var ErrRunNotFound = errors.New("storage: run not found")

const (
	metadataFile = "metadata.json"
	reportFile   = "report.json"
	timingsFile  = "timings.csv"
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
	ID        string    `json:"id"`
	Step      string    `json:"step"`
	Preset    string    `json:"preset,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Steps     int       `json:"steps"`
	Dt        float64   `json:"dt"`
	Backend   string    `json:"backend"`
	Layers    []string  `json:"layers"`
	TotalSec  float64   `json:"total_sec"`
	MeanSec   float64   `json:"mean_sec"`
}

// Save writes the run metadata, the report and a timings CSV under a new
// run directory and returns the run ID.
func (s *Store) Save(meta RunMetadata, report *runner.Report) (string, error) {
	meta.ID = uuid.NewString()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	meta.Steps = report.Steps()
	meta.TotalSec = report.TotalSec()
	meta.MeanSec = report.MeanSec()
	if meta.Layers == nil {
		meta.Layers = Layers(report.LastDiag)
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, reportFile), report); err != nil {
		return "", err
	}

	f, err := os.Create(filepath.Join(runDir, timingsFile))
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := WriteTimingsCSV(f, report); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// Layers lists the middleware names recorded in diag, in execution order.
func Layers(diag gcm.Diag) []string {
	entries := diag.MetaEntries()
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
	}
	return names
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ExportJSON(f, v)
}

// ExportJSON writes v as indented JSON.
func ExportJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func WriteTimingsCSV(w io.Writer, report *runner.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"k", "step_sec"}); err != nil {
		return err
	}
	for k, sec := range report.Timings.PerStepSec {
		if err := cw.Write([]string{strconv.Itoa(k), strconv.FormatFloat(sec, 'g', -1, 64)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// List returns saved runs, newest first. Unreadable run directories are
// skipped.
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
	var meta RunMetadata
	if err := s.readJSON(runID, metadataFile, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func (s *Store) LoadReport(runID string) (*runner.Report, error) {
	var report runner.Report
	if err := s.readJSON(runID, reportFile, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (s *Store) readJSON(runID, name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, name))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Store) LoadTimings(runID string) ([]float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, timingsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}

	timings := make([]float64, 0, len(records))
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue
		}
		sec, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: %s line %d: %w", timingsFile, i+1, err)
		}
		timings = append(timings, sec)
	}
	return timings, nil
}
