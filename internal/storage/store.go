package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/san-kum/timedpid/internal/config"
	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/pid"
)

const (
	metadataFile = "metadata.json"
	statesFile   = "states.csv"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RunMetadata describes one saved closed-loop run.
type RunMetadata struct {
	ID         string             `json:"id"`
	Plant      string             `json:"plant"`
	Timestamp  time.Time          `json:"timestamp"`
	Mode       string             `json:"mode"`
	Strict     bool               `json:"strict"`
	Integrator string             `json:"integrator"`
	Dt         float64            `json:"dt"`
	Duration   float64            `json:"duration"`
	Gains      pid.Gains          `json:"gains"`
	CmdRange   *control.Range     `json:"cmd_range,omitempty"`
	Setpoint   control.Schedule   `json:"setpoint"`
	Steps      int                `json:"steps"`
	Metrics    map[string]float64 `json:"metrics"`
}

// NewMetadata fills the descriptive fields from cfg. ID and Timestamp are
// set by Save.
func NewMetadata(cfg *config.Config, result *dynamo.Result) RunMetadata {
	return RunMetadata{
		Plant:      cfg.Plant,
		Mode:       cfg.Mode,
		Strict:     cfg.Strict,
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Gains:      cfg.Gains,
		CmdRange:   cfg.CmdRange,
		Setpoint:   cfg.Setpoint,
		Steps:      len(result.Controls),
		Metrics:    result.Metrics,
	}
}

// Save writes the run under a new id. A run that fails to write is removed
// so List never sees a half-written directory.
func (s *Store) Save(cfg *config.Config, result *dynamo.Result) (runID string, err error) {
	now := time.Now()
	runID = fmt.Sprintf("%s_%d", cfg.Plant, now.UnixNano())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			os.RemoveAll(runDir)
			runID = ""
		}
	}()

	meta := NewMetadata(cfg, result)
	meta.ID = runID
	meta.Timestamp = now

	err = writeFile(filepath.Join(runDir, metadataFile), func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return "", fmt.Errorf("storage: write metadata: %w", err)
	}

	err = writeFile(filepath.Join(runDir, statesFile), func(f *os.File) error {
		return WriteCSV(f, result)
	})
	if err != nil {
		return "", fmt.Errorf("storage: write states: %w", err)
	}

	return runID, nil
}

// writeFile creates path, fills it with write and reports the first error,
// including one from Close.
func writeFile(path string, write func(*os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns saved runs, oldest first. Directories without readable
// metadata are skipped.
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
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSeries(runID string) (*Series, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	return ReadCSV(file)
}
