// Package storage persists completed scans.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"vidmatch/internal/config"
	"vidmatch/internal/scan"
)

// Record is the persisted form of a scan.
type Record struct {
	ID          uuid.UUID    `json:"id"`
	Video       string       `json:"video"`
	Template    string       `json:"template"`
	Threshold   float64      `json:"threshold"`
	FrameRate   float64      `json:"frame_rate"`
	TotalFrames int          `json:"total_frames"`
	Workers     int          `json:"workers"`
	Matches     []scan.Match `json:"matches"`
	Signature   []float32    `json:"signature,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	ElapsedMS   int64        `json:"elapsed_ms"`
}

// NewRecord builds a record from a scan result. sig is the template
// signature and may be nil.
func NewRecord(res *scan.Result, templatePath string, sig []float32) Record {
	return Record{
		ID:          res.ID,
		Video:       res.Video,
		Template:    templatePath,
		Threshold:   res.Threshold,
		FrameRate:   res.Info.FrameRate,
		TotalFrames: res.Info.TotalFrames,
		Workers:     res.Workers,
		Matches:     res.Matches,
		Signature:   sig,
		CreatedAt:   res.StartedAt.UTC(),
		ElapsedMS:   res.Elapsed.Milliseconds(),
	}
}

// Store defines the interface for persisting scan records
type Store interface {
	Save(ctx context.Context, rec Record) error
	Close() error
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	switch cfg.Kind {
	case "", "none":
		return Nop{}, nil
	case "json":
		return NewJSONStore(cfg.Dir), nil
	case "postgres":
		if err := InitSchema(ctx, cfg.DSN); err != nil {
			return nil, err
		}
		return NewPostgresStore(ctx, cfg.DSN, logger)
	}
	return nil, fmt.Errorf("unknown storage kind %q", cfg.Kind)
}

// Nop discards records.
type Nop struct{}

func (Nop) Save(context.Context, Record) error { return nil }
func (Nop) Close() error                       { return nil }

// JSONStore appends records to scans.json in a directory.
type JSONStore struct {
	mu  sync.Mutex
	dir string
}

// NewJSONStore creates a store writing to dir/scans.json
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{dir: dir}
}

func (s *JSONStore) path() string {
	return filepath.Join(s.dir, "scans.json")
}

// Save appends rec to the file, creating it and its directory if needed.
func (s *JSONStore) Save(ctx context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load()
	if err != nil {
		return err
	}
	records = append(records, rec)

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory for results: %w", err)
	}

	file, err := os.Create(s.path())
	if err != nil {
		return fmt.Errorf("failed to create results file: %w", err)
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	return nil
}

// Load returns every record saved so far.
func (s *JSONStore) Load() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *JSONStore) load() ([]Record, error) {
	data, err := os.ReadFile(s.path())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read results file: %w", err)
	}

	var records []Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to unmarshal results: %w", err)
	}
	return records, nil
}

func (s *JSONStore) Close() error { return nil }
