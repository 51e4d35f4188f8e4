package datasource

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// JSONFile stores one roadmap in a JSON file. Writes replace the file
// atomically.
type JSONFile struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewJSONFile returns a store for path. The file need not exist yet.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path, now: time.Now}
}

// Path returns the backing file.
func (f *JSONFile) Path() string { return f.path }

// ReadRoadmapFile decodes a roadmap from path.
func ReadRoadmapFile(path string) (*model.Roadmap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read roadmap: %w", err)
	}
	var rm model.Roadmap
	if err := json.Unmarshal(data, &rm); err != nil {
		return nil, fmt.Errorf("parse roadmap %s: %w", path, err)
	}
	rm.RefreshProgress()
	return &rm, nil
}

// WriteRoadmapFile encodes rm to path via a temp file and rename.
func WriteRoadmapFile(path string, rm *model.Roadmap) error {
	data, err := json.MarshalIndent(rm, "", "  ")
	if err != nil {
		return fmt.Errorf("encode roadmap: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".roadmap-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write roadmap: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace roadmap: %w", err)
	}
	return nil
}

// Load reads the roadmap. A non-empty id must match the stored roadmap.
func (f *JSONFile) Load(ctx context.Context, id string) (*model.Roadmap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer metrics.Timer(metrics.RoadmapLoad)()
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(id)
}

func (f *JSONFile) load(id string) (*model.Roadmap, error) {
	rm, err := ReadRoadmapFile(f.path)
	if err != nil {
		return nil, err
	}
	if id != "" && rm.ID != id {
		return nil, fmt.Errorf("%w: roadmap %s in %s", ErrNotFound, id, f.path)
	}
	return rm, nil
}

// List returns the single stored roadmap, or nothing when the file is absent.
func (f *JSONFile) List(ctx context.Context) ([]Info, error) {
	rm, err := f.Load(ctx, "")
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []Info{infoOf(rm)}, nil
}

// SaveRoadmap overwrites the file with rm.
func (f *JSONFile) SaveRoadmap(ctx context.Context, rm *model.Roadmap) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := rm.Validate(); err != nil {
		return fmt.Errorf("save roadmap: %w", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := rm.Clone()
	out.UpdatedAt = f.now().UTC()
	if out.CreatedAt.IsZero() {
		out.CreatedAt = out.UpdatedAt
	}
	out.RefreshProgress()
	return WriteRoadmapFile(f.path, out)
}

// UpdateProgress rewrites one node's completion and notes.
func (f *JSONFile) UpdateProgress(ctx context.Context, roadmapID, nodeID string, completed bool, notes string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	rm, err := f.load(roadmapID)
	if err != nil {
		return err
	}
	if err := rm.SetCompleted(nodeID, completed); err != nil {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	_ = rm.SetNotes(nodeID, notes)
	rm.UpdatedAt = f.now().UTC()
	debug.Log("jsonfile: %s node %s completed=%v", f.path, nodeID, completed)
	return WriteRoadmapFile(f.path, rm)
}

// Close is a no-op.
func (f *JSONFile) Close() error { return nil }
