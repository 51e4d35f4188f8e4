// Package datasource loads and persists roadmaps. It discovers local sources
// (JSON files, SQLite databases), talks to a hosted Supabase store, and falls
// back to the built-in demo roadmap when nothing is reachable.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/selection"
)

var (
	// ErrNotFound is returned when a roadmap or node does not exist in a store.
	ErrNotFound = errors.New("not found")
	// ErrReadOnlyDemo is returned for writes against demo data.
	ErrReadOnlyDemo = errors.New("demo data is read-only")
	// ErrNotConfigured is returned when a remote store lacks credentials.
	ErrNotConfigured = errors.New("data source not configured")
)

// Store is a roadmap persistence backend.
type Store interface {
	Load(ctx context.Context, id string) (*model.Roadmap, error)
	List(ctx context.Context) ([]Info, error)
	SaveRoadmap(ctx context.Context, rm *model.Roadmap) error
	UpdateProgress(ctx context.Context, roadmapID, nodeID string, completed bool, notes string) error
	Close() error
}

// Info is the listing entry for a stored roadmap.
type Info struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Owner     string    `json:"owner,omitempty"`
	Nodes     int       `json:"nodes"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

func infoOf(rm *model.Roadmap) Info {
	return Info{
		ID:        rm.ID,
		Title:     rm.Title,
		Owner:     rm.Owner,
		Nodes:     len(rm.Nodes),
		Progress:  rm.RefreshProgress(),
		UpdatedAt: rm.UpdatedAt,
	}
}

// Bind adapts a store to the per-roadmap Saver used by the selection machine.
func Bind(s Store, roadmapID string) selection.Saver {
	return boundSaver{store: s, roadmapID: roadmapID}
}

type boundSaver struct {
	store     Store
	roadmapID string
}

func (b boundSaver) UpdateProgress(ctx context.Context, nodeID string, completed bool, notes string) error {
	return b.store.UpdateProgress(ctx, b.roadmapID, nodeID, completed, notes)
}

func (b boundSaver) SaveRoadmap(ctx context.Context, rm *model.Roadmap) error {
	return b.store.SaveRoadmap(ctx, rm)
}

// SourceType identifies the kind of data source.
type SourceType string

const (
	SourceTypeJSON     SourceType = "json"
	SourceTypeSQLite   SourceType = "sqlite"
	SourceTypeSupabase SourceType = "supabase"
	SourceTypeDemo     SourceType = "demo"
)

// Priority values for source types (higher = more authoritative).
const (
	PrioritySupabase = 120
	PrioritySQLite   = 100
	PriorityJSON     = 50
	PriorityDemo     = 0
)

// DataSource describes a discovered source of roadmap data.
type DataSource struct {
	Type            SourceType `json:"type"`
	Path            string     `json:"path"`
	Priority        int        `json:"priority"`
	ModTime         time.Time  `json:"mod_time"`
	Size            int64      `json:"size"`
	Valid           bool       `json:"valid"`
	ValidationError string     `json:"validation_error,omitempty"`
	RoadmapCount    int        `json:"roadmap_count"`
}

// String returns a human-readable description of the source.
func (s DataSource) String() string {
	status := "valid"
	if !s.Valid {
		status = "invalid: " + s.ValidationError
	}
	return fmt.Sprintf("%s (%s, priority=%d, mod=%s, roadmaps=%d, %s)",
		s.Path, s.Type, s.Priority, s.ModTime.Format(time.RFC3339), s.RoadmapCount, status)
}

// DiscoverSources lists JSON roadmap files and SQLite databases in dir,
// freshest first. With validate set, unreadable sources are dropped.
func DiscoverSources(ctx context.Context, dir string, validate bool) ([]DataSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read data dir: %w", err)
	}

	var sources []DataSource
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		var st SourceType
		var prio int
		switch strings.ToLower(filepath.Ext(name)) {
		case ".json":
			st, prio = SourceTypeJSON, PriorityJSON
		case ".db", ".sqlite":
			st, prio = SourceTypeSQLite, PrioritySQLite
		default:
			continue
		}
		if strings.Contains(name, ".backup") || strings.HasPrefix(name, ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		sources = append(sources, DataSource{
			Type:     st,
			Path:     filepath.Join(dir, name),
			Priority: prio,
			ModTime:  info.ModTime(),
			Size:     info.Size(),
		})
	}

	if validate {
		valid := sources[:0]
		for i := range sources {
			if err := ValidateSource(ctx, &sources[i]); err == nil {
				valid = append(valid, sources[i])
			}
		}
		sources = valid
	}

	sort.SliceStable(sources, func(i, j int) bool {
		if sources[i].ModTime.Equal(sources[j].ModTime) {
			return sources[i].Priority > sources[j].Priority
		}
		return sources[i].ModTime.After(sources[j].ModTime)
	})
	return sources, nil
}

// ValidateSource opens the source and counts its roadmaps.
func ValidateSource(ctx context.Context, s *DataSource) error {
	store, err := OpenSource(s)
	if err == nil {
		var infos []Info
		infos, err = store.List(ctx)
		store.Close()
		s.RoadmapCount = len(infos)
		if err == nil && len(infos) == 0 {
			err = fmt.Errorf("%w: no roadmaps", ErrNotFound)
		}
	}
	s.Valid = err == nil
	if err != nil {
		s.ValidationError = err.Error()
	}
	return err
}

// SelectBestSource returns the first valid source; sources are expected in
// DiscoverSources order.
func SelectBestSource(sources []DataSource) (DataSource, error) {
	for _, s := range sources {
		if s.Valid {
			return s, nil
		}
	}
	return DataSource{}, fmt.Errorf("%w: no valid sources", ErrNotFound)
}

// OpenSource opens a store for a local source.
func OpenSource(s *DataSource) (Store, error) {
	switch s.Type {
	case SourceTypeJSON:
		return NewJSONFile(s.Path), nil
	case SourceTypeSQLite:
		return OpenSQLite(s.Path)
	default:
		return nil, fmt.Errorf("cannot open source type %s", s.Type)
	}
}
