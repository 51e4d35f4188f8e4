package datasource

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/demo"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// Loaded is a roadmap plus where it came from.
type Loaded struct {
	Roadmap *model.Roadmap
	Demo    bool
	// Cause is the primary store error that triggered the fallback.
	Cause error
}

// Fallback wraps a primary store. Reads that fail for any reason (network,
// permissions, open breaker, missing roadmap) return the demo roadmap instead;
// writes to roadmaps served from demo data fail with ErrReadOnlyDemo.
type Fallback struct {
	Primary Store
	// OnFallback, when set, is called each time demo data is served.
	OnFallback func(id string, cause error)

	mu        sync.Mutex
	demoIDs   map[string]bool
	demoOrder []string // oldest first
}

// maxDemoIDs bounds how many fallback ids are remembered as read-only.
const maxDemoIDs = 128

// NewFallback wraps primary, which may be nil to always serve demo data.
func NewFallback(primary Store) *Fallback {
	return &Fallback{Primary: primary}
}

// Fetch loads id from the primary store or falls back to demo data.
func (f *Fallback) Fetch(ctx context.Context, id string) Loaded {
	var cause error = ErrNotConfigured
	if f.Primary != nil && id != demo.RoadmapID {
		rm, err := f.Primary.Load(ctx, id)
		if err == nil {
			f.forget(id)
			return Loaded{Roadmap: rm}
		}
		cause = err
	}
	if id == demo.RoadmapID {
		cause = nil
	}
	debug.Log("fallback: serving demo data for %q (cause: %v)", id, cause)
	f.remember(id)
	if f.OnFallback != nil {
		f.OnFallback(id, cause)
	}
	return Loaded{Roadmap: demo.Roadmap(), Demo: true, Cause: cause}
}

// IsDemo reports whether id was last served from demo data. Only the most
// recent maxDemoIDs fallbacks are remembered.
func (f *Fallback) IsDemo(id string) bool {
	if id == demo.RoadmapID {
		return true
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.demoIDs[id]
}

func (f *Fallback) remember(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.demoIDs == nil {
		f.demoIDs = make(map[string]bool)
	}
	if f.demoIDs[id] {
		return
	}
	if len(f.demoOrder) >= maxDemoIDs {
		delete(f.demoIDs, f.demoOrder[0])
		f.demoOrder = f.demoOrder[1:]
	}
	f.demoIDs[id] = true
	f.demoOrder = append(f.demoOrder, id)
}

func (f *Fallback) forget(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.demoIDs[id] {
		return
	}
	delete(f.demoIDs, id)
	f.demoOrder = slices.DeleteFunc(f.demoOrder, func(v string) bool { return v == id })
}

// Load implements Store; it never fails.
func (f *Fallback) Load(ctx context.Context, id string) (*model.Roadmap, error) {
	return f.Fetch(ctx, id).Roadmap, nil
}

// List lists the primary store, or the demo roadmap when that fails.
func (f *Fallback) List(ctx context.Context) ([]Info, error) {
	if f.Primary != nil {
		infos, err := f.Primary.List(ctx)
		if err == nil {
			return infos, nil
		}
		debug.Log("fallback: list failed: %v", err)
	}
	return []Info{infoOf(demo.Roadmap())}, nil
}

// SaveRoadmap writes through to the primary store.
func (f *Fallback) SaveRoadmap(ctx context.Context, rm *model.Roadmap) error {
	if f.Primary == nil || f.IsDemo(rm.ID) {
		return fmt.Errorf("%w: %s", ErrReadOnlyDemo, rm.ID)
	}
	return f.Primary.SaveRoadmap(ctx, rm)
}

// UpdateProgress writes through to the primary store.
func (f *Fallback) UpdateProgress(ctx context.Context, roadmapID, nodeID string, completed bool, notes string) error {
	if f.Primary == nil || f.IsDemo(roadmapID) {
		return fmt.Errorf("%w: %s", ErrReadOnlyDemo, roadmapID)
	}
	return f.Primary.UpdateProgress(ctx, roadmapID, nodeID, completed, notes)
}

// Close closes the primary store.
func (f *Fallback) Close() error {
	if f.Primary == nil {
		return nil
	}
	return f.Primary.Close()
}

// IsReadOnly reports whether err came from writing demo data.
func IsReadOnly(err error) bool { return errors.Is(err, ErrReadOnlyDemo) }
