package datasource

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/roadwork/pkg/model"
)

// maxParallelLoads bounds concurrent file reads in LoadDir.
const maxParallelLoads = 8

// LoadDir reads every *.json roadmap in dir concurrently. Results are in file
// name order. The first read or parse error cancels the rest.
func LoadDir(ctx context.Context, dir string) ([]*model.Roadmap, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	out := make([]*model.Roadmap, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelLoads)
	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rm, err := ReadRoadmapFile(path)
			if err != nil {
				return err
			}
			out[i] = rm
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Options selects and configures the primary store.
type Options struct {
	// Source is "json", "sqlite", "supabase" or "demo". Empty auto-detects
	// from Path.
	Source   string
	Path     string
	Supabase SupabaseConfig
}

// Open returns the configured store wrapped in a demo Fallback. Failure to
// open the primary store is not an error: the fallback serves demo data.
func Open(ctx context.Context, opts Options) (*Fallback, error) {
	primary, err := openPrimary(ctx, opts)
	if err != nil {
		return NewFallback(nil), err
	}
	return NewFallback(primary), nil
}

func openPrimary(ctx context.Context, opts Options) (Store, error) {
	switch SourceType(strings.ToLower(opts.Source)) {
	case SourceTypeDemo:
		return nil, nil
	case SourceTypeSupabase:
		return NewSupabaseStore(opts.Supabase)
	case SourceTypeJSON:
		return NewJSONFile(opts.Path), nil
	case SourceTypeSQLite:
		return OpenSQLite(opts.Path)
	case "":
	default:
		return nil, fmt.Errorf("unknown data source %q", opts.Source)
	}

	if opts.Path == "" {
		if opts.Supabase.URL != "" {
			return NewSupabaseStore(opts.Supabase)
		}
		return nil, nil
	}
	info, err := os.Stat(opts.Path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", opts.Path, err)
	}
	if !info.IsDir() {
		ds := DataSource{Type: SourceTypeJSON, Path: opts.Path}
		if ext := strings.ToLower(filepath.Ext(opts.Path)); ext == ".db" || ext == ".sqlite" {
			ds.Type = SourceTypeSQLite
		}
		return OpenSource(&ds)
	}
	sources, err := DiscoverSources(ctx, opts.Path, true)
	if err != nil {
		return nil, err
	}
	best, err := SelectBestSource(sources)
	if err != nil {
		return nil, err
	}
	return OpenSource(&best)
}
