// Package export writes roadmaps to static formats: SVG and PNG snapshots of
// the rendered scene, and Mermaid flowcharts.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
	"github.com/vanderheijden86/roadwork/pkg/scene"
)

// Format is an export file format.
type Format string

const (
	FormatSVG     Format = "svg"
	FormatPNG     Format = "png"
	FormatMermaid Format = "mermaid"
)

// Formats lists the supported formats.
var Formats = []Format{FormatSVG, FormatPNG, FormatMermaid}

// Extension returns the file extension for f, including the dot.
func (f Format) Extension() string {
	if f == FormatMermaid {
		return ".mmd"
	}
	return "." + string(f)
}

// InferFormat resolves the output format. An explicit format wins; otherwise
// it is taken from the path extension. A path without extension gets ".svg"
// appended, matching the default format.
func InferFormat(explicit, path string) (Format, string, error) {
	format := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(explicit), ".")))
	if format == "mmd" {
		format = FormatMermaid
	}
	if format == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			format = FormatSVG
		case ".png":
			format = FormatPNG
		case ".mmd", ".mermaid":
			format = FormatMermaid
		default:
			format = FormatSVG
			if path != "" && filepath.Ext(path) == "" {
				path += ".svg"
			}
		}
	}
	switch format {
	case FormatSVG, FormatPNG, FormatMermaid:
	default:
		return "", "", fmt.Errorf("unsupported format %q (want svg, png or mermaid)", format)
	}
	if path == "" {
		return "", "", fmt.Errorf("output path is required")
	}
	return format, path, nil
}

// Options describes a full export of one roadmap.
type Options struct {
	Path     string
	Format   string
	Mode     layout.Mode
	Preset   string
	Title    string
	Selected string
}

// Export lays out rm, builds its scene and writes it in the requested
// format. It returns the path written.
func Export(rm *model.Roadmap, opts Options) (string, error) {
	if rm == nil {
		return "", fmt.Errorf("no roadmap to export")
	}
	format, path, err := InferFormat(opts.Format, opts.Path)
	if err != nil {
		return "", err
	}

	if format == FormatMermaid {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return "", fmt.Errorf("create parent dir: %w", err)
		}
		if err := os.WriteFile(path, []byte(Mermaid(rm)), 0o644); err != nil {
			return "", fmt.Errorf("write mermaid: %w", err)
		}
		return path, nil
	}

	mode := opts.Mode
	if mode == "" {
		mode = layout.ModeGrid
	}
	res := layout.Compute(rm, mode, layout.Preset(opts.Preset))
	sc := scene.Build(rm, res, scene.Options{Selected: opts.Selected})
	debug.Log("export: %s %s mode=%s nodes=%d edges=%d", format, path, mode, len(sc.Nodes), len(sc.Edges))

	err = SaveSnapshot(sc, SnapshotOptions{
		Path:     path,
		Format:   string(format),
		Title:    opts.Title,
		Progress: progress.ForRoadmap(rm),
	})
	if err != nil {
		return "", err
	}
	return path, nil
}
