package export

// Interactive export wizard for `rw export --wizard`.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/goccy/go-json"
	"golang.org/x/term"

	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/model"
)

// WizardConfig holds the choices made in the wizard. It is saved between
// runs so the next export can reuse it.
type WizardConfig struct {
	Format     string `json:"format"`
	Mode       string `json:"mode"`
	Preset     string `json:"preset"`
	Title      string `json:"title,omitempty"`
	OutputPath string `json:"output_path"`
}

// Options converts the wizard choices into export options.
func (c WizardConfig) Options() Options {
	mode, err := layout.ParseMode(c.Mode)
	if err != nil {
		mode = layout.ModeGrid
	}
	return Options{
		Path:   c.OutputPath,
		Format: c.Format,
		Mode:   mode,
		Preset: c.Preset,
		Title:  c.Title,
	}
}

// Wizard handles the interactive export flow.
type Wizard struct {
	config    WizardConfig
	roadmap   *model.Roadmap
	statePath string
}

// NewWizard creates a wizard for rm. statePath is where choices are
// remembered; empty disables persistence.
func NewWizard(rm *model.Roadmap, statePath string) *Wizard {
	return &Wizard{
		config: WizardConfig{
			Format: string(FormatSVG),
			Mode:   string(layout.ModeGrid),
			Preset: "compact",
		},
		roadmap:   rm,
		statePath: statePath,
	}
}

// Config returns the current choices.
func (w *Wizard) Config() WizardConfig { return w.config }

// isTerminal checks if stdin is connected to a terminal
func isTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !isTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Run walks through the wizard and performs the export. It returns the path
// written.
func (w *Wizard) Run() (string, error) {
	if w.roadmap == nil {
		return "", fmt.Errorf("no roadmap to export")
	}

	reuse := false
	if saved, err := LoadWizardConfig(w.statePath); err == nil && saved != nil {
		ok, err := w.offerSavedConfig(*saved)
		if err != nil {
			return "", err
		}
		if ok {
			w.config = *saved
			reuse = true
		}
	}

	if !reuse {
		if w.config.Title == "" {
			w.config.Title = w.roadmap.Title
		}
		if w.config.OutputPath == "" {
			w.config.OutputPath = w.roadmap.ID + FormatSVG.Extension()
		}
		if err := w.collect(); err != nil {
			return "", err
		}
	}

	path, err := Export(w.roadmap, w.config.Options())
	if err != nil {
		return "", err
	}
	w.config.OutputPath = path
	if err := SaveWizardConfig(w.statePath, w.config); err != nil {
		fmt.Printf("Warning: could not remember export settings: %v\n", err)
	}
	fmt.Printf("Exported %s to %s\n", w.roadmap.Title, path)
	return path, nil
}

func (w *Wizard) offerSavedConfig(saved WizardConfig) (bool, error) {
	fmt.Println("Found previous export settings:")
	fmt.Println("────────────────────────────────")
	fmt.Printf("  Format: %s\n", saved.Format)
	fmt.Printf("  Layout: %s (%s)\n", saved.Mode, saved.Preset)
	fmt.Printf("  Output: %s\n", saved.OutputPath)
	fmt.Println("")

	useSaved := true
	form := newForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Export again with these settings?").
				Value(&useSaved).
				Affirmative("Yes").
				Negative("No, reconfigure"),
		),
	)
	if err := form.Run(); err != nil {
		return false, err
	}
	return useSaved, nil
}

func (w *Wizard) collect() error {
	formatOptions := make([]huh.Option[string], 0, len(Formats))
	for _, f := range Formats {
		formatOptions = append(formatOptions, huh.NewOption(strings.ToUpper(string(f)), string(f)))
	}
	modeOptions := make([]huh.Option[string], 0, len(layout.Modes))
	for _, m := range layout.Modes {
		modeOptions = append(modeOptions, huh.NewOption(string(m), string(m)))
	}

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Output format").
				Options(formatOptions...).
				Value(&w.config.Format),
			huh.NewSelect[string]().
				Title("Layout").
				Description("Radial is drawn as an isometric projection").
				Options(modeOptions...).
				Value(&w.config.Mode),
			huh.NewSelect[string]().
				Title("Spacing").
				Options(
					huh.NewOption("Compact", "compact"),
					huh.NewOption("Roomy", "roomy"),
				).
				Value(&w.config.Preset),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Value(&w.config.Title),
			huh.NewInput().
				Title("Output path").
				Value(&w.config.OutputPath).
				Validate(validateOutputPath),
		),
	)
	if err := form.Run(); err != nil {
		return err
	}

	// Keep the extension in line with the chosen format.
	ext := Format(w.config.Format).Extension()
	if filepath.Ext(w.config.OutputPath) != ext {
		w.config.OutputPath = strings.TrimSuffix(w.config.OutputPath, filepath.Ext(w.config.OutputPath)) + ext
	}
	return nil
}

func validateOutputPath(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("output path is required")
	}
	if info, err := os.Stat(s); err == nil && info.IsDir() {
		return errors.New("output path is a directory")
	}
	return nil
}

// LoadWizardConfig reads saved wizard choices. A missing file returns nil
// without error.
func LoadWizardConfig(path string) (*WizardConfig, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var cfg WizardConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// SaveWizardConfig writes wizard choices to path. Empty path is a no-op.
func SaveWizardConfig(path string, cfg WizardConfig) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
