package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/pprof"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/vanderheijden86/roadwork/internal/datasource"
	"github.com/vanderheijden86/roadwork/internal/server"
	"github.com/vanderheijden86/roadwork/pkg/config"
	"github.com/vanderheijden86/roadwork/pkg/debug"
	"github.com/vanderheijden86/roadwork/pkg/demo"
	"github.com/vanderheijden86/roadwork/pkg/export"
	"github.com/vanderheijden86/roadwork/pkg/hooks"
	"github.com/vanderheijden86/roadwork/pkg/layout"
	"github.com/vanderheijden86/roadwork/pkg/metrics"
	"github.com/vanderheijden86/roadwork/pkg/model"
	"github.com/vanderheijden86/roadwork/pkg/progress"
	"github.com/vanderheijden86/roadwork/pkg/ui"
	"github.com/vanderheijden86/roadwork/pkg/version"
	"github.com/vanderheijden86/roadwork/pkg/watcher"
)

const usage = `Usage: rw [command] [options] [path|bookmark]

An interactive roadmap graph viewer.

Commands:
  view     Open the roadmap canvas (default)
  demo     Open the built-in demo roadmap
  list     List roadmaps in a data source
  export   Write an SVG, PNG or Mermaid snapshot
  serve    Serve roadmaps over HTTP
  version  Print the version

Run 'rw <command> -help' for command options.
`

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	cmd := "view"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		switch args[0] {
		case "view", "demo", "list", "export", "serve", "version", "help":
			cmd, args = args[0], args[1:]
		}
	}

	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue with defaults
		fmt.Fprintf(stderr, "Warning: %v\n", err)
		cfg = config.DefaultConfig()
		cfg.ApplyEnv()
	}

	switch cmd {
	case "help":
		fmt.Fprint(stdout, usage)
		return 0
	case "version":
		fmt.Fprintln(stdout, version.String())
		return 0
	case "list":
		err = runList(args, cfg, stdout, stderr)
	case "export":
		err = runExport(args, cfg, stdout, stderr)
	case "serve":
		err = runServe(args, cfg, stderr)
	case "demo":
		cfg.Data.Source = "demo"
		err = runView(args, cfg, stderr)
	default:
		err = runView(args, cfg, stderr)
	}

	switch {
	case err == nil:
		return 0
	case errors.Is(err, flag.ErrHelp):
		return 0
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
}

var errUsage = errors.New("usage error")

func newFlagSet(name string, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("rw "+name, flag.ContinueOnError)
	fs.SetOutput(stderr)
	return fs
}

// target is the resolved data source and roadmap for a command.
type target struct {
	Options   datasource.Options
	RoadmapID string
}

// resolveTarget picks the data source. The positional argument (a path or
// bookmark name) and flags override the config file and environment.
func resolveTarget(cfg config.Config, arg, source, id string) target {
	t := target{
		Options: datasource.Options{
			Source: cfg.Data.Source,
			Path:   cfg.Data.Path,
			Supabase: datasource.SupabaseConfig{
				URL: cfg.Data.SupabaseURL,
				Key: cfg.Data.SupabaseKey,
			},
		},
		RoadmapID: cfg.Data.RoadmapID,
	}
	if arg != "" {
		if b := cfg.FindBookmark(arg); b != nil {
			t.Options.Path = b.Path
			if b.RoadmapID != "" {
				t.RoadmapID = b.RoadmapID
			}
		} else {
			t.Options.Path = arg
		}
		if source == "" {
			t.Options.Source = ""
		}
	}
	if source != "" {
		t.Options.Source = source
	}
	if id != "" {
		t.RoadmapID = id
	}
	return t
}

// openTarget opens the store and loads the target roadmap. Failures fall
// back to demo data; the returned Loaded says which.
func openTarget(ctx context.Context, t target, stderr io.Writer) (*datasource.Fallback, datasource.Loaded) {
	fb, err := datasource.Open(ctx, t.Options)
	if err != nil {
		debug.Log("open data source: %v", err)
		fmt.Fprintf(stderr, "Warning: %v (showing demo data)\n", err)
	}
	id := t.RoadmapID
	if id == "" && fb.Primary != nil {
		if infos, err := fb.Primary.List(ctx); err == nil && len(infos) > 0 {
			id = infos[0].ID
		}
	}
	if id == "" && fb.Primary == nil {
		id = demo.RoadmapID
	}
	return fb, fb.Fetch(ctx, id)
}

func runView(args []string, cfg config.Config, stderr io.Writer) error {
	fs := newFlagSet("view", stderr)
	source := fs.String("source", "", "Data source: json, sqlite, supabase or demo")
	id := fs.String("roadmap", "", "Roadmap ID within the source")
	modeFlag := fs.String("layout", cfg.UI.Layout, "Layout mode: grid, layered or radial")
	preset := fs.String("preset", cfg.UI.Preset, "Spacing preset: compact or roomy")
	noWatch := fs.Bool("no-watch", false, "Do not reload the roadmap when its file changes")
	cpuProfile := fs.String("cpu-profile", "", "Write CPU profile to file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return fmt.Errorf("create CPU profile: %w", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			return fmt.Errorf("start CPU profile: %w", err)
		}
		defer pprof.StopCPUProfile()
	}

	mode, err := layout.ParseMode(*modeFlag)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t := resolveTarget(cfg, fs.Arg(0), *source, *id)
	fb, loaded := openTarget(ctx, t, stderr)
	defer fb.Close()

	opts := ui.Options{
		Roadmap:    loaded.Roadmap,
		Demo:       loaded.Demo,
		Saver:      datasource.Bind(fb, loaded.Roadmap.ID),
		Mode:       mode,
		Preset:     *preset,
		PanStep:    cfg.UI.PanStep,
		Pulse:      cfg.UI.Pulse,
		ShowDetail: cfg.UI.Detail,
		Context:    ctx,
	}

	if path := watchablePath(fb); path != "" && !loaded.Demo && !*noWatch {
		w, err := watcher.New(path, watcher.WithOnError(func(err error) {
			debug.Log("watcher: %v", err)
		}))
		if err == nil {
			if err := w.Start(); err == nil {
				opts.Watcher = w
				rmID := loaded.Roadmap.ID
				opts.Reload = func() (*model.Roadmap, error) {
					return fb.Primary.Load(ctx, rmID)
				}
			} else {
				debug.Log("watcher: start %s: %v", path, err)
			}
		}
	}

	m := ui.NewModel(opts)
	defer m.Stop()

	if err := runTUIProgram(m); err != nil {
		return fmt.Errorf("running roadmap viewer: %w", err)
	}
	if metrics.Enabled() {
		for _, s := range metrics.AllTimingStats() {
			debug.Log("timing %s: %+v", s.Name, s)
		}
	}
	return nil
}

// watchablePath returns the JSON file behind fb, if any.
func watchablePath(fb *datasource.Fallback) string {
	if jf, ok := fb.Primary.(*datasource.JSONFile); ok {
		return jf.Path()
	}
	return ""
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set RW_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("RW_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()
				select {
				case <-runDone:
					return
				case <-timer.C:
				}
				p.Quit()
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}

func runList(args []string, cfg config.Config, stdout, stderr io.Writer) error {
	fs := newFlagSet("list", stderr)
	source := fs.String("source", "", "Data source: json, sqlite, supabase or demo")
	asJSON := fs.Bool("json", false, "Print JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	t := resolveTarget(cfg, fs.Arg(0), *source, "")
	fb, err := datasource.Open(ctx, t.Options)
	if err != nil {
		fmt.Fprintf(stderr, "Warning: %v (showing demo data)\n", err)
	}
	defer fb.Close()

	infos, err := fb.List(ctx)
	if err != nil {
		return err
	}
	return printInfos(stdout, infos, *asJSON)
}

func printInfos(w io.Writer, infos []datasource.Info, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(infos)
	}
	if len(infos) == 0 {
		fmt.Fprintln(w, "No roadmaps found.")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tNODES\tPROGRESS")
	for _, info := range infos {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d%%\n", info.ID, info.Title, info.Nodes, info.Progress)
	}
	return tw.Flush()
}

func runExport(args []string, cfg config.Config, stdout, stderr io.Writer) error {
	fs := newFlagSet("export", stderr)
	source := fs.String("source", "", "Data source: json, sqlite, supabase or demo")
	id := fs.String("roadmap", "", "Roadmap ID within the source")
	out := fs.String("o", "", "Output path (extension picks the format)")
	format := fs.String("format", "", "Output format: svg, png or mermaid")
	modeFlag := fs.String("layout", cfg.UI.Layout, "Layout mode: grid, layered or radial")
	preset := fs.String("preset", cfg.UI.Preset, "Spacing preset: compact or roomy")
	title := fs.String("title", "", "Title for the snapshot header")
	selected := fs.String("selected", "", "Node ID to highlight")
	wizard := fs.Bool("wizard", false, "Choose export settings interactively")
	noHooks := fs.Bool("no-hooks", false, "Skip pre/post export hooks")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx := context.Background()
	t := resolveTarget(cfg, fs.Arg(0), *source, *id)
	fb, loaded := openTarget(ctx, t, stderr)
	defer fb.Close()
	if loaded.Demo && t.Options.Source != "demo" {
		fmt.Fprintln(stderr, "Warning: exporting demo data")
	}

	var opts export.Options
	if *wizard {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(stderr, "Note: no terminal detected, using accessible prompts")
		}
		w := export.NewWizard(loaded.Roadmap, filepath.Join(config.StateDir(), "export.json"))
		if _, err := w.Run(); err != nil {
			return fmt.Errorf("export wizard: %w", err)
		}
		opts = w.Config().Options()
	} else {
		mode, err := layout.ParseMode(*modeFlag)
		if err != nil {
			return fmt.Errorf("%w: %v", errUsage, err)
		}
		path := *out
		if path == "" {
			path = loaded.Roadmap.ID
		}
		opts = export.Options{
			Path:     path,
			Format:   *format,
			Mode:     mode,
			Preset:   *preset,
			Title:    *title,
			Selected: *selected,
		}
	}

	outFormat, outPath, err := export.InferFormat(opts.Format, opts.Path)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	cwd, _ := os.Getwd()
	summary := progress.Summarize(loaded.Roadmap.Nodes)
	executor, err := hooks.RunHooks(cwd, config.ConfigDir(), hooks.ExportContext{
		ExportPath:   outPath,
		ExportFormat: string(outFormat),
		RoadmapID:    loaded.Roadmap.ID,
		NodeCount:    summary.Total,
		Progress:     summary.Percent,
		Timestamp:    time.Now().UTC(),
	}, *noHooks)
	if err != nil {
		return fmt.Errorf("load hooks: %w", err)
	}
	if executor != nil {
		if err := executor.RunPreExport(); err != nil {
			fmt.Fprint(stderr, executor.Summary())
			return fmt.Errorf("export cancelled: %w", err)
		}
	}

	written, err := export.Export(loaded.Roadmap, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote %s\n", written)

	if executor != nil {
		postErr := executor.RunPostExport()
		fmt.Fprint(stderr, executor.Summary())
		if postErr != nil {
			return postErr
		}
	}
	return nil
}

func runServe(args []string, cfg config.Config, stderr io.Writer) error {
	fs := newFlagSet("serve", stderr)
	source := fs.String("source", "", "Data source: json, sqlite, supabase or demo")
	addr := fs.String("addr", cfg.Server.Addr, "Listen address")
	dev := fs.Bool("dev", cfg.Server.Development, "Human-readable development logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logger, err := server.NewLogger(*dev)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	t := resolveTarget(cfg, fs.Arg(0), *source, "")
	fb, err := datasource.Open(ctx, t.Options)
	if err != nil {
		logger.Warn("data source unavailable, serving demo data", zap.Error(err))
	}
	defer fb.Close()

	srv := server.New(fb, logger, server.Config{
		Addr:           *addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})
	return srv.ListenAndServe(ctx)
}
