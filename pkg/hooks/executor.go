package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/roadwork/pkg/debug"
)

const maxOutput = 200

// waitDelay bounds how long a killed hook may hold its output pipes open.
const waitDelay = 500 * time.Millisecond

// Result is the outcome of one hook run.
type Result struct {
	Hook     string
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Executor runs configured hooks for one export.
type Executor struct {
	config  *Config
	context ExportContext
	results []Result
}

// NewExecutor prepares hooks from config to run with ctx in their environment.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// RunPreExport runs pre-export hooks in order, stopping at the first failing
// hook whose on_error is "fail".
func (e *Executor) RunPreExport() error {
	for _, h := range e.config.Hooks.PreExport {
		r := e.run(h, PreExport)
		if !r.Success && h.OnError != "continue" {
			return fmt.Errorf("pre-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook and reports the first failure
// whose on_error is "fail".
func (e *Executor) RunPostExport() error {
	var firstErr error
	for _, h := range e.config.Hooks.PostExport {
		r := e.run(h, PostExport)
		if !r.Success && h.OnError == "fail" && firstErr == nil {
			firstErr = fmt.Errorf("post-export hook %q failed: %w", h.Name, r.Error)
		}
	}
	return firstErr
}

func (e *Executor) run(h Hook, phase HookPhase) Result {
	timeout := h.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", h.Command)
	setProcessGroup(cmd)
	cmd.WaitDelay = waitDelay
	env := append(os.Environ(), e.context.ToEnv()...)
	lookup := envLookup(env)
	for k, v := range h.Env {
		env = append(env, k+"="+os.Expand(v, lookup))
	}
	cmd.Env = env

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	r := Result{
		Hook:     h.Name,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", timeout)
		}
		r.Error = err
	}
	debug.Log("hooks: %s %s ok=%v in %s", phase, h.Name, r.Success, r.Duration)
	e.results = append(e.results, r)
	return r
}

// envLookup resolves ${VAR} against env, last assignment winning.
func envLookup(env []string) func(string) string {
	vals := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vals[k] = v
		}
	}
	return func(k string) string { return vals[k] }
}

// Results returns every hook run so far.
func (e *Executor) Results() []Result {
	return e.results
}

// Summary describes the runs in one short block for the CLI.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	var ok, failed int
	var sb strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&sb, "  %s (%s): %v", r.Hook, r.Phase, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, ": %s", truncate(r.Stderr, maxOutput))
		}
		sb.WriteByte('\n')
	}
	head := fmt.Sprintf("Hooks: %d succeeded, %d failed\n", ok, failed)
	return head + sb.String()
}

// RunHooks loads hooks for projectDir (then configDir) and returns an
// executor ready to run, or nil when hooks are disabled or none exist.
func RunHooks(projectDir, configDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	loader := NewLoader(WithProjectDir(projectDir), WithConfigDir(configDir))
	if err := loader.Load(); err != nil {
		return nil, err
	}
	for _, w := range loader.Warnings() {
		debug.Log("hooks: %s", w)
	}
	if !loader.HasHooks() {
		return nil, nil
	}
	return NewExecutor(loader.Config(), ctx), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
