package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func writeRoadmap(t *testing.T, path, title string) {
	t.Helper()
	body := `{"id":"rm","title":"` + title + `","nodes":[],"connections":[]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDebouncer_CoalescesBurst(t *testing.T) {
	d := NewDebouncer(50 * time.Millisecond)
	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Trigger(func() { calls.Add(1) })
		time.Sleep(10 * time.Millisecond)
	}
	time.Sleep(150 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
}

func TestDebouncer_Cancel(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()
	time.Sleep(100 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Errorf("expected cancelled call to be dropped, got %d calls", got)
	}
}

func TestDebouncer_DefaultDuration(t *testing.T) {
	if got := NewDebouncer(0).Duration(); got != DefaultDebounceDuration {
		t.Errorf("expected %v, got %v", DefaultDebounceDuration, got)
	}
}

func TestWatcher_DetectsRoadmapWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	var (
		mu  sync.Mutex
		got []Event
	)
	w, err := New(path,
		WithDebounceDuration(50*time.Millisecond),
		WithOnChange(func(ev Event) {
			mu.Lock()
			got = append(got, ev)
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(100 * time.Millisecond)
	writeRoadmap(t, path, "modified")
	time.Sleep(400 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(got) == 0 {
		t.Fatal("expected change to be detected")
	}
	if got[0].Path != w.Path() {
		t.Errorf("event path = %q, want %q", got[0].Path, w.Path())
	}
}

func TestWatcher_IgnoresSiblingFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roadmap.json")
	writeRoadmap(t, path, "initial")

	var calls atomic.Int32
	w, err := New(path,
		WithDebounceDuration(30*time.Millisecond),
		WithOnChange(func(Event) { calls.Add(1) }),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if w.IsPolling() {
		t.Skip("fsnotify unavailable on this filesystem")
	}

	time.Sleep(50 * time.Millisecond)
	writeRoadmap(t, filepath.Join(dir, "other.json"), "sibling")
	time.Sleep(200 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("expected sibling writes to be ignored, got %d events", got)
	}
}

func TestWatcher_PollingFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	var calls atomic.Int32
	w, err := New(path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
		WithOnChange(func(ev Event) {
			if ev.Polling {
				calls.Add(1)
			}
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Error("expected watcher to be in polling mode")
	}

	time.Sleep(50 * time.Millisecond)
	writeRoadmap(t, path, "modified via polling, longer body")
	time.Sleep(400 * time.Millisecond)

	if calls.Load() == 0 {
		t.Error("expected change to be detected via polling")
	}
}

func TestWatcher_EventsChannel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	w, err := New(path,
		WithDebounceDuration(50*time.Millisecond),
		WithPollInterval(100*time.Millisecond),
		WithForcePoll(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	go func() {
		time.Sleep(50 * time.Millisecond)
		writeRoadmap(t, path, "new content for the channel")
	}()

	select {
	case ev := <-w.Events():
		if !ev.Polling {
			t.Error("expected polling event")
		}
	case <-time.After(time.Second):
		t.Error("timeout waiting for change notification")
	}
}

func TestWatcher_EnvForcePoll(t *testing.T) {
	t.Setenv("RW_FORCE_POLL", "1")

	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	w, err := New(path, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected polling mode when RW_FORCE_POLL is set")
	}
}

func TestWatcher_RemoteFilesystem_UsesPolling(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	orig := detectFilesystemTypeFunc
	detectFilesystemTypeFunc = func(string) FilesystemType { return FSTypeNFS }
	t.Cleanup(func() { detectFilesystemTypeFunc = orig })

	w, err := New(path, WithPollInterval(25*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if !w.IsPolling() {
		t.Fatal("expected watcher to use polling on remote filesystem")
	}
	if got := w.FilesystemType(); got != FSTypeNFS {
		t.Fatalf("expected filesystem type %v, got %v", FSTypeNFS, got)
	}
}

func TestWatcher_FileRemoved(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	var (
		mu     sync.Mutex
		gotErr error
	)
	w, err := New(path,
		WithPollInterval(50*time.Millisecond),
		WithForcePoll(true),
		WithOnError(func(err error) {
			mu.Lock()
			gotErr = err
			mu.Unlock()
		}),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	time.Sleep(30 * time.Millisecond)
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	time.Sleep(250 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if gotErr != ErrFileRemoved {
		t.Errorf("expected ErrFileRemoved, got %v", gotErr)
	}
}

func TestWatcher_MissingFileThenCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "later.json")

	w, err := New(path,
		WithDebounceDuration(20*time.Millisecond),
		WithPollInterval(40*time.Millisecond),
		WithForcePoll(true),
	)
	if err != nil {
		t.Fatal(err)
	}
	if err := w.Start(); err != nil {
		t.Fatalf("Start on missing file: %v", err)
	}
	defer w.Stop()

	writeRoadmap(t, path, "appeared")
	select {
	case <-w.Events():
	case <-time.After(time.Second):
		t.Error("expected an event once the file appears")
	}
}

func TestWatcher_StartStop(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	writeRoadmap(t, path, "initial")

	w, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if w.IsStarted() {
		t.Error("watcher should not be started initially")
	}
	if err := w.Start(); err != nil {
		t.Fatal(err)
	}
	if !w.IsStarted() {
		t.Error("watcher should be started after Start()")
	}
	if err := w.Start(); err != ErrAlreadyStarted {
		t.Errorf("expected ErrAlreadyStarted, got %v", err)
	}
	w.Stop()
	if w.IsStarted() {
		t.Error("watcher should not be started after Stop()")
	}
	w.Stop()
}

func TestWatcher_Accessors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roadmap.json")
	w, err := New(path, WithPollInterval(500*time.Millisecond))
	if err != nil {
		t.Fatal(err)
	}
	absPath, _ := filepath.Abs(path)
	if w.Path() != absPath {
		t.Errorf("expected path %s, got %s", absPath, w.Path())
	}
	if got := w.PollInterval(); got != 500*time.Millisecond {
		t.Errorf("expected poll interval 500ms, got %v", got)
	}
}

func TestFilesystemType_String(t *testing.T) {
	tests := []struct {
		fsType   FilesystemType
		expected string
	}{
		{FSTypeUnknown, "unknown"},
		{FSTypeLocal, "local"},
		{FSTypeNFS, "nfs"},
		{FSTypeSMB, "smb"},
		{FSTypeFUSE, "fuse"},
		{FilesystemType(99), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.fsType.String(); got != tc.expected {
			t.Errorf("FilesystemType(%d).String() = %q, expected %q", tc.fsType, got, tc.expected)
		}
	}
}

func TestEnvBool(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"1", true},
		{"true", true},
		{"TRUE", true},
		{"yes", true},
		{"y", true},
		{" on ", true},
		{"0", false},
		{"false", false},
		{"no", false},
		{"", false},
		{"invalid", false},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("RW_TEST_ENV_BOOL", tc.value)
			if got := envBool("RW_TEST_ENV_BOOL"); got != tc.expected {
				t.Errorf("envBool(%q) = %v, expected %v", tc.value, got, tc.expected)
			}
		})
	}
}

func TestDetectFilesystemType(t *testing.T) {
	if got := DetectFilesystemType(""); got != FSTypeUnknown {
		t.Errorf("DetectFilesystemType(\"\") = %v, expected unknown", got)
	}
	// Falls back to the nearest existing ancestor.
	_ = DetectFilesystemType(filepath.Join(t.TempDir(), "missing", "deeper.json"))
}
