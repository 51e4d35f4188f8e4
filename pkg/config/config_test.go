package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UI.Layout != "grid" {
		t.Errorf("expected default layout 'grid', got %q", cfg.UI.Layout)
	}
	if cfg.UI.Preset != "compact" {
		t.Errorf("expected preset 'compact', got %q", cfg.UI.Preset)
	}
	if cfg.UI.PanStep != 40 {
		t.Errorf("expected pan step 40, got %f", cfg.UI.PanStep)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected addr :8080, got %q", cfg.Server.Addr)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.Layout != "grid" {
		t.Errorf("expected default config, got layout %q", cfg.UI.Layout)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
bookmarks:
  - name: career
    path: ~/roadmaps/career.json
  - name: team
    path: /srv/roadwork.db
    roadmap_id: backend

ui:
  layout: radial
  preset: roomy
  pan_step: 25

data:
  source: sqlite
  path: ~/roadwork.db
  supabase_url: https://example.supabase.co

server:
  addr: ":9000"
  allowed_origins: ["https://app.example.com"]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Bookmarks) != 2 {
		t.Fatalf("expected 2 bookmarks, got %d", len(cfg.Bookmarks))
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "roadmaps/career.json"); cfg.Bookmarks[0].Path != want {
		t.Errorf("expected expanded path %q, got %q", want, cfg.Bookmarks[0].Path)
	}
	if cfg.Bookmarks[1].Path != "/srv/roadwork.db" || cfg.Bookmarks[1].RoadmapID != "backend" {
		t.Errorf("unexpected bookmark %+v", cfg.Bookmarks[1])
	}
	if cfg.UI.Layout != "radial" || cfg.UI.Preset != "roomy" || cfg.UI.PanStep != 25 {
		t.Errorf("unexpected ui config %+v", cfg.UI)
	}
	if !cfg.UI.Pulse {
		t.Error("unset fields should keep their defaults")
	}
	if cfg.Data.Path != filepath.Join(home, "roadwork.db") {
		t.Errorf("data path not expanded: %q", cfg.Data.Path)
	}
	if cfg.Server.Addr != ":9000" || len(cfg.Server.AllowedOrigins) != 1 {
		t.Errorf("unexpected server config %+v", cfg.Server)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.SetBookmark(Bookmark{Name: "career", Path: "/tmp/career.json"})
	cfg.Data.SupabaseKey = "secret"
	cfg.UI.Layout = "layered"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("SaveTo failed: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "secret") {
		t.Error("supabase key must not be written to disk")
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom failed: %v", err)
	}
	if loaded.UI.Layout != "layered" {
		t.Errorf("layout = %q", loaded.UI.Layout)
	}
	if b := loaded.FindBookmark("CAREER"); b == nil || b.Path != "/tmp/career.json" {
		t.Errorf("bookmark lookup failed: %+v", b)
	}
}

func TestSetBookmark_Replaces(t *testing.T) {
	var cfg Config
	cfg.SetBookmark(Bookmark{Name: "a", Path: "/one"})
	cfg.SetBookmark(Bookmark{Name: "A", Path: "/two"})
	if len(cfg.Bookmarks) != 1 || cfg.Bookmarks[0].Path != "/two" {
		t.Errorf("bookmarks = %+v", cfg.Bookmarks)
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://env.supabase.co")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("RW_LAYOUT", "radial")
	t.Setenv("PORT", "7070")
	t.Setenv("RW_ALLOWED_ORIGINS", "https://a.test, https://b.test ,")
	t.Setenv("RW_DEV", "true")

	cfg := DefaultConfig()
	cfg.ApplyEnv()

	if cfg.Data.SupabaseURL != "https://env.supabase.co" || cfg.Data.SupabaseKey != "anon" {
		t.Errorf("supabase env not applied: %+v", cfg.Data)
	}
	if cfg.UI.Layout != "radial" {
		t.Errorf("layout = %q", cfg.UI.Layout)
	}
	if cfg.Server.Addr != ":7070" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if len(cfg.Server.AllowedOrigins) != 2 || cfg.Server.AllowedOrigins[1] != "https://b.test" {
		t.Errorf("origins = %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Server.Development {
		t.Error("RW_DEV not applied")
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("RW_TEST_DOTENV=from-file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RW_TEST_DOTENV", "")
	os.Unsetenv("RW_TEST_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatal(err)
	}
	if got := os.Getenv("RW_TEST_DOTENV"); got != "from-file" {
		t.Errorf("RW_TEST_DOTENV = %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Errorf("missing file should be ignored, got %v", err)
	}
}

func TestXDGDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/xdg/config")
	t.Setenv("XDG_DATA_HOME", "/xdg/data")
	if got := ConfigPath(); got != "/xdg/config/roadwork/config.yaml" {
		t.Errorf("ConfigPath = %q", got)
	}
	if got := DataDir(); got != "/xdg/data/roadwork" {
		t.Errorf("DataDir = %q", got)
	}
}
