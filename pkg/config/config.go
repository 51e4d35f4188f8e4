// Package config handles loading and saving roadwork configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/roadwork/config.yaml
//   - Data:    ~/.local/share/roadwork/ (local roadmaps, SQLite database)
//   - State:   ~/.local/state/roadwork/ (debug logs)
//
// Secrets are never written to the YAML file. The Supabase key is read from
// the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const appName = "roadwork"

// Bookmark is a named roadmap location.
type Bookmark struct {
	Name      string `yaml:"name"`
	Path      string `yaml:"path,omitempty"`       // JSON file, SQLite db or data dir
	RoadmapID string `yaml:"roadmap_id,omitempty"` // roadmap within the source
}

// UIConfig holds canvas preferences.
type UIConfig struct {
	Layout  string  `yaml:"layout,omitempty"`   // grid, layered, radial
	Preset  string  `yaml:"preset,omitempty"`   // compact, roomy
	PanStep float64 `yaml:"pan_step,omitempty"` // canvas units per arrow key press
	Pulse   bool    `yaml:"pulse,omitempty"`    // animate connection opacity
	Detail  bool    `yaml:"detail,omitempty"`   // show the detail panel on start
}

// DataConfig selects the roadmap store.
type DataConfig struct {
	Source      string `yaml:"source,omitempty"` // json, sqlite, supabase, demo; empty auto-detects
	Path        string `yaml:"path,omitempty"`
	RoadmapID   string `yaml:"roadmap_id,omitempty"`
	SupabaseURL string `yaml:"supabase_url,omitempty"`

	// SupabaseKey comes from SUPABASE_ANON_KEY only.
	SupabaseKey string `yaml:"-"`
}

// ServerConfig configures `rw serve`.
type ServerConfig struct {
	Addr           string   `yaml:"addr,omitempty"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
	Development    bool     `yaml:"development,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	Bookmarks []Bookmark   `yaml:"bookmarks,omitempty"`
	UI        UIConfig     `yaml:"ui,omitempty"`
	Data      DataConfig   `yaml:"data,omitempty"`
	Server    ServerConfig `yaml:"server,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			Layout:  "grid",
			Preset:  "compact",
			PanStep: 40,
			Pulse:   true,
			Detail:  true,
		},
		Server: ServerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory and applies
// environment overrides. Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	cfg := DefaultConfig()
	if path != "" {
		var err error
		if cfg, err = LoadFrom(path); err != nil {
			return cfg, err
		}
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	cfg.Data.Path = expandHome(cfg.Data.Path)
	for i := range cfg.Bookmarks {
		cfg.Bookmarks[i].Path = expandHome(cfg.Bookmarks[i].Path)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// LoadDotEnv loads KEY=value pairs from the given files (default ".env")
// into the process environment. Existing variables win. A missing file is
// not an error.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var present []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			present = append(present, f)
		}
	}
	if len(present) == 0 {
		return nil
	}
	if err := godotenv.Load(present...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// ApplyEnv overlays environment variables onto the config.
func (c *Config) ApplyEnv() {
	c.Data.Source = getEnv("RW_DATA_SOURCE", c.Data.Source)
	c.Data.Path = expandHome(getEnv("RW_DATA_PATH", c.Data.Path))
	c.Data.RoadmapID = getEnv("RW_ROADMAP", c.Data.RoadmapID)
	c.Data.SupabaseURL = getEnv("SUPABASE_URL", c.Data.SupabaseURL)
	c.Data.SupabaseKey = getEnv("SUPABASE_ANON_KEY", c.Data.SupabaseKey)
	c.UI.Layout = getEnv("RW_LAYOUT", c.UI.Layout)
	c.Server.Addr = getEnv("RW_ADDR", c.Server.Addr)
	if port := os.Getenv("PORT"); port != "" {
		c.Server.Addr = ":" + port
	}
	c.Server.Development = getEnvBool("RW_DEV", c.Server.Development)
	if origins := os.Getenv("RW_ALLOWED_ORIGINS"); origins != "" {
		c.Server.AllowedOrigins = splitList(origins)
	}
}

// FindBookmark returns the bookmark with the given name, or nil.
func (c Config) FindBookmark(name string) *Bookmark {
	for i := range c.Bookmarks {
		if strings.EqualFold(c.Bookmarks[i].Name, name) {
			return &c.Bookmarks[i]
		}
	}
	return nil
}

// SetBookmark adds or replaces a bookmark by name.
func (c *Config) SetBookmark(b Bookmark) {
	b.Path = expandHome(b.Path)
	if existing := c.FindBookmark(b.Name); existing != nil {
		*existing = b
		return
	}
	c.Bookmarks = append(c.Bookmarks, b)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultValue
	}
	return b
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
