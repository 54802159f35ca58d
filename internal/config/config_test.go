package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"audiorating/internal/config"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"AR_DATABASE_URL", "AR_ALLOWED_ORIGINS", "AR_DEBUG", "AR_API_TOKEN"} {
		if value, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, value) })
		}
	}
}

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	clearEnv(t)
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Chdir(t.TempDir())

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "audiorating")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Paths.DatabasePath != filepath.Join(wantData, "audiorating.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.DatabasePath)
	}
	if cfg.Paths.APIBind != "127.0.0.1:8000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if cfg.Server.Debug {
		t.Fatal("expected debug disabled by default")
	}
	if cfg.RedrawInterval().Milliseconds() != 33 {
		t.Fatalf("unexpected redraw interval: %v", cfg.RedrawInterval())
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	clearEnv(t)
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "audiorating.toml")

	type payload struct {
		Paths struct {
			DataDir string `toml:"data_dir"`
			APIBind string `toml:"api_bind"`
		} `toml:"paths"`
		Server struct {
			AllowedOrigins []string `toml:"allowed_origins"`
		} `toml:"server"`
		Logging struct {
			Format string `toml:"format"`
		} `toml:"logging"`
	}
	custom := payload{}
	custom.Paths.DataDir = filepath.Join(tempDir, "data")
	custom.Paths.APIBind = "0.0.0.0:9000"
	custom.Server.AllowedOrigins = []string{"https://study.example.org/", "https://study.example.org"}
	custom.Logging.Format = "JSON"

	encoded, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, encoded, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("unexpected resolution: %q exists=%v", resolved, exists)
	}
	if cfg.Paths.APIBind != "0.0.0.0:9000" {
		t.Fatalf("unexpected api bind: %q", cfg.Paths.APIBind)
	}
	if len(cfg.Server.AllowedOrigins) != 1 || cfg.Server.AllowedOrigins[0] != "https://study.example.org" {
		t.Fatalf("origins not normalized: %v", cfg.Server.AllowedOrigins)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected lowercased format, got %q", cfg.Logging.Format)
	}
	if cfg.Paths.LogDir == "" || cfg.Client.LocalDir == "" {
		t.Fatal("expected derived directories")
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("AR_DATABASE_URL", "sqlite:///"+filepath.Join(tempHome, "ratings.db"))
	t.Setenv("AR_ALLOWED_ORIGINS", `["https://a.example", "https://b.example"]`)
	t.Setenv("AR_DEBUG", "TRUE")
	t.Setenv("AR_API_TOKEN", " secret ")

	cfg, _, _, err := config.Load(filepath.Join(tempHome, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Paths.DatabasePath != filepath.Join(tempHome, "ratings.db") {
		t.Fatalf("unexpected database path: %q", cfg.Paths.DatabasePath)
	}
	if len(cfg.Server.AllowedOrigins) != 2 {
		t.Fatalf("unexpected origins: %v", cfg.Server.AllowedOrigins)
	}
	if !cfg.Server.Debug {
		t.Fatal("expected debug enabled")
	}
	if cfg.Paths.APIToken != "secret" {
		t.Fatalf("unexpected token: %q", cfg.Paths.APIToken)
	}
}

func TestInvalidOriginsEnvironment(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("AR_ALLOWED_ORIGINS", "https://a.example")

	if _, _, _, err := config.Load(filepath.Join(t.TempDir(), "none.toml")); err == nil || !strings.Contains(err.Error(), "JSON array") {
		t.Fatalf("expected JSON array error, got %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*config.Config){
		"no origins":     func(c *config.Config) { c.Server.AllowedOrigins = nil },
		"bad origin":     func(c *config.Config) { c.Server.AllowedOrigins = []string{"localhost"} },
		"bad bind":       func(c *config.Config) { c.Paths.APIBind = "nope" },
		"bad backend":    func(c *config.Config) { c.Client.BackendURL = "ftp://x" },
		"bad log format": func(c *config.Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.DataDir = t.TempDir()
			cfg.Paths.DatabasePath = filepath.Join(cfg.Paths.DataDir, "db.sqlite")
			mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestCreateSampleIsLoadable(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists || cfg.Widget.Height != 200 {
		t.Fatalf("unexpected sample config: exists=%v height=%d", exists, cfg.Widget.Height)
	}
}
