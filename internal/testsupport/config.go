package testsupport

import (
	"path/filepath"
	"testing"

	"audiorating/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.DatabasePath = filepath.Join(base, "data", "audiorating.db")
	cfgVal.Paths.StudiesConfig = filepath.Join(base, "studies.yaml")
	cfgVal.Paths.APIBind = "127.0.0.1:0"
	cfgVal.Client.LocalDir = filepath.Join(base, "local")
	cfgVal.Logging.Level = "error"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}
	for _, opt := range opts {
		opt(builder)
	}
	return builder.cfg
}

// WithAPIToken sets the bearer token required by the HTTP API.
func WithAPIToken(token string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Paths.APIToken = token
	}
}

// WithAllowedOrigins replaces the CORS origin list.
func WithAllowedOrigins(origins ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Server.AllowedOrigins = append([]string(nil), origins...)
	}
}

// WithStudies writes content as the studies file referenced by the config.
func WithStudies(content string) ConfigOption {
	return func(b *configBuilder) {
		WriteStudiesConfig(b.t, b.cfg.Paths.StudiesConfig, content)
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
