package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// applyEnv layers the deployment environment over file values.
func (c *Config) applyEnv() error {
	if value, ok := os.LookupEnv("AR_DATABASE_URL"); ok && strings.TrimSpace(value) != "" {
		c.Paths.DatabasePath = databasePathFromURL(value)
	}
	if value, ok := os.LookupEnv("AR_ALLOWED_ORIGINS"); ok && strings.TrimSpace(value) != "" {
		var origins []string
		if err := json.Unmarshal([]byte(value), &origins); err != nil {
			return fmt.Errorf("AR_ALLOWED_ORIGINS must be a JSON array of origins: %w", err)
		}
		c.Server.AllowedOrigins = origins
	}
	if value, ok := os.LookupEnv("AR_DEBUG"); ok {
		c.Server.Debug = strings.EqualFold(strings.TrimSpace(value), "true")
	}
	if value, ok := os.LookupEnv("AR_API_TOKEN"); ok {
		c.Paths.APIToken = strings.TrimSpace(value)
	}
	return nil
}

// databasePathFromURL accepts a plain path or a SQLAlchemy-style sqlite URL
// (sqlite:///relative.db, sqlite:////absolute.db).
func databasePathFromURL(value string) string {
	value = strings.TrimSpace(value)
	for _, prefix := range []string{"sqlite:///", "sqlite://", "file:"} {
		if strings.HasPrefix(value, prefix) {
			value = strings.TrimPrefix(value, prefix)
			break
		}
	}
	if i := strings.IndexByte(value, '?'); i >= 0 {
		value = value[:i]
	}
	return value
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeServer()
	c.normalizeClient()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StudiesConfig, err = expandPath(c.Paths.StudiesConfig); err != nil {
		return fmt.Errorf("paths.studies_config: %w", err)
	}
	if strings.TrimSpace(c.Paths.DatabasePath) == "" {
		c.Paths.DatabasePath = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.Paths.DatabasePath, err = expandPath(c.Paths.DatabasePath); err != nil {
		return fmt.Errorf("paths.database_path: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeServer() {
	origins := make([]string, 0, len(c.Server.AllowedOrigins))
	seen := make(map[string]struct{}, len(c.Server.AllowedOrigins))
	for _, origin := range c.Server.AllowedOrigins {
		origin = strings.TrimRight(strings.TrimSpace(origin), "/")
		if origin == "" {
			continue
		}
		if _, dup := seen[origin]; dup {
			continue
		}
		seen[origin] = struct{}{}
		origins = append(origins, origin)
	}
	c.Server.AllowedOrigins = origins
	if c.Server.ReadTimeoutSeconds <= 0 {
		c.Server.ReadTimeoutSeconds = defaultReadTimeoutSeconds
	}
	if c.Server.WriteTimeoutSeconds <= 0 {
		c.Server.WriteTimeoutSeconds = defaultWriteTimeoutSeconds
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = defaultShutdownSeconds
	}
}

func (c *Config) normalizeClient() {
	c.Client.BackendURL = strings.TrimRight(strings.TrimSpace(c.Client.BackendURL), "/")
	c.Client.ParticipantID = strings.TrimSpace(c.Client.ParticipantID)
	if c.Client.TimeoutSeconds <= 0 {
		c.Client.TimeoutSeconds = defaultClientTimeoutSeconds
	}
	if strings.TrimSpace(c.Client.LocalDir) == "" {
		c.Client.LocalDir = filepath.Join(c.Paths.DataDir, "local")
	}
	if expanded, err := expandPath(c.Client.LocalDir); err == nil {
		c.Client.LocalDir = expanded
	}
	if c.Widget.RedrawIntervalMS <= 0 {
		c.Widget.RedrawIntervalMS = defaultRedrawIntervalMS
	}
	if c.Widget.Height <= 0 {
		c.Widget.Height = defaultWidgetHeight
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
