package config

const (
	defaultDataDir              = "~/.local/share/audiorating"
	defaultLogDir               = "~/.local/share/audiorating/logs"
	defaultStudiesConfig        = "~/.config/audiorating/studies.yaml"
	defaultDatabaseName         = "audiorating.db"
	defaultAPIBind              = "127.0.0.1:8000"
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
	defaultReadTimeoutSeconds   = 15
	defaultWriteTimeoutSeconds  = 30
	defaultShutdownSeconds      = 5
	defaultClientTimeoutSeconds = 10
	defaultBackendURL           = "http://127.0.0.1:8000"
	defaultClientLocalDir       = "~/.local/share/audiorating/local"
	defaultWidgetHeight         = 200
	defaultWaveColor            = "#6f6f6f"
	defaultProgressColor        = "#3b82f6"
	defaultCursorColor          = "#ef4444"
	defaultRedrawIntervalMS     = 33
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:       defaultDataDir,
			LogDir:        defaultLogDir,
			StudiesConfig: defaultStudiesConfig,
			APIBind:       defaultAPIBind,
		},
		Server: Server{
			AllowedOrigins:         []string{"http://localhost:3000"},
			ReadTimeoutSeconds:     defaultReadTimeoutSeconds,
			WriteTimeoutSeconds:    defaultWriteTimeoutSeconds,
			ShutdownTimeoutSeconds: defaultShutdownSeconds,
		},
		Client: Client{
			BackendURL:     defaultBackendURL,
			TimeoutSeconds: defaultClientTimeoutSeconds,
			LocalDir:       defaultClientLocalDir,
		},
		Widget: Widget{
			Height:           defaultWidgetHeight,
			WaveColor:        defaultWaveColor,
			ProgressColor:    defaultProgressColor,
			CursorColor:      defaultCursorColor,
			RedrawIntervalMS: defaultRedrawIntervalMS,
			ShowInstructions: true,
			ShowVolume:       true,
			ShowLegend:       true,
			ShowDownload:     true,
			ShowTimeline:     true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
