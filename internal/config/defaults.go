package config

const (
	defaultDataDir           = "~/.local/share/pwaforge"
	defaultLogDir            = "~/.local/share/pwaforge/logs"
	defaultAPIBind           = "127.0.0.1:8790"
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
	defaultAnalyzeDelayMS    = 2000
	defaultValidateDelayMS   = 1500
	defaultStaleAfterSeconds = 300
	defaultHistoryPageSize   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Pipeline: Pipeline{
			AnalyzeDelayMS:    defaultAnalyzeDelayMS,
			ValidateDelayMS:   defaultValidateDelayMS,
			StaleAfterSeconds: defaultStaleAfterSeconds,
			HistoryPageSize:   defaultHistoryPageSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Seed: Seed{
			Enabled: true,
		},
	}
}
