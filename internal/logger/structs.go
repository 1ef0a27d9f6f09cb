package logger

// Console configures logging to stdout and stderr.
type Console struct {
	Enabled bool `mapstructure:"enabled"`
	// UseConsoleWriter prints human readable lines instead of JSON.
	UseConsoleWriter bool `mapstructure:"useConsoleWriter"`
}

// RotatingFile configures one lumberjack rotated file.
type RotatingFile struct {
	Name       string `mapstructure:"name"`
	MaxSize    int    `mapstructure:"maxSize"` // megabytes
	MaxBackups int    `mapstructure:"maxBackups"`
	MaxAge     int    `mapstructure:"maxAge"` // days
}

// LogFile configures file based logging, split by level.
type LogFile struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`

	Access RotatingFile `mapstructure:"access"`
	Error  RotatingFile `mapstructure:"error"`
	Info   RotatingFile `mapstructure:"info"`
	Trace  RotatingFile `mapstructure:"trace"`
	Warn   RotatingFile `mapstructure:"warn"`
}

// Log implements the logger config.
type Log struct {
	LogLevel string `mapstructure:"logLevel"` // trace, debug, info, warn, error
	LogEnv   string `mapstructure:"logEnv"`

	// EnableAccessLogToConsole writes the web access log to stdout.
	// Console.Enabled must be set as well.
	EnableAccessLogToConsole bool `mapstructure:"enableAccessLogToConsole"`
	ReportCaller             bool `mapstructure:"reportCaller"`
	DisableCheckAlive        bool `mapstructure:"disableCheckAlive"` // do not log /checkalive calls

	AppName     string `mapstructure:"appName"`
	ServiceName string `mapstructure:"serviceName"`

	Console Console `mapstructure:"console"`
	File    LogFile `mapstructure:"file"`
}
