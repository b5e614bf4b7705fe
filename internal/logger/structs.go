package logger

// Console implements a console based logger.
type Console struct {
	Enabled          bool
	UseConsoleWriter bool
}

// Rotation configures a lumberjack rolling file.
type Rotation struct {
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
	Compress   bool
}

// LogFile implements a file based logger.
// Every stream gets its own file below Path.
type LogFile struct {
	Enabled bool
	Path    string

	AccessLog string `mapstructure:"access"`
	ErrorLog  string `mapstructure:"error"`
	InfoLog   string `mapstructure:"info"`
	TraceLog  string `mapstructure:"trace"`
	WarnLog   string `mapstructure:"warn"`
	AuditLog  string `mapstructure:"audit"`

	Rotation Rotation
}

// Log implements the logger config.
type Log struct {
	LogLevel string // trace, debug, info, warn, error.
	LogEnv   string

	// EnableAccessLogToConsole writes the http access log to stdout.
	// Does not overrule Console.Enabled.
	EnableAccessLogToConsole bool
	ReportCaller             bool
	DisableCheckAlive        bool // do not log /healthz calls

	AppName     string
	ServiceName string

	// Console used mainly for docker and dev.
	Console Console

	File LogFile
}
