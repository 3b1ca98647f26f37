// Package l3 provides leveled logging for barn's internal components: a
// small level-gated Logger interface, pluggable writers, and one logger
// per package obtained by name rather than runtime call-stack inspection.
package l3

const (
	// Off disables logging entirely.
	Off Level = iota
	// Err enables only error level logging.
	Err
	// Warn enables warning and error level logging.
	Warn
	// Info enables info, warning and error level logging.
	Info
	// Debug enables debug, info, warning and error level logging.
	Debug
	// Trace enables all levels.
	Trace
)

// Level specifies the log level.
type Level int

// Levels holds the display name for each Level, indexed by Level.
var Levels = [...]string{
	"OFF",
	"ERROR",
	"WARN",
	"INFO",
	"DEBUG",
	"TRACE",
}

// LevelsBytes is Levels pre-rendered to bytes, to avoid repeated allocation
// in the hot logging path.
var LevelsBytes = [...][]byte{
	[]byte("OFF"),
	[]byte("ERROR"),
	[]byte("WARN"),
	[]byte("INFO"),
	[]byte("DEBUG"),
	[]byte("TRACE"),
}

// LevelsMap maps a level's string name back to its Level.
var LevelsMap = map[string]Level{
	"OFF":   Off,
	"ERROR": Err,
	"WARN":  Warn,
	"INFO":  Info,
	"DEBUG": Debug,
	"TRACE": Trace,
}

// Logger is the interface every barn package logs through.
type Logger interface {
	Error(a ...interface{})
	ErrorF(f string, a ...interface{})
	Warn(a ...interface{})
	WarnF(f string, a ...interface{})
	Info(a ...interface{})
	InfoF(f string, a ...interface{})
	Debug(a ...interface{})
	DebugF(f string, a ...interface{})
	Trace(a ...interface{})
	TraceF(f string, a ...interface{})
}
