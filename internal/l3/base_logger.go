package l3

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"
)

// LogWriter is a destination for rendered log entries.
type LogWriter interface {
	InitConfig(w *WriterConfig)
	DoLog(logMsg *LogMessage)
	io.Closer
}

// BaseLogger is the default Logger implementation: one per package name,
// gated by a minimum Level.
type BaseLogger struct {
	level           Level
	pkgName         string
	errorEnabled    bool
	warnEnabled     bool
	infoEnabled     bool
	debugEnabled    bool
	traceEnabled    bool
	includeFunction bool
	includeLine     bool
}

var (
	mutex         sync.Mutex
	loggers       = make(map[string]*BaseLogger)
	writers       []LogWriter
	cfg           = DefaultConfig()
	logMsgChannel chan *LogMessage
)

var newLineBytes = []byte("\n")
var whiteSpaceBytes = []byte(" ")

func init() {
	Configure(DefaultConfig())
}

// Configure (re)configures the package: it replaces the writer set and, if
// Async is set, starts the background log-draining goroutine. Configure may
// be called again later; every *BaseLogger already vended by Get has its
// level flags recomputed against the new configuration immediately.
func Configure(c *Config) {
	mutex.Lock()
	defer mutex.Unlock()
	if c == nil {
		c = DefaultConfig()
	}
	if c.DatePattern == "" {
		c.DatePattern = time.RFC3339
	}
	if c.DefaultLvl == "" {
		c.DefaultLvl = "INFO"
	}
	cfg = c

	for _, w := range writers {
		_ = w.Close()
	}
	writers = nil

	if c.Async {
		if c.QueueSize == 0 {
			c.QueueSize = 512
		}
		logMsgChannel = make(chan *LogMessage, c.QueueSize)
		go drainAsync()
	}

	for _, w := range c.Writers {
		switch {
		case w.File != nil:
			fw := &FileWriter{}
			fw.InitConfig(w)
			writers = append(writers, fw)
		case w.Console != nil:
			cw := &ConsoleWriter{}
			cw.InitConfig(w)
			writers = append(writers, cw)
		}
	}

	// Any previously vended logger needs its level flags recomputed against
	// the new configuration.
	for name, l := range loggers {
		level := cfg.DefaultLvl
		if lvl, ok := cfg.PkgLevels[name]; ok {
			level = lvl
		}
		l.level = LevelsMap[level]
		l.includeFunction = cfg.IncludeFunction
		l.includeLine = cfg.IncludeLineNum
		l.updateLvlFlags()
	}
}

func (l *BaseLogger) updateLvlFlags() {
	l.errorEnabled = l.level >= Err
	l.warnEnabled = l.level >= Warn
	l.infoEnabled = l.level >= Info
	l.debugEnabled = l.level >= Debug
	l.traceEnabled = l.level >= Trace
}

// Get returns the Logger for the given package name, creating it (against
// the currently configured levels) on first use.
func Get(pkgName string) Logger {
	mutex.Lock()
	defer mutex.Unlock()

	if l, ok := loggers[pkgName]; ok {
		return l
	}

	level := cfg.DefaultLvl
	if lvl, ok := cfg.PkgLevels[pkgName]; ok {
		level = lvl
	}

	l := &BaseLogger{
		level:           LevelsMap[level],
		pkgName:         pkgName,
		includeFunction: cfg.IncludeFunction,
		includeLine:     cfg.IncludeLineNum,
	}
	l.updateLvlFlags()
	loggers[pkgName] = l
	return l
}

func writeLogMsg(w io.Writer, logMsg *LogMessage) {
	if cfg.Format == "json" {
		data, _ := json.Marshal(logMsg)
		_, _ = w.Write(data)
		_, _ = w.Write(newLineBytes)
		return
	}

	buf := bufio.NewWriter(w)
	_, _ = buf.Write(formatTimeToBytes(logMsg.Time, cfg.DatePattern))
	_, _ = buf.Write(whiteSpaceBytes)
	_, _ = buf.Write(LevelsBytes[logMsg.Level])
	_, _ = buf.Write(whiteSpaceBytes)
	if logMsg.FnName != "" {
		_, _ = buf.WriteString(logMsg.FnName)
		_, _ = buf.WriteString(":")
		_, _ = buf.WriteString(strconv.Itoa(logMsg.Line))
		_, _ = buf.Write(whiteSpaceBytes)
	}
	_, _ = buf.Write(logMsg.Content.Bytes())
	_, _ = buf.Write(newLineBytes)
	_ = buf.Flush()
}

func formatTimeToBytes(t time.Time, layout string) []byte {
	b := make([]byte, 0, len(layout)+8)
	return t.AppendFormat(b, layout)
}

func handleLog(l *BaseLogger, logMsg *LogMessage) {
	if cfg.Async {
		logMsgChannel <- logMsg
		return
	}
	doLog(logMsg)
}

func doLog(logMsg *LogMessage) {
	mutex.Lock()
	ws := writers
	mutex.Unlock()
	for _, w := range ws {
		w.DoLog(logMsg)
	}
	putLogMessage(logMsg)
}

func drainAsync() {
	for logMsg := range logMsgChannel {
		doLog(logMsg)
	}
}

func writeLog(w io.Writer, a ...interface{}) {
	_, _ = fmt.Fprintln(w, a...)
}

// Error logs at Err level.
func (l *BaseLogger) Error(a ...interface{}) {
	if l.errorEnabled && len(a) > 0 {
		handleLog(l, getLogMessage(Err, a...))
	}
}

// ErrorF logs a formatted message at Err level.
func (l *BaseLogger) ErrorF(f string, a ...interface{}) {
	if l.errorEnabled {
		handleLog(l, getLogMessageF(Err, f, a...))
	}
}

// Warn logs at Warn level.
func (l *BaseLogger) Warn(a ...interface{}) {
	if l.warnEnabled && len(a) > 0 {
		handleLog(l, getLogMessage(Warn, a...))
	}
}

// WarnF logs a formatted message at Warn level.
func (l *BaseLogger) WarnF(f string, a ...interface{}) {
	if l.warnEnabled {
		handleLog(l, getLogMessageF(Warn, f, a...))
	}
}

// Info logs at Info level.
func (l *BaseLogger) Info(a ...interface{}) {
	if l.infoEnabled && len(a) > 0 {
		handleLog(l, getLogMessage(Info, a...))
	}
}

// InfoF logs a formatted message at Info level.
func (l *BaseLogger) InfoF(f string, a ...interface{}) {
	if l.infoEnabled {
		handleLog(l, getLogMessageF(Info, f, a...))
	}
}

// Debug logs at Debug level.
func (l *BaseLogger) Debug(a ...interface{}) {
	if l.debugEnabled && len(a) > 0 {
		handleLog(l, getLogMessage(Debug, a...))
	}
}

// DebugF logs a formatted message at Debug level.
func (l *BaseLogger) DebugF(f string, a ...interface{}) {
	if l.debugEnabled {
		handleLog(l, getLogMessageF(Debug, f, a...))
	}
}

// Trace logs at Trace level.
func (l *BaseLogger) Trace(a ...interface{}) {
	if l.traceEnabled && len(a) > 0 {
		handleLog(l, getLogMessage(Trace, a...))
	}
}

// TraceF logs a formatted message at Trace level.
func (l *BaseLogger) TraceF(f string, a ...interface{}) {
	if l.traceEnabled {
		handleLog(l, getLogMessageF(Trace, f, a...))
	}
}
