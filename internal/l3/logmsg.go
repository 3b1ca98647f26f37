package l3

import (
	"bytes"
	"fmt"
	"sync"
	"time"
)

var logMsgPool = &sync.Pool{
	New: func() interface{} {
		lm := &LogMessage{Content: &bytes.Buffer{}}
		lm.Content.Grow(1024)
		return lm
	},
}

// LogMessage is the in-flight representation of one log entry, pooled to
// keep the hot logging path allocation-free.
type LogMessage struct {
	Time    time.Time     `json:"timestamp"`
	FnName  string        `json:"function,omitempty"`
	Line    int           `json:"line,omitempty"`
	Content *bytes.Buffer `json:"msg"`
	Level   Level         `json:"level"`
}

func getLogMessageF(level Level, f string, v ...interface{}) *LogMessage {
	msg := logMsgPool.Get().(*LogMessage)
	msg.Level = level
	msg.Time = time.Now()
	msg.FnName = ""
	msg.Line = 0
	_, _ = fmt.Fprintf(msg.Content, f, v...)
	return msg
}

func getLogMessage(level Level, v ...interface{}) *LogMessage {
	msg := logMsgPool.Get().(*LogMessage)
	msg.Level = level
	msg.Time = time.Now()
	msg.FnName = ""
	msg.Line = 0
	_, _ = fmt.Fprint(msg.Content, v...)
	return msg
}

func putLogMessage(logMsg *LogMessage) {
	logMsg.Content.Reset()
	logMsgPool.Put(logMsg)
}
