// Package statefile provides typed read/write accessors over barnfs's
// atomic single-value files, for each per-job field listed in the job
// directory layout.
package statefile

import (
	"strconv"
	"strings"
	"time"

	"github.com/samson-media/barn/internal/barnfs"
)

// timeLayout is used for writes; reads tolerate any RFC3339 precision
// (second, milli, micro, nano) since barn's own writer always emits
// nanosecond precision but the filesystem may be shared with another
// implementation that writes coarser timestamps.
const timeLayout = time.RFC3339Nano

// ReadString returns the file's contents, trimmed of surrounding
// whitespace, or ok=false if the field is absent.
func ReadString(path string) (value string, ok bool, err error) {
	data, present, err := barnfs.ReadFile(path)
	if err != nil || !present {
		return "", present, err
	}
	return strings.TrimSpace(string(data)), true, nil
}

// WriteString atomically writes value to path.
func WriteString(path string, value string) error {
	return barnfs.WriteAtomic(path, []byte(value))
}

// ReadTime parses the file's contents as an RFC3339 instant, at any
// precision.
func ReadTime(path string) (value time.Time, ok bool, err error) {
	s, present, err := ReadString(path)
	if err != nil || !present || s == "" {
		return time.Time{}, present, err
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, false, err
	}
	return t, true, nil
}

// WriteTime atomically writes t, formatted to nanosecond-precision RFC3339.
func WriteTime(path string, t time.Time) error {
	return WriteString(path, t.UTC().Format(timeLayout))
}

// ReadInt parses the file's contents as a decimal integer.
func ReadInt(path string) (value int, ok bool, err error) {
	s, present, err := ReadString(path)
	if err != nil || !present || s == "" {
		return 0, present, err
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// WriteInt atomically writes n as a decimal integer.
func WriteInt(path string, n int) error {
	return WriteString(path, strconv.Itoa(n))
}

// ReadInt64 parses the file's contents as a 64-bit decimal integer, used
// for pid.
func ReadInt64(path string) (value int64, ok bool, err error) {
	s, present, err := ReadString(path)
	if err != nil || !present || s == "" {
		return 0, present, err
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return n, true, nil
}

// WriteInt64 atomically writes n as a decimal integer.
func WriteInt64(path string, n int64) error {
	return WriteString(path, strconv.FormatInt(n, 10))
}

// Clear deletes the field's file atomically. Clearing an already-absent
// field is not an error.
func Clear(path string) error {
	return barnfs.Remove(path)
}

// AppendLine appends a single line to an append-only field (retry_history).
func AppendLine(path string, line string) error {
	return barnfs.AppendLine(path, line)
}
