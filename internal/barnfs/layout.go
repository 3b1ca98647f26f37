// Package barnfs owns barn's on-disk tree and the atomic single-value file
// write primitive every other component builds on: write to a temp file,
// fsync it, rename it into place, then fsync the containing directory.
package barnfs

import (
	"os"
	"path/filepath"
	"runtime"
)

// Layout resolves every path barn persists state under, rooted at a single
// base directory.
type Layout struct {
	base string
}

// NewLayout returns a Layout rooted at base. If base is empty,
// DefaultBaseDir() is used.
func NewLayout(base string) *Layout {
	if base == "" {
		base = DefaultBaseDir()
	}
	return &Layout{base: base}
}

// BaseDir returns the layout's root directory.
func (l *Layout) BaseDir() string {
	return l.base
}

// JobsDir returns "<base>/jobs".
func (l *Layout) JobsDir() string {
	return filepath.Join(l.base, "jobs")
}

// JobDir returns "<base>/jobs/<id>".
func (l *Layout) JobDir(id string) string {
	return filepath.Join(l.JobsDir(), id)
}

// ManifestPath returns the immutable manifest file path for id.
func (l *Layout) ManifestPath(id string) string {
	return filepath.Join(l.JobDir(id), "manifest.json")
}

// StatePath returns the state field's file path for id.
func (l *Layout) StatePath(id string) string {
	return filepath.Join(l.JobDir(id), "state")
}

// CreatedAtPath returns the createdAt field's file path for id.
func (l *Layout) CreatedAtPath(id string) string {
	return filepath.Join(l.JobDir(id), "created_at")
}

// StartedAtPath returns the startedAt field's file path for id.
func (l *Layout) StartedAtPath(id string) string {
	return filepath.Join(l.JobDir(id), "started_at")
}

// FinishedAtPath returns the finishedAt field's file path for id.
func (l *Layout) FinishedAtPath(id string) string {
	return filepath.Join(l.JobDir(id), "finished_at")
}

// HeartbeatPath returns the heartbeat field's file path for id.
func (l *Layout) HeartbeatPath(id string) string {
	return filepath.Join(l.JobDir(id), "heartbeat")
}

// RetryAtPath returns the retryAt field's file path for id.
func (l *Layout) RetryAtPath(id string) string {
	return filepath.Join(l.JobDir(id), "retry_at")
}

// ExitCodePath returns the exitCode field's file path for id.
func (l *Layout) ExitCodePath(id string) string {
	return filepath.Join(l.JobDir(id), "exit_code")
}

// ErrorPath returns the error field's file path for id.
func (l *Layout) ErrorPath(id string) string {
	return filepath.Join(l.JobDir(id), "error")
}

// PidPath returns the pid field's file path for id.
func (l *Layout) PidPath(id string) string {
	return filepath.Join(l.JobDir(id), "pid")
}

// TagPath returns the tag field's file path for id.
func (l *Layout) TagPath(id string) string {
	return filepath.Join(l.JobDir(id), "tag")
}

// RetryCountPath returns the retryCount field's file path for id.
func (l *Layout) RetryCountPath(id string) string {
	return filepath.Join(l.JobDir(id), "retry_count")
}

// RetryHistoryPath returns the append-only retry_history file path for id.
func (l *Layout) RetryHistoryPath(id string) string {
	return filepath.Join(l.JobDir(id), "retry_history")
}

// WorkDir returns the job's scratch/working directory.
func (l *Layout) WorkDir(id string) string {
	return filepath.Join(l.JobDir(id), "work")
}

// LogsDir returns the job's log directory.
func (l *Layout) LogsDir(id string) string {
	return filepath.Join(l.JobDir(id), "logs")
}

// StdoutLogPath returns the job's stdout log file path.
func (l *Layout) StdoutLogPath(id string) string {
	return filepath.Join(l.LogsDir(id), "stdout.log")
}

// StderrLogPath returns the job's stderr log file path.
func (l *Layout) StderrLogPath(id string) string {
	return filepath.Join(l.LogsDir(id), "stderr.log")
}

// LockPath returns the scheduler's single-writer lock file path.
func (l *Layout) LockPath() string {
	return filepath.Join(l.base, "scheduler.lock")
}

// ClassifyDir is the directory the load-level classifier reads its
// high.load/medium.load/low.load whitelists from.
func (l *Layout) ClassifyDir() string {
	return filepath.Join(l.base, "classify")
}

// EnsureJobDirs creates the job's directory tree (work/ and logs/).
func (l *Layout) EnsureJobDirs(id string) error {
	if err := os.MkdirAll(l.WorkDir(id), 0o755); err != nil {
		return err
	}
	return os.MkdirAll(l.LogsDir(id), 0o755)
}

// DefaultBaseDir returns the platform-default root for barn's state:
// $XDG_STATE_HOME/barn (or ~/.local/state/barn) on Linux, ~/Library/Application
// Support/barn on Darwin, %LOCALAPPDATA%\barn on Windows.
func DefaultBaseDir() string {
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
			return filepath.Join(dir, "barn")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "AppData", "Local", "barn")
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "barn")
	default:
		if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
			return filepath.Join(dir, "barn")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "state", "barn")
	}
}
