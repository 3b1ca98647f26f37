package classify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samson-media/barn/internal/job"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
}

func TestClassify_NoRulesMatch_DefaultsToMedium(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify([]string{"/usr/bin/anything"}); got != job.Medium {
		t.Errorf("Classify() = %s, want MEDIUM", got)
	}
}

func TestClassify_SameExecutableListedInAllThreeFiles_PicksHigh(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "high.load"), "ffmpeg\n")
	writeFile(t, filepath.Join(dir, "medium.load"), "ffmpeg\n")
	writeFile(t, filepath.Join(dir, "low.load"), "ffmpeg\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify([]string{"ffmpeg", "-i", "in.mp4"}); got != job.High {
		t.Errorf("Classify() = %s, want HIGH (HIGH must win over MEDIUM/LOW)", got)
	}
}

func TestClassify_BareNameMatchesByBasename(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "low.load"), "gzip\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify([]string{"/usr/bin/gzip", "-9"}); got != job.Low {
		t.Errorf("Classify() = %s, want LOW for full-path command matching bare-name rule", got)
	}
}

func TestClassify_AbsolutePathMatchesExactly(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "high.load"), "/opt/render/encode\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify([]string{"/opt/render/encode"}); got != job.High {
		t.Errorf("Classify() = %s, want HIGH for exact absolute path match", got)
	}
	if got := c.Classify([]string{"/opt/render/other"}); got == job.High {
		t.Errorf("Classify() = %s, want non-HIGH for a different binary in the same dir", got)
	}
}

func TestClassify_TrailingSlashRuleMatchesDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "medium.load"), "/opt/batch/\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify([]string{"/opt/batch/anything"}); got != job.Medium {
		t.Errorf("Classify() = %s, want MEDIUM for any executable under the ruled directory", got)
	}
}

func TestClassify_CommentsAndBlankLinesIgnored(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "high.load"), "# comment\n\nffmpeg\n")

	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify([]string{"ffmpeg"}); got != job.High {
		t.Errorf("Classify() = %s, want HIGH (comment/blank lines must not become rules)", got)
	}
}

func TestClassify_EmptyCommand(t *testing.T) {
	dir := t.TempDir()
	c, err := Load(dir)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := c.Classify(nil); got != job.Medium {
		t.Errorf("Classify(nil) = %s, want MEDIUM", got)
	}
}
