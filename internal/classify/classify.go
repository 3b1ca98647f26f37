// Package classify assigns a load level to a command by matching it
// against gitignore-style whitelist files, one per level.
package classify

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/samson-media/barn/internal/job"
	"github.com/samson-media/barn/internal/l3"
)

var logger = l3.Get("classify")

// rule is a single parsed line from a .load whitelist file.
type rule struct {
	// exact is set for a bare name ("name") or an absolute file path
	// ("/absolute/path"); it is compared for equality against the
	// respective candidate.
	exact string
	// dir is set for a trailing-slash absolute directory rule
	// ("/absolute/dir/"); it is compared against the command's parent
	// directory.
	dir string
	// isName is true when exact should be compared to the executable's
	// basename rather than its full path.
	isName bool
}

// Classifier holds the three parsed whitelists (HIGH, MEDIUM, LOW) used to
// classify a command's load level.
type Classifier struct {
	high, medium, low []rule
}

// Load reads high.load, medium.load, and low.load from dir. A missing file
// is treated as an empty whitelist, not an error.
func Load(dir string) (*Classifier, error) {
	high, err := loadRules(filepath.Join(dir, "high.load"))
	if err != nil {
		return nil, err
	}
	medium, err := loadRules(filepath.Join(dir, "medium.load"))
	if err != nil {
		return nil, err
	}
	low, err := loadRules(filepath.Join(dir, "low.load"))
	if err != nil {
		return nil, err
	}
	return &Classifier{high: high, medium: medium, low: low}, nil
}

func loadRules(path string) ([]rule, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var rules []rule
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rules = append(rules, parseRule(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func parseRule(line string) rule {
	if !strings.HasPrefix(line, "/") {
		return rule{exact: line, isName: true}
	}
	if strings.HasSuffix(line, "/") {
		return rule{dir: filepath.Clean(line)}
	}
	return rule{exact: filepath.Clean(line)}
}

func matches(rules []rule, command []string) bool {
	if len(command) == 0 {
		return false
	}
	exe := command[0]
	base := filepath.Base(exe)
	dir := filepath.Dir(exe)
	for _, r := range rules {
		switch {
		case r.isName:
			if r.exact == base {
				return true
			}
		case r.dir != "":
			if filepath.Clean(dir) == r.dir {
				return true
			}
		default:
			if r.exact == exe {
				return true
			}
		}
	}
	return false
}

// Classify returns the load level for command: HIGH > MEDIUM > LOW
// priority, first match wins, no match defaults to MEDIUM.
func (c *Classifier) Classify(command []string) job.LoadLevel {
	switch {
	case matches(c.high, command):
		return job.High
	case matches(c.medium, command):
		return job.Medium
	case matches(c.low, command):
		return job.Low
	default:
		logger.DebugF("no classification rule matched %v, defaulting to MEDIUM", command)
		return job.Medium
	}
}
