package executor

import (
	"regexp"
	"time"

	"github.com/Cyclone1070/devrun/internal/config"
)

var (
	installPattern = regexp.MustCompile(`(?i)install|update|upgrade`)
	buildPattern   = regexp.MustCompile(`(?i)build|compile`)
	testPattern    = regexp.MustCompile(`(?i)test`)
)

// DefaultTimeout picks a budget from the command text. Installs get the
// longest budget, then builds and tests, then everything else.
func DefaultTimeout(command string, cfg *config.Config) time.Duration {
	ms := cfg.Exec.DefaultTimeoutMs
	switch {
	case installPattern.MatchString(command):
		ms = cfg.Exec.InstallTimeoutMs
	case buildPattern.MatchString(command):
		ms = cfg.Exec.BuildTimeoutMs
	case testPattern.MatchString(command):
		ms = cfg.Exec.TestTimeoutMs
	}
	return time.Duration(ms) * time.Millisecond
}
