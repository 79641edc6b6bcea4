// Package doctor runs readiness diagnostics for the command file, the
// external command, and the log sink.
package doctor

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/rbright/docspell-native/internal/config"
)

// Check is one doctor assertion result.
type Check struct {
	Name    string
	Pass    bool
	Message string
}

// Report is the full doctor output contract.
type Report struct {
	Checks []Check
}

// OK returns true when all checks pass.
func (r Report) OK() bool {
	for _, check := range r.Checks {
		if !check.Pass {
			return false
		}
	}
	return true
}

// String renders the report as user-facing text output.
func (r Report) String() string {
	var b strings.Builder
	for _, check := range r.Checks {
		status := "OK"
		if !check.Pass {
			status = "FAIL"
		}
		b.WriteString(fmt.Sprintf("[%s] %s: %s\n", status, check.Name, check.Message))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// Run executes checks for a loaded config. logPath is empty when the log file
// could not be opened.
func Run(cfg config.Loaded, logPath string) Report {
	checks := []Check{checkConfig(cfg)}
	checks = append(checks, checkBinary(cfg.Config.Command, "command"))
	checks = append(checks, checkLog(logPath))
	return Report{Checks: checks}
}

// checkConfig reports where the command came from. A defaulted config passes.
func checkConfig(cfg config.Loaded) Check {
	if !cfg.Exists {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q not present; default command %q", cfg.Path, cfg.Config.Command)}
	}
	if len(cfg.Warnings) > 0 {
		return Check{Name: "config", Pass: true, Message: fmt.Sprintf("%q: %s", cfg.Path, cfg.Warnings[0].Message)}
	}
	return Check{Name: "config", Pass: true, Message: fmt.Sprintf("loaded %q", cfg.Path)}
}

// checkBinary validates that a binary exists in PATH, or is executable when given as a path.
func checkBinary(bin string, name string) Check {
	if strings.TrimSpace(bin) == "" {
		return Check{Name: name, Pass: false, Message: "command is empty"}
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return Check{Name: name, Pass: false, Message: fmt.Sprintf("not runnable: %s (%v)", bin, err)}
	}
	return Check{Name: name, Pass: true, Message: fmt.Sprintf("%s found at %s", bin, path)}
}

func checkLog(logPath string) Check {
	if logPath == "" {
		return Check{Name: "log", Pass: false, Message: "log file unavailable; logging to stderr"}
	}
	return Check{Name: "log", Pass: true, Message: fmt.Sprintf("writing to %s", logPath)}
}
