// Package brew wraps the Homebrew CLI for installing the backend tooling
// brewmetrics depends on.
package brew

import (
	"fmt"
	"os/exec"
	"strings"
)

// IsInstalled reports whether a formula is installed.
func IsInstalled(formula string) (bool, error) {
	cmd := exec.Command("brew", "list", "--formula")
	output, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return false, fmt.Errorf("brew list failed: %w (stderr: %s)", err, string(exitErr.Stderr))
		}
		return false, fmt.Errorf("brew list failed: %w", err)
	}

	return containsFormula(string(output), formula), nil
}

// containsFormula scans `brew list --formula` output for an exact name.
func containsFormula(output, formula string) bool {
	for _, line := range strings.Split(strings.TrimSpace(output), "\n") {
		if strings.TrimSpace(line) == formula {
			return true
		}
	}
	return false
}

// Install installs a formula via brew install.
func Install(formula string) error {
	cmd := exec.Command("brew", "install", formula)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("brew install %s failed: %w (output: %s)", formula, err, string(output))
	}
	return nil
}
