package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate enforces config invariants and returns non-fatal warnings.
func Validate(cfg Config) ([]Warning, error) {
	warnings := make([]Warning, 0)

	if strings.TrimSpace(cfg.Command) == "" {
		return nil, errors.New("command must not be empty")
	}
	if strings.ContainsRune(cfg.Command, 0) {
		return nil, fmt.Errorf("command %q contains a NUL byte", cfg.Command)
	}
	if cfg.Command != strings.TrimSpace(cfg.Command) {
		warnings = append(warnings, Warning{Line: 1, Message: fmt.Sprintf("command %q has surrounding whitespace", cfg.Command)})
	}

	return warnings, nil
}
