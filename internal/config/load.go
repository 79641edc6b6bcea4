package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
)

// Loaded captures resolved config path, parsed values, and non-fatal warnings.
type Loaded struct {
	Path     string
	Config   Config
	Warnings []Warning
	Exists   bool
}

// Load resolves and reads the command file.
//
// A missing, unreadable, empty, or invalid file falls back to Default with a
// warning.
// Only errors outside the filesystem read itself are returned.
func Load(explicitPath string) (Loaded, error) {
	resolvedPath, err := ResolvePath(explicitPath)
	if err != nil {
		return Loaded{}, err
	}

	base := Default()
	content, err := os.ReadFile(resolvedPath)
	if err != nil {
		var pathErr *fs.PathError
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fallback(resolvedPath, base, false, fmt.Sprintf("config file %q not found; using default command %q", resolvedPath, base.Command)), nil
		case errors.As(err, &pathErr):
			return fallback(resolvedPath, base, true, fmt.Sprintf("config file %q unreadable (%v); using default command %q", resolvedPath, pathErr.Err, base.Command)), nil
		default:
			return Loaded{}, fmt.Errorf("read config %q: %w", resolvedPath, err)
		}
	}

	cfg, ok := Parse(string(content))
	if !ok {
		return fallback(resolvedPath, base, true, fmt.Sprintf("config file %q is empty; using default command %q", resolvedPath, base.Command)), nil
	}

	warnings, err := Validate(cfg)
	if err != nil {
		return fallback(resolvedPath, base, true, fmt.Sprintf("config file %q invalid (%v); using default command %q", resolvedPath, err, base.Command)), nil
	}

	return Loaded{
		Path:     resolvedPath,
		Config:   cfg,
		Warnings: warnings,
		Exists:   true,
	}, nil
}

// Parse takes the first line of content as the command, without its line
// terminator. It reports false when that line is blank.
func Parse(content string) (Config, bool) {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" {
		return Config{}, false
	}
	return Config{Command: expandHome(line)}, true
}

func fallback(path string, base Config, exists bool, message string) Loaded {
	return Loaded{
		Path:     path,
		Config:   base,
		Warnings: []Warning{{Message: message}},
		Exists:   exists,
	}
}
