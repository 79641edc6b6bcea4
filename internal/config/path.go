package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

// ResolvePath picks the ds.cmd location.
//
// An explicit path always wins. Otherwise $XDG_CONFIG_HOME/docspell/ds.cmd is
// used when that file exists, then <home>/.config/docspell/ds.cmd, which is
// also the reported path when neither file exists.
func ResolvePath(explicit string) (string, error) {
	if strings.TrimSpace(explicit) != "" {
		return explicit, nil
	}

	candidates := candidatePaths()
	if len(candidates) == 0 {
		return "", errors.New("unable to resolve user home for config fallback")
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); !errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
	}
	return candidates[len(candidates)-1], nil
}

// candidatePaths lists implicit locations in lookup order, home path last.
func candidatePaths() []string {
	var paths []string
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		paths = append(paths, filepath.Join(xdg, Product, FileName))
	}

	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return paths
	}
	homePath := filepath.Join(home, ".config", Product, FileName)
	if len(paths) == 0 || paths[0] != homePath {
		paths = append(paths, homePath)
	}
	return paths
}

// expandHome rewrites a leading "~/" to the user's home directory.
func expandHome(command string) string {
	if !strings.HasPrefix(command, "~/") {
		return command
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return command
	}
	return filepath.Join(home, command[2:])
}
