// Package version reports build metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/rbright/docspell-native/internal/version.Version=0.3.0"
package version

import (
	"fmt"
	"log/slog"
	"runtime"
)

// Set through -ldflags -X; the zero-config values mark a local build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// String is the one-line banner printed by `docspell-native version`.
func String() string {
	return fmt.Sprintf("docspell-native %s (commit=%s, date=%s, go=%s)", Version, Commit, Date, runtime.Version())
}

// Attr groups the build metadata under a single "build" log key.
func Attr() slog.Attr {
	return slog.Group("build",
		slog.String("version", Version),
		slog.String("commit", Commit),
		slog.String("date", Date),
	)
}
