package version

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringFormatsBanner(t *testing.T) {
	stamp(t, "0.3.0", "9f2c1ab", "2026-10-01")

	require.Equal(t, "docspell-native 0.3.0 (commit=9f2c1ab, date=2026-10-01, go="+runtime.Version()+")", String())
}

func TestStringDefaultsForUnstampedBuild(t *testing.T) {
	require.Contains(t, String(), "docspell-native dev (commit=none, date=unknown,")
}

func TestAttrLogsBuildGroup(t *testing.T) {
	stamp(t, "0.3.0", "9f2c1ab", "2026-10-01")

	var buf bytes.Buffer
	slog.New(slog.NewJSONHandler(&buf, nil)).Info("start", Attr())

	var record struct {
		Build map[string]string `json:"build"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, map[string]string{"version": "0.3.0", "commit": "9f2c1ab", "date": "2026-10-01"}, record.Build)
}

func stamp(t *testing.T, version, commit, date string) {
	t.Helper()

	prevVersion, prevCommit, prevDate := Version, Commit, Date
	t.Cleanup(func() {
		Version, Commit, Date = prevVersion, prevCommit, prevDate
	})
	Version, Commit, Date = version, commit, date
}
