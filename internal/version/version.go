// Package version reports the simplest release and build details embedded
// at link time or recovered from the module build info.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set with -ldflags "-X github.com/conneroisu/simplest/internal/version.Version=v1.2.3".
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Info describes the running binary.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit"`
	BuildTime time.Time `json:"build_time,omitempty"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Get returns the build information of the running binary.
func Get() Info {
	settings := vcsSettings()

	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: parseTime(BuildTime),
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		Dirty:     settings["vcs.modified"] == "true",
	}

	if info.GitCommit == "" || info.GitCommit == "unknown" {
		if rev := settings["vcs.revision"]; rev != "" {
			info.GitCommit = rev
		}
	}
	if info.BuildTime.IsZero() {
		info.BuildTime = parseTime(settings["vcs.time"])
	}
	if info.Version == "" || info.Version == "dev" {
		info.Version = moduleVersion()
	}

	return info
}

// Short returns a one-line version such as "v1.2.3 (abc1234)" or
// "dev-abc1234".
func (i Info) Short() string {
	if len(i.GitCommit) < 7 || i.GitCommit == "unknown" {
		return i.Version
	}
	commit := i.GitCommit[:7]
	if i.Version == "dev" {
		return "dev-" + commit
	}
	return fmt.Sprintf("%s (%s)", i.Version, commit)
}

// String returns the multi-line form printed by the version command.
func (i Info) String() string {
	lines := []string{"Version: " + i.Version}
	if i.GitCommit != "unknown" {
		commit := "Commit: " + i.GitCommit
		if i.Dirty {
			commit += " (dirty)"
		}
		lines = append(lines, commit)
	}
	if !i.BuildTime.IsZero() {
		lines = append(lines, "Built: "+i.BuildTime.Format(time.RFC3339))
	}
	lines = append(lines, "Go: "+i.GoVersion, "Platform: "+i.Platform)
	return strings.Join(lines, "\n")
}

func moduleVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "dev"
}

func vcsSettings() map[string]string {
	out := make(map[string]string)
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return out
	}
	for _, s := range bi.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			out[s.Key] = s.Value
		}
	}
	return out
}

func parseTime(s string) time.Time {
	if s == "" || s == "unknown" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
