// Package version reports the build identity of the teleput binary.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"sync"
)

// Set with -ldflags "-X github.com/memohai/teleput/internal/version.Version=v1.2.3".
var (
	Version    = ""
	CommitHash = ""
)

const devVersion = "development"

var (
	detectOnce sync.Once
	detected   Info
)

// Info is the resolved build identity.
type Info struct {
	Version   string
	Commit    string
	GoVersion string
}

func (i Info) String() string {
	if i.Commit == "" {
		return fmt.Sprintf("%s (%s)", i.Version, i.GoVersion)
	}
	return fmt.Sprintf("%s (%s, %s)", i.Version, shortCommit(i.Commit), i.GoVersion)
}

// GetInfo returns the linker-provided version, falling back to Go build info.
func GetInfo() Info {
	detectOnce.Do(func() {
		info, _ := debug.ReadBuildInfo()
		detected = resolve(Version, CommitHash, info)
	})
	return detected
}

func resolve(linked, commit string, info *debug.BuildInfo) Info {
	out := Info{
		Version:   strings.TrimSpace(linked),
		Commit:    strings.TrimSpace(commit),
		GoVersion: runtime.Version(),
	}
	if info != nil {
		if out.Version == "" && info.Main.Version != "" && info.Main.Version != "(devel)" {
			out.Version = info.Main.Version
		}
		if out.Commit == "" {
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					out.Commit = setting.Value
				}
			}
		}
	}
	if out.Version == "" {
		out.Version = devVersion
	}
	return out
}

func shortCommit(commit string) string {
	if len(commit) > 7 {
		return commit[:7]
	}
	return commit
}
