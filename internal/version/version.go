package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "0.4.0-dev"

var (
	// Name shown in CLI headers and user agents
	AppName = "Syncany"

	// Version of the build, overridden with -ldflags on release builds
	Version = devVersion

	// Git revision of the build
	Revision = "HEAD"

	// Build timestamp (RFC3339)
	BuildDate = ""
)

// fillFromBuildInfo only replaces values that ldflags left at their defaults.
func fillFromBuildInfo(moduleVersion string, vcs map[string]string) {
	if Version == devVersion || Version == "" {
		if moduleVersion != "" && moduleVersion != "(devel)" {
			Version = strings.TrimPrefix(moduleVersion, "v")
		}
	}

	if Revision == "HEAD" || Revision == "" {
		if rev := vcs["vcs.revision"]; rev != "" {
			if vcs["vcs.modified"] == "true" {
				rev += "-dirty"
			}
			Revision = rev
		}
	}

	if BuildDate == "" {
		BuildDate = vcs["vcs.time"]
	}
}

func readBuildInfo() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}

	vcs := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		vcs[s.Key] = s.Value
	}
	fillFromBuildInfo(info.Main.Version, vcs)
}

// Short returns `0.4.0 (5e23a4)`
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

// ShortWithApp returns `Syncany 0.4.0 (5e23a4)`
func ShortWithApp() string {
	return AppName + " " + Short()
}

// Detailed returns `0.4.0 (5e23a4; go1.23.6; linux/amd64; 2026-01-02T15:04:05Z)`
func Detailed() string {
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, BuildDate)
}

func DetailedWithApp() string {
	return AppName + " " + Detailed()
}

func init() {
	readBuildInfo()
	if BuildDate == "" {
		BuildDate = time.Now().UTC().Format(time.RFC3339)
	}
}
