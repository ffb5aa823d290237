package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
)

const devVersion = "0.1.0-dev"

// Set through -ldflags "-X github.com/openmined/themesync/internal/version.Version=..."
var (
	AppName   = "themesync"
	Version   = devVersion
	Revision  = "HEAD"
	BuildDate = ""
)

// fillFromVCS fills in whatever ldflags left at its default.
func fillFromVCS(moduleVersion string, vcs map[string]string) {
	if Version == devVersion || Version == "" {
		if moduleVersion != "" && moduleVersion != "(devel)" {
			Version = strings.TrimPrefix(moduleVersion, "v")
		}
	}

	if Revision == "HEAD" || Revision == "" {
		if rev := vcs["vcs.revision"]; rev != "" {
			if len(rev) > 12 {
				rev = rev[:12]
			}
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

// Short is `0.1.0 (5e23a4b1c2d3)`.
func Short() string {
	return fmt.Sprintf("%s (%s)", Version, Revision)
}

// Detailed is `0.1.0 (5e23a4b1c2d3; go1.24.2; linux/amd64; 2025-01-01T00:00:00Z)`.
func Detailed() string {
	date := BuildDate
	if date == "" {
		date = "unknown"
	}
	return fmt.Sprintf("%s (%s; %s; %s/%s; %s)", Version, Revision, runtime.Version(), runtime.GOOS, runtime.GOARCH, date)
}

func DetailedWithApp() string {
	return AppName + " " + Detailed()
}

// UserAgent identifies the tool to remote asset stores.
func UserAgent() string {
	return fmt.Sprintf("%s/%s (%s; %s; %s)", AppName, Version, Revision, runtime.GOOS, runtime.GOARCH)
}

func init() {
	info, ok := debug.ReadBuildInfo()
	if !ok || info == nil {
		return
	}

	vcs := make(map[string]string)
	for _, s := range info.Settings {
		if strings.HasPrefix(s.Key, "vcs.") {
			vcs[s.Key] = s.Value
		}
	}
	fillFromVCS(info.Main.Version, vcs)
}
