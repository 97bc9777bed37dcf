package version

import (
	"runtime"
	"runtime/debug"
)

// Overridden at build time with
// -ldflags "-X github.com/MrSnakeDoc/pinboard/internal/version.Version=v0.1.0 ..."
var (
	Version   = "dev"
	Commit    = vcsSetting("vcs.revision", "none")
	BuildDate = vcsSetting("vcs.time", "unknown")
	GoVersion = runtime.Version()
)

// vcsSetting reads a value stamped by the go toolchain when ldflags were not set.
func vcsSetting(key, def string) string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return def
	}
	for _, s := range info.Settings {
		if s.Key == key && s.Value != "" {
			return s.Value
		}
	}
	return def
}
