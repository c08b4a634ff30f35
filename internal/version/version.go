// Package version reports build metadata. Values set at link time win:
//
//	go build -ldflags "-X github.com/toricodesthings/ink-to-pixels/internal/version.version=v1.2.0"
package version

import "runtime/debug"

var (
	version = ""
	commit  = ""
)

// Get returns the release version, falling back to module build info.
func Get() string {
	if version != "" {
		return version
	}
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" {
		return bi.Main.Version
	}
	return "(devel)"
}

// Commit returns the short VCS revision or "unknown".
func Commit() string {
	if commit != "" {
		return commit
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" {
				if len(s.Value) > 7 {
					return s.Value[:7]
				}
				return s.Value
			}
		}
	}
	return "unknown"
}
