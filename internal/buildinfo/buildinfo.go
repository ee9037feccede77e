// Package buildinfo reports what binary is running: the stamped
// release version plus whatever the Go toolchain recorded about the
// build.
package buildinfo

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"time"
)

// Version and BuildTime are stamped via -ldflags on release builds and
// keep their defaults on plain `go build`.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

var startTime = time.Now()

// Commit returns the VCS revision recorded by the toolchain, with a
// "-dirty" suffix for builds from a modified tree. Falls back to
// "unknown" for binaries built outside a checkout.
func Commit() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	revision, dirty := "unknown", false
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			revision = s.Value
			if len(revision) > 12 {
				revision = revision[:12]
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty {
		revision += "-dirty"
	}
	return revision
}

// Info returns build and runtime metadata as a map.
func Info() map[string]string {
	return map[string]string{
		"version":    Version,
		"git_commit": Commit(),
		"build_time": BuildTime,
		"go_version": runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"uptime":     Uptime().String(),
	}
}

// Uptime returns the duration since process start.
func Uptime() time.Duration {
	return time.Since(startTime).Truncate(time.Second)
}

// String returns a one-line summary for logging.
func String() string {
	return fmt.Sprintf("banter %s (%s) built %s", Version, Commit(), BuildTime)
}
