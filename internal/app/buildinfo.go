package app

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

const devVersion = "dev"

var (
	// Version is set with -ldflags "-X" in release builds.
	Version = devVersion
	// BuildDate is set with -ldflags "-X" in release builds, RFC 3339 or YYYY-MM-DD.
	BuildDate = ""

	readBuildInfo = debug.ReadBuildInfo
)

// BuildVersion prefers the linker-stamped version and falls back to the
// module version recorded by `go install`.
func BuildVersion() string {
	if version := strings.TrimSpace(Version); version != "" && version != devVersion {
		return version
	}
	if info, ok := readBuildInfo(); ok && info != nil {
		if version := info.Main.Version; version != "" && version != "(devel)" {
			return version
		}
	}

	return devVersion
}

// BuildDateYMD returns the build date as YYYY-MM-DD. Without a stamped date
// it uses the VCS commit time. Unparseable values are returned unchanged.
func BuildDateYMD() string {
	raw := strings.TrimSpace(BuildDate)
	if raw == "" {
		raw = vcsTime()
	}
	if raw == "" {
		return ""
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if parsed, err := time.Parse(layout, raw); err == nil {
			return parsed.Format(time.DateOnly)
		}
	}
	if len(raw) > len(time.DateOnly) {
		if parsed, err := time.Parse(time.DateOnly, raw[:len(time.DateOnly)]); err == nil {
			return parsed.Format(time.DateOnly)
		}
	}

	return raw
}

func BuildVersionWithDate() string {
	version := BuildVersion()
	if date := BuildDateYMD(); date != "" {
		return fmt.Sprintf("%s (%s)", version, date)
	}

	return version
}

func vcsTime() string {
	info, ok := readBuildInfo()
	if !ok || info == nil {
		return ""
	}
	for _, setting := range info.Settings {
		if setting.Key == "vcs.time" {
			return strings.TrimSpace(setting.Value)
		}
	}

	return ""
}
