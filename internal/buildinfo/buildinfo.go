// Package buildinfo holds build metadata injected with
// -ldflags "-X github.com/metromate/metromate-linebot-go/internal/buildinfo.Version=...".
package buildinfo

import "runtime/debug"

var (
	// Version is the release tag.
	Version = ""
	// Commit is the git commit SHA.
	Commit = ""
)

// String returns the version for logs and Sentry releases. Without
// ldflags it falls back to the module version, then "dev".
func String() string {
	v := Version
	if v == "" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			v = info.Main.Version
		}
	}
	if v == "" {
		v = "dev"
	}
	if Commit != "" {
		short := Commit
		if len(short) > 7 {
			short = short[:7]
		}
		v += "+" + short
	}
	return v
}
