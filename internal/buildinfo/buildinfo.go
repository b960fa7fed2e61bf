// Package buildinfo exposes version stamps set with -ldflags at build time.
package buildinfo

import "runtime/debug"

var (
	Version = "dev"
	Commit  = ""
	BuiltAt = ""
)

// Info returns the stamped values plus the Go toolchain and module path.
func Info() map[string]string {
	out := map[string]string{
		"version": Version,
		"commit":  Commit,
		"builtAt": BuiltAt,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		out["go"] = bi.GoVersion
		out["module"] = bi.Main.Path
		if Commit == "" {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					out["commit"] = s.Value
				}
			}
		}
	}
	return out
}
