// Package version exposes build-time version information.
// The variables are injected at build time via -ldflags.
package version

// Build-time variables. Overridden by the linker:
//
//	go build -ldflags "-X github.com/modelmux/modelmux/internal/version.Version=v0.2.0"
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)

// Short returns the bare version string.
func Short() string {
	return Version
}

// Info returns a human-readable one-line version summary.
func Info() string {
	return "modelmux " + Version + " (commit " + Commit + ", built " + Date + ")"
}

// Map returns all version fields for JSON responses.
func Map() map[string]string {
	return map[string]string{
		"version": Version,
		"commit":  Commit,
		"date":    Date,
	}
}
