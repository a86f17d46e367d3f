// Package buildinfo carries version metadata injected at build time.
package buildinfo

// Set via -ldflags="-X ..." by the release build; the defaults identify a
// local development build.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)
