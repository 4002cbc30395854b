// Package version exposes build metadata stamped at link time, e.g.
//
//	go build -ldflags "-X github.com/superbrain-ai/superbrain/internal/version.Version=v0.3.0"
package version

//nolint:revive // Set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
	Date    = "unknown"
)
