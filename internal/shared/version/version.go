// Package version carries the build version, set with
// -ldflags "-X pyshape/internal/shared/version.Version=...".
package version

var Version = "dev"
