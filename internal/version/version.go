// Package version contains the version of the tool.
package version

// version is set at build time with -ldflags "-X".
var version = "dev"

// Version returns the version of the tool.
func Version() (v string) {
	return version
}
