// Package version reports the gsnodes build version.
package version

import "github.com/Masterminds/semver/v3"

// Version is the release version. Override at build time with:
//
//	go build -ldflags "-X github.com/gimelstudio/gsnodes/internal/version.Version=x.y.z"
var Version = "0.1.0"

// Semver parses Version. An unparsable override yields 0.0.0.
func Semver() *semver.Version {
	v, err := semver.NewVersion(Version)
	if err != nil {
		return semver.New(0, 0, 0, "", "")
	}
	return v
}
