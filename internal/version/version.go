// Package version carries build metadata, set at link time with
// -ldflags "-X github.com/banshee-data/rinkspeed/internal/version.Version=...".
package version

var (
	// Version is the release version of the rinkspeed binary.
	Version = "dev"
	// GitSHA is the commit the binary was built from.
	GitSHA = "unknown"
	// BuildTime is the build timestamp.
	BuildTime = "unknown"
)
