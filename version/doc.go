// Package version reports the build of the peer-registry binary.
//
// Version, commit and build time are stamped at link time:
//
//	go build -ldflags "-X github.com/kbukum/peerkit/version.Version=1.4.0"
//
// Unset values fall back to the module build info recorded by the Go
// toolchain.
package version
