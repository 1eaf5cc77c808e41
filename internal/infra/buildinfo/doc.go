// Package buildinfo exposes build information injected via ldflags:
//
//	go build -ldflags "-X github.com/yndnr/pixelsync/internal/infra/buildinfo.Version=v1.0.0"
//
// Values not injected fall back to what the Go toolchain embedded in the
// binary (module version, VCS revision and time).
package buildinfo
