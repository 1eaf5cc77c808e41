// Package config reads and writes the pixelsync-cli profile file
// (~/.pixelsync/cli.yaml). A profile names a server together with the
// admin token and TLS settings used to reach it.
package config
