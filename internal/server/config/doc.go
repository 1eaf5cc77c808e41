// Package config defines the pixelsync-server configuration tree.
//
// Default returns a runnable single-node setup: an 80x80 canvas, three-day
// epochs anchored at 2024-04-02T00:01:00Z, file archives in the data
// directory. Verify rejects settings the server cannot start with and
// reports every problem at once. A *ServerConfig logs itself through
// Sanitize, so the admin token hash never reaches the log.
//
// Values are loaded by internal/infra/confloader from YAML and
// PIXELSYNC_* environment variables.
package config
