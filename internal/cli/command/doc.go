// Package command provides the command definitions for pixelsync-cli.
//
// Commands talk to a pixelsync server over its HTTP API. Connection
// settings come from global flags, environment variables or a profile in
// the CLI config file, in that order of precedence.
package command
