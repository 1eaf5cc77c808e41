// Package logger builds the *slog.Logger used across pixelsync.
//
// Every logger built by New shares one level variable, so a config reload
// calling SetLevel changes all of them. Attributes are redacted before
// encoding: admin tokens keep only a short prefix and values under
// secret-looking keys are replaced.
//
// Components receive a plain *slog.Logger. Request-scoped code uses L(ctx),
// and attrs.go holds the attributes shared by the canvas, coordinator and
// transport logs.
package logger
