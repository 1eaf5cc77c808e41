// Package connection is the HTTP client pixelsync-cli uses to reach a
// server. It unwraps the standard response envelope and turns error
// envelopes into *APIError values.
package connection
