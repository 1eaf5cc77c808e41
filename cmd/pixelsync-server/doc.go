// Package main provides the entry point for pixelsync-server.
//
// The server hosts the shared canvas: the realtime websocket endpoint, the
// HTTP API, the admin API and the Prometheus endpoint. It restores the
// canvas from the data directory on start and writes a final snapshot on
// shutdown.
//
// Usage:
//
//	pixelsync-server --config /etc/pixelsync/server.yaml
//	PIXELSYNC_STORAGE__DATA_DIR=/data pixelsync-server --addr :5080
package main
