// Package httpserver provides the HTTP/HTTPS server for pixelsync.
//
// The router mounts the API handler, the websocket endpoint and the
// Prometheus scrape endpoint:
//
//   - Public endpoints: /api/v1/epoch, /api/v1/canvas, /api/v1/pixels,
//     /api/v1/archives, /api/v1/contributors
//   - Admin endpoints: /admin/v1/* (bcrypt admin token, optional IP allowlist)
//   - Health endpoints: /health, /ready, /metrics
//   - Realtime endpoint: /ws by default
//
// Every route has its own middleware chain: RequestID, AccessLog and
// Recover always, then CORS and per-IP RateLimit on the public API, or
// NetworkACL and AdminAuth on the admin API.
package httpserver
