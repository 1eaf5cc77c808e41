// Package handler implements the pixelsync HTTP API.
//
// Public endpoints (under /api/v1):
//
//   - GET  /epoch, /epoch/countdown: epoch boundaries
//   - GET  /canvas: current canvas with an ETag
//   - POST /pixels: single cell write through the coordinator
//   - GET  /archives, /archives/{epoch}: closed epoch records
//   - GET  /contributors: contributors of the running epoch
//
// Admin endpoints (under /admin/v1) reset the canvas, force a snapshot
// and force an epoch check. Every JSON body uses the Response envelope.
package handler
