// Package service provides the realtime epoch coordinator for pixelsync.
//
// The Coordinator owns the canvas store and every connected session. All
// canvas mutations and all broadcasts run on one event-loop goroutine, so
// the order in which writes are applied is the order in which sessions see
// them. The loop also runs the periodic epoch check and performs rollover:
// capture the archive record, clear the canvas, relabel it with the new
// epoch and broadcast new_epoch.
//
// Persistence runs beside the loop on a worker goroutine. Archive writes
// and snapshots never block the loop; failures are logged, counted and
// retried on the next flush tick.
//
// Storage dependencies are interfaces (CanvasStore, ArchiveStore) so the
// coordinator can be tested without disk I/O.
package service
