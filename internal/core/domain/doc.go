// Package domain defines the core domain models for pixelsync.
//
// Domain models are plain values without IO dependencies:
//
//   - Cell, Grid: colored coordinates and the bounds they must fall in
//   - Schedule, Epoch: the wall-clock epoch calendar
//   - ArchiveRecord: the frozen canvas of a closed epoch
//   - Session: a live realtime subscriber
//   - Errors: coded domain errors shared by every transport
package domain
