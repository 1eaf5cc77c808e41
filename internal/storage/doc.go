// Package storage provides the durable canvas engine for pixelsync.
//
// The engine combines the in-memory canvas, a write-ahead log and periodic
// snapshots:
//
//   - Canvas: authoritative cell set and epoch label (package memory)
//   - WAL: every paint, clear, rotate and stamp is journaled after it is
//     applied in memory, in apply order
//   - Snapshot: Persist writes the full state together with the WAL offset
//     it covers, then compacts covered WAL segments
//
// Restore loads the newest valid snapshot and replays the WAL from its
// offset. Rotate entries carry the archive record of the closed epoch so
// that an archive lost to a crash can be written again after restart.
//
// Journal failures never reject a mutation. They are logged and reported
// through Config.OnError; the next Persist captures the in-memory state.
package storage
