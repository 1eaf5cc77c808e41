// Package memory holds the authoritative in-memory canvas.
//
// Canvas maps grid coordinates to colors under a single RWMutex: reads
// (Snapshot, Get, Len) share the lock, mutations (Apply, Clear, Rotate,
// Load) take it exclusively, so a Clear can never interleave with an
// Apply and no write is ever partially applied.
//
// Canvas also carries the epoch label of its contents and the set of
// contributors seen since the last rotation. It does no IO; durability is
// layered on top by the storage engine.
package memory
