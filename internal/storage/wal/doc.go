// Package wal is the canvas journal.
//
// Every accepted mutation is appended before the coordinator broadcasts it,
// so a restart can rebuild the canvas from the newest snapshot plus the
// entries written after it.
//
// Entry types:
//
//   - PAINT: one or more cells applied in a single write or batch
//   - CLEAR: the canvas was reset inside an epoch
//   - ROTATE: an epoch closed; carries the archive record of the closing epoch
//   - STAMP: the canvas was labelled with an epoch without clearing
//
// Segment format:
//
//	wal-<segment-id>.log
//	[magic:8 "PXSYWAL\x01"]
//	[Entry]*
//	[checksum:32 SHA-256 of all bytes above] (absent on the active segment)
//
// Entry wire format:
//
//	[Length:4][CRC32:4][Type:1][Payload:Length-5]
//
// Length counts CRC32 + Type + Payload (big-endian). CRC32 (IEEE) covers
// Type + Payload. Payload is JSON.
//
// Offsets handed out by Writer.CurrentOffset are composite:
// segmentID<<32 | byte offset within the segment.
package wal
