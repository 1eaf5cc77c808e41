// Package snapshot writes and loads full canvas dumps.
//
// A snapshot bounds journal replay: recovery loads the newest valid
// snapshot and replays only the WAL written after its offset.
//
//	snapshot-<timestamp>-<sequence>.snap
//	[magic:8 "PXSYSNAP"]
//	[HeaderLen:4][HeaderJSON:HeaderLen]
//	[DataLen:4][DataJSON:DataLen]
//	[checksum:32 SHA-256 of all bytes above]
//
// Files are written to a temp name and renamed into place, so a crash
// mid-write never leaves a half snapshot under a .snap name. A snapshot
// whose checksum fails is skipped in favour of the next older one.
package snapshot
