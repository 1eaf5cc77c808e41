// Package archive stores the frozen canvas of every closed epoch.
//
// Two backends implement Store:
//
//   - file: one JSON document per epoch, archives/pixels-epoch-<N>.json,
//     the layout read by the export pipeline
//   - badger: records under archive/<N> keys in an embedded Badger DB
//
// Put is create-once for both backends: a second Put for the same epoch
// fails with domain.ErrArchiveExists, which makes a retried or duplicated
// rollover harmless.
package archive
