// Package tlsroots loads TLS material for pixelsync.
//
//   - roots.go: system roots plus custom CA files, used by pixelsync-cli
//     to trust a self-signed server
//   - watcher.go: the server key pair, reloaded when the files change
package tlsroots
