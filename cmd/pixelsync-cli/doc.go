// Command pixelsync-cli inspects and administers a pixelsync server over
// its HTTP API.
//
// Usage:
//
//	pixelsync-cli [global options] command [command options] [arguments...]
//
// Examples:
//
//	pixelsync-cli epoch --countdown
//	pixelsync-cli -s https://canvas.example:5443 canvas paint 3 4 '#ff0000'
//	pixelsync-cli -o yaml archive get 12
//	pixelsync-cli admin hash-token
package main
