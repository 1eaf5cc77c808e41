// Package wsserver is the realtime websocket endpoint.
//
// Each connection becomes one session registered with the coordinator.
// Frames are JSON envelopes {"event": name, "data": payload} in both
// directions. Inbound events are write, write_batch and
// request_epoch_info; everything the coordinator emits is written back by
// a per-session writer goroutine.
//
// A session whose outbound queue fills up is disconnected rather than
// allowed to stall broadcasts to everyone else.
package wsserver
