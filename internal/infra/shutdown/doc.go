// Package shutdown runs cleanup hooks when the process is asked to stop.
//
// Usage:
//
//	h := shutdown.NewHandler(15 * time.Second)
//	h.OnShutdown(server.Shutdown)
//	h.OnShutdown(coordinator.Close)
//	err := h.Wait(ctx) // blocks until SIGINT/SIGTERM or ctx is done
//
// Hooks run in reverse order of registration under one shared timeout.
package shutdown
