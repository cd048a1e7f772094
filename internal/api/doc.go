// Package api provides the HTTP REST API and WebSocket server for
// Slate Core.
//
// It exposes hardware feature state, automation management, and macro
// record/replay to local clients (tray applets, control panels,
// scripts), plus a WebSocket feed of state changes and execution
// events.
//
// The server follows the same lifecycle pattern as the other
// infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple
// goroutines.
package api
