// Package api provides HTTP handlers for inspecting a lobbyhost server.
//
// The api package implements:
//   - Read-only lobby listing and lookup
//   - A health endpoint with registry counters
//   - Mounting of the WebSocket acceptor at /ws
//
// Endpoints:
//
//   - GET /api/lobbies - Waiting lobbies in slot order
//   - GET /api/lobbies/{id} - One waiting lobby, id in hex as clients send it
//   - GET /api/health - Status, lobby/player totals, active game count
//   - GET /ws - WebSocket upgrade followed by the join handshake
//
// Lobbies that are in an active game are not listed; they reappear in the
// listing when their game ends.
//
// Usage:
//
//	srv := api.NewServer(registry, acceptor)
//	http.ListenAndServe(":8080", srv)
//
// Error Handling:
//
// Errors are returned as JSON with an appropriate HTTP status code:
//
//	{"error": "lobby not found"}
package api
