// Package mcp provides a Model Context Protocol server for inspecting a
// lobbyhost instance.
//
// The mcp package implements:
//   - MCP tool definitions backed by the REST API
//   - An HTTP handler for posting single JSON-RPC messages
//
// MCP Tools:
//   - list_lobbies: Waiting lobbies with hex ids and player counts
//   - get_lobby: One waiting lobby by hex id
//   - server_status: Health and registry counters
//   - join_protocol: How websocket clients join or create a lobby
//
// The client holds no state of its own. Every tool call is one HTTP request
// to the API, so the MCP server can run in a separate process from the
// lobby host.
//
// Usage:
//
//	// Stdio mode
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
//
//	// HTTP mode
//	mux.Handle("/mcp", client.HTTPHandler())
package mcp
