// Package websocket provides the WebSocket transport for lobby hosting.
//
// The websocket package implements:
//   - Channel, a session.Channel backed by a gorilla/websocket connection
//   - Acceptor, the HTTP handler that upgrades and runs the join handshake
//
// Join Protocol:
//
// After the upgrade the client sends exactly one text message:
//   - "new" creates a lobby and joins it
//   - a hexadecimal lobby id ("0", "1a") joins that lobby if it exists
//
// Any other message, a handshake timeout, or an id with no lobby behind it
// closes the connection. There is no error reply and no retry.
//
// Frames:
//
// The Channel read pump buffers inbound frames so game loops can poll
// without blocking. Ping and pong control frames are delivered as frames;
// the owning Player answers pings on its next poll.
//
// Usage:
//
//	reg := lobby.NewRegistry(behavior, lobby.DefaultOptions(), log)
//	acc := websocket.NewAcceptor(reg, websocket.Options{}, log)
//	http.Handle("/ws", acc)
package websocket
