// Package session provides per-participant connection handling.
//
// The session package implements:
//   - The Channel abstraction over a bidirectional message connection
//   - Player, which pairs a Channel with caller-defined data
//   - Non-blocking and blocking message draining
//   - Disconnect detection on send failure or close frame
//
// Message Draining:
//
// PollMessage returns at most one text message per call and never blocks.
// Control frames are consumed on the way: a close frame disconnects the
// player, a ping is answered with a pong, binary and pong frames are dropped.
// AwaitMessage is the blocking form and is only used for the join handshake.
//
// Disconnects:
//
// There is no background heartbeat. A dead connection is noticed the next
// time a message is sent to it or a close frame is read from it, so the
// latency is at most one tick of the loop that owns the player.
//
// Usage:
//
//	p := session.NewPlayer(ch, MyPlayer{})
//	p.Send("hello")
//	if msg, ok := p.PollMessage(); ok {
//		handle(msg)
//	}
//	if p.IsDisconnected() {
//		// reaped by the owning loop
//	}
package session
