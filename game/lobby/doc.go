// Package lobby implements the lobby lifecycle engine.
//
// The lobby package implements:
//   - A slot-indexed Registry of waiting lobbies with slot reuse
//   - The waiting phase, swept by a single slow loop under one lock
//   - The active phase, run by one fast loop per game outside the lock
//   - Disconnect reaping with leaving callbacks in descending order
//   - Join selectors ("new" or a hex lobby id)
//
// Core Types:
//
// Registry owns every waiting Lobby. Behavior is the caller's waiting-phase
// logic; when its LobbyUpdate returns a Game, the lobby is moved out of the
// registry into an ActiveGame and driven by its own goroutine until
// Game.Update returns true. The lobby then goes back to the lowest free slot
// with Reset set.
//
// Lobby IDs:
//
// A lobby's id is its slot index. Freed slots are reused lowest-first, so ids
// stay small under churn. Clients share ids in hex (see FormatID).
//
// Player Indexes:
//
// PlayerIndex is a position plus a removal generation. It is valid only for
// the callback that received it; after any removal Lobby.Player reports the
// index as stale.
//
// Usage:
//
//	reg := lobby.NewRegistry[MyLobby, MyPlayer](behavior, lobby.DefaultOptions(), logger)
//	go reg.Run(ctx)
//
//	target, err := lobby.ParseTarget(firstMessage)
//	if err != nil {
//		conn.Close()
//		return
//	}
//	if _, err := reg.CreateOrJoin(ctx, target, conn); err != nil {
//		conn.Close()
//	}
//
// Concurrency:
//
// Waiting-phase callbacks run with the registry lock held and must not
// block. Game callbacks own their lobby exclusively and may block or sleep.
// A panic in any callback shuts down only the lobby it was running for.
package lobby
