package lobby

import "context"

// Behavior is the caller-supplied logic for the waiting phase of a lobby.
// S is the lobby's shared state and P the per-player data.
//
// All methods except the two factories run while the registry lock is held,
// so they must not block. id is the lobby's registry slot.
type Behavior[S, P any] interface {
	// NewLobby returns the initial shared state for a new lobby.
	NewLobby() S

	// NewPlayer returns the initial data for a newly joined player.
	NewPlayer() P

	// PlayerJoined runs right after a player has been appended to the lobby.
	PlayerJoined(ctx context.Context, id int, l *Lobby[S, P], player PlayerIndex)

	// PlayerLeaving runs for a disconnected player before it is removed.
	PlayerLeaving(ctx context.Context, id int, l *Lobby[S, P], player PlayerIndex)

	// LobbyUpdate runs once per sweep. A non-nil Game starts the active phase.
	LobbyUpdate(ctx context.Context, id int, l *Lobby[S, P]) Game[S, P]
}

// Game is the active phase of a lobby. Its methods run on the game's own
// goroutine and may block without affecting other lobbies.
type Game[S, P any] interface {
	// Update advances the game. Returning true ends it and sends the lobby
	// back to the registry.
	Update(ctx context.Context, l *Lobby[S, P]) bool

	// PlayerLeaving runs for a disconnected player before it is removed.
	PlayerLeaving(ctx context.Context, l *Lobby[S, P], player PlayerIndex)
}
