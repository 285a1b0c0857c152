package lobby

import (
	"context"
	"time"
)

// ActiveGame is a lobby that has left the registry to play a Game. It is
// owned by exactly one game loop for its whole life.
type ActiveGame[S, P any] struct {
	// origin is the slot the lobby occupied when the game started. The lobby
	// may come back to a different slot.
	origin  int
	lobby   *Lobby[S, P]
	game    Game[S, P]
	started time.Time
}

func newActiveGame[S, P any](origin int, l *Lobby[S, P], g Game[S, P]) *ActiveGame[S, P] {
	return &ActiveGame[S, P]{
		origin:  origin,
		lobby:   l,
		game:    g,
		started: time.Now(),
	}
}

// Lobby returns the lobby being played.
func (a *ActiveGame[S, P]) Lobby() *Lobby[S, P] {
	return a.lobby
}

func (a *ActiveGame[S, P]) update(ctx context.Context) bool {
	return a.game.Update(ctx, a.lobby)
}

func (a *ActiveGame[S, P]) reap(ctx context.Context) int {
	return a.lobby.reap(func(i PlayerIndex) {
		a.game.PlayerLeaving(ctx, a.lobby, i)
	})
}

// intoLobby ends the game and hands the lobby back flagged for a reset.
func (a *ActiveGame[S, P]) intoLobby() *Lobby[S, P] {
	a.lobby.Reset = true
	return a.lobby
}
