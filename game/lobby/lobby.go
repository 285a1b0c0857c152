package lobby

import "github.com/wricardo/lobbyhost/game/session"

// PlayerIndex is a short-lived handle to a player in a Lobby. It is only
// valid inside the callback that received it: any removal from the lobby
// invalidates every index handed out before it.
type PlayerIndex struct {
	pos int
	gen uint64
}

// Int returns the player's position in the lobby at the time the index was
// issued.
func (i PlayerIndex) Int() int {
	return i.pos
}

// Lobby is a group of players plus the caller's shared state.
type Lobby[S, P any] struct {
	// State is the caller's shared lobby state.
	State S

	// Reset is true for a new lobby and for one that just came back from a
	// game. Callers should resync their clients and then clear it.
	Reset bool

	players []*session.Player[P]
	// gen counts removals; a PlayerIndex from an older generation is stale.
	gen uint64
}

func newLobby[S, P any](state S) *Lobby[S, P] {
	return &Lobby[S, P]{
		State: state,
		Reset: true,
	}
}

// Len returns the number of players.
func (l *Lobby[S, P]) Len() int {
	return len(l.players)
}

// Players returns the players in join order. The slice must not be modified.
func (l *Lobby[S, P]) Players() []*session.Player[P] {
	return l.players
}

// Player resolves an index. ok is false if the index is stale or out of range.
func (l *Lobby[S, P]) Player(i PlayerIndex) (*session.Player[P], bool) {
	if i.gen != l.gen || i.pos < 0 || i.pos >= len(l.players) {
		return nil, false
	}
	return l.players[i.pos], true
}

// Index returns a handle for the player at position pos.
func (l *Lobby[S, P]) Index(pos int) (PlayerIndex, bool) {
	if pos < 0 || pos >= len(l.players) {
		return PlayerIndex{}, false
	}
	return PlayerIndex{pos: pos, gen: l.gen}, true
}

// Indices returns a handle for every player, in order.
func (l *Lobby[S, P]) Indices() []PlayerIndex {
	out := make([]PlayerIndex, len(l.players))
	for i := range l.players {
		out[i] = PlayerIndex{pos: i, gen: l.gen}
	}
	return out
}

// Broadcast sends msg to every player.
func (l *Lobby[S, P]) Broadcast(msg string) {
	for _, p := range l.players {
		p.Send(msg)
	}
}

func (l *Lobby[S, P]) join(p *session.Player[P]) PlayerIndex {
	l.players = append(l.players, p)
	return PlayerIndex{pos: len(l.players) - 1, gen: l.gen}
}

// remove drops the player at pos, keeping join order, and invalidates all
// outstanding indices.
func (l *Lobby[S, P]) remove(pos int) {
	copy(l.players[pos:], l.players[pos+1:])
	l.players[len(l.players)-1] = nil
	l.players = l.players[:len(l.players)-1]
	l.gen++
}

// reap removes disconnected players from the highest position down, calling
// leaving for each one while it is still in the lobby.
func (l *Lobby[S, P]) reap(leaving func(PlayerIndex)) int {
	removed := 0
	for pos := len(l.players) - 1; pos >= 0; pos-- {
		// Callbacks can mark players disconnected but never remove them,
		// so pos stays in range.
		if !l.players[pos].IsDisconnected() {
			continue
		}
		leaving(PlayerIndex{pos: pos, gen: l.gen})
		l.remove(pos)
		removed++
	}
	return removed
}

// closeAll disconnects every player. Used when a lobby is torn down.
func (l *Lobby[S, P]) closeAll() {
	for _, p := range l.players {
		p.Close()
	}
}
