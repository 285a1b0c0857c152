package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wricardo/lobbyhost/game/session"
	"go.uber.org/zap"
)

// ErrCallbackPanic reports that a Behavior or Game callback panicked and the
// lobby it was running for has been shut down.
var ErrCallbackPanic = errors.New("callback panicked")

const (
	DefaultLobbyTick = 100 * time.Millisecond
	DefaultGameTick  = 10 * time.Millisecond
)

// Options tunes the two scheduling loops.
type Options struct {
	// LobbyTick is the interval of the registry sweep.
	LobbyTick time.Duration
	// GameTick is the interval of each active game's loop.
	GameTick time.Duration
}

// DefaultOptions returns the standard tick rates.
func DefaultOptions() Options {
	return Options{
		LobbyTick: DefaultLobbyTick,
		GameTick:  DefaultGameTick,
	}
}

// Info is a read-only view of a waiting lobby.
type Info struct {
	ID      int
	Players int
	Reset   bool
}

// Registry holds the waiting lobbies in numbered slots and runs the
// scheduling loops. A lobby is either in a slot or owned by one active game,
// never both.
//
// A single mutex guards the slots. It is held for a whole sweep, including
// every waiting-phase callback, or for a single join.
type Registry[S, P any] struct {
	behavior Behavior[S, P]
	opts     Options
	log      *zap.Logger

	mu    sync.Mutex
	slots []*Lobby[S, P]

	active atomic.Int64
	games  sync.WaitGroup
}

// NewRegistry creates an empty registry driven by b.
func NewRegistry[S, P any](b Behavior[S, P], opts Options, log *zap.Logger) *Registry[S, P] {
	if opts.LobbyTick <= 0 {
		opts.LobbyTick = DefaultLobbyTick
	}
	if opts.GameTick <= 0 {
		opts.GameTick = DefaultGameTick
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry[S, P]{
		behavior: b,
		opts:     opts,
		log:      log,
	}
}

// CreateOrJoin adds a player on ch to the lobby chosen by t and returns the
// lobby id. Joining an empty or unknown slot returns ErrLobbyNotFound and
// leaves ch untouched; the caller decides what to do with it.
func (r *Registry[S, P]) CreateOrJoin(ctx context.Context, t Target, ch session.Channel) (int, error) {
	player := session.NewPlayer(ch, r.behavior.NewPlayer())

	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		id int
		l  *Lobby[S, P]
	)
	if t.New {
		l = newLobby[S, P](r.behavior.NewLobby())
		id = r.insertLocked(l)
		r.log.Info("lobby created", zap.String("lobby", FormatID(id)))
	} else {
		l = r.lookupLocked(t.ID)
		if l == nil {
			return 0, fmt.Errorf("%w: %s", ErrLobbyNotFound, FormatID(t.ID))
		}
		id = t.ID
	}

	idx := l.join(player)
	r.log.Debug("player joined",
		zap.String("lobby", FormatID(id)),
		zap.String("player", player.ID),
		zap.Int("index", idx.Int()))

	err := r.protect("player_joined", id, func() {
		r.behavior.PlayerJoined(ctx, id, l, idx)
	})
	if err != nil {
		r.terminateLocked(id, l)
		return 0, err
	}
	return id, nil
}

// Sweep runs one tick of the waiting phase over every occupied slot, in
// slot order: reap disconnected players, drop empty lobbies, then call
// LobbyUpdate and start a game if it returns one.
func (r *Registry[S, P]) Sweep(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, l := range r.slots {
		if l == nil {
			continue
		}
		r.sweepLobby(ctx, id, l)
	}
}

func (r *Registry[S, P]) sweepLobby(ctx context.Context, id int, l *Lobby[S, P]) {
	err := r.protect("player_leaving", id, func() {
		l.reap(func(i PlayerIndex) {
			r.behavior.PlayerLeaving(ctx, id, l, i)
		})
	})
	if err != nil {
		r.terminateLocked(id, l)
		return
	}

	if l.Len() == 0 {
		r.slots[id] = nil
		r.log.Info("lobby closed", zap.String("lobby", FormatID(id)))
		return
	}

	var g Game[S, P]
	err = r.protect("lobby_update", id, func() {
		g = r.behavior.LobbyUpdate(ctx, id, l)
	})
	if err != nil {
		r.terminateLocked(id, l)
		return
	}
	if g == nil {
		return
	}

	r.slots[id] = nil
	r.log.Info("game started",
		zap.String("lobby", FormatID(id)),
		zap.Int("players", l.Len()))
	r.spawn(ctx, newActiveGame(id, l, g))
}

// Run drives the waiting phase every LobbyTick until ctx ends. On the way
// out it waits for active games to stop and disconnects everyone still
// waiting.
func (r *Registry[S, P]) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.LobbyTick)
	defer ticker.Stop()

	r.log.Info("registry running",
		zap.Duration("lobby_tick", r.opts.LobbyTick),
		zap.Duration("game_tick", r.opts.GameTick))

	for {
		select {
		case <-ctx.Done():
			r.games.Wait()
			r.closeAll()
			r.log.Info("registry stopped")
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

func (r *Registry[S, P]) spawn(ctx context.Context, a *ActiveGame[S, P]) {
	r.active.Add(1)
	r.games.Add(1)
	go func() {
		defer r.games.Done()
		defer r.active.Add(-1)
		r.runGame(ctx, a)
	}()
}

// runGame is the fast loop of one active game.
func (r *Registry[S, P]) runGame(ctx context.Context, a *ActiveGame[S, P]) {
	ticker := time.NewTicker(r.opts.GameTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.lobby.closeAll()
			return
		case <-ticker.C:
		}

		var done bool
		err := r.protect("game_update", a.origin, func() {
			done = a.update(ctx)
		})
		if err != nil {
			a.lobby.closeAll()
			return
		}

		if done {
			id := r.insert(a.intoLobby())
			r.log.Info("game ended",
				zap.String("lobby", FormatID(id)),
				zap.String("started_in", FormatID(a.origin)),
				zap.Duration("duration", time.Since(a.started)))
			return
		}

		err = r.protect("game_player_leaving", a.origin, func() {
			a.reap(ctx)
		})
		if err != nil {
			a.lobby.closeAll()
			return
		}
	}
}

// Snapshot lists the waiting lobbies in slot order.
func (r *Registry[S, P]) Snapshot() []Info {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Info, 0, len(r.slots))
	for id, l := range r.slots {
		if l == nil {
			continue
		}
		out = append(out, Info{ID: id, Players: l.Len(), Reset: l.Reset})
	}
	return out
}

// Lookup describes the waiting lobby in slot id.
func (r *Registry[S, P]) Lookup(id int) (Info, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	l := r.lookupLocked(id)
	if l == nil {
		return Info{}, false
	}
	return Info{ID: id, Players: l.Len(), Reset: l.Reset}, true
}

// ActiveGames returns the number of lobbies currently in a game.
func (r *Registry[S, P]) ActiveGames() int {
	return int(r.active.Load())
}

func (r *Registry[S, P]) insert(l *Lobby[S, P]) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(l)
}

// insertLocked puts l in the lowest empty slot, appending if there is none.
func (r *Registry[S, P]) insertLocked(l *Lobby[S, P]) int {
	for id, s := range r.slots {
		if s == nil {
			r.slots[id] = l
			return id
		}
	}
	r.slots = append(r.slots, l)
	return len(r.slots) - 1
}

func (r *Registry[S, P]) lookupLocked(id int) *Lobby[S, P] {
	if id < 0 || id >= len(r.slots) {
		return nil
	}
	return r.slots[id]
}

// terminateLocked shuts down a lobby whose callback panicked.
func (r *Registry[S, P]) terminateLocked(id int, l *Lobby[S, P]) {
	l.closeAll()
	if r.lookupLocked(id) == l {
		r.slots[id] = nil
	}
	r.log.Warn("lobby terminated", zap.String("lobby", FormatID(id)))
}

func (r *Registry[S, P]) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, l := range r.slots {
		if l == nil {
			continue
		}
		l.closeAll()
		r.slots[id] = nil
	}
}

// protect runs fn and turns a panic into ErrCallbackPanic.
func (r *Registry[S, P]) protect(callback string, id int, fn func()) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("callback panicked",
				zap.String("callback", callback),
				zap.String("lobby", FormatID(id)),
				zap.Any("panic", rec),
				zap.Stack("stack"))
			err = fmt.Errorf("%w: %s: %v", ErrCallbackPanic, callback, rec)
		}
	}()
	fn()
	return nil
}
