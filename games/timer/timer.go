// Package timer is a small ready-up game hosted by lobbyhost.
//
// Players pick a name with "n<name>" and toggle readiness with "R1" / "R0".
// Once at least MinPlayers are in the lobby and all of them are ready, a
// countdown game broadcasts one tick per Step from 0 to Count and then hands
// the lobby back, where everyone has to ready up again.
package timer

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/wricardo/lobbyhost/game/lobby"
	"github.com/wricardo/lobbyhost/game/session"
	"go.uber.org/zap"
)

const (
	DefaultCount      = 5
	DefaultStep       = time.Second
	DefaultMinPlayers = 2

	defaultName = "new player"
)

// Options tunes the game. Zero values fall back to the defaults.
type Options struct {
	Count      int
	Step       time.Duration
	MinPlayers int
}

// LobbyState is the shared lobby state.
type LobbyState struct {
	// dirty is set by joins and leaves so the next update resends the view.
	dirty bool
}

// PlayerState is the per-player state.
type PlayerState struct {
	Name  string
	Ready bool
}

// Behavior implements lobby.Behavior for the timer game.
type Behavior struct {
	opts Options
	log  *zap.Logger
	now  func() time.Time
}

var _ lobby.Behavior[LobbyState, PlayerState] = (*Behavior)(nil)

// New creates the timer game behavior.
func New(opts Options, log *zap.Logger) *Behavior {
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if opts.Step <= 0 {
		opts.Step = DefaultStep
	}
	if opts.MinPlayers <= 0 {
		opts.MinPlayers = DefaultMinPlayers
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Behavior{opts: opts, log: log, now: time.Now}
}

func (b *Behavior) NewLobby() LobbyState {
	return LobbyState{}
}

func (b *Behavior) NewPlayer() PlayerState {
	return PlayerState{Name: defaultName}
}

func (b *Behavior) PlayerJoined(ctx context.Context, id int, l *lobby.Lobby[LobbyState, PlayerState], player lobby.PlayerIndex) {
	l.State.dirty = true
}

func (b *Behavior) PlayerLeaving(ctx context.Context, id int, l *lobby.Lobby[LobbyState, PlayerState], player lobby.PlayerIndex) {
	l.State.dirty = true
}

func (b *Behavior) LobbyUpdate(ctx context.Context, id int, l *lobby.Lobby[LobbyState, PlayerState]) lobby.Game[LobbyState, PlayerState] {
	update := l.State.dirty
	if l.Reset {
		l.Reset = false
		update = true
		for _, p := range l.Players() {
			p.Data.Ready = false
		}
	}

	for _, p := range l.Players() {
		for {
			msg, ok := p.PollMessage()
			if !ok {
				break
			}
			if applyCommand(p, msg) {
				update = true
			}
		}
	}

	if update {
		l.State.dirty = false
		roster := rosterOf(l)
		for _, idx := range l.Indices() {
			p, _ := l.Player(idx)
			p.Send(encode(lobbyView{
				Type:    "lobby",
				Lobby:   lobby.FormatID(id),
				You:     idx.Int(),
				Players: roster,
			}))
		}
	}

	if l.Len() < b.opts.MinPlayers || !allReady(l) {
		return nil
	}

	b.log.Debug("countdown starting",
		zap.String("lobby", lobby.FormatID(id)),
		zap.Int("players", l.Len()))
	return &countdown{
		count: b.opts.Count,
		step:  b.opts.Step,
		now:   b.now,
		start: b.now(),
		prev:  -1,
	}
}

// applyCommand handles one lobby message and reports whether anything
// visible changed.
func applyCommand(p *session.Player[PlayerState], msg string) bool {
	switch {
	case strings.HasPrefix(msg, "n"):
		name := strings.TrimSpace(msg[1:])
		if name == "" {
			return false
		}
		p.Data.Name = name
	case msg == "R1":
		p.Data.Ready = true
	case msg == "R0":
		p.Data.Ready = false
	default:
		return false
	}
	return true
}

func allReady(l *lobby.Lobby[LobbyState, PlayerState]) bool {
	for _, p := range l.Players() {
		if !p.Data.Ready {
			return false
		}
	}
	return true
}

func rosterOf(l *lobby.Lobby[LobbyState, PlayerState]) []playerView {
	out := make([]playerView, 0, l.Len())
	for _, p := range l.Players() {
		out = append(out, playerView{Name: p.Data.Name, Ready: p.Data.Ready})
	}
	return out
}

// countdown is the active phase: one tick per step, then back to the lobby.
type countdown struct {
	count int
	step  time.Duration
	now   func() time.Time
	start time.Time
	prev  int
}

func (c *countdown) Update(ctx context.Context, l *lobby.Lobby[LobbyState, PlayerState]) bool {
	v := int(c.now().Sub(c.start) / c.step)
	if v != c.prev {
		c.prev = v
		if v > c.count {
			l.Broadcast(encode(tickView{Type: "done", T: c.count}))
			return true
		}
		l.Broadcast(encode(tickView{Type: "tick", T: v}))
	}

	// Input is ignored while counting, but draining it notices disconnects.
	for _, p := range l.Players() {
		for {
			if _, ok := p.PollMessage(); !ok {
				break
			}
		}
	}
	return false
}

func (c *countdown) PlayerLeaving(ctx context.Context, l *lobby.Lobby[LobbyState, PlayerState], player lobby.PlayerIndex) {
	p, ok := l.Player(player)
	if !ok {
		return
	}
	msg := encode(leftView{Type: "left", Name: p.Data.Name})
	for i, other := range l.Players() {
		if i != player.Int() {
			other.Send(msg)
		}
	}
}

type playerView struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

type lobbyView struct {
	Type    string       `json:"type"`
	Lobby   string       `json:"lobby"`
	You     int          `json:"you"`
	Players []playerView `json:"players"`
}

type tickView struct {
	Type string `json:"type"`
	T    int    `json:"t"`
}

type leftView struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		// All views are plain structs of strings, ints and bools.
		panic(err)
	}
	return string(data)
}
