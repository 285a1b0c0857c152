package session

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Player wraps one participant's Channel together with caller-defined data.
//
// A Player is not safe for concurrent use. It is owned by whichever
// goroutine currently owns its lobby: the registry sweep while the lobby is
// waiting, or the lobby's game loop while it is active.
type Player[P any] struct {
	// ID identifies the connection in logs. It carries no game meaning.
	ID string

	// Data is the caller's per-player state.
	Data P

	ch Channel
}

// NewPlayer creates a connected player with the given initial data.
func NewPlayer[P any](ch Channel, data P) *Player[P] {
	return &Player[P]{
		ID:   uuid.NewString(),
		Data: data,
		ch:   ch,
	}
}

// Send delivers msg as a text frame. A failed send closes the channel and
// marks the player disconnected; the message is dropped.
func (p *Player[P]) Send(msg string) {
	if p.ch == nil {
		return
	}
	if err := p.ch.Send(TextFrame(msg)); err != nil {
		p.disconnect()
	}
}

// PollMessage returns at most one buffered text message without blocking.
// Control frames are handled here: close disconnects the player, ping is
// answered with a pong, everything else is dropped.
func (p *Player[P]) PollMessage() (string, bool) {
	if p.ch == nil {
		return "", false
	}
	f, ok := p.ch.TryReceive()
	if !ok {
		return "", false
	}
	return p.handle(f)
}

// AwaitMessage blocks until a text message arrives, the player disconnects
// or ctx ends. It is used for the join handshake.
func (p *Player[P]) AwaitMessage(ctx context.Context) (string, bool) {
	if p.ch == nil {
		return "", false
	}
	msg, err := ReadText(ctx, p.ch)
	if errors.Is(err, ErrChannelClosed) {
		p.disconnect()
	}
	return msg, err == nil
}

// IsDisconnected reports whether a send failure or close frame has been seen.
func (p *Player[P]) IsDisconnected() bool {
	return p.ch == nil
}

// Close closes the channel if it is still open.
func (p *Player[P]) Close() {
	p.disconnect()
}

func (p *Player[P]) handle(f Frame) (string, bool) {
	switch f.Type {
	case FrameText:
		return string(f.Data), true
	case FrameClose:
		p.disconnect()
	case FramePing:
		// A failed pong is noticed by the next Send or read.
		_ = p.ch.Send(Frame{Type: FramePong, Data: f.Data})
	}
	return "", false
}

func (p *Player[P]) disconnect() {
	if p.ch == nil {
		return
	}
	_ = p.ch.Close()
	p.ch = nil
}
