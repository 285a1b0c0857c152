// Package sessiontest provides an in-memory session.Channel for tests.
package sessiontest

import (
	"context"
	"errors"
	"sync"

	"github.com/wricardo/lobbyhost/game/session"
)

// ErrSendFailed is returned by Send after FailSends has been called.
var ErrSendFailed = errors.New("sessiontest: send failed")

// Channel is a scripted session.Channel. Inbound frames are queued with Push
// and read back in order; outbound frames are recorded.
type Channel struct {
	mu       sync.Mutex
	inbound  []session.Frame
	sent     []session.Frame
	failSend bool
	closed   bool
	notify   chan struct{}
}

// NewChannel returns an open, empty channel.
func NewChannel() *Channel {
	return &Channel{notify: make(chan struct{}, 1)}
}

// Push queues inbound frames.
func (c *Channel) Push(frames ...session.Frame) {
	c.mu.Lock()
	c.inbound = append(c.inbound, frames...)
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// PushText queues inbound text frames.
func (c *Channel) PushText(msgs ...string) {
	frames := make([]session.Frame, 0, len(msgs))
	for _, m := range msgs {
		frames = append(frames, session.TextFrame(m))
	}
	c.Push(frames...)
}

// Hangup queues a close frame, as a peer closing the socket would.
func (c *Channel) Hangup() {
	c.Push(session.Frame{Type: session.FrameClose})
}

// FailSends makes every later Send return ErrSendFailed.
func (c *Channel) FailSends() {
	c.mu.Lock()
	c.failSend = true
	c.mu.Unlock()
}

// Sent returns a copy of every frame successfully sent.
func (c *Channel) Sent() []session.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]session.Frame, len(c.sent))
	copy(out, c.sent)
	return out
}

// Texts returns the payloads of all text frames sent so far.
func (c *Channel) Texts() []string {
	var out []string
	for _, f := range c.Sent() {
		if f.Type == session.FrameText {
			out = append(out, string(f.Data))
		}
	}
	return out
}

// Closed reports whether Close has been called.
func (c *Channel) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) TryReceive() (session.Frame, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.Frame{Type: session.FrameClose}, true
	}
	if len(c.inbound) == 0 {
		return session.Frame{}, false
	}
	f := c.inbound[0]
	c.inbound = c.inbound[1:]
	return f, true
}

func (c *Channel) Receive(ctx context.Context) (session.Frame, error) {
	for {
		if f, ok := c.TryReceive(); ok {
			return f, nil
		}
		select {
		case <-c.notify:
		case <-ctx.Done():
			return session.Frame{}, ctx.Err()
		}
	}
}

func (c *Channel) Send(f session.Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return session.ErrChannelClosed
	}
	if c.failSend {
		return ErrSendFailed
	}
	c.sent = append(c.sent, f)
	return nil
}

func (c *Channel) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	select {
	case c.notify <- struct{}{}:
	default:
	}
	return nil
}
