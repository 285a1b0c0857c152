package websocket

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/lobbyhost/game/session"
)

const (
	// Time allowed to write a message to the peer.
	defaultWriteWait = 10 * time.Second

	// Maximum message size allowed from peer.
	defaultReadLimit = 4096

	// Inbound frames buffered before the read pump stalls.
	defaultBuffer = 64

	// Time allowed for the close frame on shutdown.
	closeGrace = 100 * time.Millisecond
)

// ChannelOptions tunes a Channel. Zero values fall back to defaults.
type ChannelOptions struct {
	ReadLimit int64
	WriteWait time.Duration
	Buffer    int
}

func (o ChannelOptions) withDefaults() ChannelOptions {
	if o.ReadLimit <= 0 {
		o.ReadLimit = defaultReadLimit
	}
	if o.WriteWait <= 0 {
		o.WriteWait = defaultWriteWait
	}
	if o.Buffer <= 0 {
		o.Buffer = defaultBuffer
	}
	return o
}

// Channel adapts a gorilla websocket connection to session.Channel.
//
// A read pump goroutine buffers inbound frames so they can be polled without
// blocking. Ping and pong control frames are surfaced as frames instead of
// being answered automatically. Any read error ends the pump; from then on
// every receive yields a close frame.
type Channel struct {
	conn   *websocket.Conn
	opts   ChannelOptions
	frames chan session.Frame
	done   chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
	closeErr  error
}

// NewChannel wraps conn and starts its read pump.
func NewChannel(conn *websocket.Conn, opts ChannelOptions) *Channel {
	opts = opts.withDefaults()
	c := &Channel{
		conn:   conn,
		opts:   opts,
		frames: make(chan session.Frame, opts.Buffer),
		done:   make(chan struct{}),
	}

	conn.SetReadLimit(opts.ReadLimit)
	conn.SetPingHandler(func(data string) error {
		c.push(session.Frame{Type: session.FramePing, Data: []byte(data)})
		return nil
	})
	conn.SetPongHandler(func(data string) error {
		c.push(session.Frame{Type: session.FramePong, Data: []byte(data)})
		return nil
	})

	go c.readPump()
	return c
}

// readPump pumps frames from the websocket connection into the buffer.
func (c *Channel) readPump() {
	defer close(c.frames)

	for {
		mt, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		switch mt {
		case websocket.TextMessage:
			c.push(session.Frame{Type: session.FrameText, Data: data})
		case websocket.BinaryMessage:
			c.push(session.Frame{Type: session.FrameBinary, Data: data})
		}
	}
}

func (c *Channel) push(f session.Frame) {
	select {
	case c.frames <- f:
	case <-c.done:
	}
}

func (c *Channel) TryReceive() (session.Frame, bool) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return session.Frame{Type: session.FrameClose}, true
		}
		return f, true
	default:
		return session.Frame{}, false
	}
}

func (c *Channel) Receive(ctx context.Context) (session.Frame, error) {
	select {
	case f, ok := <-c.frames:
		if !ok {
			return session.Frame{Type: session.FrameClose}, nil
		}
		return f, nil
	case <-ctx.Done():
		return session.Frame{}, ctx.Err()
	}
}

func (c *Channel) Send(f session.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return session.ErrChannelClosed
	default:
	}

	deadline := time.Now().Add(c.opts.WriteWait)
	switch f.Type {
	case session.FrameText:
		c.conn.SetWriteDeadline(deadline)
		return c.conn.WriteMessage(websocket.TextMessage, f.Data)
	case session.FrameBinary:
		c.conn.SetWriteDeadline(deadline)
		return c.conn.WriteMessage(websocket.BinaryMessage, f.Data)
	case session.FramePing:
		return c.conn.WriteControl(websocket.PingMessage, f.Data, deadline)
	case session.FramePong:
		return c.conn.WriteControl(websocket.PongMessage, f.Data, deadline)
	case session.FrameClose:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, string(f.Data))
		return c.conn.WriteControl(websocket.CloseMessage, msg, deadline)
	default:
		return fmt.Errorf("unsupported frame type %s", f.Type)
	}
}

// Close sends a normal closure frame and closes the connection. It is safe to
// call more than once.
func (c *Channel) Close() error {
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGrace))
		c.writeMu.Unlock()

		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
