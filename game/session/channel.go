package session

import (
	"context"
	"errors"
)

// ErrChannelClosed is returned by Channel implementations once the
// underlying connection has been closed.
var ErrChannelClosed = errors.New("channel closed")

// FrameType identifies the kind of a frame read from or written to a Channel.
type FrameType int

const (
	FrameText FrameType = iota + 1
	FrameBinary
	FramePing
	FramePong
	FrameClose
)

// String returns a short name for logging.
func (t FrameType) String() string {
	switch t {
	case FrameText:
		return "text"
	case FrameBinary:
		return "binary"
	case FramePing:
		return "ping"
	case FramePong:
		return "pong"
	case FrameClose:
		return "close"
	default:
		return "unknown"
	}
}

// Frame is a single message on a Channel.
type Frame struct {
	Type FrameType
	Data []byte
}

// TextFrame builds a text frame from a string.
func TextFrame(msg string) Frame {
	return Frame{Type: FrameText, Data: []byte(msg)}
}

// Channel is a bidirectional message duplex for one participant.
//
// TryReceive never blocks; it reports false when nothing is buffered.
// Receive blocks until a frame arrives or ctx ends. After the peer goes away
// both receive methods keep returning a FrameClose frame.
type Channel interface {
	TryReceive() (Frame, bool)
	Receive(ctx context.Context) (Frame, error)
	Send(f Frame) error
	Close() error
}

// ReadText blocks until ch yields a text message. Pings are answered and
// other non-text frames skipped. A close frame returns ErrChannelClosed.
func ReadText(ctx context.Context, ch Channel) (string, error) {
	for {
		f, err := ch.Receive(ctx)
		if err != nil {
			return "", err
		}
		switch f.Type {
		case FrameText:
			return string(f.Data), nil
		case FrameClose:
			return "", ErrChannelClosed
		case FramePing:
			_ = ch.Send(Frame{Type: FramePong, Data: f.Data})
		}
	}
}
