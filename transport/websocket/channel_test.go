package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/lobbyhost/game/session"
)

// pair starts a test server that wraps the accepted connection in a Channel
// and returns it together with the client side.
func pair(t *testing.T, opts ChannelOptions) (*Channel, *websocket.Conn) {
	t.Helper()

	accepted := make(chan *Channel, 1)
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		accepted <- NewChannel(conn, opts)
	}))
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case ch := <-accepted:
		t.Cleanup(func() { ch.Close() })
		return ch, client
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
		return nil, nil
	}
}

func receive(t *testing.T, ch *Channel) session.Frame {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	f, err := ch.Receive(ctx)
	require.NoError(t, err)
	return f
}

func TestChannelReceiveText(t *testing.T) {
	ch, client := pair(t, ChannelOptions{})

	_, ok := ch.TryReceive()
	assert.False(t, ok, "nothing buffered yet")

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("hello")))
	f := receive(t, ch)
	assert.Equal(t, session.FrameText, f.Type)
	assert.Equal(t, "hello", string(f.Data))

	require.NoError(t, client.WriteMessage(websocket.BinaryMessage, []byte{1, 2}))
	f = receive(t, ch)
	assert.Equal(t, session.FrameBinary, f.Type)
	assert.Equal(t, []byte{1, 2}, f.Data)
}

func TestChannelSendText(t *testing.T) {
	ch, client := pair(t, ChannelOptions{})

	require.NoError(t, ch.Send(session.TextFrame("ready")))

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	mt, data, err := client.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, websocket.TextMessage, mt)
	assert.Equal(t, "ready", string(data))
}

func TestChannelPingSurfaced(t *testing.T) {
	ch, client := pair(t, ChannelOptions{})

	pongs := make(chan string, 1)
	client.SetPongHandler(func(data string) error {
		pongs <- data
		return nil
	})
	// The client only processes control frames while reading.
	go func() {
		for {
			if _, _, err := client.ReadMessage(); err != nil {
				return
			}
		}
	}()

	require.NoError(t, client.WriteControl(websocket.PingMessage, []byte("p1"), time.Now().Add(time.Second)))
	f := receive(t, ch)
	assert.Equal(t, session.FramePing, f.Type)
	assert.Equal(t, "p1", string(f.Data))

	// Answering through the Channel reaches the client.
	require.NoError(t, ch.Send(session.Frame{Type: session.FramePong, Data: f.Data}))
	select {
	case data := <-pongs:
		assert.Equal(t, "p1", data)
	case <-time.After(2 * time.Second):
		t.Fatal("pong never reached the client")
	}
}

func TestChannelPeerDisconnect(t *testing.T) {
	ch, client := pair(t, ChannelOptions{})

	client.Close()

	f := receive(t, ch)
	assert.Equal(t, session.FrameClose, f.Type)

	// Receiving after close keeps yielding close frames.
	f, ok := ch.TryReceive()
	assert.True(t, ok)
	assert.Equal(t, session.FrameClose, f.Type)
}

func TestChannelClose(t *testing.T) {
	ch, client := pair(t, ChannelOptions{})

	require.NoError(t, ch.Close())
	assert.NotPanics(t, func() { ch.Close() })

	err := ch.Send(session.TextFrame("late"))
	assert.ErrorIs(t, err, session.ErrChannelClosed)

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = client.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestChannelReadLimit(t *testing.T) {
	ch, client := pair(t, ChannelOptions{ReadLimit: 8})

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("far too long for the limit")))
	f := receive(t, ch)
	assert.Equal(t, session.FrameClose, f.Type)
}

func TestChannelOptionsDefaults(t *testing.T) {
	opts := ChannelOptions{}.withDefaults()
	assert.Equal(t, int64(defaultReadLimit), opts.ReadLimit)
	assert.Equal(t, defaultWriteWait, opts.WriteWait)
	assert.Equal(t, defaultBuffer, opts.Buffer)

	opts = ChannelOptions{ReadLimit: 1, WriteWait: time.Second, Buffer: 2}.withDefaults()
	assert.Equal(t, int64(1), opts.ReadLimit)
	assert.Equal(t, time.Second, opts.WriteWait)
	assert.Equal(t, 2, opts.Buffer)
}
