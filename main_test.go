package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/lobbyhost/api"
	"github.com/wricardo/lobbyhost/game/config"
	"go.uber.org/zap"
)

func TestConstants(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if AppName != "lobbyhost" {
		t.Errorf("Expected app name lobbyhost, got %s", AppName)
	}
}

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(context.Background(), append([]string{AppName}, args...))
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "good.toml")
	require.NoError(t, os.WriteFile(good, []byte("[scheduler]\nlobby_tick = \"50ms\"\n"), 0o644))
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("scheduler:\n  game_tick: 0s\n"), 0o644))

	t.Run("defaults", func(t *testing.T) {
		out, err := runApp(t, "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "configuration OK")
		assert.Contains(t, out, ":8080")
	})

	t.Run("file and flag override", func(t *testing.T) {
		out, err := runApp(t, "--config", good, "--addr", "127.0.0.1:9999", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "lobby tick: 50ms")
		assert.Contains(t, out, "127.0.0.1:9999")
	})

	t.Run("debug switches logging", func(t *testing.T) {
		out, err := runApp(t, "--debug", "validate")
		require.NoError(t, err)
		assert.Contains(t, out, "debug/console")
	})

	t.Run("invalid file", func(t *testing.T) {
		_, err := runApp(t, "--config", bad, "validate")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("ngrok without token", func(t *testing.T) {
		t.Setenv("NGROK_AUTHTOKEN", "")
		t.Setenv("NGROK_AUTH_TOKEN", "")
		_, err := runApp(t, "--ngrok", "validate")
		assert.ErrorIs(t, err, config.ErrInvalidConfig)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := runApp(t, "--config", filepath.Join(dir, "nope.toml"), "validate")
		assert.ErrorIs(t, err, config.ErrConfigNotFound)
	})
}

func TestBaseURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{"[::]:8080", "http://127.0.0.1:8080"},
		{"0.0.0.0:9000", "http://127.0.0.1:9000"},
		{"127.0.0.1:1234", "http://127.0.0.1:1234"},
		{"10.1.2.3:80", "http://10.1.2.3:80"},
	}
	for _, tt := range tests {
		addr, err := net.ResolveTCPAddr("tcp", tt.addr)
		require.NoError(t, err)
		assert.Equal(t, tt.want, baseURL(addr), tt.addr)
	}
}

// TestServe runs the whole server on a loopback port, plays the join
// handshake over a real websocket and checks the API sees the lobby.
func TestServe(t *testing.T) {
	cfg := config.Default()
	cfg.Scheduler.LobbyTick = 5 * time.Millisecond

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	url := baseURL(ln.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, cfg, zap.NewNop(), ln) }()

	wsURL := "ws" + strings.TrimPrefix(url, "http") + "/ws"
	conn, _, err := gorillaws.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(gorillaws.TextMessage, []byte("new")))

	// The demo game greets the new lobby with its roster on the next sweep.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var view struct {
		Type  string `json:"type"`
		Lobby string `json:"lobby"`
	}
	require.NoError(t, json.Unmarshal(data, &view))
	assert.Equal(t, "lobby", view.Type)
	assert.Equal(t, "0", view.Lobby)

	resp, err := http.Get(url + "/api/lobbies/0")
	require.NoError(t, err)
	var info api.LobbyInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	assert.Equal(t, api.LobbyInfo{ID: 0, IDHex: "0", Players: 1, Reset: false}, info)

	resp, err = http.Post(url+"/mcp", "application/json",
		strings.NewReader(`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"server_status","arguments":{}}}`))
	require.NoError(t, err)
	var rpc bytes.Buffer
	rpc.ReadFrom(resp.Body)
	resp.Body.Close()
	assert.Contains(t, rpc.String(), "Waiting lobbies: 1")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	// Shutdown disconnects waiting players.
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}
