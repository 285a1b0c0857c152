package lobby

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wricardo/lobbyhost/game/session"
	"github.com/wricardo/lobbyhost/game/session/sessiontest"
)

func newPlayers(l *testLobby, names ...string) []*sessiontest.Channel {
	chans := make([]*sessiontest.Channel, 0, len(names))
	for _, n := range names {
		ch := sessiontest.NewChannel()
		l.join(session.NewPlayer(ch, playerData{name: n}))
		chans = append(chans, ch)
	}
	return chans
}

func TestLobby_New(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{token: 9})

	assert.True(t, l.Reset)
	assert.Equal(t, 9, l.State.token)
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.Indices())
}

func TestLobby_Indices(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	newPlayers(l, "a", "b", "c")

	indices := l.Indices()
	require.Len(t, indices, 3)
	for pos, i := range indices {
		assert.Equal(t, pos, i.Int())
		p, ok := l.Player(i)
		require.True(t, ok)
		assert.Same(t, l.Players()[pos], p)
	}
}

func TestLobby_IndexSurvivesJoin(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	newPlayers(l, "a")
	first := l.Indices()[0]

	newPlayers(l, "b", "c")

	p, ok := l.Player(first)
	require.True(t, ok)
	assert.Equal(t, "a", p.Data.name)
}

func TestLobby_IndexInvalidatedByRemoval(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	newPlayers(l, "a", "b", "c")
	last := l.Indices()[2]

	l.remove(0)

	_, ok := l.Player(last)
	assert.False(t, ok, "stale index must not resolve to a different player")

	fresh, ok := l.Index(1)
	require.True(t, ok)
	p, ok := l.Player(fresh)
	require.True(t, ok)
	assert.Equal(t, "c", p.Data.name)
}

func TestLobby_Index(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	newPlayers(l, "a")

	_, ok := l.Index(-1)
	assert.False(t, ok)
	_, ok = l.Index(1)
	assert.False(t, ok)
	_, ok = l.Player(PlayerIndex{pos: 5})
	assert.False(t, ok)
}

func TestLobby_RemoveKeepsOrder(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	newPlayers(l, "a", "b", "c", "d")

	l.remove(1)

	var names []string
	for _, p := range l.Players() {
		names = append(names, p.Data.name)
	}
	assert.Equal(t, []string{"a", "c", "d"}, names)
}

func TestLobby_Broadcast(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	chans := newPlayers(l, "a", "b")
	chans[1].FailSends()

	l.Broadcast("hi")

	assert.Equal(t, []string{"hi"}, chans[0].Texts())
	assert.False(t, l.Players()[0].IsDisconnected())
	assert.True(t, l.Players()[1].IsDisconnected())
}

func TestLobby_Reap(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	chans := newPlayers(l, "a", "b", "c")
	chans[0].FailSends()
	chans[2].FailSends()
	l.Broadcast("x")

	var got []string
	n := l.reap(func(i PlayerIndex) {
		p, ok := l.Player(i)
		require.True(t, ok)
		got = append(got, p.Data.name)
	})

	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"c", "a"}, got)
	require.Equal(t, 1, l.Len())
	assert.Equal(t, "b", l.Players()[0].Data.name)
}

func TestLobby_CloseAll(t *testing.T) {
	l := newLobby[lobbyState, playerData](lobbyState{})
	chans := newPlayers(l, "a", "b")

	l.closeAll()

	for i, ch := range chans {
		assert.True(t, ch.Closed())
		assert.True(t, l.Players()[i].IsDisconnected())
	}
}

func TestParseTarget(t *testing.T) {
	tests := []struct {
		in      string
		want    Target
		wantErr bool
	}{
		{in: "new", want: NewLobbyTarget()},
		{in: "0", want: ExistingTarget(0)},
		{in: "a", want: ExistingTarget(10)},
		{in: "A", want: ExistingTarget(10)},
		{in: "1F", want: ExistingTarget(31)},
		{in: "ff", want: ExistingTarget(255)},
		{in: "", wantErr: true},
		{in: "NEW", wantErr: true},
		{in: "0x1", wantErr: true},
		{in: "-1", wantErr: true},
		{in: "zz", wantErr: true},
		{in: " 1", wantErr: true},
		{in: "ffffffffff", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTarget(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTarget)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTarget_String(t *testing.T) {
	assert.Equal(t, "new", NewLobbyTarget().String())
	assert.Equal(t, "1f", ExistingTarget(31).String())
	assert.Equal(t, "0", FormatID(0))
}
