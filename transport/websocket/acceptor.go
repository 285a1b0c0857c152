package websocket

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/wricardo/lobbyhost/game/lobby"
	"github.com/wricardo/lobbyhost/game/session"
	"go.uber.org/zap"
)

// Time allowed for the client to send its join selector.
const defaultHandshakeTimeout = 30 * time.Second

// Joiner places a connection into a lobby. *lobby.Registry implements it.
type Joiner interface {
	CreateOrJoin(ctx context.Context, t lobby.Target, ch session.Channel) (int, error)
}

// Options configures an Acceptor.
type Options struct {
	Channel          ChannelOptions
	HandshakeTimeout time.Duration
	// CheckOrigin overrides the upgrader's origin check. Nil allows all
	// origins.
	CheckOrigin func(r *http.Request) bool
}

// Acceptor upgrades HTTP requests to websockets and runs the join handshake:
// the first text message must be "new" or a hex lobby id. Anything else, a
// timeout, or an unknown lobby closes the connection. Nothing is retried.
type Acceptor struct {
	joiner   Joiner
	upgrader websocket.Upgrader
	opts     Options
	log      *zap.Logger
}

// NewAcceptor creates an Acceptor that hands joined connections to j.
func NewAcceptor(j Joiner, opts Options, log *zap.Logger) *Acceptor {
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaultHandshakeTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	checkOrigin := opts.CheckOrigin
	if checkOrigin == nil {
		checkOrigin = func(r *http.Request) bool { return true }
	}
	return &Acceptor{
		joiner: j,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin,
		},
		opts: opts,
		log:  log,
	}
}

// ServeHTTP implements http.Handler.
func (a *Acceptor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		a.log.Debug("websocket upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}

	a.handshake(NewChannel(conn, a.opts.Channel), r.RemoteAddr)
}

func (a *Acceptor) handshake(ch *Channel, remote string) {
	ctx, cancel := context.WithTimeout(context.Background(), a.opts.HandshakeTimeout)
	defer cancel()

	selector, err := session.ReadText(ctx, ch)
	if err != nil {
		a.log.Debug("handshake aborted", zap.String("remote", remote), zap.Error(err))
		ch.Close()
		return
	}

	target, err := lobby.ParseTarget(selector)
	if err != nil {
		a.log.Debug("handshake rejected", zap.String("remote", remote), zap.Error(err))
		ch.Close()
		return
	}

	id, err := a.joiner.CreateOrJoin(ctx, target, ch)
	if err != nil {
		a.log.Debug("join rejected",
			zap.String("remote", remote),
			zap.Stringer("target", target),
			zap.Error(err))
		ch.Close()
		return
	}

	a.log.Info("player connected",
		zap.String("remote", remote),
		zap.String("lobby", lobby.FormatID(id)),
		zap.Stringer("target", target))
}
