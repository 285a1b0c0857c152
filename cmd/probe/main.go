// Command probe is a terminal client for a lobbyhost server. It dials the
// websocket endpoint, sends the join selector, then forwards each stdin line
// as a text message and prints every message it receives.
package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/lobbyhost/game/lobby"
	"golang.org/x/sync/errgroup"
)

const writeWait = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdin).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		os.Exit(1)
	}
}

func newApp(stdin io.Reader) *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "join a lobbyhost lobby from the terminal",
		ArgsUsage: "[new | <hex lobby id>]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "url",
				Usage:   "websocket endpoint",
				Value:   "ws://localhost:8080/ws",
				Sources: cli.EnvVars("LOBBYHOST_WS_URL"),
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			selector := cmd.Args().First()
			if selector == "" {
				selector = "new"
			}
			// Catch typos locally; the server just hangs up on them.
			if _, err := lobby.ParseTarget(selector); err != nil {
				return err
			}
			return run(ctx, cmd.String("url"), selector, stdin, cmd.Root().Writer)
		},
	}
}

// run joins the lobby and pumps messages until the server closes, stdin ends
// or ctx is cancelled.
func run(ctx context.Context, url, selector string, in io.Reader, out io.Writer) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	defer conn.Close()

	if err := send(conn, selector); err != nil {
		return fmt.Errorf("send selector: %w", err)
	}
	fmt.Fprintf(out, "> %s\n", selector)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
					fmt.Fprintln(out, "* server closed the connection")
					return errClosed
				}
				if gctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("read: %w", err)
			}
			fmt.Fprintf(out, "< %s\n", data)
		}
	})

	g.Go(func() error {
		lines := make(chan string)
		go func() {
			defer close(lines)
			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				lines <- scanner.Text()
			}
		}()

		for {
			select {
			case <-gctx.Done():
				return nil
			case line, ok := <-lines:
				if !ok {
					return errClosed
				}
				if err := send(conn, line); err != nil {
					return fmt.Errorf("send: %w", err)
				}
			}
		}
	})

	// Unblock the reader once either side is finished.
	go func() {
		<-gctx.Done()
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		conn.Close()
	}()

	if err := g.Wait(); err != nil && !errors.Is(err, errClosed) {
		return err
	}
	return nil
}

// errClosed ends the session without reporting an error.
var errClosed = errors.New("session closed")

func send(conn *websocket.Conn, msg string) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, []byte(msg))
}
