// Command lobbyhost hosts websocket game lobbies.
//
// It supports three subcommands:
//  1. "serve" (default) – runs the lobby registry and an HTTP server exposing
//     the websocket join endpoint, the REST API and an /mcp endpoint
//  2. "mcp" – runs an MCP stdio server against an existing lobbyhost API, or
//     an internal one if none is reachable
//  3. "validate" – loads and validates the configuration, then exits
//
// Configuration comes from built-in defaults, an optional TOML or YAML file,
// a .env file, environment variables and flags, in increasing precedence.
// An ngrok tunnel can expose the server for development.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"
	"github.com/urfave/cli/v3"
	"github.com/wricardo/lobbyhost/api"
	"github.com/wricardo/lobbyhost/game/config"
	"github.com/wricardo/lobbyhost/game/lobby"
	"github.com/wricardo/lobbyhost/games/timer"
	"github.com/wricardo/lobbyhost/logging"
	"github.com/wricardo/lobbyhost/transport/mcp"
	"github.com/wricardo/lobbyhost/transport/websocket"
	"go.uber.org/zap"
	"golang.ngrok.com/ngrok"
	ngrokConfig "golang.ngrok.com/ngrok/config"
	"golang.org/x/sync/errgroup"
)

// Version information
const (
	Version = "1.0.0"
	AppName = "lobbyhost"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load .env file if it exists (ignore error if not found)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: Error loading .env file: %v\n", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", AppName, err)
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:    AppName,
		Usage:   "host websocket game lobbies",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "TOML or YAML configuration file",
				Sources: cli.EnvVars("LOBBYHOST_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "addr",
				Usage:   "HTTP listen address (overrides server.addr)",
				Sources: cli.EnvVars("LOBBYHOST_ADDR"),
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "debug level console logging",
				Sources: cli.EnvVars("LOBBYHOST_DEBUG"),
			},
			&cli.BoolFlag{
				Name:    "ngrok",
				Usage:   "expose the server through an ngrok tunnel",
				Sources: cli.EnvVars("NGROK_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "ngrok-authtoken",
				Usage:   "ngrok auth token",
				Sources: cli.EnvVars("NGROK_AUTHTOKEN", "NGROK_AUTH_TOKEN"),
			},
			&cli.StringFlag{
				Name:    "ngrok-domain",
				Usage:   "custom ngrok domain",
				Sources: cli.EnvVars("NGROK_DOMAIN"),
			},
		},
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "run the lobby host (default)",
				Action: runServe,
			},
			{
				Name:  "mcp",
				Usage: "run an MCP stdio server for a lobbyhost API",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "api-url",
						Usage:   "lobbyhost API to proxy; an internal server starts if it is unreachable",
						Value:   "http://localhost:8080",
						Sources: cli.EnvVars("LOBBYHOST_API_URL"),
					},
				},
				Action: runStdioMCP,
			},
			{
				Name:   "validate",
				Usage:  "check the configuration and exit",
				Action: runValidate,
			},
		},
	}
}

// loadConfig merges the config file with flag and environment overrides and
// validates the result.
func loadConfig(cmd *cli.Command) (*config.Config, error) {
	cfg, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("addr") {
		cfg.Server.Addr = cmd.String("addr")
	}
	if cmd.Bool("debug") {
		cfg.Logging.Level = "debug"
		cfg.Logging.Format = "console"
	}
	if cmd.IsSet("ngrok") {
		cfg.Ngrok.Enabled = cmd.Bool("ngrok")
	}
	if token := cmd.String("ngrok-authtoken"); token != "" {
		cfg.Ngrok.AuthToken = token
	}
	if domain := cmd.String("ngrok-domain"); domain != "" {
		cfg.Ngrok.Domain = domain
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runValidate(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	w := cmd.Root().Writer
	fmt.Fprintln(w, "configuration OK")
	fmt.Fprintf(w, "  listen:     %s\n", cfg.Server.Addr)
	fmt.Fprintf(w, "  lobby tick: %s\n", cfg.Scheduler.LobbyTick)
	fmt.Fprintf(w, "  game tick:  %s\n", cfg.Scheduler.GameTick)
	fmt.Fprintf(w, "  logging:    %s/%s\n", cfg.Logging.Level, cfg.Logging.Format)
	fmt.Fprintf(w, "  ngrok:      %t\n", cfg.Ngrok.Enabled)
	return nil
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Server.Addr, err)
	}

	log.Info("starting", zap.String("app", AppName), zap.String("version", Version))
	return serve(ctx, cfg, log, ln)
}

// serve runs the registry, the HTTP server on ln and the optional ngrok
// tunnel until ctx ends or one of them fails.
func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, ln net.Listener) error {
	reg := lobby.NewRegistry[timer.LobbyState, timer.PlayerState](
		timer.New(timer.Options{}, log.Named("timer")),
		lobby.Options{
			LobbyTick: cfg.Scheduler.LobbyTick,
			GameTick:  cfg.Scheduler.GameTick,
		},
		log.Named("registry"),
	)

	handler := newHandler(cfg, reg, baseURL(ln.Addr()), log)
	httpServer := &http.Server{
		Handler: handler,
		// Websocket connections outlive any request timeout, so only the
		// header read is bounded.
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return reg.Run(gctx)
	})

	g.Go(func() error {
		addr := ln.Addr().String()
		log.Info("http server listening",
			zap.String("addr", addr),
			zap.String("websocket", "ws://"+addr+"/ws"),
			zap.String("api", "http://"+addr+"/api"),
			zap.String("mcp", "http://"+addr+"/mcp"))

		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if cfg.Ngrok.Enabled {
		g.Go(func() error {
			return serveNgrok(gctx, cfg.Ngrok, handler, log.Named("ngrok"))
		})
	}

	err := g.Wait()
	log.Info("server stopped")
	return err
}

// newHandler mounts the websocket acceptor, the REST API and the /mcp
// endpoint on one router.
func newHandler(cfg *config.Config, reg *lobby.Registry[timer.LobbyState, timer.PlayerState], selfURL string, log *zap.Logger) http.Handler {
	acceptor := websocket.NewAcceptor(reg, websocket.Options{
		Channel: websocket.ChannelOptions{
			ReadLimit: cfg.Server.ReadLimit,
			WriteWait: cfg.Server.WriteWait,
			Buffer:    cfg.Server.ChannelBuffer,
		},
		HandshakeTimeout: cfg.Server.HandshakeTimeout,
	}, log.Named("acceptor"))

	apiServer := api.NewServer(reg, acceptor)

	mcpClient := mcp.NewClient(selfURL)
	apiServer.Router().Handle("/mcp", mcpClient.HTTPHandler())

	return apiServer
}

// serveNgrok serves h through an ngrok tunnel. A tunnel that cannot be
// established is logged and does not stop the server.
func serveNgrok(ctx context.Context, cfg config.NgrokConfig, h http.Handler, log *zap.Logger) error {
	var tunnel ngrokConfig.Tunnel
	if cfg.Domain != "" {
		tunnel = ngrokConfig.HTTPEndpoint(ngrokConfig.WithDomain(cfg.Domain))
	} else {
		tunnel = ngrokConfig.HTTPEndpoint()
	}

	tun, err := ngrok.Listen(ctx, tunnel, ngrok.WithAuthtoken(cfg.AuthToken))
	if err != nil {
		log.Error("failed to start ngrok tunnel", zap.Error(err))
		return nil
	}

	url := tun.URL()
	log.Info("ngrok tunnel established",
		zap.String("url", url),
		zap.String("api", url+"/api"),
		zap.String("mcp", url+"/mcp"))

	srv := &http.Server{Handler: h, ReadHeaderTimeout: 15 * time.Second}
	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	if err := srv.Serve(tun); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Warn("ngrok server error", zap.Error(err))
	}
	log.Info("ngrok tunnel closed")
	return nil
}

// runStdioMCP runs an MCP stdio server. It reuses the API at --api-url if it
// answers; otherwise it starts an internal lobby host on a random loopback
// port and targets that.
func runStdioMCP(ctx context.Context, cmd *cli.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return err
	}
	defer log.Sync()

	apiURL := cmd.String("api-url")
	if !apiReachable(ctx, apiURL) {
		log.Info("no external API server found, starting internal one", zap.String("checked", apiURL))

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("listen for internal server: %w", err)
		}
		cfg.Ngrok.Enabled = false

		internalCtx, cancel := context.WithCancel(ctx)
		done := make(chan error, 1)
		go func() { done <- serve(internalCtx, cfg, log, ln) }()
		defer func() {
			cancel()
			if err := <-done; err != nil {
				log.Warn("internal server stopped with error", zap.Error(err))
			}
		}()

		apiURL = baseURL(ln.Addr())
	}

	log.Info("MCP stdio server ready", zap.String("api", apiURL))
	return server.ServeStdio(mcp.NewClient(apiURL).GetMCPServer())
}

func apiReachable(ctx context.Context, apiURL string) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "GET", apiURL+"/api/health", nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// baseURL turns a listen address into a URL this process can call itself on.
func baseURL(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return "http://" + addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port)
}
