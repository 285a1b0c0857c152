package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/wricardo/lobbyhost/api"
)

// Client is a thin MCP client that proxies to the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
	mcpServer  *server.MCPServer
}

// NewClient creates a new MCP client that calls the REST API
func NewClient(baseURL string) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}

	c.initMCPServer()
	return c
}

// initMCPServer initializes the MCP server with all tools
func (c *Client) initMCPServer() {
	c.mcpServer = server.NewMCPServer(
		"lobbyhost",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`lobbyhost - MCP Interface

This is a thin client that proxies all requests to the lobbyhost REST API.
It is read-only: players join lobbies over the websocket at /ws, not here.

AVAILABLE TOOLS:
- list_lobbies: Waiting lobbies with their hex ids and player counts
- get_lobby: One waiting lobby by hex id
- server_status: Lobby, player and active game totals
- join_protocol: How a websocket client joins or creates a lobby

Lobbies that are currently playing a game do not appear in the listing
until their game ends.`),
	)

	c.registerTools()
}

// registerTools registers all MCP tools
func (c *Client) registerTools() {
	c.mcpServer.AddTool(mcp.Tool{
		Name:        "list_lobbies",
		Description: "List all waiting lobbies in slot order",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleListLobbies)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "get_lobby",
		Description: "Get details of a waiting lobby",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"lobby_id": map[string]interface{}{
					"type":        "string",
					"description": "Lobby id in hexadecimal, as shared with players (e.g. \"0\", \"1a\")",
				},
			},
			Required: []string{"lobby_id"},
		},
	}, c.handleGetLobby)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "server_status",
		Description: "Get server health and lobby/player/game counters",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleServerStatus)

	c.mcpServer.AddTool(mcp.Tool{
		Name:        "join_protocol",
		Description: "Explain how websocket clients create or join a lobby",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, c.handleJoinProtocol)
}

// GetMCPServer returns the underlying MCP server
func (c *Client) GetMCPServer() *server.MCPServer {
	return c.mcpServer
}

// apiCall makes an HTTP request to the REST API
func (c *Client) apiCall(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	url := c.baseURL + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp map[string]string
		json.NewDecoder(resp.Body).Decode(&errResp)
		if msg, ok := errResp["error"]; ok {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("API error: %d", resp.StatusCode)
	}

	if result != nil {
		return json.NewDecoder(resp.Body).Decode(result)
	}

	return nil
}

func (c *Client) handleListLobbies(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var lobbies []api.LobbyInfo
	if err := c.apiCall(ctx, "GET", "/api/lobbies", nil, &lobbies); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLobbyList(lobbies)), nil
}

func (c *Client) handleGetLobby(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	lobbyID, _ := args["lobby_id"].(string)
	lobbyID = strings.TrimSpace(lobbyID)
	if lobbyID == "" {
		return mcp.NewToolResultError("lobby_id is required"), nil
	}

	var info api.LobbyInfo
	if err := c.apiCall(ctx, "GET", "/api/lobbies/"+lobbyID, nil, &info); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatLobby(info)), nil
}

func (c *Client) handleServerStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var health api.Health
	if err := c.apiCall(ctx, "GET", "/api/health", nil, &health); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatHealth(health)), nil
}

func (c *Client) handleJoinProtocol(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + "/ws"
	guide := fmt.Sprintf(`Joining a lobby

1. Open a websocket to %s
2. Send exactly one text message:
   - "new" to create a lobby (it takes the lowest free id)
   - a hex lobby id such as "0" or "1a" to join that lobby
3. Anything else, silence until the handshake timeout, or an id with no
   waiting lobby behind it closes the connection. There is no error reply.

After joining, every further text message goes to the lobby's game logic.
A lobby stays joinable only while it is waiting; once its game starts it
disappears from list_lobbies until the game ends.`, wsURL)

	return mcp.NewToolResultText(guide), nil
}

func formatLobby(info api.LobbyInfo) string {
	return fmt.Sprintf("Lobby %s: %d player(s), reset=%t", info.IDHex, info.Players, info.Reset)
}

func formatLobbyList(lobbies []api.LobbyInfo) string {
	if len(lobbies) == 0 {
		return "No waiting lobbies."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Waiting lobbies (%d):\n", len(lobbies))
	for _, info := range lobbies {
		b.WriteString("- ")
		b.WriteString(formatLobby(info))
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatHealth(h api.Health) string {
	return fmt.Sprintf("Status: %s\nWaiting lobbies: %d\nPlayers waiting: %d\nActive games: %d",
		h.Status, h.Lobbies, h.Players, h.ActiveGames)
}
