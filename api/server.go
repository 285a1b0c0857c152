package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/wricardo/lobbyhost/game/lobby"
)

// Directory is the read-only view of the lobby registry the API exposes.
// *lobby.Registry implements it.
type Directory interface {
	Snapshot() []lobby.Info
	Lookup(id int) (lobby.Info, bool)
	ActiveGames() int
}

// LobbyInfo is the JSON form of a waiting lobby.
type LobbyInfo struct {
	ID      int    `json:"id"`
	IDHex   string `json:"id_hex"`
	Players int    `json:"players"`
	Reset   bool   `json:"reset"`
}

// Health is the JSON body of GET /api/health.
type Health struct {
	Status      string `json:"status"`
	Lobbies     int    `json:"lobbies"`
	Players     int    `json:"players"`
	ActiveGames int    `json:"active_games"`
}

// Server represents the REST API server
type Server struct {
	lobbies Directory
	ws      http.Handler
	router  *mux.Router
}

// NewServer creates a new API server. ws, if not nil, is mounted at /ws.
func NewServer(lobbies Directory, ws http.Handler) *Server {
	s := &Server{
		lobbies: lobbies,
		ws:      ws,
		router:  mux.NewRouter(),
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures all API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/lobbies", s.handleListLobbies).Methods("GET")
	api.HandleFunc("/lobbies/{id}", s.handleGetLobby).Methods("GET")
	api.HandleFunc("/health", s.handleHealth).Methods("GET")

	if s.ws != nil {
		s.router.Handle("/ws", s.ws)
	}
}

// Router exposes the underlying router so callers can mount extra routes.
func (s *Server) Router() *mux.Router {
	return s.router
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func toLobbyInfo(info lobby.Info) LobbyInfo {
	return LobbyInfo{
		ID:      info.ID,
		IDHex:   lobby.FormatID(info.ID),
		Players: info.Players,
		Reset:   info.Reset,
	}
}

func (s *Server) handleListLobbies(w http.ResponseWriter, r *http.Request) {
	snapshot := s.lobbies.Snapshot()

	out := make([]LobbyInfo, 0, len(snapshot))
	for _, info := range snapshot {
		out = append(out, toLobbyInfo(info))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetLobby(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["id"]

	// Same id syntax the websocket join uses.
	target, err := lobby.ParseTarget(raw)
	if err != nil || target.New {
		respondError(w, http.StatusBadRequest, "invalid lobby id: "+raw)
		return
	}

	info, ok := s.lobbies.Lookup(target.ID)
	if !ok {
		respondError(w, http.StatusNotFound, lobby.ErrLobbyNotFound.Error())
		return
	}
	respondJSON(w, http.StatusOK, toLobbyInfo(info))
}

// Health check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := Health{Status: "healthy", ActiveGames: s.lobbies.ActiveGames()}
	for _, info := range s.lobbies.Snapshot() {
		h.Lobbies++
		h.Players += info.Players
	}
	respondJSON(w, http.StatusOK, h)
}
