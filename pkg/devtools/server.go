package devtools

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
)

// Logger is the structured logger the devtools server writes through.
type Logger = logiface.Logger[*stumpy.Event]

// ServerOption configures the devtools server.
type ServerOption func(*Server)

// WithLogger sets the server's logger. Absent, the server is silent.
func WithLogger(logger *Logger) ServerOption {
	return func(s *Server) { s.logger = logger }
}

// Server exposes the cell inventory over HTTP: GET /cells returns the
// JSON inventory, GET /ws streams creation records over a websocket.
type Server struct {
	registry *Registry
	logger   *Logger
	upgrader websocket.Upgrader
	router   chi.Router
}

// NewServer builds a server around registry.
func NewServer(registry *Registry, opts ...ServerOption) *Server {
	s := &Server{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Get("/cells", s.handleCells)
	r.Get("/ws", s.handleWS)
	s.router = r
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

type cellsResponse struct {
	Cells []CellRecord `json:"cells"`
}

func (s *Server) handleCells(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	cells := s.registry.Cells()
	if err := json.NewEncoder(w).Encode(cellsResponse{Cells: cells}); err != nil {
		s.logErr("encode cell inventory", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logErr("websocket upgrade", err)
		return
	}
	defer conn.Close()

	if s.logger != nil {
		s.logger.Info().
			Str(`remote`, r.RemoteAddr).
			Log(`devtools stream opened`)
	}

	// Buffered so a slow client drops records instead of blocking cell
	// construction.
	events := make(chan CellRecord, 64)
	off := s.registry.Subscribe(func(rec CellRecord) {
		select {
		case events <- rec:
		default:
		}
	})
	defer off()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure) {
					s.logErr("websocket read", err)
				}
				return
			}
		}
	}()

	// Replay the current inventory before streaming live records
	for _, rec := range s.registry.Cells() {
		if err := conn.WriteJSON(rec); err != nil {
			s.logErr("websocket replay", err)
			return
		}
	}

	for {
		select {
		case rec := <-events:
			if err := conn.WriteJSON(rec); err != nil {
				s.logErr("websocket write", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (s *Server) logErr(what string, err error) {
	if s.logger == nil {
		return
	}
	s.logger.Err().
		Err(err).
		Str(`op`, what).
		Log(`devtools server error`)
}
