package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/websocket"

	"github.com/saeidalz13/battleship-session/internal/logging"
	mb "github.com/saeidalz13/battleship-session/models/battleship"
	mc "github.com/saeidalz13/battleship-session/models/connection"
)

const (
	StageProd = "prod"
	StageDev  = "dev"
)

const defaultPort = 8000

type Server struct {
	port           int
	stage          string
	allowedOrigins map[string]bool
	hashKey        []byte
	logger         *logging.Logger

	Sessions *mb.Manager
	Conns    *mc.Manager

	cookies  *securecookie.SecureCookie
	upgrader websocket.Upgrader
}

type Option func(*Server) error

// NewServer panics on an invalid option, like the rest of the startup path.
func NewServer(sessions *mb.Manager, conns *mc.Manager, optFuncs ...Option) *Server {
	server := Server{
		stage:    StageDev,
		logger:   logging.Discard(),
		Sessions: sessions,
		Conns:    conns,
	}
	for _, opt := range optFuncs {
		if err := opt(&server); err != nil {
			panic(err)
		}
	}
	if server.port == 0 {
		server.port = defaultPort
	}

	if len(server.hashKey) == 0 {
		if server.stage == StageProd {
			panic("a session secret is required in prod")
		}
		// dev cookies do not survive a restart
		server.hashKey = securecookie.GenerateRandomKey(32)
	}
	server.cookies = securecookie.New(server.hashKey, nil)
	server.cookies.SetSerializer(securecookie.JSONEncoder{})

	server.upgrader = websocket.Upgrader{
		// good average time since this is not a high-latency operation such as video streaming
		HandshakeTimeout: time.Second * 5,
		ReadBufferSize:   2048,
		WriteBufferSize:  2048,
		CheckOrigin:      server.checkOrigin,
	}
	return &server
}

func WithPort(port int) Option {
	return func(s *Server) error {
		if port <= 0 || port > 65535 {
			return fmt.Errorf("invalid port: %d", port)
		}
		s.port = port
		return nil
	}
}

func WithStage(stage string) Option {
	return func(s *Server) error {
		if stage != StageProd && stage != StageDev {
			return fmt.Errorf("invalid type of development stage: %s", stage)
		}
		s.stage = stage
		return nil
	}
}

func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) error {
		s.allowedOrigins = make(map[string]bool, len(origins))
		for _, origin := range origins {
			s.allowedOrigins[origin] = true
		}
		return nil
	}
}

func WithSessionSecret(secret string) Option {
	return func(s *Server) error {
		if secret == "" {
			return nil
		}
		if len(secret) < 32 {
			return fmt.Errorf("session secret must be at least 32 bytes")
		}
		s.hashKey = []byte(secret)
		return nil
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Server) error {
		s.logger = logger
		return nil
	}
}

func (s *Server) Addr() string {
	return ":" + strconv.Itoa(s.port)
}

// No configured origins means every origin is accepted. Requests without an
// Origin header do not come from a browser and are let through.
func (s *Server) checkOrigin(r *http.Request) bool {
	if len(s.allowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return s.allowedOrigins[origin]
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("GET /battleship", NewRequestProcessor(s))
	mux.HandleFunc("POST /sessions", s.HandleCreateSession)
	mux.HandleFunc("POST /sessions/join", s.HandleJoinSession)
	mux.HandleFunc("GET /session", s.HandleGetSession)
	mux.HandleFunc("DELETE /session", s.HandleLeaveSession)
	mux.HandleFunc("GET /healthz", s.HandleHealthz)

	return mux
}

func (s *Server) HttpServer() *http.Server {
	return &http.Server{
		Addr:              s.Addr(),
		Handler:           s.Routes(),
		ReadHeaderTimeout: time.Second * 5,
	}
}
