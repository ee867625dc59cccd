// Package gateway exposes the chat, identity and broadcast services over HTTP
// and WebSocket.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"treasure-hunt/contract"
	"treasure-hunt/observability"
	"treasure-hunt/services"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

// Broadcaster is the part of the hub the gateway drives.
type Broadcaster interface {
	Register(conn contract.Connection)
	Unregister(conn contract.Connection)
	Relay(ctx context.Context, payload []byte, from contract.Connection)
	Len() int
}

type Options struct {
	AllowedOrigins       []string
	ClientAppURL         string
	ConnectionBufferSize int
	MaxFrameSize         int64
	RelayRate            float64
	RelayBurst           int
}

type Deps struct {
	Chat       services.IChatService
	Identity   services.IIdentityService
	Hub        Broadcaster
	Monitoring *observability.MonitoringManager
	Metrics    *observability.Metrics
	Log        *slog.Logger
	// Counts reports the stored links and messages for /stats
	Counts func() (links, messages int)
}

type Server struct {
	Deps
	options  Options
	upgrader websocket.Upgrader
}

func NewServer(deps Deps, options Options) *Server {
	if options.ConnectionBufferSize <= 0 {
		options.ConnectionBufferSize = 256
	}
	if options.MaxFrameSize <= 0 {
		options.MaxFrameSize = 64 << 10
	}
	if deps.Counts == nil {
		deps.Counts = func() (int, int) { return 0, 0 }
	}
	allowed := newOriginPolicy(options.AllowedOrigins)
	return &Server{
		Deps:    deps,
		options: options,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowed.check,
		},
	}
}

// Router builds the full request surface.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.options.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "route not found", Code: "NotFound"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed", Code: "MethodNotAllowed"})
	})

	r.Get("/", s.serveWS)
	r.Get("/ws", s.serveWS)
	r.Get("/healthz", s.health)
	r.Get("/stats", s.stats)
	r.Method(http.MethodGet, "/metrics", s.Metrics.Handler())

	chat := func(r chi.Router) {
		r.Get("/", s.listChat)
		r.Post("/", s.postChat)
		r.Get("/search", s.searchChat)
	}
	r.Route("/chat", chat)
	r.Route("/api/chat", chat)

	r.Route("/identity", func(r chi.Router) {
		r.Get("/authorize", s.authorize)
		r.Get("/link", s.linkURL)
		r.Get("/callback", s.callback)
		r.Post("/forgive", s.forgive)
		r.Get("/{address}", s.lookup("identity"))
	})
	r.Route("/discord", func(r chi.Router) {
		r.Get("/callback", s.callback)
		r.Post("/forgive", s.forgive)
		r.Get("/{address}", s.lookup("discordId"))
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) stats(w http.ResponseWriter, _ *http.Request) {
	links, messages := s.Counts()
	writeJSON(w, http.StatusOK, s.Monitoring.Snapshot(s.Hub.Len(), links, messages))
}
