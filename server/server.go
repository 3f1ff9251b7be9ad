// Package server exposes the session bootstrap, the provider endpoints
// and the tool dispatch over HTTP.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/tutumi2011kt-gif/mulmochat/callbacks"
	"github.com/tutumi2011kt-gif/mulmochat/providers/browseapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/imageapi"
	"github.com/tutumi2011kt-gif/mulmochat/providers/realtime"
	"github.com/tutumi2011kt-gif/mulmochat/store"
	"github.com/tutumi2011kt-gif/mulmochat/tools"
)

var logger = xlog.NewPackageLogger("github.com/tutumi2011kt-gif/mulmochat", "server")

const (
	// maxBodySize limits the request bodies
	maxBodySize = 1 << 20
	// maxImageBodySize limits the generate-image body,
	// which carries the session images
	maxImageBodySize = 32 << 20
)

// SecretIssuer issues ephemeral credentials of the realtime session
type SecretIssuer interface {
	Session(instructions string, tools any) *realtime.SessionConfig
	CreateClientSecret(ctx context.Context, session *realtime.SessionConfig) (*realtime.ClientSecret, error)
}

// Config of the Server
type Config struct {
	// Environment is reported by /api/config
	Environment string
	// StaticDir of the web client, not served when empty
	StaticDir string
	// Instructions of the realtime session
	Instructions string
	// GoogleMapKey is passed to the client, and enables the map tool
	GoogleMapKey string
}

// Deps of the Server
type Deps struct {
	Dispatcher *tools.Dispatcher
	Store      store.SessionStore
	// Scratchpad tracks tool activity per session, optional
	Scratchpad *callbacks.Scratchpad
	// Realtime is nil when the OpenAI key is not configured
	Realtime SecretIssuer
	Images   imageapi.Generator
	Browser  browseapi.Browser
}

// Server serves the API
type Server struct {
	cfg  Config
	deps Deps
}

// New returns a Server
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Dispatcher == nil {
		return nil, errors.New("dispatcher is required")
	}
	if deps.Store == nil {
		return nil, errors.New("session store is required")
	}
	if deps.Images == nil {
		return nil, errors.New("image generator is required")
	}
	if deps.Browser == nil {
		return nil, errors.New("browser is required")
	}
	return &Server{cfg: cfg, deps: deps}, nil
}

// Capabilities returns the capabilities of new sessions
func (s *Server) Capabilities() tools.Capabilities {
	var caps tools.Capabilities
	if s.cfg.GoogleMapKey != "" {
		caps = append(caps, tools.CapabilityMapKey)
	}
	return caps
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/config", s.handleConfig)
		r.Get("/start", s.startSession)
		r.Post("/generate-image", s.generateImage)
		r.Post("/browse", s.browse)

		r.Route("/sessions/{session_id}", func(r chi.Router) {
			r.Get("/tools", s.listTools)
			r.Post("/tools/{tool_name}", s.executeTool)
			r.Get("/images", s.listImages)
			r.Delete("/", s.endSession)
		})
	})

	if web := webStaticHandler(s.cfg.StaticDir); web != nil {
		r.Get("/*", web)
	}
	return r
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "OK", Message: "Server is running"})
}

type configResponse struct {
	Environment string `json:"environment"`
	Timestamp   string `json:"timestamp"`
}

func (s *Server) handleConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		Environment: s.cfg.Environment,
		Timestamp:   nowISO(),
	})
}

// ErrorResponse is returned on failures
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}

func writeErr(w http.ResponseWriter, code int, message, details string) {
	writeJSON(w, code, ErrorResponse{Error: message, Details: details})
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
