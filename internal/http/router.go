// Package httpapi assembles the full HTTP surface: public read endpoints,
// webhook ingestion, admin-guarded mutations, the metrics endpoint, and the
// WebSocket event stream.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "arbiter/internal/audit/handler"
	moderationhandler "arbiter/internal/moderation/handler"
	policyhandler "arbiter/internal/policy/handler"
	roomhandler "arbiter/internal/room/handler"
	"arbiter/pkg/platform/httputil"
	"arbiter/pkg/platform/middleware/auth"
	"arbiter/pkg/platform/middleware/request"
)

// Handlers collects the per-module HTTP handlers the router mounts.
type Handlers struct {
	Moderation *moderationhandler.Handler
	Policy     *policyhandler.Handler
	Audit      *audithandler.Handler
	Room       *roomhandler.Handler
}

// Options carries the cross-cutting pieces the router needs.
type Options struct {
	TokenValidator auth.TokenValidator
	EventStream    http.Handler
	Logger         *slog.Logger
}

// New builds the router. Mutating admin endpoints sit behind bearer-token
// auth; reads, webhooks, and the event stream are open, matching a console
// deployed on a trusted network with only its write paths locked down.
func New(h Handlers, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(request.Middleware)

	r.Get("/", handleIndex)
	r.Get("/health", handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Handle("/ws", opts.EventStream)

	r.Route("/api", func(api chi.Router) {
		h.Moderation.Register(api)
		h.Policy.Register(api)
		h.Audit.Register(api)
		h.Room.Register(api)

		api.Group(func(admin chi.Router) {
			admin.Use(auth.RequireAdmin(opts.TokenValidator, opts.Logger))
			h.Moderation.RegisterAdmin(admin)
			h.Policy.RegisterAdmin(admin)
			h.Room.RegisterAdmin(admin)
		})
	})

	return r
}

func handleIndex(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{
		"service": "arbiter",
		"status":  "running",
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}
