package www

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"

	"washcore/orchestrator"
	"washcore/store"
)

type Handlers struct {
	orch     *orchestrator.Service
	guard    *orchestrator.AccessGuard
	db       *store.DB
	sessions *sessions.CookieStore
	health   func() map[string]any
}

type Config struct {
	Orchestrator  *orchestrator.Service
	Guard         *orchestrator.AccessGuard
	DB            *store.DB
	SessionSecret string
	// Health reports collaborator liveness for the admin health endpoint.
	Health func() map[string]any
}

func NewRouter(cfg Config) http.Handler {
	h := &Handlers{
		orch:     cfg.Orchestrator,
		guard:    cfg.Guard,
		db:       cfg.DB,
		sessions: newSessionStore(cfg.SessionSecret),
		health:   cfg.Health,
	}

	h.ensureDefaultAdmin(cfg.DB)

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Machine API. The token guard wraps the whole subtree, so it runs
	// before route matching; a bad token never reaches a handler and an
	// unmatched path is still answered with the internal-error envelope.
	r.Route("/machine", func(r chi.Router) {
		r.Use(h.requireToken)
		r.NotFound(h.handleUnrouted)
		r.MethodNotAllowed(h.handleUnrouted)
		r.Post("/request", h.handleReserve)
		r.Get("/{id:[a-zA-Z0-9-]+}", h.handleGet)
		r.Post("/{id:[a-zA-Z0-9-]+}/start", h.handleStart)
	})

	// Operator surface, session-authenticated.
	r.Post("/admin/login", h.handleAdminLogin)
	r.Get("/admin/logout", h.handleAdminLogout)
	r.Group(func(r chi.Router) {
		r.Use(h.requireAdmin)
		r.Get("/admin/health", h.handleHealth)
		r.Get("/admin/machines", h.handleListMachines)
		r.Post("/admin/machines", h.handleCreateMachine)
		r.Get("/admin/audit", h.handleAuditLog)
		r.Get("/admin/tokens", h.handleListTokens)
		r.Post("/admin/tokens", h.handleMintToken)
		r.Post("/admin/tokens/revoke", h.handleRevokeToken)
	})

	return r
}
