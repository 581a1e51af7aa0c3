package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tagproof/internal/platform/middleware"
)

// NewRouter wires the public verification endpoints, the enterprise surface,
// and the operational endpoints behind the shared middleware chain.
func NewRouter(h *Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(logger))

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentTypeJSON)
		r.Post("/verify", h.handleVerify)
		r.Post("/owner/login", h.handleOwnerLogin)
		r.Post("/owner/change-pin", h.handleChangePIN)
		r.Post("/enterprise/tags", h.handleProvisionTag)
		r.Get("/enterprise/audits", h.handleListAudits)
		r.Get("/healthz", h.handleHealth)
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}
