// Package httptransport is the thin HTTP layer. Handlers decode the request,
// delegate to the verification service, and write the typed response the
// service produced; no business logic lives here. Every response is JSON,
// including error paths, so scanning clients never see bare HTML or text.
package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"tagproof/internal/audit"
	"tagproof/internal/verify"
)

// HealthFunc pings the backing store. nil means no dependency to check.
type HealthFunc func(ctx context.Context) error

// Handler holds the handlers' collaborators.
type Handler struct {
	verify *verify.Service
	audits audit.Store
	logger *slog.Logger
	health HealthFunc
}

// NewHandler builds the HTTP handler set.
func NewHandler(svc *verify.Service, audits audit.Store, logger *slog.Logger, health HealthFunc) *Handler {
	return &Handler{verify: svc, audits: audits, logger: logger, health: health}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verify.VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp := h.verify.VerifyFailure(r.Context(), err)
		writeJSON(w, resp.HTTPStatus, resp)
		return
	}
	resp := h.verify.Verify(r.Context(), req)
	writeJSON(w, resp.HTTPStatus, resp)
}

func (h *Handler) handleOwnerLogin(w http.ResponseWriter, r *http.Request) {
	var req verify.OwnerLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp := h.verify.OwnerLoginFailure(r.Context(), err)
		writeJSON(w, resp.HTTPStatus, resp)
		return
	}
	resp := h.verify.OwnerLogin(r.Context(), req)
	writeJSON(w, resp.HTTPStatus, resp)
}

func (h *Handler) handleChangePIN(w http.ResponseWriter, r *http.Request) {
	var req verify.ChangePINRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp := h.verify.ChangePINFailure(r.Context(), err)
		writeJSON(w, resp.HTTPStatus, resp)
		return
	}
	resp := h.verify.ChangePIN(r.Context(), req)
	writeJSON(w, resp.HTTPStatus, resp)
}

func (h *Handler) handleProvisionTag(w http.ResponseWriter, r *http.Request) {
	var req verify.ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"ok":      false,
			"message": "invalid request body",
		})
		return
	}
	resp := h.verify.Provision(r.Context(), req)
	writeJSON(w, resp.HTTPStatus, resp)
}

func (h *Handler) handleListAudits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if tagID := r.URL.Query().Get("tagId"); tagID != "" {
		records, err := h.audits.ListByTag(ctx, tagID)
		if err != nil {
			h.logger.ErrorContext(ctx, "list audits failed", "error", err.Error())
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "Server error"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "audits": records})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "message": "invalid limit"})
			return
		}
		limit = parsed
	}

	records, err := h.audits.ListRecent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list audits failed", "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "message": "Server error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "audits": records})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"ok": false, "message": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
