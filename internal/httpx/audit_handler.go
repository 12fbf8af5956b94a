package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chaintrack/chaintrack/internal/audit"
	"github.com/chaintrack/chaintrack/internal/identity"
)

// AuditHandler exposes the movement trail the worker accumulates.
type AuditHandler struct {
	Audit *audit.Repo
}

func (h *AuditHandler) Register(r *chi.Mux) {
	r.Get("/products/{id}/movements", h.movements)
}

func (h *AuditHandler) movements(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.Require(r.Context(), identity.RoleManufacturer, identity.RoleSeller); err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ms, err := h.Audit.ListForProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ms)
}
