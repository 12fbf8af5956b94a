package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/identity"
)

type catalogStore interface {
	Create(ctx context.Context, name, manufacturerID string, isSerialized bool, description string) (*catalog.Product, error)
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
	ListProducts(ctx context.Context) ([]catalog.Product, error)
	ListByManufacturer(ctx context.Context, manufacturerID string) ([]catalog.Product, error)
}

type CatalogHandler struct {
	Catalog catalogStore
}

type createProductReq struct {
	Name         string `json:"name"`
	IsSerialized bool   `json:"is_serialized"`
	Description  string `json:"description"`
}

func (h *CatalogHandler) Register(r *chi.Mux) {
	r.Post("/products", h.createProduct)
	r.Get("/products", h.listProducts)
	r.Get("/products/mine", h.listMine)
	r.Get("/products/{id}", h.getProduct)
}

func (h *CatalogHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req createProductReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := h.Catalog.Create(ctx, req.Name, p.UserID, req.IsSerialized, req.Description)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

func (h *CatalogHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListProducts(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

// listMine is the manufacturer's view of their own catalog.
func (h *CatalogHandler) listMine(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	ps, err := h.Catalog.ListByManufacturer(ctx, p.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ps)
}

func (h *CatalogHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	p, err := h.Catalog.GetProduct(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
