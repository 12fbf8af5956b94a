package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chaintrack/chaintrack/internal/cart"
	"github.com/chaintrack/chaintrack/internal/identity"
	"github.com/chaintrack/chaintrack/internal/orders"
)

type CartHandler struct {
	Cart        *cart.Store
	Coordinator *orders.Coordinator
}

func (h *CartHandler) Register(r *chi.Mux) {
	r.Get("/cart", h.items)
	r.Post("/cart/items", h.add)
	r.Delete("/cart/items/{productID}/{sellerID}", h.remove)
	r.Post("/cart/checkout", h.checkout)
}

func (h *CartHandler) items(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleBuyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	items, err := h.Cart.Items(ctx, p.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *CartHandler) add(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleBuyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	var it cart.Item
	if err := json.NewDecoder(r.Body).Decode(&it); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	merged, err := h.Cart.Add(ctx, p.UserID, it)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, merged)
}

func (h *CartHandler) remove(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleBuyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.Cart.Remove(ctx, p.UserID, chi.URLParam(r, "productID"), chi.URLParam(r, "sellerID")); err != nil {
		writeErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleBuyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	placed, err := h.Cart.Checkout(ctx, p.UserID, h.Coordinator)
	if err != nil {
		// partial checkout: report what did get placed alongside the failure
		writeJSON(w, errStatus(err), map[string]any{"error": err.Error(), "placed": placed})
		return
	}
	writeJSON(w, http.StatusCreated, placed)
}
