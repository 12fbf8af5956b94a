package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/identity"
	"github.com/chaintrack/chaintrack/internal/orders"
	"github.com/chaintrack/chaintrack/internal/redisx"
)

type OrdersHandler struct {
	Coordinator *orders.Coordinator
	Redis       *redis.Client
}

func (h *OrdersHandler) Register(r *chi.Mux) {
	r.Post("/orders", h.placeOrder)
	r.Get("/orders", h.listMine)
	r.Get("/orders/{id}", h.getOrder)
	r.Get("/orders/{id}/status", h.getStatus)
	r.Post("/orders/{id}/confirm", h.confirm)
	r.Post("/orders/{id}/delivery", h.confirmDelivery)
	r.Delete("/orders/{id}", h.cancel)
	r.Post("/orders/{id}/return", h.requestReturn)
	r.Post("/orders/{id}/return/resolve", h.resolveReturn)
}

type placeOrderReq struct {
	ProductID string   `json:"product_id"`
	SellerID  string   `json:"seller_id"`
	Quantity  int      `json:"quantity"`
	UnitIDs   []string `json:"unit_ids,omitempty"`
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.PlaceOrder(ctx, req.ProductID, req.SellerID, req.Quantity, req.UnitIDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusCreated, o)
}

func (h *OrdersHandler) listMine(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	os, err := h.Coordinator.ListMine(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, os)
}

func (h *OrdersHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	o, err := h.Coordinator.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// cachedStatus is what cacheStatus stores: the parties ride along so a cache
// hit can still be authorized without touching the database.
type cachedStatus struct {
	Status   orders.Status `json:"status"`
	BuyerID  string        `json:"buyer_id"`
	SellerID string        `json:"seller_id"`
}

func (c cachedStatus) party(userID string) bool {
	return c.BuyerID == userID || c.SellerID == userID
}

// getStatus is the hot path the buyer UI polls; redis first, DB on miss. The
// caller is authorized before the cache is consulted: order status is visible
// to the order's parties only, cached or not.
func (h *OrdersHandler) getStatus(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleBuyer, identity.RoleSeller)
	if err != nil {
		writeErr(w, err)
		return
	}
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if h.Redis != nil {
		key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			var cached cachedStatus
			if err := json.Unmarshal([]byte(s), &cached); err == nil && cached.Status != "" &&
				(cached.BuyerID != "" || cached.SellerID != "") {
				if !cached.party(p.UserID) {
					writeErr(w, fault.Authorization("user %s is not a party to order %s", p.UserID, orderID))
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"status": cached.Status})
				return
			}
		}
	}

	o, err := h.Coordinator.Get(ctx, orderID)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"status": o.Status})
}

func (h *OrdersHandler) confirm(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UnitIDs []string `json:"unit_ids,omitempty"`
	}
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.Confirm(ctx, chi.URLParam(r, "id"), req.UnitIDs)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.ConfirmDelivery(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cancel(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Coordinator.Cancel(ctx, orderID); err != nil {
		writeErr(w, err)
		return
	}
	if h.Redis != nil {
		_ = h.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *OrdersHandler) requestReturn(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.RequestReturn(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) resolveReturn(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Accept bool `json:"accept"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Coordinator.ResolveReturn(ctx, chi.URLParam(r, "id"), req.Accept)
	if err != nil {
		writeErr(w, err)
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, o)
}

func (h *OrdersHandler) cacheStatus(ctx context.Context, o *orders.Order) {
	if h.Redis == nil {
		return
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(cachedStatus{Status: o.Status, BuyerID: o.BuyerID, SellerID: o.SellerID})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
