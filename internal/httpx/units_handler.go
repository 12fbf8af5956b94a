package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/events"
	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/identity"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
	"github.com/chaintrack/chaintrack/internal/redisx"
	"github.com/chaintrack/chaintrack/internal/units"
)

type publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type UnitsHandler struct {
	Units    *units.Repo
	Catalog  *catalog.Repo
	Producer publisher
	Redis    *redis.Client
	Service  string
}

func (h *UnitsHandler) Register(r *chi.Mux) {
	r.Post("/units/batches", h.createBatch)
	r.Post("/units/dispatch", h.dispatch)
	r.Post("/units/recall", h.recall)
	r.Delete("/units/{id}", h.deleteUnit)
	r.Get("/units", h.listMine)
	r.Get("/units/available", h.available)
	r.Get("/units/{id}/token", h.token)
}

type createBatchReq struct {
	ProductID string   `json:"product_id"`
	Serials   []string `json:"serials"`
}

func (h *UnitsHandler) createBatch(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req createBatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	product, err := h.Catalog.GetProduct(ctx, req.ProductID)
	if err != nil {
		writeErr(w, err)
		return
	}
	created, err := h.Units.CreateBatch(ctx, product, p.UserID, req.Serials)
	if err != nil {
		writeErr(w, err)
		return
	}

	ids := make([]string, 0, len(created))
	for _, u := range created {
		ids = append(ids, u.ID)
	}
	h.publish(ctx, events.EventUnitsManufactured, product.ID,
		events.UnitsManufacturedPayload{ProductID: product.ID, ManufacturerID: p.UserID, UnitIDs: ids})

	writeJSON(w, http.StatusCreated, created)
}

type dispatchReq struct {
	UnitIDs  []string `json:"unit_ids"`
	SellerID string   `json:"seller_id"`
}

func (h *UnitsHandler) dispatch(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.Require(r.Context(), identity.RoleManufacturer); err != nil {
		writeErr(w, err)
		return
	}
	var req dispatchReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	moved, err := h.Units.DispatchToSeller(ctx, req.UnitIDs, req.SellerID)
	if err != nil {
		writeErr(w, err)
		return
	}

	refs := make([]events.UnitRef, 0, len(moved))
	for _, u := range moved {
		refs = append(refs, events.UnitRef{UnitID: u.ID, ProductID: u.ProductID})
	}
	h.publish(ctx, events.EventUnitsDispatched, req.SellerID,
		events.UnitsDispatchedPayload{SellerID: req.SellerID, Units: refs})

	writeJSON(w, http.StatusOK, moved)
}

type recallReq struct {
	UnitIDs []string `json:"unit_ids"`
}

func (h *UnitsHandler) recall(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.Require(r.Context(), identity.RoleManufacturer); err != nil {
		writeErr(w, err)
		return
	}
	var req recallReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	recalled, err := h.Units.RecallDefective(ctx, req.UnitIDs)
	if err != nil {
		writeErr(w, err)
		return
	}

	refs := make([]events.UnitRef, 0, len(recalled))
	for _, u := range recalled {
		refs = append(refs, events.UnitRef{UnitID: u.ID, ProductID: u.ProductID})
	}
	h.publish(ctx, events.EventUnitsRecalled, uuid.NewString(),
		events.UnitsRecalledPayload{Units: refs})

	writeJSON(w, http.StatusOK, recalled)
}

func (h *UnitsHandler) deleteUnit(w http.ResponseWriter, r *http.Request) {
	if _, err := identity.Require(r.Context(), identity.RoleManufacturer); err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	deleted, err := h.Units.DeleteUnit(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	h.publish(ctx, events.EventUnitDeleted, deleted.ProductID,
		events.UnitDeletedPayload{UnitID: deleted.ID, ProductID: deleted.ProductID})

	w.WriteHeader(http.StatusNoContent)
}

func (h *UnitsHandler) listMine(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer, identity.RoleSeller, identity.RoleBuyer)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	us, err := h.Units.ListForOwner(ctx, p.UserID, p.Role)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

// token hands the verification token to the unit's current buyer. This is the
// only place the stored hash ever leaves the system; the unit model itself
// never serializes it.
func (h *UnitsHandler) token(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleBuyer, identity.RoleManufacturer)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	u, err := h.Units.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	owns := p.Role == identity.RoleManufacturer && u.ManufacturerID == p.UserID ||
		p.Role == identity.RoleBuyer && u.BuyerID != nil && *u.BuyerID == p.UserID
	if !owns {
		writeErr(w, fault.Authorization("unit %s is not held by %s", u.ID, p.UserID))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"unit_id":       u.ID,
		"serial_number": u.SerialNumber,
		"auth_code":     u.AuthHash,
	})
}

// available serves the availability count with a short redis cache in front;
// the audit worker drops the key whenever stock moves.
func (h *UnitsHandler) available(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer, identity.RoleSeller)
	if err != nil {
		writeErr(w, err)
		return
	}
	productID := r.URL.Query().Get("product_id")
	if productID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing product_id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	key := fmt.Sprintf(redisx.KeyAvailability, productID, p.UserID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			writeJSON(w, http.StatusOK, map[string]int{"available": n})
			return
		}
	}

	n, err := h.Units.AvailableCount(ctx, productID, p.UserID, p.Role)
	if err != nil {
		writeErr(w, err)
		return
	}
	_ = h.Redis.Set(ctx, key, strconv.Itoa(n), redisx.TTLAvailability).Err()
	writeJSON(w, http.StatusOK, map[string]int{"available": n})
}

func (h *UnitsHandler) publish(ctx context.Context, eventType, correlationID string, payload any) {
	if h.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: correlationID,
		Payload:       kafkax.MustMarshal(payload),
	}
	h.Producer.Publish(events.PartitionKey(correlationID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
