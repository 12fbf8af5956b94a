package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/chaintrack/chaintrack/internal/bulk"
	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/events"
	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/identity"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
)

type StockHandler struct {
	Bulk     *bulk.Repo
	Catalog  *catalog.Repo
	Producer publisher
	Service  string
}

func (h *StockHandler) Register(r *chi.Mux) {
	r.Post("/stock/transfers", h.transfer)
	r.Get("/stock", h.listMine)
}

type transferReq struct {
	ProductID string  `json:"product_id"`
	FromOwner *string `json:"from_owner_id,omitempty"`
	ToOwner   *string `json:"to_owner_id,omitempty"`
	Quantity  int     `json:"quantity"`
}

// transfer is the manufacturer's bulk-stock primitive: produce (no source),
// dispatch to a seller, or recall seller stock back. Sales out of the system
// happen through the order flow, never here.
func (h *StockHandler) transfer(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer)
	if err != nil {
		writeErr(w, err)
		return
	}
	var req transferReq
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
	if product.IsSerialized {
		writeErr(w, fault.Validation("product %s is serialized, use unit dispatch", product.ID))
		return
	}
	if product.ManufacturerID != p.UserID {
		writeErr(w, fault.Authorization("product %s does not belong to manufacturer %s", product.ID, p.UserID))
		return
	}
	if req.ToOwner == nil && req.FromOwner == nil {
		// bare production credit lands with the manufacturer
		req.ToOwner = &p.UserID
	}

	if err := h.Bulk.Transfer(ctx, req.ProductID, req.FromOwner, req.ToOwner, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}

	h.publish(ctx, events.EventStockTransferred, req.ProductID, events.StockTransferredPayload{
		ProductID: req.ProductID,
		FromOwner: req.FromOwner,
		ToOwner:   req.ToOwner,
		Quantity:  req.Quantity,
	})
	w.WriteHeader(http.StatusNoContent)
}

func (h *StockHandler) listMine(w http.ResponseWriter, r *http.Request) {
	p, err := identity.Require(r.Context(), identity.RoleManufacturer, identity.RoleSeller)
	if err != nil {
		writeErr(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	rows, err := h.Bulk.ListForOwner(ctx, p.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *StockHandler) publish(ctx context.Context, eventType, correlationID string, payload any) {
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
