package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/orders"
)

// stubOrderStore serves Get only; status reads never mutate.
type stubOrderStore struct {
	o *orders.Order
}

func (s *stubOrderStore) Get(_ context.Context, orderID string) (*orders.Order, error) {
	if s.o != nil && s.o.ID == orderID {
		return s.o, nil
	}
	return nil, fault.NotFound("order", orderID)
}

func (s *stubOrderStore) PlaceBulk(context.Context, string, string, string, int) (*orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) PlaceSerialized(context.Context, string, string, string, int, []string) (*orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) Confirm(context.Context, string, string, []string) (*orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) ConfirmDelivery(context.Context, string, string) (*orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) Cancel(context.Context, string, string) (*orders.Order, bool, error) {
	return nil, false, nil
}
func (s *stubOrderStore) RequestReturn(context.Context, string, string) (*orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) ResolveReturn(context.Context, string, string, bool) (*orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) ListForBuyer(context.Context, string) ([]orders.Order, error) {
	return nil, nil
}
func (s *stubOrderStore) ListForSeller(context.Context, string) ([]orders.Order, error) {
	return nil, nil
}

func statusRouter(o *orders.Order) http.Handler {
	r := NewRouter()
	h := &OrdersHandler{Coordinator: &orders.Coordinator{Store: &stubOrderStore{o: o}}}
	h.Register(r)
	return r
}

func TestGetStatusRequiresIdentity(t *testing.T) {
	router := statusRouter(&orders.Order{
		ID: "o1", BuyerID: "buyer-1", SellerID: "seller-1", Status: orders.StatusConfirmed,
	})

	req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code, "order status must not leak to anonymous callers")
}

func TestGetStatusRestrictedToParties(t *testing.T) {
	router := statusRouter(&orders.Order{
		ID: "o1", BuyerID: "buyer-1", SellerID: "seller-1", Status: orders.StatusConfirmed,
	})

	// a stranger who knows the order id
	req := httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
	req.Header.Set("X-User-Id", "buyer-2")
	req.Header.Set("X-User-Role", "BUYER")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// the buyer on the order
	req = httptest.NewRequest(http.MethodGet, "/orders/o1/status", nil)
	req.Header.Set("X-User-Id", "buyer-1")
	req.Header.Set("X-User-Role", "BUYER")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), string(orders.StatusConfirmed))
}

// The cached entry carries the parties so a redis hit is checked exactly like
// a database read.
func TestCachedStatusParty(t *testing.T) {
	c := cachedStatus{Status: orders.StatusDelivered, BuyerID: "buyer-1", SellerID: "seller-1"}
	assert.True(t, c.party("buyer-1"))
	assert.True(t, c.party("seller-1"))
	assert.False(t, c.party("buyer-2"))
	assert.False(t, c.party(""))
}
