package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/fault"
)

type memCatalogStore struct {
	products []catalog.Product
}

func (m *memCatalogStore) Create(_ context.Context, name, manufacturerID string, isSerialized bool, description string) (*catalog.Product, error) {
	p := catalog.Product{ID: name, Name: name, ManufacturerID: manufacturerID, IsSerialized: isSerialized, Description: description}
	m.products = append(m.products, p)
	return &p, nil
}

func (m *memCatalogStore) GetProduct(_ context.Context, id string) (*catalog.Product, error) {
	for i := range m.products {
		if m.products[i].ID == id {
			return &m.products[i], nil
		}
	}
	return nil, fault.NotFound("product", id)
}

func (m *memCatalogStore) ListProducts(context.Context) ([]catalog.Product, error) {
	return m.products, nil
}

func (m *memCatalogStore) ListByManufacturer(_ context.Context, manufacturerID string) ([]catalog.Product, error) {
	var out []catalog.Product
	for _, p := range m.products {
		if p.ManufacturerID == manufacturerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestListMineFiltersByManufacturer(t *testing.T) {
	store := &memCatalogStore{products: []catalog.Product{
		{ID: "p1", Name: "Widget", ManufacturerID: "mfr-1"},
		{ID: "p2", Name: "Gadget", ManufacturerID: "mfr-2"},
	}}
	router := NewRouter()
	(&CatalogHandler{Catalog: store}).Register(router)

	req := httptest.NewRequest(http.MethodGet, "/products/mine", nil)
	req.Header.Set("X-User-Id", "mfr-1")
	req.Header.Set("X-User-Role", "MANUFACTURER")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Widget")
	assert.NotContains(t, rec.Body.String(), "Gadget")
}

func TestListMineIsManufacturerOnly(t *testing.T) {
	router := NewRouter()
	(&CatalogHandler{Catalog: &memCatalogStore{}}).Register(router)

	req := httptest.NewRequest(http.MethodGet, "/products/mine", nil)
	req.Header.Set("X-User-Id", "seller-1")
	req.Header.Set("X-User-Role", "SELLER")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}
