package orders

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/chaintrack/chaintrack/internal/catalog"
	"github.com/chaintrack/chaintrack/internal/events"
	"github.com/chaintrack/chaintrack/internal/fault"
	"github.com/chaintrack/chaintrack/internal/identity"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
)

type Catalog interface {
	GetProduct(ctx context.Context, id string) (*catalog.Product, error)
}

type UnitCounter interface {
	AvailableCount(ctx context.Context, productID, ownerID string, role identity.Role) (int, error)
}

type Store interface {
	PlaceBulk(ctx context.Context, productID, sellerID, buyerID string, qty int) (*Order, error)
	PlaceSerialized(ctx context.Context, productID, sellerID, buyerID string, qty int, requestedUnitIDs []string) (*Order, error)
	Confirm(ctx context.Context, orderID, sellerID string, unitIDs []string) (*Order, error)
	ConfirmDelivery(ctx context.Context, orderID, buyerID string) (*Order, error)
	Cancel(ctx context.Context, orderID, buyerID string) (*Order, bool, error)
	RequestReturn(ctx context.Context, orderID, buyerID string) (*Order, error)
	ResolveReturn(ctx context.Context, orderID, sellerID string, accept bool) (*Order, error)
	Get(ctx context.Context, orderID string) (*Order, error)
	ListForBuyer(ctx context.Context, buyerID string) ([]Order, error)
	ListForSeller(ctx context.Context, sellerID string) ([]Order, error)
}

type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Coordinator drives the buyer-facing order lifecycle. It authorizes the
// caller, routes between the serialized and bulk paths, and publishes a domain
// event after every successful mutation. It never flips order state itself;
// that happens inside the store's transaction.
type Coordinator struct {
	Catalog  Catalog
	Store    Store
	Units    UnitCounter
	Producer Publisher
	Service  string
}

// PlaceOrder provisionally consumes stock. Bulk products debit the seller's
// quantity right here; serialized products only pass a point-in-time
// availability guard and bind units at confirmation. Two rushing buyers can
// both pass the guard; the loser surfaces at confirm time.
func (c *Coordinator) PlaceOrder(ctx context.Context, productID, sellerID string, qty int, unitSelection []string) (*Order, error) {
	p, err := identity.Require(ctx, identity.RoleBuyer)
	if err != nil {
		return nil, err
	}
	if qty <= 0 {
		return nil, fault.Validation("quantity must be positive, got %d", qty)
	}
	if sellerID == "" {
		return nil, fault.Validation("empty seller id")
	}
	product, err := c.Catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}

	var o *Order
	if product.IsSerialized {
		if len(unitSelection) > 0 && len(unitSelection) != qty {
			return nil, fault.Validation("selected %d units for quantity %d", len(unitSelection), qty)
		}
		avail, err := c.Units.AvailableCount(ctx, productID, sellerID, identity.RoleSeller)
		if err != nil {
			return nil, err
		}
		if avail < qty {
			return nil, fault.InsufficientStock("unit", productID, qty, avail)
		}
		o, err = c.Store.PlaceSerialized(ctx, productID, sellerID, p.UserID, qty, unitSelection)
		if err != nil {
			return nil, err
		}
	} else {
		if len(unitSelection) > 0 {
			return nil, fault.Validation("product %s is not serialized, unit selection is meaningless", productID)
		}
		o, err = c.Store.PlaceBulk(ctx, productID, sellerID, p.UserID, qty)
		if err != nil {
			return nil, err
		}
	}

	c.publishOrder(ctx, events.EventOrderPlaced, o, product.IsSerialized, nil)
	return o, nil
}

// Confirm is the seller's fulfillment action.
func (c *Coordinator) Confirm(ctx context.Context, orderID string, unitIDs []string) (*Order, error) {
	p, err := identity.Require(ctx, identity.RoleSeller)
	if err != nil {
		return nil, err
	}
	o, err := c.Store.Confirm(ctx, orderID, p.UserID, unitIDs)
	if err != nil {
		return nil, err
	}
	c.publishOrder(ctx, events.EventOrderConfirmed, o, len(o.AssignedUnitIDs) > 0, nil)
	return o, nil
}

func (c *Coordinator) ConfirmDelivery(ctx context.Context, orderID string) (*Order, error) {
	p, err := identity.Require(ctx, identity.RoleBuyer)
	if err != nil {
		return nil, err
	}
	o, err := c.Store.ConfirmDelivery(ctx, orderID, p.UserID)
	if err != nil {
		return nil, err
	}
	c.publishOrder(ctx, events.EventOrderDelivered, o, len(o.AssignedUnitIDs) > 0, nil)
	return o, nil
}

// Cancel removes the order record entirely and restores whatever placement
// consumed. Only the buyer may cancel, and only before confirmation.
func (c *Coordinator) Cancel(ctx context.Context, orderID string) error {
	p, err := identity.Require(ctx, identity.RoleBuyer)
	if err != nil {
		return err
	}
	o, serialized, err := c.Store.Cancel(ctx, orderID, p.UserID)
	if err != nil {
		return err
	}
	// A cancelled order never has assigned units, so the product flag must come
	// from the store or serialized cancellations would masquerade as bulk ones.
	c.publishOrder(ctx, events.EventOrderCancelled, o, serialized, nil)
	return nil
}

func (c *Coordinator) RequestReturn(ctx context.Context, orderID string) (*Order, error) {
	p, err := identity.Require(ctx, identity.RoleBuyer)
	if err != nil {
		return nil, err
	}
	o, err := c.Store.RequestReturn(ctx, orderID, p.UserID)
	if err != nil {
		return nil, err
	}
	c.publishOrder(ctx, events.EventReturnRequested, o, len(o.AssignedUnitIDs) > 0, nil)
	return o, nil
}

func (c *Coordinator) ResolveReturn(ctx context.Context, orderID string, accept bool) (*Order, error) {
	p, err := identity.Require(ctx, identity.RoleSeller)
	if err != nil {
		return nil, err
	}
	o, err := c.Store.ResolveReturn(ctx, orderID, p.UserID, accept)
	if err != nil {
		return nil, err
	}
	c.publishOrder(ctx, events.EventReturnResolved, o, len(o.AssignedUnitIDs) > 0, &accept)
	return o, nil
}

// Get returns an order to a party involved in it.
func (c *Coordinator) Get(ctx context.Context, orderID string) (*Order, error) {
	p, err := identity.Require(ctx, identity.RoleBuyer, identity.RoleSeller)
	if err != nil {
		return nil, err
	}
	o, err := c.Store.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != p.UserID && o.SellerID != p.UserID {
		return nil, fault.Authorization("user %s is not a party to order %s", p.UserID, orderID)
	}
	return o, nil
}

// ListMine returns the caller's orders: placed ones for buyers, received ones
// for sellers.
func (c *Coordinator) ListMine(ctx context.Context) ([]Order, error) {
	p, err := identity.Require(ctx, identity.RoleBuyer, identity.RoleSeller)
	if err != nil {
		return nil, err
	}
	if p.Role == identity.RoleBuyer {
		return c.Store.ListForBuyer(ctx, p.UserID)
	}
	return c.Store.ListForSeller(ctx, p.UserID)
}

func (c *Coordinator) publishOrder(ctx context.Context, eventType string, o *Order, serialized bool, accepted *bool) {
	if c.Producer == nil {
		return
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      c.Service,
		TraceID:       middleware.GetReqID(ctx),
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderPayload{
			OrderID:    o.ID,
			ProductID:  o.ProductID,
			SellerID:   o.SellerID,
			BuyerID:    o.BuyerID,
			Quantity:   o.Quantity,
			Serialized: serialized,
			UnitIDs:    o.AssignedUnitIDs,
			Accepted:   accepted,
		}),
	}
	c.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
