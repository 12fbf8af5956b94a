package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/chaintrack/chaintrack/internal/events"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
	"github.com/chaintrack/chaintrack/internal/redisx"
)

// Service turns domain events into the stock_movements trail and drops stale
// availability/status caches. Installed as the consumer handler for every
// topic; events that move no stock are ignored.
type Service struct {
	Repo        *Repo
	Redis       *redis.Client
	ServiceName string
}

func (s *Service) Handle(ctx context.Context, m kafkago.Message) error {
	var env events.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, "audit", env.EventID)
	if exists, _ := redisx.Exists(ctx, s.Redis, dkey); exists {
		return nil
	}

	moves, owners, orderID, err := s.movements(env)
	if err != nil {
		return err
	}
	for _, mv := range moves {
		if err := s.Repo.Append(ctx, mv); err != nil {
			return err
		}
		for owner := range owners {
			_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyAvailability, mv.ProductID, owner)).Err()
		}
	}
	if orderID != "" {
		_ = s.Redis.Del(ctx, fmt.Sprintf(redisx.KeyOrderStatus, orderID)).Err()
	}

	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()
	return nil
}

func (s *Service) movements(env events.Envelope) (moves []Movement, owners map[string]bool, orderID string, err error) {
	owners = map[string]bool{}
	switch env.EventType {
	case events.EventUnitsManufactured:
		p, err := kafkax.UnwrapPayload[events.UnitsManufacturedPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		owners[p.ManufacturerID] = true
		moves = append(moves, Movement{
			EventID: env.EventID, Kind: KindManufactured, ProductID: p.ProductID,
			ToOwner: &p.ManufacturerID, Quantity: len(p.UnitIDs), UnitIDs: p.UnitIDs,
			MovedAt: env.OccurredAt,
		})

	case events.EventUnitsDispatched:
		p, err := kafkax.UnwrapPayload[events.UnitsDispatchedPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		owners[p.SellerID] = true
		for productID, ids := range groupByProduct(p.Units) {
			seller := p.SellerID
			moves = append(moves, Movement{
				EventID: env.EventID, Kind: KindDispatched, ProductID: productID,
				ToOwner: &seller, Quantity: len(ids), UnitIDs: ids, MovedAt: env.OccurredAt,
			})
		}

	case events.EventUnitsRecalled:
		p, err := kafkax.UnwrapPayload[events.UnitsRecalledPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		for productID, ids := range groupByProduct(p.Units) {
			moves = append(moves, Movement{
				EventID: env.EventID, Kind: KindRecalled, ProductID: productID,
				Quantity: len(ids), UnitIDs: ids, MovedAt: env.OccurredAt,
			})
		}

	case events.EventUnitDeleted:
		p, err := kafkax.UnwrapPayload[events.UnitDeletedPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		moves = append(moves, Movement{
			EventID: env.EventID, Kind: KindUnitDeleted, ProductID: p.ProductID,
			Quantity: 1, UnitIDs: []string{p.UnitID}, MovedAt: env.OccurredAt,
		})

	case events.EventStockTransferred:
		p, err := kafkax.UnwrapPayload[events.StockTransferredPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		if p.FromOwner != nil {
			owners[*p.FromOwner] = true
		}
		if p.ToOwner != nil {
			owners[*p.ToOwner] = true
		}
		moves = append(moves, Movement{
			EventID: env.EventID, Kind: KindTransfer, ProductID: p.ProductID,
			FromOwner: p.FromOwner, ToOwner: p.ToOwner, Quantity: p.Quantity,
			MovedAt: env.OccurredAt,
		})

	case events.EventOrderPlaced, events.EventOrderConfirmed, events.EventOrderCancelled, events.EventReturnResolved:
		p, err := kafkax.UnwrapPayload[events.OrderPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		orderID = p.OrderID
		owners[p.SellerID] = true
		mv := Movement{
			EventID: env.EventID, ProductID: p.ProductID, Quantity: p.Quantity,
			OrderID: &p.OrderID, UnitIDs: p.UnitIDs, MovedAt: env.OccurredAt,
		}
		switch env.EventType {
		case events.EventOrderPlaced:
			mv.Kind = KindOrderPlaced
			if !p.Serialized {
				mv.FromOwner = &p.SellerID
			}
		case events.EventOrderConfirmed:
			mv.Kind = KindOrderConfirmed
			if p.Serialized {
				mv.FromOwner, mv.ToOwner = &p.SellerID, &p.BuyerID
			}
		case events.EventOrderCancelled:
			mv.Kind = KindOrderCancelled
			if !p.Serialized {
				mv.ToOwner = &p.SellerID
			}
		case events.EventReturnResolved:
			if p.Accepted != nil && *p.Accepted {
				mv.Kind = KindReturnAccepted
				mv.ToOwner = &p.SellerID
			} else {
				mv.Kind = KindReturnRejected
			}
		}
		moves = append(moves, mv)

	case events.EventOrderDelivered, events.EventReturnRequested:
		// status-only transitions, no stock moved; still refresh the cache
		p, err := kafkax.UnwrapPayload[events.OrderPayload](env.Payload)
		if err != nil {
			return nil, nil, "", err
		}
		orderID = p.OrderID
	}
	return moves, owners, orderID, nil
}

func groupByProduct(refs []events.UnitRef) map[string][]string {
	out := map[string][]string{}
	for _, r := range refs {
		out[r.ProductID] = append(out[r.ProductID], r.UnitID)
	}
	return out
}
