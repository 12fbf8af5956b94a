package audit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chaintrack/chaintrack/internal/events"
	kafkax "github.com/chaintrack/chaintrack/internal/kafka"
)

func envelope(eventType string, payload any) events.Envelope {
	return events.Envelope{
		EventID:    "ev-1",
		EventType:  eventType,
		OccurredAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Payload:    kafkax.MustMarshal(payload),
	}
}

func TestMovementsManufactured(t *testing.T) {
	s := &Service{}
	env := envelope(events.EventUnitsManufactured, events.UnitsManufacturedPayload{
		ProductID: "p1", ManufacturerID: "mfr-1", UnitIDs: []string{"u1", "u2", "u3"},
	})

	moves, owners, orderID, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, KindManufactured, moves[0].Kind)
	assert.Equal(t, "p1", moves[0].ProductID)
	assert.Equal(t, 3, moves[0].Quantity)
	require.NotNil(t, moves[0].ToOwner)
	assert.Equal(t, "mfr-1", *moves[0].ToOwner)
	assert.Nil(t, moves[0].FromOwner)
	assert.True(t, owners["mfr-1"])
	assert.Empty(t, orderID)
}

func TestMovementsDispatchedGroupsByProduct(t *testing.T) {
	s := &Service{}
	env := envelope(events.EventUnitsDispatched, events.UnitsDispatchedPayload{
		SellerID: "seller-1",
		Units: []events.UnitRef{
			{UnitID: "u1", ProductID: "p1"},
			{UnitID: "u2", ProductID: "p2"},
			{UnitID: "u3", ProductID: "p1"},
		},
	})

	moves, owners, _, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 2)
	byProduct := map[string]Movement{}
	for _, mv := range moves {
		byProduct[mv.ProductID] = mv
	}
	assert.Equal(t, 2, byProduct["p1"].Quantity)
	assert.ElementsMatch(t, []string{"u1", "u3"}, byProduct["p1"].UnitIDs)
	assert.Equal(t, 1, byProduct["p2"].Quantity)
	for _, mv := range moves {
		assert.Equal(t, KindDispatched, mv.Kind)
		assert.Equal(t, "ev-1", mv.EventID)
	}
	assert.True(t, owners["seller-1"])
}

func TestMovementsStockTransfer(t *testing.T) {
	s := &Service{}
	from, to := "mfr-1", "seller-1"
	env := envelope(events.EventStockTransferred, events.StockTransferredPayload{
		ProductID: "p1", FromOwner: &from, ToOwner: &to, Quantity: 40,
	})

	moves, owners, _, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, KindTransfer, moves[0].Kind)
	assert.Equal(t, 40, moves[0].Quantity)
	assert.Equal(t, "mfr-1", *moves[0].FromOwner)
	assert.Equal(t, "seller-1", *moves[0].ToOwner)
	assert.True(t, owners["mfr-1"])
	assert.True(t, owners["seller-1"])
}

func TestMovementsProductionCreditHasNoSource(t *testing.T) {
	s := &Service{}
	to := "mfr-1"
	env := envelope(events.EventStockTransferred, events.StockTransferredPayload{
		ProductID: "p1", ToOwner: &to, Quantity: 100,
	})

	moves, owners, _, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Nil(t, moves[0].FromOwner)
	assert.Len(t, owners, 1)
}

func TestMovementsOrderPlacedBulkDebitsSeller(t *testing.T) {
	s := &Service{}
	env := envelope(events.EventOrderPlaced, events.OrderPayload{
		OrderID: "o1", ProductID: "p1", SellerID: "seller-1", BuyerID: "buyer-1",
		Quantity: 2, Serialized: false,
	})

	moves, _, orderID, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, KindOrderPlaced, moves[0].Kind)
	require.NotNil(t, moves[0].FromOwner)
	assert.Equal(t, "seller-1", *moves[0].FromOwner)
	assert.Equal(t, "o1", orderID)
}

func TestMovementsOrderPlacedSerializedMovesNothingYet(t *testing.T) {
	s := &Service{}
	env := envelope(events.EventOrderPlaced, events.OrderPayload{
		OrderID: "o1", ProductID: "p1", SellerID: "seller-1", BuyerID: "buyer-1",
		Quantity: 2, Serialized: true,
	})

	moves, _, _, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Nil(t, moves[0].FromOwner, "serialized stock moves at confirmation, not placement")
	assert.Nil(t, moves[0].ToOwner)
}

func TestMovementsOrderConfirmedSerializedMovesUnits(t *testing.T) {
	s := &Service{}
	env := envelope(events.EventOrderConfirmed, events.OrderPayload{
		OrderID: "o1", ProductID: "p1", SellerID: "seller-1", BuyerID: "buyer-1",
		Quantity: 2, Serialized: true, UnitIDs: []string{"u1", "u2"},
	})

	moves, _, _, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, KindOrderConfirmed, moves[0].Kind)
	assert.Equal(t, "seller-1", *moves[0].FromOwner)
	assert.Equal(t, "buyer-1", *moves[0].ToOwner)
	assert.Equal(t, []string{"u1", "u2"}, moves[0].UnitIDs)
}

func TestMovementsReturnResolved(t *testing.T) {
	accepted, rejected := true, false

	s := &Service{}
	env := envelope(events.EventReturnResolved, events.OrderPayload{
		OrderID: "o1", ProductID: "p1", SellerID: "seller-1", BuyerID: "buyer-1",
		Quantity: 2, Accepted: &accepted,
	})
	moves, _, _, err := s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, KindReturnAccepted, moves[0].Kind)
	assert.Equal(t, "seller-1", *moves[0].ToOwner)

	env = envelope(events.EventReturnResolved, events.OrderPayload{
		OrderID: "o1", ProductID: "p1", SellerID: "seller-1", BuyerID: "buyer-1",
		Quantity: 2, Accepted: &rejected,
	})
	moves, _, _, err = s.movements(env)
	require.NoError(t, err)
	require.Len(t, moves, 1)
	assert.Equal(t, KindReturnRejected, moves[0].Kind)
	assert.Nil(t, moves[0].ToOwner, "rejected return keeps the goods with the buyer")
}

func TestMovementsStatusOnlyEvents(t *testing.T) {
	s := &Service{}
	for _, et := range []string{events.EventOrderDelivered, events.EventReturnRequested} {
		env := envelope(et, events.OrderPayload{OrderID: "o9"})
		moves, _, orderID, err := s.movements(env)
		require.NoError(t, err)
		assert.Empty(t, moves, "%s moves no stock", et)
		assert.Equal(t, "o9", orderID, "%s still refreshes the status cache", et)
	}
}

func TestMovementsUnknownEventIgnored(t *testing.T) {
	s := &Service{}
	moves, owners, orderID, err := s.movements(events.Envelope{EventID: "ev-x", EventType: "SomethingElse"})
	require.NoError(t, err)
	assert.Empty(t, moves)
	assert.Empty(t, owners)
	assert.Empty(t, orderID)
}
