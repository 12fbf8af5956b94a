package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderStatusGraph(t *testing.T) {
	all := []Status{
		StatusAwaitingConfirmation,
		StatusConfirmed,
		StatusDelivered,
		StatusReturnRequested,
		StatusReturned,
	}
	allowed := map[[2]Status]bool{
		{StatusAwaitingConfirmation, StatusConfirmed}: true,
		{StatusConfirmed, StatusDelivered}:            true,
		{StatusDelivered, StatusReturnRequested}:      true,
		{StatusReturnRequested, StatusReturned}:       true,
		{StatusReturnRequested, StatusDelivered}:      true,
	}
	for _, from := range all {
		for _, to := range all {
			assert.Equal(t, allowed[[2]Status{from, to}], CanTransition(from, to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestReturnedIsTerminal(t *testing.T) {
	for _, to := range []Status{StatusAwaitingConfirmation, StatusConfirmed, StatusDelivered, StatusReturnRequested, StatusReturned} {
		assert.False(t, CanTransition(StatusReturned, to))
	}
}
