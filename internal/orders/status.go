package orders

type Status string

const (
	StatusAwaitingConfirmation Status = "AWAITING_CONFIRMATION"
	StatusConfirmed            Status = "CONFIRMED"
	StatusDelivered            Status = "DELIVERED"
	StatusReturnRequested      Status = "RETURN_REQUESTED"
	StatusReturned             Status = "RETURNED"
)

// Cancellation is not an edge here: it deletes the order outright instead of
// transitioning it, and is only allowed from AWAITING_CONFIRMATION.
var validNext = map[Status]map[Status]bool{
	StatusAwaitingConfirmation: {StatusConfirmed: true},
	StatusConfirmed:            {StatusDelivered: true},
	StatusDelivered:            {StatusReturnRequested: true},
	StatusReturnRequested:      {StatusReturned: true, StatusDelivered: true},
	StatusReturned:             {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}
