package units

type Status string

const (
	StatusInFactory         Status = "IN_FACTORY"
	StatusInTransitToSeller Status = "IN_TRANSIT_TO_SELLER"
	StatusAtSeller          Status = "AT_SELLER"
	StatusSoldToBuyer       Status = "SOLD_TO_BUYER"
	StatusReturnRequested   Status = "RETURN_REQUESTED"
	StatusReturnedToSeller  Status = "RETURNED_TO_SELLER"
	StatusReturnedDefective Status = "RETURNED_DEFECTIVE"
)

var validNext = map[Status]map[Status]bool{
	StatusInFactory:         {StatusInTransitToSeller: true, StatusAtSeller: true},
	StatusInTransitToSeller: {StatusAtSeller: true},
	StatusAtSeller:          {StatusSoldToBuyer: true, StatusReturnedDefective: true},
	StatusSoldToBuyer:       {StatusReturnRequested: true},
	StatusReturnRequested:   {StatusReturnedToSeller: true, StatusSoldToBuyer: true},
	// A returned unit is sellable again without passing through AT_SELLER.
	StatusReturnedToSeller:  {StatusSoldToBuyer: true, StatusReturnedDefective: true},
	StatusReturnedDefective: {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Sellable reports whether a unit in this status counts as a seller's
// available stock.
func (s Status) Sellable() bool {
	return s == StatusAtSeller || s == StatusReturnedToSeller
}
