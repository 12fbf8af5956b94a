package events

const (
	TopicUnits  = "chaintrack.units"
	TopicStock  = "chaintrack.stock"
	TopicOrders = "chaintrack.orders"
)

// Partition key = entity id, so every event for one order/product keeps its
// order on the topic.
func PartitionKey(id string) []byte { return []byte(id) }
