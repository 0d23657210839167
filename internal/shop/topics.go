package shop

const (
	TopicOrderCreated   = "storefront.order.created"
	TopicOrderDelivered = "storefront.order.delivered"
	TopicOrderCancelled = "storefront.order.cancelled"
)

// Partition key = order id, so all events for one order stay in order.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
