package service

import "context"

// Event types and actions pushed to live clients.
const (
	EventStockUpdate = "stock_update"
	EventOrderUpdate = "order_update"

	ActionProductCreated = "product_created"
	ActionProductUpdated = "product_updated"
	ActionProductDeleted = "product_deleted"
	ActionOrderCreated   = "order_created"
	ActionStatusChanged  = "status_changed"
)

// EventPublisher broadcasts committed changes. Implementations must not block.
type EventPublisher interface {
	Publish(eventType, action string, data interface{}, message string)
}

// FacetCache stores computed facet listings per category. Get returns the
// generation a miss must be filled under; Invalidate retires it.
type FacetCache interface {
	Get(ctx context.Context, category string, dst interface{}) (int64, bool, error)
	Set(ctx context.Context, generation int64, category string, v interface{}) error
	Invalidate(ctx context.Context) error
}
