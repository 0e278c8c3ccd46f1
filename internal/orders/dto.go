package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/adhamNemr/nemr-store/pkg/enums"
)

// OrderLineInput is one requested line of a checkout.
type OrderLineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// PlaceOrderInput holds the validated checkout payload.
type PlaceOrderInput struct {
	BuyerID         uuid.UUID           `json:"buyer_id" validate:"required"`
	ShippingAddress *string             `json:"shipping_address"`
	City            *string             `json:"city"`
	Phone           *string             `json:"phone"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	Lines           []OrderLineInput    `json:"lines" validate:"min=1,dive"`
}

// PlaceOrderResult reports the committed order.
type PlaceOrderResult struct {
	OrderID    uuid.UUID `json:"order_id"`
	TotalCents int       `json:"total_cents"`
}

// OrderFilters describe the list query shared by every role.
type OrderFilters struct {
	Status *enums.OrderStatus
	Limit  int
	Offset int
}

// OrderItemDTO is one priced line, enriched with product and seller names.
type OrderItemDTO struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	SellerName  string    `json:"seller_name"`
	Quantity    int       `json:"quantity"`
	PriceCents  int       `json:"price_cents"`
}

// OrderSummary exposes one order row. For seller callers Items holds only
// that seller's lines; the shared status and shipping metadata is returned
// as stored.
type OrderSummary struct {
	ID              uuid.UUID           `json:"id"`
	BuyerID         uuid.UUID           `json:"buyer_id"`
	BuyerUsername   string              `json:"buyer_username"`
	BuyerEmail      string              `json:"buyer_email"`
	TotalCents      int                 `json:"total_cents"`
	Status          enums.OrderStatus   `json:"status"`
	ShippingAddress *string             `json:"shipping_address,omitempty"`
	City            *string             `json:"city,omitempty"`
	Phone           *string             `json:"phone,omitempty"`
	PaymentMethod   enums.PaymentMethod `json:"payment_method"`
	CreatedAt       time.Time           `json:"created_at"`
	Items           []OrderItemDTO      `json:"items"`
}

// OrderList wraps one page of orders with the total matching count.
type OrderList struct {
	Orders []OrderSummary `json:"orders"`
	Total  int64          `json:"total"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

// OrderStats is the dashboard counters block.
type OrderStats struct {
	TotalRevenueCents int64 `json:"total_revenue_cents"`
	PendingCount      int64 `json:"pending_count"`
	CompletedCount    int64 `json:"completed_count"`
	TotalOrders       int64 `json:"total_orders"`
}
