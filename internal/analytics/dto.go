package analytics

import (
	"time"

	"github.com/google/uuid"
)

// GlobalStats is the dashboard headline block for one window.
type GlobalStats struct {
	RevenueCents       int64 `json:"revenue_cents"`
	OrderCount         int64 `json:"order_count"`
	ProductCount       int64 `json:"product_count"`
	AvgOrderValueCents int64 `json:"avg_order_value_cents"`
}

// SalesPoint is one day of the zero-filled revenue series.
type SalesPoint struct {
	Date         string `json:"date"`
	RevenueCents int64  `json:"revenue_cents"`
}

// ProductInsight summarizes one product's funnel for the window. Views and
// cart presence are all-time; units and revenue cover the window only.
type ProductInsight struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Views          int       `json:"views"`
	CartCount      int64     `json:"cart_count"`
	UnitsSold      int64     `json:"units_sold"`
	RevenueCents   int64     `json:"revenue_cents"`
	ConversionRate float64   `json:"conversion_rate"`
}

// CategoryCount is one slice of the category distribution.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// CustomerEntry is one aggregated buyer row of the directory.
type CustomerEntry struct {
	UserID          uuid.UUID  `json:"user_id"`
	Username        string     `json:"username"`
	Email           string     `json:"email"`
	OrderCount      int64      `json:"order_count"`
	TotalSpendCents int64      `json:"total_spend_cents"`
	LastOrderAt     *time.Time `json:"last_order_at,omitempty"`
}

// CustomerDirectory wraps one page of customers.
type CustomerDirectory struct {
	Customers []CustomerEntry `json:"customers"`
	Total     int64           `json:"total"`
	Limit     int             `json:"limit"`
	Offset    int             `json:"offset"`
}
