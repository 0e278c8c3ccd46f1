package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/enums"
)

// Order is a single checkout shared by every seller whose products appear in
// it. TotalCents is a snapshot summed from the line items at creation time
// and is never recalculated afterwards.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID           `gorm:"column:user_id;type:uuid;not null;index"`
	TotalCents      int                 `gorm:"column:total_cents;not null"`
	Status          enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ShippingAddress *string             `gorm:"column:shipping_address"`
	City            *string             `gorm:"column:city"`
	Phone           *string             `gorm:"column:phone"`
	PaymentMethod   enums.PaymentMethod `gorm:"column:payment_method;type:text;not null;default:'cash_on_delivery'"`
	Items           []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
