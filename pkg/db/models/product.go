package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/enums"
)

// Product represents a seller listing. Stock is the denormalized total: when
// variants exist it is derived as the sum of variant stocks, otherwise it is
// authoritative at this level.
type Product struct {
	ID                 uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	UserID             uuid.UUID              `gorm:"column:user_id;type:uuid;not null;index"`
	Name               string                 `gorm:"column:name;not null;index"`
	Description        *string                `gorm:"column:description"`
	PriceCents         int                    `gorm:"column:price_cents;not null"`
	DiscountPriceCents *int                   `gorm:"column:discount_price_cents"`
	Stock              int                    `gorm:"column:stock;not null;default:0"`
	Views              int                    `gorm:"column:views;not null;default:0"`
	Image              *string                `gorm:"column:image"`
	Images             []string               `gorm:"column:images;type:jsonb;serializer:json"`
	Category           *string                `gorm:"column:category"`
	Condition          enums.ProductCondition `gorm:"column:condition;type:text;not null;default:'used'"`
	Status             enums.ProductStatus    `gorm:"column:status;type:text;not null;default:'active'"`
	AllowDiscounts     bool                   `gorm:"column:allow_discounts;not null;default:true"`
	Variants           []ProductVariant       `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt          time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
