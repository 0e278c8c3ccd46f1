package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ProductVariant is one (color,size) combination of a product. Variant stock
// is authoritative; the parent product's stock is recomputed as the sum
// whenever a variant row changes.
type ProductVariant struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID  `gorm:"column:product_id;type:uuid;not null;uniqueIndex:idx_product_variants_combo"`
	Color     *string    `gorm:"column:color;uniqueIndex:idx_product_variants_combo"`
	Size      *string    `gorm:"column:size;uniqueIndex:idx_product_variants_combo"`
	Stock     int        `gorm:"column:stock;not null;default:0"`
	Images    []string   `gorm:"column:images;type:jsonb;serializer:json"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// BeforeCreate assigns an id when the caller did not provide one.
func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
