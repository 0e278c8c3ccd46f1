package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	"github.com/adhamNemr/nemr-store/pkg/identity"
)

// VariantInput is one (color, size) combination of a variant matrix.
type VariantInput struct {
	Color  *string  `json:"color"`
	Size   *string  `json:"size"`
	Stock  int      `json:"stock" validate:"min=0"`
	Images []string `json:"images"`
}

// CreateProductInput holds the validated payload to create a listing.
type CreateProductInput struct {
	Name               string                  `json:"name" validate:"required"`
	Description        *string                 `json:"description"`
	PriceCents         int                     `json:"price_cents" validate:"gt=0"`
	DiscountPriceCents *int                    `json:"discount_price_cents"`
	AllowDiscounts     bool                    `json:"allow_discounts"`
	Category           *string                 `json:"category"`
	Condition          enums.ProductCondition  `json:"condition" validate:"required"`
	Image              *string                 `json:"image"`
	Images             []string                `json:"images"`
	Stock              StockModel              `json:"-"`
}

// UpdateProductInput holds optional mutation values; nil means keep.
type UpdateProductInput struct {
	Name               *string                 `json:"name"`
	Description        *string                 `json:"description"`
	PriceCents         *int                    `json:"price_cents"`
	DiscountPriceCents *int                    `json:"discount_price_cents"`
	ClearDiscount      bool                    `json:"clear_discount"`
	AllowDiscounts     *bool                   `json:"allow_discounts"`
	Category           *string                 `json:"category"`
	Condition          *enums.ProductCondition `json:"condition"`
	Status             *enums.ProductStatus    `json:"status"`
	Image              *string                 `json:"image"`
	Images             *[]string               `json:"images"`
	Stock              StockModel              `json:"-"`
}

// ListSort names the supported listing sort keys.
type ListSort string

const (
	ListSortNewest    ListSort = "newest"
	ListSortPriceLow  ListSort = "price-low"
	ListSortPriceHigh ListSort = "price-high"
	ListSortStockLow  ListSort = "stock-low"
)

// ListProductsInput describes the dashboard listing query.
type ListProductsInput struct {
	Actor     identity.Actor
	Query     string
	Category  *string
	Condition *enums.ProductCondition
	Status    *enums.ProductStatus
	Sort      ListSort
	Limit     int
	Offset    int
}

// VariantDTO exposes one variant row.
type VariantDTO struct {
	ID     uuid.UUID `json:"id"`
	Color  *string   `json:"color,omitempty"`
	Size   *string   `json:"size,omitempty"`
	Stock  int       `json:"stock"`
	Images []string  `json:"images,omitempty"`
}

// ProductDTO is the read model returned by catalog operations.
type ProductDTO struct {
	ID                  uuid.UUID              `json:"id"`
	SellerID            uuid.UUID              `json:"seller_id"`
	Name                string                 `json:"name"`
	Description         *string                `json:"description,omitempty"`
	PriceCents          int                    `json:"price_cents"`
	DiscountPriceCents  *int                   `json:"discount_price_cents,omitempty"`
	EffectivePriceCents int                    `json:"effective_price_cents"`
	AllowDiscounts      bool                   `json:"allow_discounts"`
	Stock               int                    `json:"stock"`
	Views               int                    `json:"views"`
	Category            *string                `json:"category,omitempty"`
	Condition           enums.ProductCondition `json:"condition"`
	Status              enums.ProductStatus    `json:"status"`
	Image               *string                `json:"image,omitempty"`
	Images              []string               `json:"images,omitempty"`
	Variants            []VariantDTO           `json:"variants,omitempty"`
	CreatedAt           time.Time              `json:"created_at"`
	UpdatedAt           time.Time              `json:"updated_at"`
}

// ProductListResult wraps one listing page with its total count.
type ProductListResult struct {
	Products []ProductDTO `json:"products"`
	Total    int64        `json:"total"`
	Limit    int          `json:"limit"`
	Offset   int          `json:"offset"`
}

// NewProductDTO maps a model row (with loaded variants) to the read model.
func NewProductDTO(p *models.Product) *ProductDTO {
	dto := &ProductDTO{
		ID:                  p.ID,
		SellerID:            p.UserID,
		Name:                p.Name,
		Description:         p.Description,
		PriceCents:          p.PriceCents,
		DiscountPriceCents:  p.DiscountPriceCents,
		EffectivePriceCents: EffectivePrice(p),
		AllowDiscounts:      p.AllowDiscounts,
		Stock:               p.Stock,
		Views:               p.Views,
		Category:            p.Category,
		Condition:           p.Condition,
		Status:              p.Status,
		Image:               p.Image,
		Images:              p.Images,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
	for _, v := range p.Variants {
		dto.Variants = append(dto.Variants, VariantDTO{
			ID:     v.ID,
			Color:  v.Color,
			Size:   v.Size,
			Stock:  v.Stock,
			Images: v.Images,
		})
	}
	return dto
}
