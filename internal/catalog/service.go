package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/adhamNemr/nemr-store/pkg/db"
	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/identity"
	"github.com/adhamNemr/nemr-store/pkg/logger"
	"github.com/adhamNemr/nemr-store/pkg/validate"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes catalog management operations.
type Service interface {
	CreateProduct(ctx context.Context, actor identity.Actor, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, actor identity.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeleteProduct(ctx context.Context, actor identity.Actor, productID uuid.UUID) error
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error)
}

type service struct {
	repo *Repository
	tx   txRunner
	log  *logger.Logger
}

// NewService constructs a catalog service instance.
func NewService(repo *Repository, tx txRunner, log *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, tx: tx, log: log}, nil
}

// EffectivePrice returns the amount a buyer pays in listings: the discount
// price when present, positive, and below base, otherwise the base price.
// Checkout always charges the base price.
func EffectivePrice(p *models.Product) int {
	if p.DiscountPriceCents != nil {
		if d := *p.DiscountPriceCents; d > 0 && d < p.PriceCents {
			return d
		}
	}
	return p.PriceCents
}

// CreateProduct creates the listing with its variant matrix, seller or
// admin only.
func (s *service) CreateProduct(ctx context.Context, actor identity.Actor, input CreateProductInput) (*ProductDTO, error) {
	if err := s.ensureCanManage(actor); err != nil {
		return nil, err
	}
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if err := validateDiscount(input.PriceCents, input.DiscountPriceCents); err != nil {
		return nil, err
	}

	stock := input.Stock
	if stock == nil {
		stock = FlatStock{}
	}
	variants, err := buildVariantRows(stock)
	if err != nil {
		return nil, err
	}

	product := &models.Product{
		UserID:             actor.ID,
		Name:               input.Name,
		Description:        input.Description,
		PriceCents:         input.PriceCents,
		DiscountPriceCents: input.DiscountPriceCents,
		AllowDiscounts:     input.AllowDiscounts,
		Stock:              stock.Total(),
		Category:           input.Category,
		Condition:          input.Condition,
		Status:             enums.ProductStatusActive,
		Image:              input.Image,
		Images:             input.Images,
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := txRepo.CreateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
		}
		if len(variants) > 0 {
			for i := range variants {
				variants[i].ProductID = product.ID
			}
			if err := tx.WithContext(ctx).Create(&variants).Error; err != nil {
				if pkgdb.IsUniqueViolation(err, "") {
					return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "variant combination already exists")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert variants")
			}
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
	}

	if s.log != nil {
		s.log.Info(s.log.WithProductID(ctx, product.ID.String()), "product created")
	}

	created, err := s.repo.FindByIDWithVariants(ctx, product.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(created), nil
}

// UpdateProduct mutates the listing; the variant matrix (when provided)
// replaces the previous one wholesale.
func (s *service) UpdateProduct(ctx context.Context, actor identity.Actor, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.loadOwned(ctx, actor, productID)
	if err != nil {
		return nil, err
	}

	applyProductUpdate(product, input)
	if err := validateDiscount(product.PriceCents, product.DiscountPriceCents); err != nil {
		return nil, err
	}

	var variants []models.ProductVariant
	if input.Stock != nil {
		variants, err = buildVariantRows(input.Stock)
		if err != nil {
			return nil, err
		}
	}

	if err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)

		switch stock := input.Stock.(type) {
		case nil:
			// inventory untouched
		case FlatStock:
			// flat stock clears any stale variant rows
			if err := txRepo.DeleteVariants(ctx, productID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: clear variants")
			}
			product.Stock = stock.Total()
		case VariantStock:
			if err := txRepo.ReplaceVariants(ctx, productID, variants); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: replace variants")
			}
			product.Stock = stock.Total()
		}

		if _, err := txRepo.UpdateProduct(ctx, product); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
		}
		return nil
	}); err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update product")
	}

	updated, err := s.repo.FindByIDWithVariants(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return NewProductDTO(updated), nil
}

// DeleteProduct removes the listing together with its variants and any cart
// rows still pointing at it.
func (s *service) DeleteProduct(ctx context.Context, actor identity.Actor, productID uuid.UUID) error {
	if _, err := s.loadOwned(ctx, actor, productID); err != nil {
		return err
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.DeleteVariants(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete variants")
		}
		if err := txRepo.PurgeCartItems(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: purge cart items")
		}
		if err := txRepo.DeleteProduct(ctx, productID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete product")
	}

	if s.log != nil {
		s.log.Info(s.log.WithProductID(ctx, productID.String()), "product deleted")
	}
	return nil
}

// GetProduct loads the listing and bumps its view counter. The bump is best
// effort and never fails the read.
func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByIDWithVariants(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if err := s.repo.IncrementViews(ctx, productID); err != nil {
		if s.log != nil {
			s.log.Warn(s.log.WithProductID(ctx, productID.String()), "view counter bump failed")
		}
	} else {
		product.Views++
	}

	return NewProductDTO(product), nil
}

// ListProducts returns one dashboard page. Sellers only ever see their own
// listings regardless of filters.
func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	if input.Actor.IsSeller() && input.Actor.ID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}
	return s.repo.ListProducts(ctx, input)
}

func (s *service) ensureCanManage(actor identity.Actor) error {
	if !actor.Known() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}
	if !actor.IsAdmin() && !actor.IsSeller() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "customers cannot manage listings")
	}
	return nil
}

// loadOwned loads the product and verifies the actor may mutate it.
func (s *service) loadOwned(ctx context.Context, actor identity.Actor, productID uuid.UUID) (*models.Product, error) {
	if err := s.ensureCanManage(actor); err != nil {
		return nil, err
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}

	if !actor.IsAdmin() && product.UserID != actor.ID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "product belongs to another seller")
	}
	return product, nil
}

func validateDiscount(priceCents int, discount *int) error {
	if discount == nil {
		return nil
	}
	if *discount <= 0 || *discount >= priceCents {
		return pkgerrors.New(pkgerrors.CodeValidation, "discount price must be positive and below the base price")
	}
	return nil
}

// buildVariantRows materializes a variant matrix, rejecting duplicate
// (color, size) pairs before the unique index would.
func buildVariantRows(stock StockModel) ([]models.ProductVariant, error) {
	matrix, ok := stock.(VariantStock)
	if !ok {
		return nil, nil
	}

	seen := make(map[string]struct{}, len(matrix.Variants))
	rows := make([]models.ProductVariant, 0, len(matrix.Variants))
	for _, v := range matrix.Variants {
		if v.Stock < 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant stock cannot be negative")
		}
		key := deref(v.Color) + "\x00" + deref(v.Size)
		if _, dup := seen[key]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("duplicate variant combination (%s, %s)", deref(v.Color), deref(v.Size)))
		}
		seen[key] = struct{}{}
		rows = append(rows, models.ProductVariant{
			Color:  v.Color,
			Size:   v.Size,
			Stock:  v.Stock,
			Images: v.Images,
		})
	}
	return rows, nil
}

func applyProductUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = *input.Name
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.PriceCents != nil {
		product.PriceCents = *input.PriceCents
	}
	if input.ClearDiscount {
		product.DiscountPriceCents = nil
	} else if input.DiscountPriceCents != nil {
		product.DiscountPriceCents = input.DiscountPriceCents
	}
	if input.AllowDiscounts != nil {
		product.AllowDiscounts = *input.AllowDiscounts
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.Condition != nil {
		product.Condition = *input.Condition
	}
	if input.Status != nil {
		product.Status = *input.Status
	}
	if input.Image != nil {
		product.Image = input.Image
	}
	if input.Images != nil {
		product.Images = *input.Images
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
