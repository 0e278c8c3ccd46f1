package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgdb "github.com/adhamNemr/nemr-store/pkg/db"
	"github.com/adhamNemr/nemr-store/pkg/db/models"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/pagination"
)

// effectivePriceExpr is the SQL rendition of EffectivePrice, used so the
// price sorts order by what buyers actually pay.
const effectivePriceExpr = "CASE WHEN discount_price_cents IS NOT NULL " +
	"AND discount_price_cents > 0 AND discount_price_cents < price_cents " +
	"THEN discount_price_cents ELSE price_cents END"

// Repository wires together catalog persistence helpers.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads the product without associations.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDWithVariants loads the product with its variant rows.
func (r *Repository) FindByIDWithVariants(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Preload("Variants", func(db *gorm.DB) *gorm.DB {
			return db.Order("color ASC, size ASC")
		}).
		First(&product, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// CreateProduct inserts a new product row.
func (r *Repository) CreateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// UpdateProduct updates an existing product row.
func (r *Repository) UpdateProduct(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct removes a product by ID.
func (r *Repository) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Product{}).Error
}

// ReplaceVariants swaps the whole variant matrix and resets the parent
// product counter to the new sum. Checkouts running between the delete and
// the insert see the matrix mid-swap; callers accept that window.
func (r *Repository) ReplaceVariants(ctx context.Context, productID uuid.UUID, variants []models.ProductVariant) error {
	tx := r.db.WithContext(ctx)
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductVariant{}).Error; err != nil {
		return err
	}
	if len(variants) > 0 {
		for i := range variants {
			variants[i].ProductID = productID
		}
		if err := tx.Create(&variants).Error; err != nil {
			// The pre-insert duplicate check cannot see rows a concurrent
			// writer is inserting; the unique index is the backstop.
			if pkgdb.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "variant combination already exists")
			}
			return err
		}
	}
	return recomputeProductStock(ctx, r.db, productID)
}

// DeleteVariants removes every variant row of the product.
func (r *Repository) DeleteVariants(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.ProductVariant{}).
		Error
}

// IncrementViews bumps the view counter without loading the row.
func (r *Repository) IncrementViews(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("views", gorm.Expr("views + 1")).
		Error
}

// PurgeCartItems drops every cart row referencing the product.
func (r *Repository) PurgeCartItems(ctx context.Context, productID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Delete(&models.CartItem{}).
		Error
}

// ListProducts returns one dashboard page plus the total matching count.
func (r *Repository) ListProducts(ctx context.Context, input ListProductsInput) (*ProductListResult, error) {
	limit := pagination.NormalizeLimit(input.Limit)
	offset := pagination.NormalizeOffset(input.Offset)

	applyFilters := func(qb *gorm.DB) *gorm.DB {
		if input.Actor.IsSeller() {
			qb = qb.Where("user_id = ?", input.Actor.ID)
		}
		if input.Category != nil {
			qb = qb.Where("category = ?", *input.Category)
		}
		if input.Condition != nil {
			qb = qb.Where("condition = ?", *input.Condition)
		}
		if input.Status != nil {
			qb = qb.Where("status = ?", *input.Status)
		}
		if search := strings.TrimSpace(input.Query); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			qb = qb.Where("(LOWER(name) LIKE ? OR LOWER(description) LIKE ?)", pattern, pattern)
		}
		return qb
	}

	var total int64
	if err := applyFilters(r.db.WithContext(ctx).Model(&models.Product{})).Count(&total).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count products")
	}

	qb := applyFilters(r.db.WithContext(ctx).Model(&models.Product{}))
	switch input.Sort {
	case ListSortPriceLow:
		qb = qb.Order(effectivePriceExpr + " ASC")
	case ListSortPriceHigh:
		qb = qb.Order(effectivePriceExpr + " DESC")
	case ListSortStockLow:
		qb = qb.Order("stock ASC")
	default:
		qb = qb.Order("created_at DESC")
	}

	var rows []models.Product
	err := qb.
		Preload("Variants").
		Limit(limit).
		Offset(offset).
		Find(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}

	result := &ProductListResult{Total: total, Limit: limit, Offset: offset}
	for i := range rows {
		result.Products = append(result.Products, *NewProductDTO(&rows[i]))
	}
	return result, nil
}
