package catalog

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/db/models"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
)

// StockModel is the inventory shape of a product: a single flat counter, or
// a variant matrix whose per-combination counters are authoritative and roll
// up into the product-level total.
type StockModel interface {
	// Total returns the derived product-level stock.
	Total() int

	isStockModel()
}

// FlatStock tracks inventory with a single product-level counter.
type FlatStock struct {
	Count int
}

func (s FlatStock) Total() int { return s.Count }

func (FlatStock) isStockModel() {}

// VariantStock tracks inventory per (color, size) combination.
type VariantStock struct {
	Variants []VariantInput
}

func (s VariantStock) Total() int {
	total := 0
	for _, v := range s.Variants {
		total += v.Stock
	}
	return total
}

func (VariantStock) isStockModel() {}

// DecrementStockRequest asks for qty units to be taken from a product, or
// from one of its variants when VariantID is set.
type DecrementStockRequest struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Qty       int

	// MaxQty, when positive, caps how many units one request may take.
	MaxQty int
}

// DecrementStock atomically takes stock inside the caller's transaction. The
// guard lives in the UPDATE itself: zero affected rows means the row is
// missing or the counter would have gone negative, so the caller's
// transaction must abort. No prior SELECT is trusted for availability.
func DecrementStock(ctx context.Context, tx *gorm.DB, req DecrementStockRequest) error {
	if req.Qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if req.MaxQty > 0 && req.Qty > req.MaxQty {
		return pkgerrors.New(pkgerrors.CodeValidation,
			fmt.Sprintf("quantity %d exceeds the per-line cap of %d", req.Qty, req.MaxQty))
	}

	if req.VariantID != nil {
		res := tx.WithContext(ctx).
			Model(&models.ProductVariant{}).
			Where("id = ? AND product_id = ? AND stock >= ?", *req.VariantID, req.ProductID, req.Qty).
			Update("stock", gorm.Expr("stock - ?", req.Qty))
		if res.Error != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: decrement variant stock")
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.WithContext(ctx).
				Model(&models.ProductVariant{}).
				Where("id = ? AND product_id = ?", *req.VariantID, req.ProductID).
				Count(&count).Error; err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check variant")
			}
			if count == 0 {
				return pkgerrors.New(pkgerrors.CodeNotFound,
					fmt.Sprintf("product variant not found: %s", req.VariantID))
			}
			return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": req.ProductID.String(),
					"variant_id": req.VariantID.String(),
					"requested":  req.Qty,
				})
		}
		return recomputeProductStock(ctx, tx, req.ProductID)
	}

	res := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock >= ?", req.ProductID, req.Qty).
		Update("stock", gorm.Expr("stock - ?", req.Qty))
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "db: decrement product stock")
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := tx.WithContext(ctx).
			Model(&models.Product{}).
			Where("id = ?", req.ProductID).
			Count(&count).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: check product")
		}
		if count == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound,
				fmt.Sprintf("product not found: %s", req.ProductID))
		}
		return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
			WithDetails(map[string]any{
				"product_id": req.ProductID.String(),
				"requested":  req.Qty,
			})
	}
	return nil
}

// recomputeProductStock resets the denormalized product counter to the sum
// of its variant counters.
func recomputeProductStock(ctx context.Context, tx *gorm.DB, productID uuid.UUID) error {
	err := tx.WithContext(ctx).Exec(
		"UPDATE products SET stock = (SELECT COALESCE(SUM(stock), 0) FROM product_variants WHERE product_id = ?) WHERE id = ?",
		productID, productID,
	).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: recompute product stock")
	}
	return nil
}
