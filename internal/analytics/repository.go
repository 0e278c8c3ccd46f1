package analytics

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
)

// Repository holds the aggregation queries. Reads are uncoordinated; any
// query error aborts the caller's whole report.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

type revenueAgg struct {
	RevenueCents int64
	OrderCount   int64
}

// AdminRevenue sums order totals created at or after the window start.
func (r *Repository) AdminRevenue(ctx context.Context, since time.Time) (*revenueAgg, error) {
	var agg revenueAgg
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("COALESCE(SUM(total_cents), 0) AS revenue_cents, COUNT(*) AS order_count").
		Where("created_at >= ?", since).
		Scan(&agg).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: admin revenue")
	}
	return &agg, nil
}

// SellerRevenue sums the seller's item snapshots over orders created in the
// window, with the distinct count of orders those items touch.
func (r *Repository) SellerRevenue(ctx context.Context, sellerID uuid.UUID, since time.Time) (*revenueAgg, error) {
	var agg revenueAgg
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("COALESCE(SUM(oi.price_cents * oi.quantity), 0) AS revenue_cents, "+
			"COUNT(DISTINCT oi.order_id) AS order_count").
		Joins("JOIN products p ON p.id = oi.product_id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("p.user_id = ? AND o.created_at >= ?", sellerID, since).
		Scan(&agg).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seller revenue")
	}
	return &agg, nil
}

// CountProducts counts listings, scoped to one seller when set.
func (r *Repository) CountProducts(ctx context.Context, sellerID *uuid.UUID) (int64, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{})
	if sellerID != nil {
		qb = qb.Where("user_id = ?", *sellerID)
	}
	var count int64
	if err := qb.Count(&count).Error; err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count products")
	}
	return count, nil
}

type saleRow struct {
	CreatedAt time.Time
	Amount    int64
}

// SalesRows returns every revenue event in the window: for admins one row
// per order, for sellers one row per own order line.
func (r *Repository) SalesRows(ctx context.Context, sellerID *uuid.UUID, since time.Time) ([]saleRow, error) {
	var rows []saleRow
	var err error
	if sellerID == nil {
		err = r.db.WithContext(ctx).
			Table("orders").
			Select("created_at, total_cents AS amount").
			Where("created_at >= ?", since).
			Scan(&rows).
			Error
	} else {
		err = r.db.WithContext(ctx).
			Table("order_items oi").
			Select("o.created_at AS created_at, oi.price_cents * oi.quantity AS amount").
			Joins("JOIN products p ON p.id = oi.product_id").
			Joins("JOIN orders o ON o.id = oi.order_id").
			Where("p.user_id = ? AND o.created_at >= ?", *sellerID, since).
			Scan(&rows).
			Error
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: sales rows")
	}
	return rows, nil
}

type productRow struct {
	ID    uuid.UUID
	Name  string
	Views int
}

// Products lists id, name, and the all-time view counter, scoped by seller.
func (r *Repository) Products(ctx context.Context, sellerID *uuid.UUID) ([]productRow, error) {
	qb := r.db.WithContext(ctx).Model(&models.Product{}).Select("id, name, views")
	if sellerID != nil {
		qb = qb.Where("user_id = ?", *sellerID)
	}
	var rows []productRow
	if err := qb.Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list products")
	}
	return rows, nil
}

type productCount struct {
	ProductID uuid.UUID
	Count     int64
}

// CartCounts reports how many distinct carts reference each product.
func (r *Repository) CartCounts(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]int64, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]int64{}, nil
	}
	var rows []productCount
	err := r.db.WithContext(ctx).
		Table("cart_items").
		Select("product_id, COUNT(DISTINCT user_id) AS count").
		Where("product_id IN ?", productIDs).
		Group("product_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: cart counts")
	}
	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.ProductID] = row.Count
	}
	return counts, nil
}

type soldAgg struct {
	ProductID    uuid.UUID
	Units        int64
	RevenueCents int64
}

// SoldInWindow aggregates units and revenue per product over orders created
// in the window.
func (r *Repository) SoldInWindow(ctx context.Context, productIDs []uuid.UUID, since time.Time) (map[uuid.UUID]soldAgg, error) {
	if len(productIDs) == 0 {
		return map[uuid.UUID]soldAgg{}, nil
	}
	var rows []soldAgg
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("oi.product_id AS product_id, "+
			"COALESCE(SUM(oi.quantity), 0) AS units, "+
			"COALESCE(SUM(oi.price_cents * oi.quantity), 0) AS revenue_cents").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.product_id IN ? AND o.created_at >= ?", productIDs, since).
		Group("oi.product_id").
		Scan(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: window sales")
	}
	sold := make(map[uuid.UUID]soldAgg, len(rows))
	for _, row := range rows {
		sold[row.ProductID] = row
	}
	return sold, nil
}

// Categories counts listings per category label, scoped by seller. Null and
// empty categories collapse into Uncategorized.
func (r *Repository) Categories(ctx context.Context, sellerID *uuid.UUID) ([]CategoryCount, error) {
	qb := r.db.WithContext(ctx).
		Table("products").
		Select("COALESCE(NULLIF(category, ''), 'Uncategorized') AS category, COUNT(*) AS count")
	if sellerID != nil {
		qb = qb.Where("user_id = ?", *sellerID)
	}
	var rows []CategoryCount
	if err := qb.Group("COALESCE(NULLIF(category, ''), 'Uncategorized')").Order("count DESC").Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: category distribution")
	}
	return rows, nil
}

// AdminCustomers pages through customer users with their order aggregates.
func (r *Repository) AdminCustomers(ctx context.Context, query string, limit, offset int) ([]CustomerEntry, int64, error) {
	applyFilter := func(qb *gorm.DB) *gorm.DB {
		qb = qb.Where("users.role = ?", enums.RoleCustomer)
		if search := strings.TrimSpace(query); search != "" {
			pattern := "%" + strings.ToLower(search) + "%"
			qb = qb.Where("(LOWER(users.username) LIKE ? OR LOWER(users.email) LIKE ?)", pattern, pattern)
		}
		return qb
	}

	var total int64
	if err := applyFilter(r.db.WithContext(ctx).Table("users")).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count customers")
	}

	type customerRow struct {
		UserID          uuid.UUID
		Username        string
		Email           string
		OrderCount      int64
		TotalSpendCents int64
		LastOrderAt     *time.Time
	}
	var rows []customerRow
	err := applyFilter(r.db.WithContext(ctx).Table("users")).
		Select("users.id AS user_id, users.username, users.email, " +
			"COUNT(orders.id) AS order_count, " +
			"COALESCE(SUM(orders.total_cents), 0) AS total_spend_cents, " +
			"MAX(orders.created_at) AS last_order_at").
		Joins("LEFT JOIN orders ON orders.user_id = users.id").
		Group("users.id, users.username, users.email").
		Order("total_spend_cents DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).
		Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: customer directory")
	}

	entries := make([]CustomerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, CustomerEntry{
			UserID:          row.UserID,
			Username:        row.Username,
			Email:           row.Email,
			OrderCount:      row.OrderCount,
			TotalSpendCents: row.TotalSpendCents,
			LastOrderAt:     row.LastOrderAt,
		})
	}
	return entries, total, nil
}

type sellerCustomerRow struct {
	BuyerID   uuid.UUID
	Username  string
	Email     string
	OrderID   uuid.UUID
	CreatedAt time.Time
	Amount    int64
}

// SellerCustomerRows loads one row per own order line joined to its buyer;
// the service folds them into per-buyer aggregates.
func (r *Repository) SellerCustomerRows(ctx context.Context, sellerID uuid.UUID) ([]sellerCustomerRow, error) {
	var rows []sellerCustomerRow
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("u.id AS buyer_id, u.username, u.email, o.id AS order_id, "+
			"o.created_at AS created_at, oi.price_cents * oi.quantity AS amount").
		Joins("JOIN products p ON p.id = oi.product_id").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Joins("JOIN users u ON u.id = o.user_id").
		Where("p.user_id = ?", sellerID).
		Scan(&rows).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seller customer rows")
	}
	return rows, nil
}
