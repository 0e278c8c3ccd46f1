package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/pagination"
)

// Repository wires together order persistence helpers.
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

// CreateOrder inserts a new order row.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return nil, err
	}
	return order, nil
}

// CreateOrderItem inserts one priced line.
func (r *Repository) CreateOrderItem(ctx context.Context, item *models.OrderItem) (*models.OrderItem, error) {
	if err := r.db.WithContext(ctx).Create(item).Error; err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateTotal persists the summed order total.
func (r *Repository) UpdateTotal(ctx context.Context, orderID uuid.UUID, totalCents int) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("total_cents", totalCents).
		Error
}

// FindByID loads the order without item enrichment.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	if err := r.db.WithContext(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatus writes the status column and nothing else.
func (r *Repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("status", status).
		Error
}

// SellerTouchesOrder reports whether at least one line of the order belongs
// to a product this seller owns.
func (r *Repository) SellerTouchesOrder(ctx context.Context, orderID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("oi.order_id = ? AND p.user_id = ?", orderID, sellerID).
		Count(&count).
		Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DistinctSellerOrderIDs returns every order id carrying at least one of the
// seller's products. This is the attribution anchor: everything a seller is
// shown derives from this set.
func (r *Repository) DistinctSellerOrderIDs(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("p.user_id = ?", sellerID).
		Distinct("oi.order_id").
		Pluck("oi.order_id", &ids).
		Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// orderListQuery scopes the shared order listing.
type orderListQuery struct {
	IDs     []uuid.UUID
	BuyerID *uuid.UUID
	Status  *enums.OrderStatus
	Limit   int
	Offset  int
}

// orderRow is the joined scan target for order pages.
type orderRow struct {
	ID              uuid.UUID
	UserID          uuid.UUID
	TotalCents      int
	Status          enums.OrderStatus
	ShippingAddress *string
	City            *string
	Phone           *string
	PaymentMethod   enums.PaymentMethod
	CreatedAt       time.Time
	BuyerUsername   string
	BuyerEmail      string
}

// ListOrders returns one page of orders joined to their buyers, newest
// first, plus the total matching count.
func (r *Repository) ListOrders(ctx context.Context, query orderListQuery) ([]orderRow, int64, error) {
	limit := pagination.NormalizeLimit(query.Limit)
	offset := pagination.NormalizeOffset(query.Offset)

	applyFilters := func(qb *gorm.DB) *gorm.DB {
		if len(query.IDs) > 0 {
			qb = qb.Where("orders.id IN ?", query.IDs)
		}
		if query.BuyerID != nil {
			qb = qb.Where("orders.user_id = ?", *query.BuyerID)
		}
		if query.Status != nil {
			qb = qb.Where("orders.status = ?", *query.Status)
		}
		return qb
	}

	var total int64
	if err := applyFilters(r.db.WithContext(ctx).Table("orders")).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: count orders")
	}

	var rows []orderRow
	err := applyFilters(r.db.WithContext(ctx).Table("orders")).
		Select("orders.id, orders.user_id, orders.total_cents, orders.status, " +
			"orders.shipping_address, orders.city, orders.phone, orders.payment_method, " +
			"orders.created_at, users.username AS buyer_username, users.email AS buyer_email").
		Joins("JOIN users ON users.id = orders.user_id").
		Order("orders.created_at DESC").
		Limit(limit).
		Offset(offset).
		Scan(&rows).
		Error
	if err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: list orders")
	}
	return rows, total, nil
}

// itemRow is the joined scan target for order line enrichment.
type itemRow struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   uuid.UUID
	Quantity    int
	PriceCents  int
	ProductName string
	SellerName  string
}

// ItemsForOrders loads the lines of the given orders joined to product and
// seller names. When sellerID is set only that seller's lines come back;
// lines of since-deleted products drop out of the join.
func (r *Repository) ItemsForOrders(ctx context.Context, orderIDs []uuid.UUID, sellerID *uuid.UUID) (map[uuid.UUID][]OrderItemDTO, error) {
	if len(orderIDs) == 0 {
		return map[uuid.UUID][]OrderItemDTO{}, nil
	}

	qb := r.db.WithContext(ctx).
		Table("order_items oi").
		Select("oi.id, oi.order_id, oi.product_id, oi.quantity, oi.price_cents, "+
			"p.name AS product_name, u.username AS seller_name").
		Joins("JOIN products p ON p.id = oi.product_id").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("oi.order_id IN ?", orderIDs)
	if sellerID != nil {
		qb = qb.Where("p.user_id = ?", *sellerID)
	}

	var rows []itemRow
	if err := qb.Order("oi.created_at ASC").Scan(&rows).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load order items")
	}

	grouped := make(map[uuid.UUID][]OrderItemDTO, len(orderIDs))
	for _, row := range rows {
		grouped[row.OrderID] = append(grouped[row.OrderID], OrderItemDTO{
			ID:          row.ID,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			SellerName:  row.SellerName,
			Quantity:    row.Quantity,
			PriceCents:  row.PriceCents,
		})
	}
	return grouped, nil
}

// AdminStats aggregates counters over the whole orders table.
func (r *Repository) AdminStats(ctx context.Context) (*OrderStats, error) {
	var stats OrderStats
	err := r.db.WithContext(ctx).
		Table("orders").
		Select("COUNT(*) AS total_orders, "+
			"COALESCE(SUM(total_cents), 0) AS total_revenue_cents, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending_count, "+
			"COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS completed_count",
			enums.OrderStatusPending, enums.OrderStatusCompleted).
		Scan(&stats).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: admin order stats")
	}
	return &stats, nil
}

// SellerStats aggregates counters over the seller's attributed slice:
// revenue from their own line snapshots, counts over the distinct orders
// those lines touch.
func (r *Repository) SellerStats(ctx context.Context, sellerID uuid.UUID) (*OrderStats, error) {
	var stats OrderStats

	err := r.db.WithContext(ctx).
		Table("order_items oi").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("p.user_id = ?", sellerID).
		Select("COALESCE(SUM(oi.price_cents * oi.quantity), 0)").
		Scan(&stats.TotalRevenueCents).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seller revenue")
	}

	type statusCount struct {
		Status enums.OrderStatus
		Count  int64
	}
	var counts []statusCount
	err = r.db.WithContext(ctx).
		Table("orders o").
		Select("o.status AS status, COUNT(DISTINCT o.id) AS count").
		Joins("JOIN order_items oi ON oi.order_id = o.id").
		Joins("JOIN products p ON p.id = oi.product_id").
		Where("p.user_id = ?", sellerID).
		Group("o.status").
		Scan(&counts).
		Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: seller status counts")
	}

	for _, c := range counts {
		stats.TotalOrders += c.Count
		switch c.Status {
		case enums.OrderStatusPending:
			stats.PendingCount = c.Count
		case enums.OrderStatusCompleted:
			stats.CompletedCount = c.Count
		}
	}
	return &stats, nil
}
