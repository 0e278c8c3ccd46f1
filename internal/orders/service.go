package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/internal/catalog"
	"github.com/adhamNemr/nemr-store/pkg/config"
	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/identity"
	"github.com/adhamNemr/nemr-store/pkg/logger"
	"github.com/adhamNemr/nemr-store/pkg/metrics"
	"github.com/adhamNemr/nemr-store/pkg/pagination"
	"github.com/adhamNemr/nemr-store/pkg/validate"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service defines the order engine operations.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error)
	UpdateOrderStatus(ctx context.Context, actor identity.Actor, orderID uuid.UUID, target string) (*OrderSummary, error)
	GetOrdersForRole(ctx context.Context, actor identity.Actor, filters OrderFilters) (*OrderList, error)
	ResolveSellerOrders(ctx context.Context, sellerID uuid.UUID, filters OrderFilters) (*OrderList, error)
	GetOrderStats(ctx context.Context, actor identity.Actor) (*OrderStats, error)
}

type service struct {
	repo     *Repository
	products *catalog.Repository
	tx       txRunner
	cfg      config.OrdersConfig
	log      *logger.Logger
	metrics  *metrics.OrderMetrics
}

// NewService constructs the order service.
func NewService(
	repo *Repository,
	products *catalog.Repository,
	tx txRunner,
	cfg config.OrdersConfig,
	log *logger.Logger,
	m *metrics.OrderMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	return &service{repo: repo, products: products, tx: tx, cfg: cfg, log: log, metrics: m}, nil
}

// PlaceOrder runs the whole checkout in one transaction: order row, one
// priced line per request line, conditional stock decrement per line, then
// the summed total. Any failure rolls everything back.
func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	result, err := s.placeOrder(ctx, input)
	if err != nil {
		s.metrics.IncFailed(failureReason(err))
		if s.log != nil && (pkgerrors.HasCode(err, pkgerrors.CodeDependency) || pkgerrors.HasCode(err, pkgerrors.CodeInternal)) {
			s.log.Error(s.log.WithUserID(ctx, input.BuyerID.String()), "order placement failed", err)
		}
		return nil, err
	}

	s.metrics.IncPlaced()
	if s.log != nil {
		lctx := s.log.WithOrderID(ctx, result.OrderID.String())
		lctx = s.log.WithUserID(lctx, input.BuyerID.String())
		s.log.Info(lctx, "order placed")
	}
	return result, nil
}

func (s *service) placeOrder(ctx context.Context, input PlaceOrderInput) (*PlaceOrderResult, error) {
	if err := validate.Struct(input); err != nil {
		return nil, err
	}
	if input.PaymentMethod != "" && !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	for _, line := range input.Lines {
		if s.cfg.MaxLineQuantity > 0 && line.Quantity > s.cfg.MaxLineQuantity {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("quantity %d exceeds the per-line cap of %d", line.Quantity, s.cfg.MaxLineQuantity))
		}
	}

	paymentMethod := input.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = enums.PaymentMethodCashOnDelivery
	}

	var result PlaceOrderResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		txProducts := s.products.WithTx(tx)

		order := &models.Order{
			UserID:          input.BuyerID,
			TotalCents:      0,
			Status:          enums.OrderStatusPending,
			ShippingAddress: input.ShippingAddress,
			City:            input.City,
			Phone:           input.Phone,
			PaymentMethod:   paymentMethod,
		}
		if _, err := txRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order")
		}

		total := 0
		for _, line := range input.Lines {
			product, err := txProducts.FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeNotFound,
						"product not found: "+line.ProductID.String())
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load product")
			}

			// lines are always priced at the base price, never the
			// listing discount
			item := &models.OrderItem{
				OrderID:    order.ID,
				ProductID:  product.ID,
				Quantity:   line.Quantity,
				PriceCents: product.PriceCents,
			}
			if _, err := txRepo.CreateOrderItem(ctx, item); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert order item")
			}

			err = catalog.DecrementStock(ctx, tx, catalog.DecrementStockRequest{
				ProductID: product.ID,
				Qty:       line.Quantity,
				MaxQty:    s.cfg.MaxLineQuantity,
			})
			if err != nil {
				return err
			}

			total += product.PriceCents * line.Quantity
		}

		if err := txRepo.UpdateTotal(ctx, order.ID, total); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: persist order total")
		}

		result = PlaceOrderResult{OrderID: order.ID, TotalCents: total}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "place order")
	}
	return &result, nil
}

// UpdateOrderStatus moves the order to the target status after the actor
// clears the attribution gate. Cancellation never restocks.
func (s *service) UpdateOrderStatus(ctx context.Context, actor identity.Actor, orderID uuid.UUID, target string) (*OrderSummary, error) {
	status, err := enums.ParseOrderStatus(target)
	if err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status: "+target)
	}

	if !actor.Known() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}
	if !actor.IsAdmin() && !actor.IsSeller() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "customers cannot change order status")
	}

	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}

	if actor.IsSeller() {
		touches, err := s.repo.SellerTouchesOrder(ctx, orderID, actor.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check order attribution")
		}
		if !touches {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order carries none of this seller's products")
		}
	}

	if err := authorizeTransition(order.Status, status); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update order status")
	}
	s.metrics.IncTransition(status.String())
	if s.log != nil {
		s.log.Info(s.log.WithOrderID(ctx, orderID.String()), "order status updated")
	}

	order.Status = status
	return &OrderSummary{
		ID:              order.ID,
		BuyerID:         order.UserID,
		TotalCents:      order.TotalCents,
		Status:          order.Status,
		ShippingAddress: order.ShippingAddress,
		City:            order.City,
		Phone:           order.Phone,
		PaymentMethod:   order.PaymentMethod,
		CreatedAt:       order.CreatedAt,
	}, nil
}

// GetOrdersForRole returns the order page the actor is allowed to see:
// admins everything, customers their own purchases, sellers their
// attributed slice.
func (s *service) GetOrdersForRole(ctx context.Context, actor identity.Actor, filters OrderFilters) (*OrderList, error) {
	if !actor.Known() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}

	switch actor.Role {
	case enums.RoleAdmin:
		return s.listOrders(ctx, orderListQuery{
			Status: filters.Status,
			Limit:  filters.Limit,
			Offset: filters.Offset,
		}, nil)
	case enums.RoleCustomer:
		buyerID := actor.ID
		return s.listOrders(ctx, orderListQuery{
			BuyerID: &buyerID,
			Status:  filters.Status,
			Limit:   filters.Limit,
			Offset:  filters.Offset,
		}, nil)
	case enums.RoleSeller:
		return s.ResolveSellerOrders(ctx, actor.ID, filters)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
}

// ResolveSellerOrders pages through the seller's attributed orders. The item
// lists are re-queried per page with the seller scope so no other seller's
// lines can leak into the result.
func (s *service) ResolveSellerOrders(ctx context.Context, sellerID uuid.UUID, filters OrderFilters) (*OrderList, error) {
	ids, err := s.repo.DistinctSellerOrderIDs(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve attributed orders")
	}
	if len(ids) == 0 {
		return &OrderList{
			Orders: []OrderSummary{},
			Total:  0,
			Limit:  pagination.NormalizeLimit(filters.Limit),
			Offset: pagination.NormalizeOffset(filters.Offset),
		}, nil
	}

	return s.listOrders(ctx, orderListQuery{
		IDs:    ids,
		Status: filters.Status,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	}, &sellerID)
}

func (s *service) listOrders(ctx context.Context, query orderListQuery, sellerScope *uuid.UUID) (*OrderList, error) {
	rows, total, err := s.repo.ListOrders(ctx, query)
	if err != nil {
		return nil, err
	}

	pageIDs := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		pageIDs = append(pageIDs, row.ID)
	}
	items, err := s.repo.ItemsForOrders(ctx, pageIDs, sellerScope)
	if err != nil {
		return nil, err
	}

	list := &OrderList{
		Orders: make([]OrderSummary, 0, len(rows)),
		Total:  total,
		Limit:  pagination.NormalizeLimit(query.Limit),
		Offset: pagination.NormalizeOffset(query.Offset),
	}
	for _, row := range rows {
		list.Orders = append(list.Orders, OrderSummary{
			ID:              row.ID,
			BuyerID:         row.UserID,
			BuyerUsername:   row.BuyerUsername,
			BuyerEmail:      row.BuyerEmail,
			TotalCents:      row.TotalCents,
			Status:          row.Status,
			ShippingAddress: row.ShippingAddress,
			City:            row.City,
			Phone:           row.Phone,
			PaymentMethod:   row.PaymentMethod,
			CreatedAt:       row.CreatedAt,
			Items:           items[row.ID],
		})
	}
	return list, nil
}

// GetOrderStats returns the dashboard counters for the actor's scope.
func (s *service) GetOrderStats(ctx context.Context, actor identity.Actor) (*OrderStats, error) {
	if !actor.Known() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}

	switch actor.Role {
	case enums.RoleAdmin:
		return s.repo.AdminStats(ctx)
	case enums.RoleSeller:
		return s.repo.SellerStats(ctx, actor.ID)
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "stats are restricted to admins and sellers")
	}
}

// failureReason maps an error to a low-cardinality metric label.
func failureReason(err error) string {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "internal"
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation:
		return "validation"
	case pkgerrors.CodeNotFound:
		return "not_found"
	case pkgerrors.CodeInsufficientStock:
		return "insufficient_stock"
	default:
		return "dependency"
	}
}
