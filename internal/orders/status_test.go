package orders

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/identity"
)

func placeTestOrder(t *testing.T, svc Service, buyerID, productID uuid.UUID, qty int) uuid.UUID {
	t.Helper()
	result, err := svc.PlaceOrder(context.Background(), PlaceOrderInput{
		BuyerID: buyerID,
		Lines:   []OrderLineInput{{ProductID: productID, Quantity: qty}},
	})
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	return result.OrderID
}

func TestUpdateOrderStatusRoles(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()

	seller := mustCreateUser(t, conn, enums.RoleSeller)
	outsider := mustCreateUser(t, conn, enums.RoleSeller)
	buyer := mustCreateUser(t, conn, enums.RoleCustomer)
	product := mustCreateProduct(t, conn, seller.ID, 100, 10)
	orderID := placeTestOrder(t, svc, buyer.ID, product.ID, 1)

	// customers never move orders
	_, err := svc.UpdateOrderStatus(ctx, identity.Actor{ID: buyer.ID, Role: enums.RoleCustomer}, orderID, "processing")
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for customer, got %v", err)
	}

	// a seller with no line in the order fails the attribution gate
	_, err = svc.UpdateOrderStatus(ctx, identity.Actor{ID: outsider.ID, Role: enums.RoleSeller}, orderID, "processing")
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden for outside seller, got %v", err)
	}

	// the attributed seller may move it
	summary, err := svc.UpdateOrderStatus(ctx, identity.Actor{ID: seller.ID, Role: enums.RoleSeller}, orderID, "processing")
	if err != nil {
		t.Fatalf("seller update: %v", err)
	}
	if summary.Status != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", summary.Status)
	}

	// admins may move any order, sequence not enforced
	summary, err = svc.UpdateOrderStatus(ctx, identity.Actor{ID: uuid.New(), Role: enums.RoleAdmin}, orderID, "delivered")
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if summary.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected delivered, got %s", summary.Status)
	}
}

func TestUpdateOrderStatusValidation(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	admin := identity.Actor{ID: uuid.New(), Role: enums.RoleAdmin}

	_, err := svc.UpdateOrderStatus(ctx, admin, uuid.New(), "teleported")
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = svc.UpdateOrderStatus(ctx, admin, uuid.New(), "processing")
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateOrderStatusTerminalStatesRefuse(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	admin := identity.Actor{ID: uuid.New(), Role: enums.RoleAdmin}

	seller := mustCreateUser(t, conn, enums.RoleSeller)
	buyer := mustCreateUser(t, conn, enums.RoleCustomer)
	product := mustCreateProduct(t, conn, seller.ID, 100, 10)

	cancelled := placeTestOrder(t, svc, buyer.ID, product.ID, 1)
	if _, err := svc.UpdateOrderStatus(ctx, admin, cancelled, "cancelled"); err != nil {
		t.Fatalf("cancel order: %v", err)
	}
	_, err := svc.UpdateOrderStatus(ctx, admin, cancelled, "processing")
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict leaving cancelled, got %v", err)
	}

	completed := placeTestOrder(t, svc, buyer.ID, product.ID, 1)
	if _, err := svc.UpdateOrderStatus(ctx, admin, completed, "completed"); err != nil {
		t.Fatalf("complete order: %v", err)
	}
	_, err = svc.UpdateOrderStatus(ctx, admin, completed, "cancelled")
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict leaving completed, got %v", err)
	}
}

func TestCancellationDoesNotRestock(t *testing.T) {
	t.Parallel()

	conn := newTestDB(t)
	svc := newTestService(t, conn)
	ctx := context.Background()
	admin := identity.Actor{ID: uuid.New(), Role: enums.RoleAdmin}

	seller := mustCreateUser(t, conn, enums.RoleSeller)
	buyer := mustCreateUser(t, conn, enums.RoleCustomer)
	product := mustCreateProduct(t, conn, seller.ID, 100, 5)

	orderID := placeTestOrder(t, svc, buyer.ID, product.ID, 2)
	if _, err := svc.UpdateOrderStatus(ctx, admin, orderID, "cancelled"); err != nil {
		t.Fatalf("cancel order: %v", err)
	}

	if got := productStock(t, conn, product.ID); got != 3 {
		t.Fatalf("cancellation must not restock, got %d", got)
	}
}
