package orders

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
)

// The sqlite test driver serializes writers, so real contention on the
// conditional stock update only materializes on postgres. Set
// NEMRSTORE_TEST_POSTGRES_DSN to a disposable database to run this.
func TestPlaceOrderNeverOversellsConcurrently(t *testing.T) {
	dsn := os.Getenv("NEMRSTORE_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("NEMRSTORE_TEST_POSTGRES_DSN not set")
	}

	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open postgres: %v", err)
	}
	err = conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductVariant{},
		&models.Order{},
		&models.OrderItem{},
		&models.CartItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := newTestService(t, conn)
	ctx := context.Background()

	seller := mustCreateUser(t, conn, enums.RoleSeller)
	buyer := mustCreateUser(t, conn, enums.RoleCustomer)
	product := mustCreateProduct(t, conn, seller.ID, 100, 3)

	t.Cleanup(func() {
		conn.Exec("DELETE FROM order_items WHERE order_id IN (SELECT id FROM orders WHERE user_id = ?)", buyer.ID)
		conn.Exec("DELETE FROM orders WHERE user_id = ?", buyer.ID)
		conn.Exec("DELETE FROM products WHERE id = ?", product.ID)
		conn.Exec("DELETE FROM users WHERE id IN (?, ?)", seller.ID, buyer.ID)
	})

	const attempts = 10
	var succeeded int32
	errs := make(chan error, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PlaceOrder(ctx, PlaceOrderInput{
				BuyerID: buyer.ID,
				Lines:   []OrderLineInput{{ProductID: product.ID, Quantity: 1}},
			})
			if err == nil {
				atomic.AddInt32(&succeeded, 1)
				return
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if !pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock) {
			t.Fatalf("unexpected placement error: %v", err)
		}
	}
	if succeeded != 3 {
		t.Fatalf("expected exactly 3 successful placements, got %d", succeeded)
	}
	if got := productStock(t, conn, product.ID); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
}
