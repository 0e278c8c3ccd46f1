package orders

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/internal/catalog"
	"github.com/adhamNemr/nemr-store/pkg/config"
	"github.com/adhamNemr/nemr-store/pkg/db"
	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:orders_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
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
	return conn
}

func newTestService(t *testing.T, conn *gorm.DB) Service {
	t.Helper()
	svc, err := NewService(
		NewRepository(conn),
		catalog.NewRepository(conn),
		db.FromGorm(conn),
		config.OrdersConfig{MaxLineQuantity: 100},
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func mustCreateUser(t *testing.T, conn *gorm.DB, role enums.Role) *models.User {
	t.Helper()
	user := &models.User{
		Username: string(role) + "_" + uuid.NewString()[:8],
		Email:    fmt.Sprintf("%s_%s@example.com", role, uuid.NewString()),
		Role:     role,
		Status:   "active",
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, sellerID uuid.UUID, priceCents, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		UserID:     sellerID,
		Name:       "Product " + uuid.NewString()[:8],
		PriceCents: priceCents,
		Stock:      stock,
		Condition:  enums.ProductConditionUsed,
		Status:     enums.ProductStatusActive,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func productStock(t *testing.T, conn *gorm.DB, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	if err := conn.First(&product, "id = ?", id).Error; err != nil {
		t.Fatalf("reload product: %v", err)
	}
	return product.Stock
}

func countRows(t *testing.T, conn *gorm.DB, model any) int64 {
	t.Helper()
	var n int64
	if err := conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func intptr(v int) *int { return &v }

func statusptr(s enums.OrderStatus) *enums.OrderStatus { return &s }
