package catalog

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:catalog_" + uuid.NewString() + "?mode=memory&cache=shared"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = conn.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.ProductVariant{},
		&models.CartItem{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func mustCreateTestSeller(t *testing.T, tx *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Username: "seller_" + uuid.NewString()[:8],
		Email:    fmt.Sprintf("seller_%s@example.com", uuid.NewString()),
		Role:     enums.RoleSeller,
		Status:   "active",
	}
	if err := tx.Create(user).Error; err != nil {
		t.Fatalf("create seller: %v", err)
	}
	return user
}

func mustCreateTestProduct(t *testing.T, tx *gorm.DB, sellerID uuid.UUID, priceCents, stock int) *models.Product {
	t.Helper()
	product := &models.Product{
		UserID:     sellerID,
		Name:       "Test Product " + uuid.NewString()[:8],
		PriceCents: priceCents,
		Stock:      stock,
		Condition:  enums.ProductConditionUsed,
		Status:     enums.ProductStatusActive,
	}
	if err := tx.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func strptr(s string) *string { return &s }

func intptr(v int) *int { return &v }
