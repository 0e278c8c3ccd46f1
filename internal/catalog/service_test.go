package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/adhamNemr/nemr-store/pkg/db"
	"github.com/adhamNemr/nemr-store/pkg/db/models"
	"github.com/adhamNemr/nemr-store/pkg/enums"
	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/identity"
)

func newTestService(t *testing.T) (Service, *Repository, *models.User) {
	t.Helper()
	conn := newTestDB(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, db.FromGorm(conn), nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	seller := mustCreateTestSeller(t, conn)
	return svc, repo, seller
}

func sellerActor(u *models.User) identity.Actor {
	return identity.Actor{ID: u.ID, Role: enums.RoleSeller}
}

func TestCreateProductWithVariantsDerivesStock(t *testing.T) {
	t.Parallel()

	svc, _, seller := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, sellerActor(seller), CreateProductInput{
		Name:       "Hooded Jacket",
		PriceCents: 4500,
		Condition:  enums.ProductConditionNew,
		Stock: VariantStock{Variants: []VariantInput{
			{Color: strptr("black"), Size: strptr("m"), Stock: 3},
			{Color: strptr("black"), Size: strptr("l"), Stock: 4},
		}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if dto.Stock != 7 {
		t.Fatalf("expected derived stock 7, got %d", dto.Stock)
	}
	if len(dto.Variants) != 2 {
		t.Fatalf("expected 2 variants, got %d", len(dto.Variants))
	}
	if dto.SellerID != seller.ID {
		t.Fatalf("product must belong to the creating seller")
	}
}

func TestCreateProductRejectsDuplicateVariantCombo(t *testing.T) {
	t.Parallel()

	svc, _, seller := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, sellerActor(seller), CreateProductInput{
		Name:       "Sneakers",
		PriceCents: 9900,
		Condition:  enums.ProductConditionNew,
		Stock: VariantStock{Variants: []VariantInput{
			{Color: strptr("white"), Size: strptr("42"), Stock: 1},
			{Color: strptr("white"), Size: strptr("42"), Stock: 2},
		}},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReplaceVariantsMapsUniqueViolationToConflict(t *testing.T) {
	t.Parallel()

	_, repo, seller := newTestService(t)
	ctx := context.Background()
	product := mustCreateTestProduct(t, repo.db, seller.ID, 100, 0)

	// Two identical combos slip past any pre-insert check a concurrent
	// writer races; the unique index rejects the second row.
	err := repo.ReplaceVariants(ctx, product.ID, []models.ProductVariant{
		{Color: strptr("white"), Size: strptr("42"), Stock: 1},
		{Color: strptr("white"), Size: strptr("42"), Stock: 2},
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict on duplicate combo, got %v", err)
	}
}

func TestCreateProductRejectsBadDiscount(t *testing.T) {
	t.Parallel()

	svc, _, seller := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, sellerActor(seller), CreateProductInput{
		Name:               "Lamp",
		PriceCents:         1000,
		DiscountPriceCents: intptr(1200),
		Condition:          enums.ProductConditionUsed,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateProductForbiddenForCustomers(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, identity.Actor{ID: uuid.New(), Role: enums.RoleCustomer}, CreateProductInput{
		Name:       "Chair",
		PriceCents: 500,
		Condition:  enums.ProductConditionUsed,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateProductOwnershipEnforced(t *testing.T) {
	t.Parallel()

	svc, repo, seller := newTestService(t)
	ctx := context.Background()

	product := mustCreateTestProduct(t, repo.db, seller.ID, 1000, 5)
	other := mustCreateTestSeller(t, repo.db)

	_, err := svc.UpdateProduct(ctx, sellerActor(other), product.ID, UpdateProductInput{
		Name: strptr("Hijacked"),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}

	// admins bypass ownership
	admin := identity.Actor{ID: uuid.New(), Role: enums.RoleAdmin}
	dto, err := svc.UpdateProduct(ctx, admin, product.ID, UpdateProductInput{Name: strptr("Renamed")})
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if dto.Name != "Renamed" {
		t.Fatalf("expected renamed product, got %q", dto.Name)
	}
}

func TestUpdateProductFlatStockClearsVariants(t *testing.T) {
	t.Parallel()

	svc, repo, seller := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, sellerActor(seller), CreateProductInput{
		Name:       "Backpack",
		PriceCents: 2500,
		Condition:  enums.ProductConditionNew,
		Stock: VariantStock{Variants: []VariantInput{
			{Color: strptr("green"), Stock: 2},
			{Color: strptr("grey"), Stock: 3},
		}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	updated, err := svc.UpdateProduct(ctx, sellerActor(seller), dto.ID, UpdateProductInput{
		Stock: FlatStock{Count: 10},
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 10 {
		t.Fatalf("expected flat stock 10, got %d", updated.Stock)
	}
	if len(updated.Variants) != 0 {
		t.Fatalf("expected variants cleared, got %d", len(updated.Variants))
	}

	var count int64
	if err := repo.db.Model(&models.ProductVariant{}).Where("product_id = ?", dto.ID).Count(&count).Error; err != nil {
		t.Fatalf("count variants: %v", err)
	}
	if count != 0 {
		t.Fatalf("stale variant rows left behind: %d", count)
	}
}

func TestUpdateProductReplacesVariantMatrix(t *testing.T) {
	t.Parallel()

	svc, _, seller := newTestService(t)
	ctx := context.Background()

	dto, err := svc.CreateProduct(ctx, sellerActor(seller), CreateProductInput{
		Name:       "T-Shirt",
		PriceCents: 1500,
		Condition:  enums.ProductConditionNew,
		Stock: VariantStock{Variants: []VariantInput{
			{Color: strptr("red"), Size: strptr("s"), Stock: 1},
		}},
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	updated, err := svc.UpdateProduct(ctx, sellerActor(seller), dto.ID, UpdateProductInput{
		Stock: VariantStock{Variants: []VariantInput{
			{Color: strptr("blue"), Size: strptr("m"), Stock: 6},
			{Color: strptr("blue"), Size: strptr("l"), Stock: 2},
		}},
	})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Stock != 8 {
		t.Fatalf("expected recomputed stock 8, got %d", updated.Stock)
	}
	if len(updated.Variants) != 2 {
		t.Fatalf("expected replaced matrix of 2, got %d", len(updated.Variants))
	}
	for _, v := range updated.Variants {
		if v.Color == nil || *v.Color != "blue" {
			t.Fatalf("old matrix row survived: %+v", v)
		}
	}
}

func TestDeleteProductPurgesCartRows(t *testing.T) {
	t.Parallel()

	svc, repo, seller := newTestService(t)
	ctx := context.Background()

	product := mustCreateTestProduct(t, repo.db, seller.ID, 700, 3)
	buyer := &models.User{Username: "buyer", Email: "buyer_" + uuid.NewString() + "@example.com", Role: enums.RoleCustomer, Status: "active"}
	if err := repo.db.Create(buyer).Error; err != nil {
		t.Fatalf("create buyer: %v", err)
	}
	cartRow := &models.CartItem{UserID: buyer.ID, ProductID: product.ID, Quantity: 2}
	if err := repo.db.Create(cartRow).Error; err != nil {
		t.Fatalf("create cart row: %v", err)
	}

	if err := svc.DeleteProduct(ctx, sellerActor(seller), product.ID); err != nil {
		t.Fatalf("delete product: %v", err)
	}

	var carts int64
	if err := repo.db.Model(&models.CartItem{}).Where("product_id = ?", product.ID).Count(&carts).Error; err != nil {
		t.Fatalf("count carts: %v", err)
	}
	if carts != 0 {
		t.Fatalf("cart rows survived product delete: %d", carts)
	}

	var products int64
	if err := repo.db.Model(&models.Product{}).Where("id = ?", product.ID).Count(&products).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	if products != 0 {
		t.Fatalf("product row survived delete")
	}
}

func TestGetProductBumpsViews(t *testing.T) {
	t.Parallel()

	svc, repo, seller := newTestService(t)
	ctx := context.Background()

	product := mustCreateTestProduct(t, repo.db, seller.ID, 1200, 4)

	dto, err := svc.GetProduct(ctx, product.ID)
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if dto.Views != 1 {
		t.Fatalf("expected views 1, got %d", dto.Views)
	}

	if _, err := svc.GetProduct(ctx, product.ID); err != nil {
		t.Fatalf("second get: %v", err)
	}
	var reloaded models.Product
	if err := repo.db.First(&reloaded, "id = ?", product.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Views != 2 {
		t.Fatalf("expected persisted views 2, got %d", reloaded.Views)
	}
}

func TestGetProductNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _ := newTestService(t)
	_, err := svc.GetProduct(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
