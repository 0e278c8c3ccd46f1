package analytics

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/adhamNemr/nemr-store/pkg/errors"
	"github.com/adhamNemr/nemr-store/pkg/identity"
	"github.com/adhamNemr/nemr-store/pkg/pagination"
)

const (
	defaultWindowDays = 30
	maxWindowDays     = 365
)

// Service aggregates dashboard reports. Sellers see their own slice, admins
// the whole platform; customers have no dashboard.
type Service interface {
	GlobalStats(ctx context.Context, actor identity.Actor, windowDays int) (*GlobalStats, error)
	SalesTimeSeries(ctx context.Context, actor identity.Actor, windowDays int) ([]SalesPoint, error)
	ProductIntelligence(ctx context.Context, actor identity.Actor, windowDays int) ([]ProductInsight, error)
	CategoryDistribution(ctx context.Context, actor identity.Actor) ([]CategoryCount, error)
	CustomerDirectory(ctx context.Context, actor identity.Actor, query string, limit, offset int) (*CustomerDirectory, error)
}

type service struct {
	repo *Repository

	// now is swappable so window math is testable
	now func() time.Time
}

// NewService constructs the analytics service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	return &service{repo: repo, now: time.Now}, nil
}

// scope resolves the actor into a seller filter: nil means platform-wide.
func (s *service) scope(actor identity.Actor) (*uuid.UUID, error) {
	if !actor.Known() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing caller identity")
	}
	switch {
	case actor.IsAdmin():
		return nil, nil
	case actor.IsSeller():
		id := actor.ID
		return &id, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "analytics are restricted to admins and sellers")
	}
}

func normalizeWindow(days int) int {
	if days <= 0 {
		return defaultWindowDays
	}
	if days > maxWindowDays {
		return maxWindowDays
	}
	return days
}

// windowStart is midnight UTC of the first day in a window ending today.
func (s *service) windowStart(days int) time.Time {
	today := s.now().UTC().Truncate(24 * time.Hour)
	return today.AddDate(0, 0, -(days - 1))
}

// GlobalStats reports revenue, order count, product count, and the average
// order value for the window.
func (s *service) GlobalStats(ctx context.Context, actor identity.Actor, windowDays int) (*GlobalStats, error) {
	sellerID, err := s.scope(actor)
	if err != nil {
		return nil, err
	}
	since := s.windowStart(normalizeWindow(windowDays))

	var agg *revenueAgg
	if sellerID == nil {
		agg, err = s.repo.AdminRevenue(ctx, since)
	} else {
		agg, err = s.repo.SellerRevenue(ctx, *sellerID, since)
	}
	if err != nil {
		return nil, err
	}

	products, err := s.repo.CountProducts(ctx, sellerID)
	if err != nil {
		return nil, err
	}

	stats := &GlobalStats{
		RevenueCents: agg.RevenueCents,
		OrderCount:   agg.OrderCount,
		ProductCount: products,
	}
	if agg.OrderCount > 0 {
		stats.AvgOrderValueCents = decimal.NewFromInt(agg.RevenueCents).
			Div(decimal.NewFromInt(agg.OrderCount)).
			Round(0).
			IntPart()
	}
	return stats, nil
}

// SalesTimeSeries returns exactly windowDays points covering
// [today-windowDays+1, today], zero-filled for days without sales.
func (s *service) SalesTimeSeries(ctx context.Context, actor identity.Actor, windowDays int) ([]SalesPoint, error) {
	sellerID, err := s.scope(actor)
	if err != nil {
		return nil, err
	}
	days := normalizeWindow(windowDays)
	start := s.windowStart(days)

	rows, err := s.repo.SalesRows(ctx, sellerID, start)
	if err != nil {
		return nil, err
	}

	byDay := make(map[string]int64, days)
	for _, row := range rows {
		byDay[row.CreatedAt.UTC().Format("2006-01-02")] += row.Amount
	}

	series := make([]SalesPoint, 0, days)
	for i := 0; i < days; i++ {
		date := start.AddDate(0, 0, i).Format("2006-01-02")
		series = append(series, SalesPoint{Date: date, RevenueCents: byDay[date]})
	}
	return series, nil
}

// ProductIntelligence reports the per-product funnel sorted by window
// revenue descending.
func (s *service) ProductIntelligence(ctx context.Context, actor identity.Actor, windowDays int) ([]ProductInsight, error) {
	sellerID, err := s.scope(actor)
	if err != nil {
		return nil, err
	}
	since := s.windowStart(normalizeWindow(windowDays))

	products, err := s.repo.Products(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(products))
	for _, p := range products {
		ids = append(ids, p.ID)
	}

	carts, err := s.repo.CartCounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	sold, err := s.repo.SoldInWindow(ctx, ids, since)
	if err != nil {
		return nil, err
	}

	insights := make([]ProductInsight, 0, len(products))
	for _, p := range products {
		agg := sold[p.ID]
		insights = append(insights, ProductInsight{
			ProductID:      p.ID,
			Name:           p.Name,
			Views:          p.Views,
			CartCount:      carts[p.ID],
			UnitsSold:      agg.Units,
			RevenueCents:   agg.RevenueCents,
			ConversionRate: conversionRate(agg.Units, p.Views),
		})
	}

	sort.SliceStable(insights, func(i, j int) bool {
		return insights[i].RevenueCents > insights[j].RevenueCents
	})
	return insights, nil
}

// conversionRate is (sold/views)*100 rounded to one decimal, 0 when the
// product was never viewed.
func conversionRate(unitsSold int64, views int) float64 {
	if views <= 0 {
		return 0
	}
	rate, _ := decimal.NewFromInt(unitsSold * 100).
		Div(decimal.NewFromInt(int64(views))).
		Round(1).
		Float64()
	return rate
}

// CategoryDistribution counts listings per category label.
func (s *service) CategoryDistribution(ctx context.Context, actor identity.Actor) ([]CategoryCount, error) {
	sellerID, err := s.scope(actor)
	if err != nil {
		return nil, err
	}
	return s.repo.Categories(ctx, sellerID)
}

// CustomerDirectory pages through buyers. Admins read the aggregate straight
// off users and orders; sellers get an aggregation pass over their own order
// lines, since only those reveal which buyers are theirs.
func (s *service) CustomerDirectory(ctx context.Context, actor identity.Actor, query string, limit, offset int) (*CustomerDirectory, error) {
	sellerID, err := s.scope(actor)
	if err != nil {
		return nil, err
	}
	limit = pagination.NormalizeLimit(limit)
	offset = pagination.NormalizeOffset(offset)

	if sellerID == nil {
		customers, total, err := s.repo.AdminCustomers(ctx, query, limit, offset)
		if err != nil {
			return nil, err
		}
		return &CustomerDirectory{Customers: customers, Total: total, Limit: limit, Offset: offset}, nil
	}

	rows, err := s.repo.SellerCustomerRows(ctx, *sellerID)
	if err != nil {
		return nil, err
	}

	type bucket struct {
		entry  CustomerEntry
		orders map[uuid.UUID]struct{}
	}
	buckets := make(map[uuid.UUID]*bucket)
	for _, row := range rows {
		b, ok := buckets[row.BuyerID]
		if !ok {
			b = &bucket{
				entry:  CustomerEntry{UserID: row.BuyerID, Username: row.Username, Email: row.Email},
				orders: make(map[uuid.UUID]struct{}),
			}
			buckets[row.BuyerID] = b
		}
		b.entry.TotalSpendCents += row.Amount
		b.orders[row.OrderID] = struct{}{}
		created := row.CreatedAt
		if b.entry.LastOrderAt == nil || created.After(*b.entry.LastOrderAt) {
			b.entry.LastOrderAt = &created
		}
	}

	search := strings.ToLower(strings.TrimSpace(query))
	entries := make([]CustomerEntry, 0, len(buckets))
	for _, b := range buckets {
		b.entry.OrderCount = int64(len(b.orders))
		if search != "" &&
			!strings.Contains(strings.ToLower(b.entry.Username), search) &&
			!strings.Contains(strings.ToLower(b.entry.Email), search) {
			continue
		}
		entries = append(entries, b.entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].TotalSpendCents > entries[j].TotalSpendCents
	})

	total := int64(len(entries))
	if offset >= len(entries) {
		entries = []CustomerEntry{}
	} else {
		end := offset + limit
		if end > len(entries) {
			end = len(entries)
		}
		entries = entries[offset:end]
	}
	return &CustomerDirectory{Customers: entries, Total: total, Limit: limit, Offset: offset}, nil
}
