// Package reporting computes the dashboard's derived business metrics. Every
// function is pure and total over well-formed inputs: identical inputs yield
// identical outputs with no side effects, so callers may recompute freely.
package reporting

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"store-dashboard-api/internal/models"
)

// DefaultTopSellersLimit is the ranking size the dashboard displays.
const DefaultTopSellersLimit = 5

// DefaultOrderWindow is the trailing window for the order status overview.
const DefaultOrderWindow = 7 * 24 * time.Hour

// InventorySummary aggregates current stock levels. A product is low stock
// when 0 < quantity <= threshold and out of stock when quantity == 0; the
// two are mutually exclusive.
func InventorySummary(products []models.Product) models.InventorySummary {
	summary := models.InventorySummary{
		LowQuantityProducts: make([]models.Product, 0),
	}

	for _, p := range products {
		summary.TotalQuantity += p.Quantity
		if p.IsLowStock() {
			summary.LowStockCount++
			summary.LowQuantityProducts = append(summary.LowQuantityProducts, p)
		} else if p.IsOutOfStock() {
			summary.OutOfStockCount++
		}
	}

	return summary
}

// OrderStatusCounts counts orders by status. A positive window restricts the
// count to orders created within the trailing window ending at now; orders
// outside the window are excluded entirely, not zeroed.
func OrderStatusCounts(orders []models.Order, window time.Duration, now time.Time) models.OrderStatusCounts {
	var counts models.OrderStatusCounts
	cutoff := now.Add(-window)

	for _, o := range orders {
		if window > 0 && o.CreatedAt.Before(cutoff) {
			continue
		}

		counts.Total++
		switch o.Status {
		case models.OrderStatusDelivered:
			counts.Delivered++
		case models.OrderStatusShipped:
			counts.Shipped++
			counts.OnTheWay++
		case models.OrderStatusCanceled:
			counts.Canceled++
		case models.OrderStatusPending:
			counts.Pending++
			counts.OnTheWay++
		}
	}

	return counts
}

// Revenue sums the order value of Delivered orders.
func Revenue(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status == models.OrderStatusDelivered {
			total = total.Add(o.OrderValue)
		}
	}
	return total
}

// Sales sums the item quantities of Delivered orders.
func Sales(orders []models.Order) int {
	total := 0
	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		for _, item := range o.Items {
			total += item.Quantity
		}
	}
	return total
}

// Profit sums (sold price - catalog price) x quantity over the items of
// Delivered orders.
func Profit(orders []models.Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		for _, item := range o.Items {
			margin := item.Price.Sub(item.CatalogPrice)
			total = total.Add(margin.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
	}
	return total
}

// TopSellers groups the items of Delivered orders by product and ranks them
// by total quantity sold, descending. Ties keep first-encountered order, so
// the ranking is deterministic for a given input order.
func TopSellers(orders []models.Order, limit int) []models.TopSeller {
	if limit <= 0 {
		limit = DefaultTopSellersLimit
	}

	totals := make(map[string]*models.TopSeller)
	ranked := make([]*models.TopSeller, 0)

	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered {
			continue
		}
		for _, item := range o.Items {
			seller, exists := totals[item.ProductID]
			if !exists {
				seller = &models.TopSeller{ProductID: item.ProductID, Name: item.ProductName}
				totals[item.ProductID] = seller
				ranked = append(ranked, seller)
			}
			seller.Quantity += item.Quantity
		}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Quantity > ranked[j].Quantity
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	result := make([]models.TopSeller, len(ranked))
	for i, s := range ranked {
		result[i] = *s
	}
	return result
}

// MonthlySeries builds the year's purchase and sales series, indexed by
// calendar month (0 = January). Purchases accumulate product price x quantity
// by product creation month; sales accumulate order value by order creation
// month. A record without a creation time lands in no bucket.
func MonthlySeries(products []models.Product, orders []models.Order, year int) models.MonthlySeries {
	series := models.MonthlySeries{Year: year}
	for i := range series.Purchases {
		series.Purchases[i] = decimal.Zero
		series.Sales[i] = decimal.Zero
	}

	for _, p := range products {
		if p.CreatedAt.IsZero() || p.CreatedAt.Year() != year {
			continue
		}
		month := int(p.CreatedAt.Month()) - 1
		value := p.Price.Mul(decimal.NewFromInt(int64(p.Quantity)))
		series.Purchases[month] = series.Purchases[month].Add(value)
	}

	for _, o := range orders {
		if o.CreatedAt.IsZero() || o.CreatedAt.Year() != year {
			continue
		}
		month := int(o.CreatedAt.Month()) - 1
		series.Sales[month] = series.Sales[month].Add(o.OrderValue)
	}

	return series
}

// OrdersByMonth counts all orders by creation month, regardless of year.
func OrdersByMonth(orders []models.Order) [12]int {
	var months [12]int
	for _, o := range orders {
		if o.CreatedAt.IsZero() {
			continue
		}
		months[int(o.CreatedAt.Month())-1]++
	}
	return months
}

// DeliveredOrdersByMonth counts Delivered orders by creation month.
func DeliveredOrdersByMonth(orders []models.Order) [12]int {
	var months [12]int
	for _, o := range orders {
		if o.Status != models.OrderStatusDelivered || o.CreatedAt.IsZero() {
			continue
		}
		months[int(o.CreatedAt.Month())-1]++
	}
	return months
}

// Snapshot assembles the full dashboard metrics projection from the current
// product and order collections.
func Snapshot(products []models.Product, orders []models.Order, suppliersCount, year int, now time.Time) models.MetricsSnapshot {
	return models.MetricsSnapshot{
		Inventory:              InventorySummary(products),
		SuppliersCount:         suppliersCount,
		Revenue:                Revenue(orders),
		Sales:                  Sales(orders),
		Profit:                 Profit(orders),
		TopSellings:            TopSellers(orders, DefaultTopSellersLimit),
		Monthly:                MonthlySeries(products, orders, year),
		OrdersByMonth:          OrdersByMonth(orders),
		DeliveredOrdersByMonth: DeliveredOrdersByMonth(orders),
		OrderStatus:            OrderStatusCounts(orders, DefaultOrderWindow, now),
		GeneratedAt:            now,
	}
}
