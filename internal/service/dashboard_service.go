package service

import (
	"context"

	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/repository"

	"github.com/shopspring/decimal"
)

const lowStockThreshold = 5

type DashboardStats struct {
	TotalRevenue      decimal.Decimal       `json:"total_revenue"`
	TotalOrders       int64                 `json:"total_orders"`
	TotalProducts     int64                 `json:"total_products"`
	LowStockCount     int64                 `json:"low_stock_count"`
	RecentOrders      []model.Order         `json:"recent_orders"`
	CategoryBreakdown []model.CategoryCount `json:"category_breakdown"`
}

type DashboardService interface {
	GetDashboardStats(ctx context.Context) (*DashboardStats, error)
	GetSalesChart(ctx context.Context, days int) ([]repository.DailySales, error)
}

type dashboardService struct {
	catalog CatalogService
	orders  OrderService
}

func NewDashboardService(catalog CatalogService, orders OrderService) DashboardService {
	return &dashboardService{catalog: catalog, orders: orders}
}

func (s *dashboardService) GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	var (
		stats DashboardStats
		err   error
	)

	// 1. Ledger aggregates
	if stats.TotalRevenue, err = s.orders.TotalRevenue(ctx); err != nil {
		return nil, err
	}
	if stats.TotalOrders, err = s.orders.CountOrders(ctx); err != nil {
		return nil, err
	}
	if stats.RecentOrders, err = s.orders.RecentOrders(ctx, defaultRecentOrders); err != nil {
		return nil, err
	}

	// 2. Catalog aggregates
	if stats.TotalProducts, err = s.catalog.CountProducts(ctx); err != nil {
		return nil, err
	}
	if stats.CategoryBreakdown, err = s.catalog.CategoryBreakdown(ctx); err != nil {
		return nil, err
	}
	if stats.LowStockCount, err = s.catalog.CountLowStock(ctx, lowStockThreshold); err != nil {
		return nil, err
	}

	return &stats, nil
}

func (s *dashboardService) GetSalesChart(ctx context.Context, days int) ([]repository.DailySales, error) {
	return s.orders.SalesByDay(ctx, days)
}
