package handler

import (
	"context"

	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/repository"
	"go-polyglot-store/internal/service"

	"github.com/shopspring/decimal"
)

// --- Mock Catalog Service ---

type MockCatalogService struct {
	Page    *service.CatalogPage
	View    *model.ProductView
	Facets  *service.Facets
	Updated interface{}
	Err     error

	lastQuery    service.CatalogQuery
	lastInput    service.CreateProductInput
	lastStock    int
	lastID       string
	lastField    string
	lastValue    string
	lastCategory string
}

func (m *MockCatalogService) Create(ctx context.Context, in service.CreateProductInput, initialStock int) (*model.ProductView, error) {
	m.lastInput, m.lastStock = in, initialStock
	return m.View, m.Err
}

func (m *MockCatalogService) Update(ctx context.Context, productID, field, value string) (interface{}, error) {
	m.lastID, m.lastField, m.lastValue = productID, field, value
	return m.Updated, m.Err
}

func (m *MockCatalogService) Delete(ctx context.Context, productID string) error {
	m.lastID = productID
	return m.Err
}

func (m *MockCatalogService) GetCatalog(ctx context.Context, q service.CatalogQuery) (*service.CatalogPage, error) {
	m.lastQuery = q
	return m.Page, m.Err
}

func (m *MockCatalogService) GetFacets(ctx context.Context, category string) (*service.Facets, error) {
	m.lastCategory = category
	return m.Facets, m.Err
}

func (m *MockCatalogService) GetProductDetails(ctx context.Context, productID string) (*model.ProductView, error) {
	m.lastID = productID
	return m.View, m.Err
}

func (m *MockCatalogService) ListForAdmin(ctx context.Context, page int, search string) (*service.CatalogPage, error) {
	m.lastQuery = service.CatalogQuery{Page: page, Search: search}
	return m.Page, m.Err
}

func (m *MockCatalogService) CountProducts(ctx context.Context) (int64, error) {
	return 0, m.Err
}

func (m *MockCatalogService) CategoryBreakdown(ctx context.Context) ([]model.CategoryCount, error) {
	return nil, m.Err
}

func (m *MockCatalogService) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	return 0, m.Err
}

// --- Mock Order Service ---

type MockOrderService struct {
	Order   *model.Order
	Details *service.OrderDetails
	Orders  []model.Order
	Err     error

	lastCustomer service.CustomerInfo
	lastItems    []service.LineItem
	lastID       uint
	lastStatus   model.OrderStatus
	lastSearch   string
}

func (m *MockOrderService) CreateOrder(ctx context.Context, customer service.CustomerInfo, items []service.LineItem) (*model.Order, error) {
	m.lastCustomer, m.lastItems = customer, items
	return m.Order, m.Err
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	m.lastID, m.lastStatus = orderID, status
	return m.Order, m.Err
}

func (m *MockOrderService) GetOrderWithDetails(ctx context.Context, orderID uint) (*service.OrderDetails, error) {
	m.lastID = orderID
	return m.Details, m.Err
}

func (m *MockOrderService) GetOrders(ctx context.Context, search string) ([]model.Order, error) {
	m.lastSearch = search
	return m.Orders, m.Err
}

func (m *MockOrderService) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return decimal.Zero, m.Err
}

func (m *MockOrderService) CountOrders(ctx context.Context) (int64, error) {
	return 0, m.Err
}

func (m *MockOrderService) RecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	return nil, m.Err
}

func (m *MockOrderService) SalesByDay(ctx context.Context, days int) ([]repository.DailySales, error) {
	return nil, m.Err
}
