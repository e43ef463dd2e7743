package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/repository"

	"github.com/shopspring/decimal"
)

const (
	ArchivedProductName  = "Archived Product"
	ArchivedProductImage = "/static/placeholder.png"

	defaultRecentOrders = 10
	defaultSalesDays    = 7

	// pricePlaces matches the numeric(10,2) ledger columns.
	pricePlaces = 2
	maxStatusLength     = 20
)

// CustomerInfo is the contact and shipping block of a checkout.
type CustomerInfo struct {
	Name    string `json:"name" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
	Address string `json:"address"`
	City    string `json:"city"`
	Zip     string `json:"zip"`
}

// LineItem is one cart line. Price is the unit price shown to the shopper
// and becomes the price at purchase as-is.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
	Name      string          `json:"name"`
}

// OrderItemView is a ledger line enriched with the product's current display data.
type OrderItemView struct {
	model.OrderItem
	Name     string `json:"name"`
	Image    string `json:"image"`
	Archived bool   `json:"archived"`
}

type OrderDetails struct {
	model.Order
	Items []OrderItemView `json:"items"`
}

type OrderService interface {
	CreateOrder(ctx context.Context, customer CustomerInfo, items []LineItem) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
	GetOrderWithDetails(ctx context.Context, orderID uint) (*OrderDetails, error)
	GetOrders(ctx context.Context, search string) ([]model.Order, error)
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
	CountOrders(ctx context.Context) (int64, error)
	RecentOrders(ctx context.Context, limit int) ([]model.Order, error)
	SalesByDay(ctx context.Context, days int) ([]repository.DailySales, error)
}

type orderService struct {
	tx        repository.Transactor
	inventory repository.InventoryRepository
	orders    repository.OrderRepository
	catalog   repository.CatalogRepository
	events    EventPublisher
}

// NewOrderService wires checkout and order history. events may be nil.
func NewOrderService(
	tx repository.Transactor,
	inventory repository.InventoryRepository,
	orders repository.OrderRepository,
	catalog repository.CatalogRepository,
	events EventPublisher,
) OrderService {
	return &orderService{
		tx:        tx,
		inventory: inventory,
		orders:    orders,
		catalog:   catalog,
		events:    events,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, customer CustomerInfo, items []LineItem) (*model.Order, error) {
	if len(items) == 0 {
		return nil, nil
	}

	// 1. Validate cart lines
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.ProductID) == "":
			return nil, model.Malformed("item %d: product id is required", i+1)
		case item.Quantity <= 0:
			return nil, model.Malformed("item %d: quantity must be positive", i+1)
		case item.UnitPrice.IsNegative():
			return nil, model.Malformed("item %d: price must not be negative", i+1)
		}
	}

	productIDs := distinctProductIDs(items)

	var (
		order     *model.Order
		remaining map[string]int
	)
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		// 2. Lock every inventory row in id order
		stock := make(map[string]int, len(productIDs))
		for _, id := range productIDs {
			inv, err := s.inventory.LockForUpdate(ctx, id)
			if model.IsNotFound(err) {
				continue
			}
			if err != nil {
				return err
			}
			stock[id] = inv.Stock
		}

		// 3. Walk the cart against the running counts
		total := decimal.Zero
		orderItems := make([]model.OrderItem, 0, len(items))
		for _, item := range items {
			available, ok := stock[item.ProductID]
			if !ok || available < item.Quantity {
				return &model.OutOfStockError{
					ProductID: item.ProductID,
					Name:      item.Name,
					Requested: item.Quantity,
					Available: available,
				}
			}
			stock[item.ProductID] = available - item.Quantity

			price := item.UnitPrice.Round(pricePlaces)
			orderItems = append(orderItems, model.OrderItem{
				ProductID:       item.ProductID,
				Quantity:        item.Quantity,
				PriceAtPurchase: price,
			})
			total = total.Add(price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}

		// 4. Persist the deductions
		for _, id := range productIDs {
			if err := s.inventory.SetStock(ctx, id, stock[id]); err != nil {
				return err
			}
		}

		// 5. Write the ledger rows
		order = &model.Order{
			CustomerName:    customer.Name,
			CustomerEmail:   customer.Email,
			ShippingAddress: customer.Address,
			City:            customer.City,
			ZipCode:         customer.Zip,
			TotalAmount:     total,
			Status:          model.StatusProcessing,
			CreatedAt:       time.Now(),
			Items:           orderItems,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			return err
		}

		remaining = stock
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventStockUpdate, ActionOrderCreated, map[string]interface{}{
		"order_id": order.ID,
		"total":    order.TotalAmount,
		"stock":    remaining,
	}, fmt.Sprintf("Order #%d placed", order.ID))

	return order, nil
}

// distinctProductIDs returns the cart's product ids, deduplicated and sorted.
func distinctProductIDs(items []LineItem) []string {
	seen := make(map[string]bool, len(items))
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (s *orderService) UpdateStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	status = model.OrderStatus(strings.TrimSpace(string(status)))
	if status == "" {
		return nil, model.Malformed("status is required")
	}
	if len(status) > maxStatusLength {
		return nil, model.Malformed("status must be at most %d characters", maxStatusLength)
	}

	order, err := s.orders.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return nil, err
	}

	s.publish(EventOrderUpdate, ActionStatusChanged, map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	}, fmt.Sprintf("Order #%d is now %s", order.ID, order.Status))

	return order, nil
}

func (s *orderService) GetOrderWithDetails(ctx context.Context, orderID uint) (*OrderDetails, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(order.Items))
	seen := make(map[string]bool, len(order.Items))
	for _, item := range order.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}

	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Product, len(products))
	for _, p := range products {
		byID[p.ID.Hex()] = p
	}

	details := &OrderDetails{Order: *order, Items: make([]OrderItemView, 0, len(order.Items))}
	for _, item := range order.Items {
		view := OrderItemView{OrderItem: item}
		if p, ok := byID[item.ProductID]; ok {
			view.Name = p.Name
			view.Image = p.Image
		} else {
			view.Name = ArchivedProductName
			view.Image = ArchivedProductImage
			view.Archived = true
		}
		details.Items = append(details.Items, view)
	}
	return details, nil
}

func (s *orderService) GetOrders(ctx context.Context, search string) ([]model.Order, error) {
	return s.orders.Search(ctx, search)
}

func (s *orderService) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	return s.orders.TotalRevenue(ctx)
}

func (s *orderService) CountOrders(ctx context.Context) (int64, error) {
	return s.orders.Count(ctx)
}

func (s *orderService) RecentOrders(ctx context.Context, limit int) ([]model.Order, error) {
	if limit <= 0 {
		limit = defaultRecentOrders
	}
	return s.orders.Recent(ctx, limit)
}

// SalesByDay returns per-day order counts and revenue for the last days days.
func (s *orderService) SalesByDay(ctx context.Context, days int) ([]repository.DailySales, error) {
	if days <= 0 {
		days = defaultSalesDays
	}
	end := time.Now()
	start := end.AddDate(0, 0, -days)
	return s.orders.DailySales(ctx, start, end)
}

func (s *orderService) publish(eventType, action string, data interface{}, message string) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, action, data, message)
}
