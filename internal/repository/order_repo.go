package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"go-polyglot-store/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderRepository interface {
	// Create inserts the header and its items in one statement batch.
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) (*model.Order, error)
	// Search matches id, customer name or email (case-insensitive substring), newest first.
	Search(ctx context.Context, term string) ([]model.Order, error)
	TotalRevenue(ctx context.Context) (decimal.Decimal, error)
	Count(ctx context.Context) (int64, error)
	Recent(ctx context.Context, limit int) ([]model.Order, error)
	// DailySales aggregates orders per calendar day in [start, end], oldest first.
	DailySales(ctx context.Context, start, end time.Time) ([]DailySales, error)
}

// DailySales is one point of the admin sales chart.
type DailySales struct {
	Date    string          `json:"date"`
	Orders  int64           `json:"orders"`
	Revenue decimal.Decimal `json:"revenue"`
}

type orderRepo struct {
	db *gorm.DB
}

func NewOrderRepo(db *gorm.DB) OrderRepository {
	return &orderRepo{db}
}

func (r *orderRepo) Create(ctx context.Context, order *model.Order) error {
	if err := conn(ctx, r.db).Create(order).Error; err != nil {
		return &model.StoreError{Op: "orders.Create", Err: err}
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := conn(ctx, r.db).Preload("Items").First(&order, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, &model.StoreError{Op: "orders.FindByID", Err: err}
	}
	return &order, nil
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) (*model.Order, error) {
	res := conn(ctx, r.db).Model(&model.Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return nil, &model.StoreError{Op: "orders.UpdateStatus", Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return nil, model.ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *orderRepo) Search(ctx context.Context, term string) ([]model.Order, error) {
	var orders []model.Order
	query := conn(ctx, r.db).Preload("Items")

	if term = strings.TrimSpace(term); term != "" {
		like := "%" + escapeLike(term) + "%"
		query = query.Where(
			"customer_name ILIKE ? OR customer_email ILIKE ? OR CAST(id AS TEXT) ILIKE ?",
			like, like, like,
		)
	}

	if err := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, &model.StoreError{Op: "orders.Search", Err: err}
	}
	return orders, nil
}

func (r *orderRepo) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := conn(ctx, r.db).Model(&model.Order{}).
		Select("COALESCE(SUM(total_amount), 0)").
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, &model.StoreError{Op: "orders.TotalRevenue", Err: err}
	}
	return total, nil
}

func (r *orderRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).Model(&model.Order{}).Count(&count).Error; err != nil {
		return 0, &model.StoreError{Op: "orders.Count", Err: err}
	}
	return count, nil
}

func (r *orderRepo) Recent(ctx context.Context, limit int) ([]model.Order, error) {
	var orders []model.Order
	err := conn(ctx, r.db).Preload("Items").
		Order("created_at DESC").Order("id DESC").
		Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, &model.StoreError{Op: "orders.Recent", Err: err}
	}
	return orders, nil
}

func (r *orderRepo) DailySales(ctx context.Context, start, end time.Time) ([]DailySales, error) {
	rows, err := conn(ctx, r.db).Model(&model.Order{}).
		Select(`
			TO_CHAR(created_at, 'YYYY-MM-DD') as date,
			COUNT(*) as orders,
			COALESCE(SUM(total_amount), 0) as revenue
		`).
		Where("created_at BETWEEN ? AND ?", start, end).
		Group("TO_CHAR(created_at, 'YYYY-MM-DD')").
		Order("date ASC").
		Rows()
	if err != nil {
		return nil, &model.StoreError{Op: "orders.DailySales", Err: err}
	}
	defer rows.Close()

	results := []DailySales{}
	for rows.Next() {
		var day DailySales
		if err := rows.Scan(&day.Date, &day.Orders, &day.Revenue); err != nil {
			return nil, &model.StoreError{Op: "orders.DailySales", Err: err}
		}
		results = append(results, day)
	}
	if err := rows.Err(); err != nil {
		return nil, &model.StoreError{Op: "orders.DailySales", Err: err}
	}
	return results, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes user input match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
