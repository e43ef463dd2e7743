package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-polyglot-store/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository interface {
	Create(ctx context.Context, inv *model.Inventory) error
	FindByID(ctx context.Context, productID string) (*model.Inventory, error)
	// FindByIDs issues a single IN query; absent ids are simply missing from the result.
	FindByIDs(ctx context.Context, productIDs []string) ([]model.Inventory, error)
	// LockForUpdate reads the row with SELECT ... FOR UPDATE. The lock is held
	// until the surrounding transaction ends, so ctx must carry one.
	LockForUpdate(ctx context.Context, productID string) (*model.Inventory, error)
	SetStock(ctx context.Context, productID string, stock int) error
	Delete(ctx context.Context, productID string) error
	// CountLowStock counts rows with stock at or below threshold.
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

type inventoryRepo struct {
	db *gorm.DB
}

func NewInventoryRepo(db *gorm.DB) InventoryRepository {
	return &inventoryRepo{db}
}

func (r *inventoryRepo) Create(ctx context.Context, inv *model.Inventory) error {
	if inv.LastUpdated.IsZero() {
		inv.LastUpdated = time.Now()
	}
	if err := conn(ctx, r.db).Create(inv).Error; err != nil {
		return &model.StoreError{Op: "inventory.Create", ID: inv.ProductID, Err: err}
	}
	return nil
}

func (r *inventoryRepo) FindByID(ctx context.Context, productID string) (*model.Inventory, error) {
	var inv model.Inventory
	err := conn(ctx, r.db).First(&inv, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, &model.StoreError{Op: "inventory.FindByID", ID: productID, Err: err}
	}
	return &inv, nil
}

func (r *inventoryRepo) FindByIDs(ctx context.Context, productIDs []string) ([]model.Inventory, error) {
	var rows []model.Inventory
	if len(productIDs) == 0 {
		return rows, nil
	}
	if err := conn(ctx, r.db).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, &model.StoreError{Op: "inventory.FindByIDs", Err: err}
	}
	return rows, nil
}

func (r *inventoryRepo) LockForUpdate(ctx context.Context, productID string) (*model.Inventory, error) {
	if !inTransaction(ctx) {
		return nil, fmt.Errorf("inventory.LockForUpdate [%s]: called outside a transaction", productID)
	}

	var inv model.Inventory
	err := conn(ctx, r.db).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&inv, "product_id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, &model.StoreError{Op: "inventory.LockForUpdate", ID: productID, Err: err}
	}
	return &inv, nil
}

func (r *inventoryRepo) SetStock(ctx context.Context, productID string, stock int) error {
	res := conn(ctx, r.db).Model(&model.Inventory{}).
		Where("product_id = ?", productID).
		Updates(map[string]interface{}{
			"stock":        stock,
			"last_updated": time.Now(),
		})
	if res.Error != nil {
		return &model.StoreError{Op: "inventory.SetStock", ID: productID, Err: res.Error}
	}
	if res.RowsAffected == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *inventoryRepo) Delete(ctx context.Context, productID string) error {
	if err := conn(ctx, r.db).Where("product_id = ?", productID).Delete(&model.Inventory{}).Error; err != nil {
		return &model.StoreError{Op: "inventory.Delete", ID: productID, Err: err}
	}
	return nil
}

func (r *inventoryRepo) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	var count int64
	err := conn(ctx, r.db).Model(&model.Inventory{}).Where("stock <= ?", threshold).Count(&count).Error
	if err != nil {
		return 0, &model.StoreError{Op: "inventory.CountLowStock", Err: err}
	}
	return count, nil
}
