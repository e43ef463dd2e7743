package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/repository"
	"go-polyglot-store/pkg/validator"

	"github.com/shopspring/decimal"
)

const (
	defaultCatalogPageSize = 9
	defaultAdminPageSize   = 20
)

type CatalogOptions struct {
	PageSize      int
	AdminPageSize int
}

// CreateProductInput is the admin form for a new product.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category" validate:"required"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
	Specs       model.Specs     `json:"specs"`
}

// CatalogQuery selects one storefront page. Specs maps an attribute to the
// values a product may carry for it.
type CatalogQuery struct {
	Page     int
	PageSize int
	Search   string
	Category string
	Specs    map[string][]string
}

type CatalogPage struct {
	Products   []model.ProductView `json:"products"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalPages int                 `json:"total_pages"`
}

// Facets lists every category, and for a selected category the attributes
// that can actually narrow it down.
type Facets struct {
	Categories []string            `json:"categories"`
	Active     map[string][]string `json:"active"`
}

type CatalogService interface {
	Create(ctx context.Context, in CreateProductInput, initialStock int) (*model.ProductView, error)
	Update(ctx context.Context, productID, field, value string) (interface{}, error)
	Delete(ctx context.Context, productID string) error
	GetCatalog(ctx context.Context, q CatalogQuery) (*CatalogPage, error)
	GetFacets(ctx context.Context, category string) (*Facets, error)
	GetProductDetails(ctx context.Context, productID string) (*model.ProductView, error)
	ListForAdmin(ctx context.Context, page int, search string) (*CatalogPage, error)
	CountProducts(ctx context.Context) (int64, error)
	CategoryBreakdown(ctx context.Context) ([]model.CategoryCount, error)
	CountLowStock(ctx context.Context, threshold int) (int64, error)
}

type catalogService struct {
	catalog   repository.CatalogRepository
	inventory repository.InventoryRepository
	cache     FacetCache
	events    EventPublisher
	opts      CatalogOptions
}

// NewCatalogService wires the catalog workflows. cache and events may be nil.
func NewCatalogService(
	catalog repository.CatalogRepository,
	inventory repository.InventoryRepository,
	cache FacetCache,
	events EventPublisher,
	opts CatalogOptions,
) CatalogService {
	if opts.PageSize <= 0 {
		opts.PageSize = defaultCatalogPageSize
	}
	if opts.AdminPageSize <= 0 {
		opts.AdminPageSize = defaultAdminPageSize
	}
	return &catalogService{
		catalog:   catalog,
		inventory: inventory,
		cache:     cache,
		events:    events,
		opts:      opts,
	}
}

func (s *catalogService) Create(ctx context.Context, in CreateProductInput, initialStock int) (*model.ProductView, error) {
	// 1. Validate input
	if errs := validator.ValidateStruct(&in); len(errs) > 0 {
		return nil, model.Malformed("validation failed: %s", errs[0])
	}
	if in.Price.IsNegative() {
		return nil, model.Malformed("price must not be negative")
	}
	if initialStock < 0 {
		return nil, model.Malformed("stock must not be negative")
	}

	// 2. Fill defaults
	product := &model.Product{
		Name:        in.Name,
		Price:       in.Price,
		Category:    in.Category,
		Image:       in.Image,
		Description: in.Description,
		Specs:       in.Specs,
		CreatedAt:   time.Now().UTC(),
	}
	if product.Image == "" {
		product.Image = model.DefaultProductImage
	}
	if product.Description == "" {
		product.Description = model.DefaultProductDescription
	}
	if product.Specs == nil {
		product.Specs = model.Specs{}
	}

	// 3. Primary write: catalog document
	if err := s.catalog.Insert(ctx, product); err != nil {
		return nil, err
	}
	productID := product.ID.Hex()

	// 4. Secondary write: inventory row, compensated on failure
	inv := &model.Inventory{ProductID: productID, Stock: initialStock, LastUpdated: time.Now()}
	if err := s.inventory.Create(ctx, inv); err != nil {
		if delErr := s.catalog.Delete(ctx, productID); delErr != nil {
			log.Printf("catalog: compensating delete of %s failed: %v", productID, delErr)
			return nil, fmt.Errorf("%w: product %s: inventory insert failed: %w; compensating delete failed: %w",
				model.ErrConsistency, productID, err, delErr)
		}
		return nil, fmt.Errorf("%w: product %s: inventory insert failed: %w", model.ErrConsistency, productID, err)
	}

	view := &model.ProductView{Product: *product, Stock: initialStock}

	// 5. Invalidate facets and notify clients
	s.invalidateFacets(ctx)
	s.publish(ActionProductCreated, map[string]interface{}{
		"id":    productID,
		"name":  product.Name,
		"stock": initialStock,
		"price": product.Price,
	}, fmt.Sprintf("Product '%s' created", product.Name))

	return view, nil
}

var updatableTextFields = map[string]bool{
	"name":        true,
	"category":    true,
	"image":       true,
	"description": true,
}

func (s *catalogService) Update(ctx context.Context, productID, field, value string) (interface{}, error) {
	field = strings.TrimSpace(field)

	// Stock lives only in the inventory ledger
	if field == "stock" {
		stock, err := strconv.Atoi(strings.TrimSpace(value))
		if err != nil {
			return nil, model.Malformed("stock %q is not a whole number", value)
		}
		if stock < 0 {
			return nil, model.Malformed("stock must not be negative")
		}
		if err := s.inventory.SetStock(ctx, productID, stock); err != nil {
			return nil, err
		}
		s.publish(ActionProductUpdated, map[string]interface{}{
			"id":        productID,
			"new_stock": stock,
		}, fmt.Sprintf("Stock of %s set to %d", productID, stock))
		return stock, nil
	}

	var typed interface{}
	switch {
	case field == "price":
		price, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, model.Malformed("price %q is not a number", value)
		}
		if price.IsNegative() {
			return nil, model.Malformed("price must not be negative")
		}
		typed = price
	case updatableTextFields[field]:
		if (field == "name" || field == "category") && strings.TrimSpace(value) == "" {
			return nil, model.Malformed("%s must not be empty", field)
		}
		typed = value
	case isSpecPath(field):
		typed = value
	default:
		return nil, model.Malformed("field %q cannot be updated", field)
	}

	if err := s.catalog.SetField(ctx, productID, field, typed); err != nil {
		return nil, err
	}

	s.invalidateFacets(ctx)
	s.publish(ActionProductUpdated, map[string]interface{}{
		"id":    productID,
		"field": field,
		"value": typed,
	}, fmt.Sprintf("Product %s updated", productID))

	return typed, nil
}

// isSpecPath accepts "specs.<attribute>" with a single plain attribute name.
func isSpecPath(field string) bool {
	attr, ok := strings.CutPrefix(field, "specs.")
	return ok && attr != "" && !strings.ContainsAny(attr, ".$")
}

func (s *catalogService) Delete(ctx context.Context, productID string) error {
	// 1. Inventory row
	if err := s.inventory.Delete(ctx, productID); err != nil {
		return err
	}

	// 2. Catalog document
	if err := s.catalog.Delete(ctx, productID); err != nil {
		return err
	}

	s.invalidateFacets(ctx)
	s.publish(ActionProductDeleted, map[string]interface{}{"id": productID},
		fmt.Sprintf("Product %s deleted", productID))
	return nil
}

func (s *catalogService) GetCatalog(ctx context.Context, q CatalogQuery) (*CatalogPage, error) {
	filter := repository.CatalogFilter{
		Search:   q.Search,
		Category: q.Category,
		Specs:    q.Specs,
	}
	return s.page(ctx, filter, q.Page, q.PageSize)
}

func (s *catalogService) ListForAdmin(ctx context.Context, page int, search string) (*CatalogPage, error) {
	return s.page(ctx, repository.CatalogFilter{Search: search}, page, s.opts.AdminPageSize)
}

func (s *catalogService) page(ctx context.Context, filter repository.CatalogFilter, page, pageSize int) (*CatalogPage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = s.opts.PageSize
	}

	total, err := s.catalog.Count(ctx, filter)
	if err != nil {
		return nil, err
	}

	products, err := s.catalog.Find(ctx, filter, int64((page-1)*pageSize), int64(pageSize))
	if err != nil {
		return nil, err
	}

	views, err := s.attachStock(ctx, products)
	if err != nil {
		return nil, err
	}

	return &CatalogPage{
		Products:   views,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: int((total + int64(pageSize) - 1) / int64(pageSize)),
	}, nil
}

// attachStock joins a page of documents with their stock in one ledger query.
// Documents without an inventory row report zero stock.
func (s *catalogService) attachStock(ctx context.Context, products []model.Product) ([]model.ProductView, error) {
	views := make([]model.ProductView, 0, len(products))
	if len(products) == 0 {
		return views, nil
	}

	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID.Hex()
	}

	rows, err := s.inventory.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	stock := make(map[string]int, len(rows))
	for _, row := range rows {
		stock[row.ProductID] = row.Stock
	}

	for _, p := range products {
		views = append(views, model.ProductView{Product: p, Stock: stock[p.ID.Hex()]})
	}
	return views, nil
}

func (s *catalogService) GetFacets(ctx context.Context, category string) (*Facets, error) {
	var (
		generation int64
		fill       bool
	)
	if s.cache != nil {
		var cached Facets
		gen, hit, err := s.cache.Get(ctx, category, &cached)
		switch {
		case err != nil:
			log.Printf("catalog: facet cache read failed: %v", err)
		case hit:
			return &cached, nil
		default:
			generation, fill = gen, true
		}
	}

	categories, err := s.catalog.DistinctCategories(ctx)
	if err != nil {
		return nil, err
	}

	facets := &Facets{Categories: categories, Active: map[string][]string{}}
	if category != "" {
		raw, err := s.catalog.SpecValues(ctx, category)
		if err != nil {
			return nil, err
		}
		facets.Active = reduceFacets(raw)
	}

	if fill {
		if err := s.cache.Set(ctx, generation, category, facets); err != nil {
			log.Printf("catalog: facet cache write failed: %v", err)
		}
	}
	return facets, nil
}

// reduceFacets keeps attributes with more than one distinct value, rendered
// as sorted strings.
func reduceFacets(raw map[string][]interface{}) map[string][]string {
	active := make(map[string][]string)
	for attr, values := range raw {
		seen := make(map[string]bool, len(values))
		distinct := make([]string, 0, len(values))
		for _, v := range values {
			if v == nil {
				continue
			}
			str := fmt.Sprint(v)
			if !seen[str] {
				seen[str] = true
				distinct = append(distinct, str)
			}
		}
		if len(distinct) > 1 {
			sort.Strings(distinct)
			active[attr] = distinct
		}
	}
	return active
}

func (s *catalogService) GetProductDetails(ctx context.Context, productID string) (*model.ProductView, error) {
	product, err := s.catalog.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}

	view := &model.ProductView{Product: *product}
	inv, err := s.inventory.FindByID(ctx, productID)
	switch {
	case err == nil:
		view.Stock = inv.Stock
	case model.IsNotFound(err):
		// missing counterpart reads as zero stock
	default:
		return nil, err
	}
	return view, nil
}

func (s *catalogService) CountProducts(ctx context.Context) (int64, error) {
	return s.catalog.Count(ctx, repository.CatalogFilter{})
}

func (s *catalogService) CategoryBreakdown(ctx context.Context) ([]model.CategoryCount, error) {
	return s.catalog.CategoryBreakdown(ctx)
}

func (s *catalogService) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	return s.inventory.CountLowStock(ctx, threshold)
}

func (s *catalogService) invalidateFacets(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("catalog: facet cache invalidation failed: %v", err)
	}
}

func (s *catalogService) publish(action string, data interface{}, message string) {
	if s.events == nil {
		return
	}
	s.events.Publish(EventStockUpdate, action, data, message)
}
