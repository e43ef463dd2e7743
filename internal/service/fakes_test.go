package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/repository"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// -----------------------------------------------------------------------------
// Ledger fake: inventory + orders with row locks and rollback
// -----------------------------------------------------------------------------

type fakeTxKey struct{}

type fakeTx struct {
	undo []func()
	held map[string]*sync.Mutex
}

type memLedger struct {
	mu       sync.Mutex
	stock    map[string]int
	rowLocks map[string]*sync.Mutex
	orders   map[uint]*model.Order
	nextID   uint

	findByIDsCalls int
	failInvCreate  error
	failInvDelete  error
	failOrder      error
}

func newMemLedger() *memLedger {
	return &memLedger{
		stock:    make(map[string]int),
		rowLocks: make(map[string]*sync.Mutex),
		orders:   make(map[uint]*model.Order),
	}
}

func (l *memLedger) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	tx := &fakeTx{held: make(map[string]*sync.Mutex)}
	err := fn(context.WithValue(ctx, fakeTxKey{}, tx))
	if err != nil {
		l.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		l.mu.Unlock()
	}
	for _, m := range tx.held {
		m.Unlock()
	}
	return err
}

func txFrom(ctx context.Context) *fakeTx {
	tx, _ := ctx.Value(fakeTxKey{}).(*fakeTx)
	return tx
}

// record registers an undo step; the caller holds l.mu.
func (l *memLedger) record(ctx context.Context, undo func()) {
	if tx := txFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

func (l *memLedger) setStock(id string, n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stock[id] = n
}

func (l *memLedger) stockOf(id string) (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.stock[id]
	return n, ok
}

func (l *memLedger) orderCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.orders)
}

type fakeInventory struct{ l *memLedger }

var _ repository.InventoryRepository = (*fakeInventory)(nil)

func (f *fakeInventory) Create(ctx context.Context, inv *model.Inventory) error {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failInvCreate != nil {
		return l.failInvCreate
	}
	if _, exists := l.stock[inv.ProductID]; exists {
		return errors.New("duplicate key value violates unique constraint")
	}
	l.stock[inv.ProductID] = inv.Stock
	return nil
}

func (f *fakeInventory) FindByID(ctx context.Context, productID string) (*model.Inventory, error) {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	n, ok := l.stock[productID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &model.Inventory{ProductID: productID, Stock: n}, nil
}

func (f *fakeInventory) FindByIDs(ctx context.Context, productIDs []string) ([]model.Inventory, error) {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	l.findByIDsCalls++
	var rows []model.Inventory
	for _, id := range productIDs {
		if n, ok := l.stock[id]; ok {
			rows = append(rows, model.Inventory{ProductID: id, Stock: n})
		}
	}
	return rows, nil
}

func (f *fakeInventory) LockForUpdate(ctx context.Context, productID string) (*model.Inventory, error) {
	l := f.l
	tx := txFrom(ctx)
	if tx == nil {
		return nil, errors.New("LockForUpdate called outside a transaction")
	}

	if _, held := tx.held[productID]; !held {
		l.mu.Lock()
		m, ok := l.rowLocks[productID]
		if !ok {
			m = &sync.Mutex{}
			l.rowLocks[productID] = m
		}
		l.mu.Unlock()

		m.Lock()
		tx.held[productID] = m
	}

	return f.FindByID(ctx, productID)
}

func (f *fakeInventory) SetStock(ctx context.Context, productID string, stock int) error {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if stock < 0 {
		return errors.New(`violates check constraint "chk_inventory_stock_non_negative"`)
	}
	old, ok := l.stock[productID]
	if !ok {
		return model.ErrNotFound
	}
	l.stock[productID] = stock
	l.record(ctx, func() { l.stock[productID] = old })
	return nil
}

func (f *fakeInventory) Delete(ctx context.Context, productID string) error {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failInvDelete != nil {
		return l.failInvDelete
	}
	delete(l.stock, productID)
	return nil
}

func (f *fakeInventory) CountLowStock(ctx context.Context, threshold int) (int64, error) {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	var n int64
	for _, stock := range l.stock {
		if stock <= threshold {
			n++
		}
	}
	return n, nil
}

type fakeOrders struct{ l *memLedger }

var _ repository.OrderRepository = (*fakeOrders)(nil)

func copyOrder(o *model.Order) *model.Order {
	c := *o
	c.Items = append([]model.OrderItem(nil), o.Items...)
	return &c
}

func (f *fakeOrders) Create(ctx context.Context, order *model.Order) error {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.failOrder != nil {
		return l.failOrder
	}
	l.nextID++
	order.ID = l.nextID
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
	}
	l.orders[order.ID] = copyOrder(order)
	id := order.ID
	l.record(ctx, func() { delete(l.orders, id) })
	return nil
}

func (f *fakeOrders) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	o, ok := l.orders[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyOrder(o), nil
}

func (f *fakeOrders) UpdateStatus(ctx context.Context, id uint, status model.OrderStatus) (*model.Order, error) {
	l := f.l
	l.mu.Lock()
	o, ok := l.orders[id]
	if ok {
		o.Status = status
	}
	l.mu.Unlock()
	if !ok {
		return nil, model.ErrNotFound
	}
	return f.FindByID(ctx, id)
}

func (f *fakeOrders) sorted(match func(*model.Order) bool) []model.Order {
	l := f.l
	l.mu.Lock()
	defer l.mu.Unlock()
	out := []model.Order{}
	for _, o := range l.orders {
		if match(o) {
			out = append(out, *copyOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (f *fakeOrders) Search(ctx context.Context, term string) ([]model.Order, error) {
	term = strings.ToLower(strings.TrimSpace(term))
	return f.sorted(func(o *model.Order) bool {
		return term == "" ||
			strings.Contains(fmt.Sprint(o.ID), term) ||
			strings.Contains(strings.ToLower(o.CustomerName), term) ||
			strings.Contains(strings.ToLower(o.CustomerEmail), term)
	}), nil
}

func (f *fakeOrders) TotalRevenue(ctx context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, o := range f.sorted(func(*model.Order) bool { return true }) {
		total = total.Add(o.TotalAmount)
	}
	return total, nil
}

func (f *fakeOrders) Count(ctx context.Context) (int64, error) {
	return int64(f.l.orderCount()), nil
}

func (f *fakeOrders) Recent(ctx context.Context, limit int) ([]model.Order, error) {
	all := f.sorted(func(*model.Order) bool { return true })
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeOrders) DailySales(ctx context.Context, start, end time.Time) ([]repository.DailySales, error) {
	byDay := map[string]*repository.DailySales{}
	for _, o := range f.sorted(func(o *model.Order) bool {
		return !o.CreatedAt.Before(start) && !o.CreatedAt.After(end)
	}) {
		date := o.CreatedAt.Format("2006-01-02")
		day, ok := byDay[date]
		if !ok {
			day = &repository.DailySales{Date: date, Revenue: decimal.Zero}
			byDay[date] = day
		}
		day.Orders++
		day.Revenue = day.Revenue.Add(o.TotalAmount)
	}
	out := make([]repository.DailySales, 0, len(byDay))
	for _, day := range byDay {
		out = append(out, *day)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out, nil
}

// -----------------------------------------------------------------------------
// Catalog fake
// -----------------------------------------------------------------------------

type fakeCatalog struct {
	mu       sync.Mutex
	products map[string]*model.Product

	failInsert error
	failDelete error

	distinctCalls int
}

var _ repository.CatalogRepository = (*fakeCatalog)(nil)

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{products: make(map[string]*model.Product)}
}

func (c *fakeCatalog) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.products)
}

func (c *fakeCatalog) Insert(ctx context.Context, p *model.Product) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failInsert != nil {
		return c.failInsert
	}
	p.ID = primitive.NewObjectID()
	stored := *p
	c.products[p.ID.Hex()] = &stored
	return nil
}

func (c *fakeCatalog) FindByID(ctx context.Context, id string) (*model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (c *fakeCatalog) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []model.Product{}
	for _, id := range ids {
		if p, ok := c.products[id]; ok {
			out = append(out, *p)
		}
	}
	return out, nil
}

func specMatches(stored interface{}, accepted []string) bool {
	var candidates []interface{}
	switch v := stored.(type) {
	case []interface{}:
		candidates = v
	case []string:
		for _, s := range v {
			candidates = append(candidates, s)
		}
	default:
		candidates = []interface{}{v}
	}
	for _, cand := range candidates {
		for _, a := range accepted {
			if fmt.Sprint(cand) == a {
				return true
			}
		}
	}
	return false
}

func (c *fakeCatalog) matching(f repository.CatalogFilter) []model.Product {
	out := []model.Product{}
	for _, p := range c.products {
		if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(strings.TrimSpace(f.Search))) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		ok := true
		for attr, values := range f.Specs {
			stored, present := p.Specs[attr]
			if !present || !specMatches(stored, values) {
				ok = false
				break
			}
		}
		if ok {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.Hex() > out[j].ID.Hex()
	})
	return out
}

func (c *fakeCatalog) Find(ctx context.Context, f repository.CatalogFilter, skip, limit int64) ([]model.Product, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	all := c.matching(f)
	if skip >= int64(len(all)) {
		return []model.Product{}, nil
	}
	end := skip + limit
	if end > int64(len(all)) {
		end = int64(len(all))
	}
	return all[skip:end], nil
}

func (c *fakeCatalog) Count(ctx context.Context, f repository.CatalogFilter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.matching(f))), nil
}

func (c *fakeCatalog) SetField(ctx context.Context, id, field string, value interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.products[id]
	if !ok {
		return model.ErrNotFound
	}
	switch field {
	case "price":
		p.Price = value.(decimal.Decimal)
	case "name":
		p.Name = value.(string)
	case "category":
		p.Category = value.(string)
	case "image":
		p.Image = value.(string)
	case "description":
		p.Description = value.(string)
	default:
		attr := strings.TrimPrefix(field, "specs.")
		specs := model.Specs{}
		for k, v := range p.Specs {
			specs[k] = v
		}
		specs[attr] = value
		p.Specs = specs
	}
	return nil
}

func (c *fakeCatalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failDelete != nil {
		return c.failDelete
	}
	delete(c.products, id)
	return nil
}

func (c *fakeCatalog) DistinctCategories(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.distinctCalls++
	seen := map[string]bool{}
	out := []string{}
	for _, p := range c.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (c *fakeCatalog) SpecValues(ctx context.Context, category string) (map[string][]interface{}, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := map[string][]interface{}{}
	seen := map[string]bool{}
	add := func(attr string, v interface{}) {
		key := attr + "\x00" + fmt.Sprint(v)
		if !seen[key] {
			seen[key] = true
			out[attr] = append(out[attr], v)
		}
	}
	for _, p := range c.products {
		if p.Category != category {
			continue
		}
		for attr, v := range p.Specs {
			switch vs := v.(type) {
			case []interface{}:
				for _, e := range vs {
					add(attr, e)
				}
			case []string:
				for _, e := range vs {
					add(attr, e)
				}
			default:
				add(attr, v)
			}
		}
	}
	return out, nil
}

func (c *fakeCatalog) CategoryBreakdown(ctx context.Context) ([]model.CategoryCount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := map[string]int64{}
	for _, p := range c.products {
		counts[p.Category]++
	}
	out := []model.CategoryCount{}
	for cat, n := range counts {
		out = append(out, model.CategoryCount{Category: cat, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Category < out[j].Category
	})
	return out, nil
}

// -----------------------------------------------------------------------------
// Collaborator fakes
// -----------------------------------------------------------------------------

type publishedEvent struct {
	Type   string
	Action string
	Data   interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(eventType, action string, data interface{}, message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Action: action, Data: data})
}

func (p *recordingPublisher) actions() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.Action
	}
	return out
}

// memFacetCache stores values by reference; tests only read back what they wrote.
type memFacetCache struct {
	entries       map[string]Facets
	generation    int64
	invalidations int
}

func newMemFacetCache() *memFacetCache {
	return &memFacetCache{entries: map[string]Facets{}}
}

func (c *memFacetCache) Get(ctx context.Context, category string, dst interface{}) (int64, bool, error) {
	f, ok := c.entries[category]
	if !ok {
		return c.generation, false, nil
	}
	*(dst.(*Facets)) = f
	return c.generation, true, nil
}

func (c *memFacetCache) Set(ctx context.Context, generation int64, category string, v interface{}) error {
	if generation != c.generation {
		return nil
	}
	c.entries[category] = *(v.(*Facets))
	return nil
}

func (c *memFacetCache) Invalidate(ctx context.Context) error {
	c.invalidations++
	c.generation++
	c.entries = map[string]Facets{}
	return nil
}

// -----------------------------------------------------------------------------
// Fixture
// -----------------------------------------------------------------------------

type fixture struct {
	ledger    *memLedger
	catalog   *fakeCatalog
	cache     *memFacetCache
	events    *recordingPublisher
	catalogSv CatalogService
	orderSv   OrderService
}

func newFixture() *fixture {
	f := &fixture{
		ledger:  newMemLedger(),
		catalog: newFakeCatalog(),
		cache:   newMemFacetCache(),
		events:  &recordingPublisher{},
	}
	inv := &fakeInventory{l: f.ledger}
	f.catalogSv = NewCatalogService(f.catalog, inv, f.cache, f.events, CatalogOptions{PageSize: 9, AdminPageSize: 20})
	f.orderSv = NewOrderService(f.ledger, inv, &fakeOrders{l: f.ledger}, f.catalog, f.events)
	return f
}

// seed stores a product directly in both fakes and returns its id.
func (f *fixture) seed(name, category string, price string, stock int, specs model.Specs, createdAt time.Time) string {
	p := &model.Product{
		Name:      name,
		Category:  category,
		Price:     decimal.RequireFromString(price),
		Specs:     specs,
		CreatedAt: createdAt,
	}
	if err := f.catalog.Insert(context.Background(), p); err != nil {
		panic(err)
	}
	if stock >= 0 {
		f.ledger.setStock(p.ID.Hex(), stock)
	}
	return p.ID.Hex()
}
