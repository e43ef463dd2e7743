package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go-polyglot-store/internal/model"
	"go-polyglot-store/internal/service"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BenchEmailDomain marks orders placed by the benchmark so they can be purged.
const BenchEmailDomain = "stockbench.local"

// maxConsecutiveErrors stops a worker whose checkouts keep failing for a
// reason other than running out of stock.
const maxConsecutiveErrors = 5

type StockReader interface {
	FindByID(ctx context.Context, productID string) (*model.Inventory, error)
}

type Result struct {
	Operations     int64
	Succeeded      int64
	OutOfStock     int64
	Errors         int64
	Throughput     float64
	P95Latency     time.Duration
	P99Latency     time.Duration
	AverageLatency time.Duration
	TotalTime      time.Duration
	InitialStock   int
	FinalStock     int
	DataIntegrity  bool
}

// CheckoutContention has concurrency workers buy one unit of a single product
// until each of them is turned away as out of stock, then checks that exactly
// the sold units left the inventory.
type CheckoutContention struct {
	Orders       service.OrderService
	Stock        StockReader
	ProductID    string
	InitialStock int
	Concurrency  int
	UnitPrice    decimal.Decimal
}

func (b *CheckoutContention) Run(ctx context.Context) (*Result, error) {
	if b.Concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be positive, got %d", b.Concurrency)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		histogram = hdrhistogram.New(1, 60000000, 3)
		result    = &Result{InitialStock: b.InitialStock}
		lastErr   error
	)

	startTime := time.Now()
	for i := 0; i < b.Concurrency; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			failures := 0
			for ctx.Err() == nil {
				customer := service.CustomerInfo{
					Name:  fmt.Sprintf("Bench Worker %d", worker),
					Email: fmt.Sprintf("bench-%s@%s", uuid.NewString(), BenchEmailDomain),
				}
				items := []service.LineItem{{
					ProductID: b.ProductID,
					Quantity:  1,
					UnitPrice: b.UnitPrice,
					Name:      "Bench Item",
				}}

				opStart := time.Now()
				_, err := b.Orders.CreateOrder(ctx, customer, items)
				latency := time.Since(opStart)

				mu.Lock()
				result.Operations++
				_ = histogram.RecordValue(latency.Microseconds())
				switch {
				case err == nil:
					result.Succeeded++
				case errors.Is(err, model.ErrOutOfStock):
					result.OutOfStock++
				default:
					result.Errors++
					lastErr = err
				}
				mu.Unlock()

				switch {
				case err == nil:
					failures = 0
				case errors.Is(err, model.ErrOutOfStock):
					return
				default:
					if failures++; failures >= maxConsecutiveErrors {
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()

	result.TotalTime = time.Since(startTime)
	if result.TotalTime > 0 {
		result.Throughput = float64(result.Operations) / result.TotalTime.Seconds()
	}
	result.P95Latency = time.Duration(histogram.ValueAtQuantile(95)) * time.Microsecond
	result.P99Latency = time.Duration(histogram.ValueAtQuantile(99)) * time.Microsecond
	result.AverageLatency = time.Duration(histogram.Mean()) * time.Microsecond

	if result.Succeeded == 0 && result.Errors > 0 {
		return result, fmt.Errorf("no checkout succeeded (%d errors): %w", result.Errors, lastErr)
	}

	// Verify that exactly the sold units left the inventory
	inv, err := b.Stock.FindByID(context.Background(), b.ProductID)
	if err != nil {
		return result, fmt.Errorf("read final stock: %w", err)
	}
	result.FinalStock = inv.Stock
	result.DataIntegrity = inv.Stock >= 0 && int64(inv.Stock) == int64(b.InitialStock)-result.Succeeded

	return result, nil
}
