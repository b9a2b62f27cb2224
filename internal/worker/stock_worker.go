package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/vendorhub/internal/domain"
	"github.com/yourorg/vendorhub/internal/observability/metrics"
)

// StockWorker periodically sweeps the catalog for products running low on
// stock and surfaces them through logs and metrics. It is strictly
// read-only; stock itself only moves through the order transaction.
type StockWorker struct {
	products  domain.ProductRepository
	logger    *slog.Logger
	interval  time.Duration
	threshold int
}

// NewStockWorker creates a new stock worker
func NewStockWorker(products domain.ProductRepository, logger *slog.Logger, interval time.Duration, threshold int) *StockWorker {
	return &StockWorker{
		products:  products,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
	}
}

// Start begins the sweep loop. It runs until the context is cancelled.
func (w *StockWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("stock worker started",
		slog.Duration("interval", w.interval),
		slog.Int("threshold", w.threshold),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stock worker stopped")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *StockWorker) sweep(ctx context.Context) {
	products, err := w.products.ListLowStock(ctx, w.threshold)
	if err != nil {
		w.logger.Error("low stock sweep failed", slog.String("error", err.Error()))
		return
	}

	metrics.SetLowStockProducts(len(products))
	for _, p := range products {
		w.logger.Warn("product low on stock",
			slog.Int64("tenant_id", p.TenantID),
			slog.Int64("product_id", p.ID),
			slog.String("sku", p.SKU),
			slog.Int("stock_quantity", p.StockQuantity),
		)
	}
}
