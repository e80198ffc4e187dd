// Package app assembles the store-backed services shared by the api, bot and
// cron binaries.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/catalog"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/journal"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/orders"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/db"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/metrics"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/migrate"
)

// Workflow holds the domain services built over one store base.
type Workflow struct {
	Client  *airtable.Client
	Catalog catalog.Service
	Pools   pools.Service
	Orders  orders.Service
}

// NewWorkflow builds the store client and the catalog, pool and order
// services. Store and order metrics register on reg when it is non-nil.
// Extra options are applied after the configured ones.
func NewWorkflow(cfg *config.Config, logg *logger.Logger, reg prometheus.Registerer, repo journal.Repository, extra ...airtable.Option) (*Workflow, error) {
	opts := []airtable.Option{
		airtable.WithHTTPClient(&http.Client{Timeout: cfg.Airtable.Timeout}),
		airtable.WithBaseURL(cfg.Airtable.BaseURL),
		airtable.WithRateLimit(cfg.Airtable.RequestsPerSecond, cfg.Airtable.Burst),
	}
	var orderMetrics *metrics.OrderMetrics
	if reg != nil {
		opts = append(opts, airtable.WithObserver(metrics.NewStoreMetrics(reg)))
		orderMetrics = metrics.NewOrderMetrics(reg)
	}
	opts = append(opts, extra...)

	client, err := airtable.NewClient(cfg.Airtable.APIKey, cfg.Airtable.BaseID, opts...)
	if err != nil {
		return nil, fmt.Errorf("airtable client: %w", err)
	}

	catalogSvc, err := catalog.NewService(client.Table(cfg.Airtable.ProductsTable), cfg.Airtable.View, logg)
	if err != nil {
		return nil, fmt.Errorf("catalog service: %w", err)
	}

	poolsSvc, err := pools.NewService(client.Table(cfg.Airtable.PoolsTable), pools.Options{
		View:       cfg.Airtable.View,
		PoolIDMax:  cfg.Orders.PoolIDMax,
		IDAttempts: cfg.Orders.IDMaxAttempts,
	}, logg)
	if err != nil {
		return nil, fmt.Errorf("pools service: %w", err)
	}

	ordersSvc, err := orders.NewService(orders.Tables{
		Orders:   client.Table(cfg.Airtable.OrdersTable),
		Items:    client.Table(cfg.Airtable.OrderItemsTable),
		Products: client.Table(cfg.Airtable.ProductsTable),
	}, poolsSvc, repo, orderMetrics, logg, orders.Options{
		View:           cfg.Airtable.View,
		OrderIDMax:     cfg.Orders.OrderIDMax,
		IDAttempts:     cfg.Orders.IDMaxAttempts,
		FanOutLimit:    cfg.Orders.FanOutLimit,
		MaxCartLines:   cfg.Orders.MaxCartLines,
		MaxLineQty:     cfg.Orders.MaxLineQty,
		MaxCustomerLen: cfg.Orders.MaxCustomerLen,
	})
	if err != nil {
		return nil, fmt.Errorf("orders service: %w", err)
	}

	return &Workflow{Client: client, Catalog: catalogSvc, Pools: poolsSvc, Orders: ordersSvc}, nil
}

// OpenJournal connects the order journal database and applies migrations
// when allowed. With the journal flag off it returns a nil client and a
// no-op repository.
func OpenJournal(ctx context.Context, cfg *config.Config, logg *logger.Logger) (*db.Client, journal.Repository, error) {
	if !cfg.FeatureFlags.Journal {
		logg.Warn(ctx, "order journal disabled; partial writes will not be reconciled")
		return nil, journal.Nop{}, nil
	}
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, nil, fmt.Errorf("journal database: %w", err)
	}
	if err := migrate.MaybeAutoRun(ctx, cfg, logg, client); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("journal migrations: %w", err)
	}
	return client, journal.NewRepository(client.DB()), nil
}
