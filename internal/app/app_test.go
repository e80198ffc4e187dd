package app

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/journal"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/config"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "dev"},
		Airtable: config.AirtableConfig{
			APIKey:          "pat-test",
			BaseID:          "appTEST",
			BaseURL:         "http://airtable.test/v0",
			View:            "Grid view",
			ProductsTable:   "Products",
			OrdersTable:     "Orders",
			OrderItemsTable: "OrderItem",
			PoolsTable:      "Pooled Orders",
		},
		Orders: config.OrdersConfig{
			OrderIDMax:    100000,
			PoolIDMax:     10000,
			IDMaxAttempts: 5,
			FanOutLimit:   5,
		},
	}
}

func TestNewWorkflowWiresTablesAndMetrics(t *testing.T) {
	var paths []string
	rt := roundTripFunc(func(req *http.Request) (*http.Response, error) {
		paths = append(paths, req.URL.EscapedPath())
		body := `{"records":[{"id":"recBURGER","fields":{"Product Name":"Burger","Price (per unit)":5}}]}`
		return &http.Response{
			StatusCode: http.StatusOK,
			Body:       io.NopCloser(strings.NewReader(body)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
		}, nil
	})

	reg := prometheus.NewRegistry()
	wf, err := NewWorkflow(testConfig(), logger.Nop(), reg, journal.Nop{}, airtable.WithHTTPClient(&http.Client{Transport: rt}))
	require.NoError(t, err)

	products := wf.Catalog.ListProducts(context.Background())
	require.Len(t, products, 1)
	assert.Equal(t, "Burger", products[0].Name)
	assert.Equal(t, []string{"/v0/appTEST/Products"}, paths)

	count, err := testutil.GatherAndCount(reg, "bulkbuddy_airtable_requests_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestNewWorkflowRequiresCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.Airtable.APIKey = ""
	_, err := NewWorkflow(cfg, logger.Nop(), nil, nil)
	require.Error(t, err)
}

func TestOpenJournalDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags.Journal = false

	client, repo, err := OpenJournal(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	assert.Nil(t, client)
	assert.IsType(t, journal.Nop{}, repo)
}

func TestOpenJournalSQLiteMigrates(t *testing.T) {
	cfg := testConfig()
	cfg.FeatureFlags.Journal = true
	cfg.DB = config.DBConfig{Driver: config.DriverSQLite, DSN: "file:" + t.Name() + "?mode=memory&cache=shared"}

	client, repo, err := OpenJournal(context.Background(), cfg, logger.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	entries, err := repo.ListStale(context.Background(), time.Now(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
