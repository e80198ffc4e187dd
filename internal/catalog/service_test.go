package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable/airtabletest"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

func TestListProductsMapsFields(t *testing.T) {
	table := airtabletest.NewTable("Products")
	table.Seed("recBURGER", airtable.Fields{
		FieldName:        "Burger",
		FieldPrice:       json.Number("5.00"),
		FieldDescription: "Beef patty",
		FieldImage:       []any{map[string]any{"url": "https://cdn.test/burger.png"}},
	})
	table.Seed("recFRIES", airtable.Fields{
		FieldName:  "Fries",
		FieldPrice: json.Number("2.5"),
	})

	svc, err := NewService(table, "Grid view", logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	products := svc.ListProducts(context.Background())
	if len(products) != 2 {
		t.Fatalf("expected 2 products, got %d", len(products))
	}
	burger := products[0]
	if burger.Name != "Burger" || burger.Price.String() != "5" || burger.ImageURL != "https://cdn.test/burger.png" {
		t.Fatalf("unexpected burger %+v", burger)
	}
	if products[1].Description != "" || products[1].ImageURL != "" {
		t.Fatalf("missing optional fields should be empty, got %+v", products[1])
	}
	if q := table.Queries(); len(q) != 1 || q[0].View != "Grid view" {
		t.Fatalf("expected one query against the view, got %+v", q)
	}
}

func TestListProductsDegradesToEmpty(t *testing.T) {
	table := airtabletest.NewTable("Products")
	table.Hook = func(string, int, airtable.Fields) error { return errors.New("store down") }

	svc, err := NewService(table, "Grid view", logger.Nop())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	products := svc.ListProducts(context.Background())
	if products == nil || len(products) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", products)
	}
}

func TestListProductsSkipsUnreadablePrice(t *testing.T) {
	table := airtabletest.NewTable("Products")
	table.Seed("recBAD", airtable.Fields{FieldName: "Mystery", FieldPrice: "n/a"})
	table.Seed("recOK", airtable.Fields{FieldName: "Tea", FieldPrice: json.Number("1")})

	svc, _ := NewService(table, "", logger.Nop())
	products := svc.ListProducts(context.Background())
	if len(products) != 1 || products[0].ID != "recOK" {
		t.Fatalf("expected only the readable product, got %+v", products)
	}
}

func TestNewServiceRequiresTable(t *testing.T) {
	if _, err := NewService(nil, "", nil); err == nil {
		t.Fatal("expected error without table")
	}
}
