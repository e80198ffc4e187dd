package catalog

import (
	"context"
	"fmt"

	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/shopspring/decimal"
)

const (
	FieldName        = "Product Name"
	FieldPrice       = "Price (per unit)"
	FieldDescription = "Description"
	FieldImage       = "Image"
)

// Product is one row of the read-only catalog.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Description string          `json:"description"`
	ImageURL    string          `json:"imageUrl"`
}

// Service reads the product catalog.
type Service interface {
	ListProducts(ctx context.Context) []Product
}

type recordLister interface {
	List(ctx context.Context, params airtable.ListParams) ([]airtable.Record, error)
}

type service struct {
	products recordLister
	view     string
	logg     *logger.Logger
}

// NewService builds the catalog reader over the products table.
func NewService(products recordLister, view string, logg *logger.Logger) (Service, error) {
	if products == nil {
		return nil, fmt.Errorf("products table required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{products: products, view: view, logg: logg}, nil
}

// ListProducts returns the whole catalog view. Read failures are logged and
// yield an empty list so menus render as "no products" instead of failing.
func (s *service) ListProducts(ctx context.Context) []Product {
	records, err := s.products.List(ctx, airtable.ListParams{View: s.view})
	if err != nil {
		s.logg.Error(ctx, "catalog.list_failed", err)
		return []Product{}
	}

	products := make([]Product, 0, len(records))
	for _, rec := range records {
		product, err := FromRecord(rec)
		if err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{
				"record_id": rec.ID,
				"error":     err.Error(),
			}), "catalog.product_skipped")
			continue
		}
		products = append(products, product)
	}
	return products
}

// FromRecord maps a Products row. A row without a readable price is rejected.
func FromRecord(rec airtable.Record) (Product, error) {
	price, ok, err := rec.Fields.Decimal(FieldPrice)
	if err != nil {
		return Product{}, err
	}
	if !ok {
		price = decimal.Zero
	}
	return Product{
		ID:          rec.ID,
		Name:        rec.Fields.String(FieldName),
		Price:       price,
		Description: rec.Fields.String(FieldDescription),
		ImageURL:    rec.Fields.AttachmentURL(FieldImage),
	}, nil
}
