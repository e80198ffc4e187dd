package airtable

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
)

// Record is one row of a table.
type Record struct {
	ID          string `json:"id"`
	CreatedTime string `json:"createdTime,omitempty"`
	Fields      Fields `json:"fields"`
}

// ListParams narrows a list query. Zero values are omitted from the request.
type ListParams struct {
	Formula    string
	View       string
	MaxRecords int
	PageSize   int
	Fields     []string
}

// Table performs CRUD calls against one table of the base.
type Table struct {
	client *Client
	name   string
}

// Name returns the table name used on the wire.
func (t *Table) Name() string {
	return t.name
}

type listResponse struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset"`
}

type writeRequest struct {
	Fields Fields `json:"fields"`
}

// List returns every record matching params, following pagination offsets
// until the store reports no more pages or MaxRecords is reached.
func (t *Table) List(ctx context.Context, params ListParams) ([]Record, error) {
	records := []Record{}
	offset := ""
	for {
		page, err := t.page(ctx, params, offset)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Records...)
		if params.MaxRecords > 0 && len(records) >= params.MaxRecords {
			return records[:params.MaxRecords], nil
		}
		if page.Offset == "" {
			return records, nil
		}
		offset = page.Offset
	}
}

// FirstPage returns only the first page of matching records.
func (t *Table) FirstPage(ctx context.Context, params ListParams) ([]Record, error) {
	page, err := t.page(ctx, params, "")
	if err != nil {
		return nil, err
	}
	if page.Records == nil {
		return []Record{}, nil
	}
	return page.Records, nil
}

func (t *Table) page(ctx context.Context, params ListParams, offset string) (*listResponse, error) {
	query := url.Values{}
	if params.Formula != "" {
		query.Set("filterByFormula", params.Formula)
	}
	if params.View != "" {
		query.Set("view", params.View)
	}
	if params.MaxRecords > 0 {
		query.Set("maxRecords", strconv.Itoa(params.MaxRecords))
	}
	if params.PageSize > 0 {
		size := params.PageSize
		if size > maxPageSize {
			size = maxPageSize
		}
		query.Set("pageSize", strconv.Itoa(size))
	}
	for _, field := range params.Fields {
		query.Add("fields[]", field)
	}
	if offset != "" {
		query.Set("offset", offset)
	}

	var resp listResponse
	if err := t.client.do(ctx, http.MethodGet, t.name, "", query, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Get fetches one record by id. A missing record yields a NOT_FOUND error.
func (t *Table) Get(ctx context.Context, id string) (*Record, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	var rec Record
	if err := t.client.do(ctx, http.MethodGet, t.name, trimmed, nil, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Create inserts one record and returns it as stored.
func (t *Table) Create(ctx context.Context, fields Fields) (*Record, error) {
	var rec Record
	if err := t.client.do(ctx, http.MethodPost, t.name, "", nil, writeRequest{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Update patches the given fields of one record; other fields are untouched.
func (t *Table) Update(ctx context.Context, id string, fields Fields) (*Record, error) {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "record id is required")
	}
	var rec Record
	if err := t.client.do(ctx, http.MethodPatch, t.name, trimmed, nil, writeRequest{Fields: fields}, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}
