package orders

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/idgen"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/journal"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable/formula"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/metrics"
	"github.com/shopspring/decimal"
)

// Service is the order workflow: writing orders with their items and reading them back.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderRef, error)
	CreateOrderItems(ctx context.Context, orderRef string, lines []CartLine) ([]string, error)
	ResolveOrderItems(ctx context.Context, orderRef string) ([]ItemView, error)
	AttachItems(ctx context.Context, orderRef string, itemRefs []string) error
	GetOrdersForCustomer(ctx context.Context, customer string) ([]OrderView, error)
}

type recordStore interface {
	List(ctx context.Context, params airtable.ListParams) ([]airtable.Record, error)
	FirstPage(ctx context.Context, params airtable.ListParams) ([]airtable.Record, error)
	Get(ctx context.Context, id string) (*airtable.Record, error)
	Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
	Update(ctx context.Context, id string, fields airtable.Fields) (*airtable.Record, error)
}

type poolResolver interface {
	ResolvePool(ctx context.Context, poolID string) (*pools.Pool, error)
}

// Tables groups the store tables the workflow touches.
type Tables struct {
	Orders   recordStore
	Items    recordStore
	Products recordStore
}

// Options bounds input and tunes id minting and fan-out.
type Options struct {
	View           string
	OrderIDMax     int
	IDAttempts     int
	FanOutLimit    int
	MaxCartLines   int
	MaxLineQty     int
	MaxCustomerLen int
	IntN           func(n int) int
}

type service struct {
	tables  Tables
	pools   poolResolver
	journal journal.Repository
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	opts    Options
	ids     idgen.Minter
}

// NewService wires the order workflow. A nil journal disables write-ahead
// recording and a nil metrics recorder disables counting.
func NewService(tables Tables, poolsSvc poolResolver, repo journal.Repository, m *metrics.OrderMetrics, logg *logger.Logger, opts Options) (Service, error) {
	if tables.Orders == nil || tables.Items == nil || tables.Products == nil {
		return nil, fmt.Errorf("orders, items and products tables required")
	}
	if poolsSvc == nil {
		return nil, fmt.Errorf("pool resolver required")
	}
	if opts.OrderIDMax <= 0 {
		return nil, fmt.Errorf("order id max must be positive")
	}
	if repo == nil {
		repo = journal.Nop{}
	}
	if logg == nil {
		logg = logger.Nop()
	}
	if opts.IDAttempts <= 0 {
		opts.IDAttempts = 5
	}
	if opts.FanOutLimit <= 0 {
		opts.FanOutLimit = 5
	}
	return &service{
		tables:  tables,
		pools:   poolsSvc,
		journal: repo,
		metrics: m,
		logg:    logg,
		opts:    opts,
		ids: idgen.Minter{
			Min:      1,
			Max:      opts.OrderIDMax,
			Attempts: opts.IDAttempts,
			IntN:     opts.IntN,
		},
	}, nil
}

// CreateOrder commits an order root, its items and the item link in three
// sequential store writes. The store has no multi-record transactions, so a
// failure after the first write leaves a partial order; the journal entry
// keeps the last completed step for the reconciler.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderRef, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	ctx = s.logg.WithCustomer(ctx, input.Customer)

	var poolRef *string
	if input.Kind == enums.OrderTypePooled && input.PoolRef != "" {
		pool, err := s.pools.ResolvePool(ctx, input.PoolRef)
		if err != nil {
			return nil, err
		}
		if pool == nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown pool").
				WithDetails(map[string]any{"poolRef": input.PoolRef})
		}
		ref := input.PoolRef
		poolRef = &ref
	}

	total := decimal.Zero
	for _, line := range input.Lines {
		total = total.Add(line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))))
	}

	entry, err := s.reserve(ctx, input, poolRef)
	if err != nil {
		return nil, err
	}
	orderID, _ := strconv.Atoi(entry.OrderID)
	ctx = s.logg.WithFields(ctx, map[string]any{
		"order_id":   entry.OrderID,
		"journal_id": entry.ID.String(),
	})

	fields := airtable.Fields{
		FieldOrderID:       orderID,
		FieldCustomer:      input.Customer,
		FieldOrderType:     input.Kind.String(),
		FieldStatus:        enums.OrderStatusPending.String(),
		FieldTotal:         json.Number(total.String()),
		FieldPaymentStatus: enums.PaymentStatusPending.String(),
		FieldPoolGroup:     nil,
		FieldDeliveryDate:  nil,
	}
	if poolRef != nil {
		fields[FieldPoolGroup] = *poolRef
	}
	if input.DeliveryDate != "" {
		fields[FieldDeliveryDate] = input.DeliveryDate
	}

	rec, err := s.tables.Orders.Create(ctx, fields)
	if err != nil {
		return nil, s.fail(ctx, entry, "order", err)
	}
	s.record(ctx, s.journal.MarkOrderCreated(ctx, entry.ID, rec.ID))

	itemRefs, err := s.CreateOrderItems(ctx, rec.ID, input.Lines)
	if err != nil {
		return nil, s.fail(ctx, entry, "items", err)
	}
	s.record(ctx, s.journal.MarkItemsCreated(ctx, entry.ID, itemRefs))

	if err := s.AttachItems(ctx, rec.ID, itemRefs); err != nil {
		return nil, s.fail(ctx, entry, "attach", err)
	}
	s.record(ctx, s.journal.MarkCommitted(ctx, entry.ID))
	s.metrics.IncCreated(input.Kind.String())

	s.logg.Info(s.logg.WithField(ctx, "record_id", rec.ID), "orders.created")
	return &OrderRef{
		RecordID:  rec.ID,
		OrderID:   orderID,
		Kind:      input.Kind,
		Total:     total,
		PoolRef:   poolRef,
		ItemRefs:  itemRefs,
		JournalID: entry.ID,
	}, nil
}

// AttachItems writes the item links onto the order root.
func (s *service) AttachItems(ctx context.Context, orderRef string, itemRefs []string) error {
	if strings.TrimSpace(orderRef) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "order reference is required")
	}
	refs := append([]string{}, itemRefs...)
	_, err := s.tables.Orders.Update(ctx, orderRef, airtable.Fields{FieldOrderItems: refs})
	return asDependency(err, "attach order items")
}

func (s *service) validate(input CreateOrderInput) error {
	problems := map[string]string{}
	switch {
	case strings.TrimSpace(input.Customer) == "":
		problems["customer"] = "is required"
	case s.opts.MaxCustomerLen > 0 && len(input.Customer) > s.opts.MaxCustomerLen:
		problems["customer"] = fmt.Sprintf("must be at most %d bytes", s.opts.MaxCustomerLen)
	}
	if !input.Kind.IsValid() {
		problems["kind"] = "must be Single or Pooled"
	}
	switch {
	case len(input.Lines) == 0:
		problems["lines"] = "cart is empty"
	case s.opts.MaxCartLines > 0 && len(input.Lines) > s.opts.MaxCartLines:
		problems["lines"] = fmt.Sprintf("at most %d lines allowed", s.opts.MaxCartLines)
	}
	for i, line := range input.Lines {
		key := fmt.Sprintf("lines[%d]", i)
		switch {
		case strings.TrimSpace(line.ProductRef) == "":
			problems[key] = "productRef is required"
		case line.Quantity <= 0:
			problems[key] = "quantity must be positive"
		case s.opts.MaxLineQty > 0 && line.Quantity > s.opts.MaxLineQty:
			problems[key] = fmt.Sprintf("quantity must be at most %d", s.opts.MaxLineQty)
		case line.UnitPrice.IsNegative():
			problems[key] = "unitPrice must not be negative"
		}
	}
	if input.DeliveryDate != "" {
		if _, err := time.Parse(DeliveryDateLayout, input.DeliveryDate); err != nil {
			problems["deliveryDate"] = "must be YYYY-MM-DD"
		}
	}
	if len(problems) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid order").WithDetails(problems)
}

// reserve mints an order id free in both the store and the journal and
// writes the pending journal entry.
func (s *service) reserve(ctx context.Context, input CreateOrderInput, poolRef *string) (*journal.Entry, error) {
	cart, err := json.Marshal(input.Lines)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	for i := 0; i < s.opts.IDAttempts; i++ {
		n, err := s.ids.Mint(ctx, s.orderIDTaken)
		if err != nil {
			return nil, err
		}
		entry := &journal.Entry{
			OrderID:   strconv.Itoa(n),
			Customer:  input.Customer,
			OrderType: input.Kind,
			PoolRef:   poolRef,
			Cart:      string(cart),
		}
		err = s.journal.Begin(ctx, entry)
		if errors.Is(err, journal.ErrDuplicateOrderID) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return entry, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeConflict, "could not allocate a free order id")
}

func (s *service) orderIDTaken(ctx context.Context, candidate int) (bool, error) {
	expr, err := formula.Eq(FieldOrderID, candidate).Build()
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build order id formula")
	}
	records, err := s.tables.Orders.FirstPage(ctx, airtable.ListParams{
		Formula:    expr,
		MaxRecords: 1,
		Fields:     []string{FieldOrderID},
	})
	if err != nil {
		return false, err
	}
	for _, rec := range records {
		if n, ok, _ := rec.Fields.Int(FieldOrderID); ok && n == candidate {
			return true, nil
		}
	}
	return false, nil
}

func (s *service) fail(ctx context.Context, entry *journal.Entry, step string, err error) error {
	s.metrics.IncFailed(step)
	s.record(ctx, s.journal.RecordFailure(ctx, entry.ID, err))
	s.logg.Error(s.logg.WithField(ctx, "step", step), "orders.create_failed", err)
	return asDependency(err, "order "+step+" write failed")
}

func (s *service) record(ctx context.Context, err error) {
	if err == nil {
		return
	}
	s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "orders.journal_write_failed")
}

func asDependency(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
