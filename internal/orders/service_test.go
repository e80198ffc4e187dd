package orders

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/journal"
	"github.com/AlazarG19/Test-Bulk-Buddy/internal/pools"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable/airtabletest"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	orders   *airtabletest.Table
	items    *airtabletest.Table
	products *airtabletest.Table
	pools    *stubPools
	journal  *recordingJournal
	svc      Service
}

func newFixture(t *testing.T, draws ...int) *fixture {
	t.Helper()
	f := &fixture{
		orders:   airtabletest.NewTable("Orders"),
		items:    airtabletest.NewTable("OrderItem"),
		products: airtabletest.NewTable("Products"),
		pools:    &stubPools{pools: map[string]*pools.Pool{}, failures: map[string]error{}},
		journal:  newRecordingJournal(),
	}
	f.products.Seed("recBURGER", airtable.Fields{FieldProductName: "Burger", FieldProductPrice: json.Number("5.00")})
	f.products.Seed("recFRIES", airtable.Fields{FieldProductName: "Fries", FieldProductPrice: json.Number("2.50")})

	opts := Options{OrderIDMax: 100000, IDAttempts: 3, FanOutLimit: 3, MaxCartLines: 10, MaxLineQty: 99, MaxCustomerLen: 50}
	if len(draws) > 0 {
		var mu sync.Mutex
		i := 0
		opts.IntN = func(int) int {
			mu.Lock()
			defer mu.Unlock()
			v := draws[i%len(draws)]
			i++
			return v
		}
	}
	svc, err := NewService(Tables{Orders: f.orders, Items: f.items, Products: f.products}, f.pools, f.journal, nil, logger.Nop(), opts)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func burgerAndFries() []CartLine {
	return []CartLine{
		{ProductRef: "recBURGER", Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
		{ProductRef: "recFRIES", Quantity: 1, UnitPrice: decimal.RequireFromString("2.50")},
	}
}

func TestCreateOrderSingle(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ref, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Customer: "abebe",
		Kind:     enums.OrderTypeSingle,
		PoolRef:  "12",
		Lines:    burgerAndFries(),
	})
	require.NoError(t, err)
	assert.True(t, ref.Total.Equal(decimal.RequireFromString("12.50")))
	assert.Nil(t, ref.PoolRef)
	require.Len(t, ref.ItemRefs, 2)

	order, ok := f.orders.Record(ref.RecordID)
	require.True(t, ok)
	assert.Equal(t, "abebe", order.Fields.String(FieldCustomer))
	assert.Equal(t, "Single", order.Fields.String(FieldOrderType))
	assert.Equal(t, "Pending", order.Fields.String(FieldStatus))
	assert.Equal(t, "Pending", order.Fields.String(FieldPaymentStatus))
	assert.Equal(t, json.Number("12.5"), order.Fields[FieldTotal])
	poolGroup, present := order.Fields[FieldPoolGroup]
	assert.True(t, present, "pool group must be written explicitly")
	assert.Nil(t, poolGroup)
	assert.Nil(t, order.Fields[FieldDeliveryDate])
	assert.Equal(t, ref.ItemRefs, order.Fields.StringSlice(FieldOrderItems))

	items := f.items.Records()
	require.Len(t, items, 2)
	byProduct := map[string]int{}
	for _, item := range items {
		assert.Equal(t, []string{ref.RecordID}, item.Fields.StringSlice(FieldItemOrder))
		products := item.Fields.StringSlice(FieldItemProducts)
		require.Len(t, products, 1)
		qty, _, err := item.Fields.Int(FieldItemQuantity)
		require.NoError(t, err)
		byProduct[products[0]] = qty
	}
	assert.Equal(t, map[string]int{"recBURGER": 2, "recFRIES": 1}, byProduct)

	assert.Equal(t, []enums.JournalState{
		enums.JournalStatePending,
		enums.JournalStateOrderCreated,
		enums.JournalStateItemsCreated,
		enums.JournalStateCommitted,
	}, f.journal.states(ref.JournalID))
}

func TestCreateOrderPooled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.pools.pools["12"] = &pools.Pool{PoolID: "12", Status: enums.PoolStatusOpen}

	ref, err := f.svc.CreateOrder(ctx, CreateOrderInput{
		Customer:     "abebe",
		Kind:         enums.OrderTypePooled,
		PoolRef:      "12",
		Lines:        burgerAndFries()[:1],
		DeliveryDate: "2025-07-01",
	})
	require.NoError(t, err)
	require.NotNil(t, ref.PoolRef)
	assert.Equal(t, "12", *ref.PoolRef)

	order, _ := f.orders.Record(ref.RecordID)
	assert.Equal(t, "12", order.Fields.String(FieldPoolGroup))
	assert.Equal(t, "2025-07-01", order.Fields.String(FieldDeliveryDate))
	assert.Equal(t, "Pooled", order.Fields.String(FieldOrderType))
}

func TestCreateOrderPooledUnknownPool(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		Customer: "abebe",
		Kind:     enums.OrderTypePooled,
		PoolRef:  "999",
		Lines:    burgerAndFries(),
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.Empty(t, f.orders.Records())
	assert.Equal(t, 0, f.journal.count())
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]CreateOrderInput{
		"blank customer": {Customer: " ", Kind: enums.OrderTypeSingle, Lines: burgerAndFries()},
		"empty cart":     {Customer: "abebe", Kind: enums.OrderTypeSingle},
		"zero quantity":  {Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: []CartLine{{ProductRef: "recBURGER", Quantity: 0}}},
		"bad kind":       {Customer: "abebe", Kind: "Group", Lines: burgerAndFries()},
		"bad date":       {Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: burgerAndFries(), DeliveryDate: "07/01/2025"},
		"negative price": {Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: []CartLine{{ProductRef: "recBURGER", Quantity: 1, UnitPrice: decimal.NewFromInt(-1)}}},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(context.Background(), input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.Empty(t, f.orders.Records())
}

func TestCreateOrderItemFailureLeavesPartialWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.items.Hook = func(method string, call int, _ airtable.Fields) error {
		if method == http.MethodPost && call == 2 {
			return errors.New("INVALID_VALUE_FOR_COLUMN")
		}
		return nil
	}

	lines := append(burgerAndFries(), CartLine{ProductRef: "recFRIES", Quantity: 3, UnitPrice: decimal.RequireFromString("2.50")})
	_, err := f.svc.CreateOrder(ctx, CreateOrderInput{Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: lines})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	assert.Len(t, f.orders.Records(), 1, "order root stays behind")
	assert.Len(t, f.items.Records(), 2, "every other create still settles")
	assert.Equal(t, 0, f.orders.Calls(http.MethodPatch), "items are never attached")

	id := f.journal.only(t)
	states := f.journal.states(id)
	assert.Equal(t, enums.JournalStateOrderCreated, states[len(states)-1])
	assert.Equal(t, 1, f.journal.failures(id))
}

func TestCreateOrderAttachFailure(t *testing.T) {
	f := newFixture(t)
	f.orders.Hook = func(method string, _ int, _ airtable.Fields) error {
		if method == http.MethodPatch {
			return errors.New("timeout")
		}
		return nil
	}

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: burgerAndFries()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))

	id := f.journal.only(t)
	states := f.journal.states(id)
	assert.Equal(t, enums.JournalStateItemsCreated, states[len(states)-1])
	assert.Len(t, f.journal.items(id), 2)
}

func TestCreateOrderRedrawsCollidingOrderID(t *testing.T) {
	f := newFixture(t, 4, 9)
	f.orders.Seed("recOLD", airtable.Fields{FieldOrderID: 5, FieldCustomer: "someone"})

	ref, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: burgerAndFries()})
	require.NoError(t, err)
	assert.Equal(t, 10, ref.OrderID)
}

func TestCreateOrderRedrawsJournaledOrderID(t *testing.T) {
	f := newFixture(t, 4, 9)
	f.journal.taken["5"] = true

	ref, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: burgerAndFries()})
	require.NoError(t, err)
	assert.Equal(t, 10, ref.OrderID)
}

func TestResolveOrderItemsRoundTrip(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	ref, err := f.svc.CreateOrder(ctx, CreateOrderInput{Customer: "abebe", Kind: enums.OrderTypeSingle, Lines: burgerAndFries()})
	require.NoError(t, err)

	views, err := f.svc.ResolveOrderItems(ctx, ref.RecordID)
	require.NoError(t, err)
	got := []string{}
	for _, v := range views {
		got = append(got, v.ProductName+"x"+decimal.NewFromInt(int64(v.Quantity)).String())
	}
	sort.Strings(got)
	assert.Equal(t, []string{"Burgerx2", "Friesx1"}, got)
	assert.Equal(t, ref.ItemRefs[0], views[0].ItemRef, "views follow stored ref order")
	assert.True(t, views[0].UnitPrice.Equal(decimal.RequireFromString("5")))
}

func TestResolveOrderItemsFailsOnMissingProduct(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.items.Seed("recI1", airtable.Fields{FieldItemProducts: []string{"recGONE"}, FieldItemQuantity: 1})
	f.orders.Seed("recO1", airtable.Fields{FieldOrderItems: []string{"recI1"}})

	_, err := f.svc.ResolveOrderItems(ctx, "recO1")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.ResolveOrderItems(ctx, "recMISSING")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateOrderItemsKeepsLineOrder(t *testing.T) {
	f := newFixture(t)
	refs, err := f.svc.CreateOrderItems(context.Background(), "recO1", burgerAndFries())
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for i, ref := range refs {
		rec, ok := f.items.Record(ref)
		require.True(t, ok)
		assert.Equal(t, burgerAndFries()[i].ProductRef, rec.Fields.FirstString(FieldItemProducts))
	}

	_, err = f.svc.CreateOrderItems(context.Background(), "", burgerAndFries())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

type stubPools struct {
	mu       sync.Mutex
	pools    map[string]*pools.Pool
	failures map[string]error
}

func (s *stubPools) ResolvePool(_ context.Context, poolID string) (*pools.Pool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failures[poolID]; err != nil {
		return nil, err
	}
	return s.pools[poolID], nil
}

type journalRecord struct {
	states   []enums.JournalState
	items    []string
	failures int
}

type recordingJournal struct {
	journal.Nop
	mu      sync.Mutex
	entries map[uuid.UUID]*journalRecord
	taken   map[string]bool
}

func newRecordingJournal() *recordingJournal {
	return &recordingJournal{entries: map[uuid.UUID]*journalRecord{}, taken: map[string]bool{}}
}

func (j *recordingJournal) Begin(_ context.Context, entry *journal.Entry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.taken[entry.OrderID] {
		return journal.ErrDuplicateOrderID
	}
	j.taken[entry.OrderID] = true
	entry.ID = uuid.New()
	entry.State = enums.JournalStatePending
	j.entries[entry.ID] = &journalRecord{states: []enums.JournalState{enums.JournalStatePending}}
	return nil
}

func (j *recordingJournal) push(id uuid.UUID, state enums.JournalState) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	rec, ok := j.entries[id]
	if !ok {
		return errors.New("unknown entry")
	}
	rec.states = append(rec.states, state)
	return nil
}

func (j *recordingJournal) MarkOrderCreated(_ context.Context, id uuid.UUID, _ string) error {
	return j.push(id, enums.JournalStateOrderCreated)
}

func (j *recordingJournal) MarkItemsCreated(_ context.Context, id uuid.UUID, items []string) error {
	j.mu.Lock()
	if rec, ok := j.entries[id]; ok {
		rec.items = append([]string(nil), items...)
	}
	j.mu.Unlock()
	return j.push(id, enums.JournalStateItemsCreated)
}

func (j *recordingJournal) MarkCommitted(_ context.Context, id uuid.UUID) error {
	return j.push(id, enums.JournalStateCommitted)
}

func (j *recordingJournal) RecordFailure(_ context.Context, id uuid.UUID, _ error) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if rec, ok := j.entries[id]; ok {
		rec.failures++
	}
	return nil
}

func (j *recordingJournal) states(id uuid.UUID) []enums.JournalState {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]enums.JournalState(nil), j.entries[id].states...)
}

func (j *recordingJournal) items(id uuid.UUID) []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries[id].items
}

func (j *recordingJournal) failures(id uuid.UUID) int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.entries[id].failures
}

func (j *recordingJournal) count() int {
	j.mu.Lock()
	defer j.mu.Unlock()
	return len(j.entries)
}

func (j *recordingJournal) only(t *testing.T) uuid.UUID {
	t.Helper()
	j.mu.Lock()
	defer j.mu.Unlock()
	require.Len(t, j.entries, 1)
	for id := range j.entries {
		return id
	}
	return uuid.Nil
}
