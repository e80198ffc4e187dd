package pools

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/AlazarG19/Test-Bulk-Buddy/internal/idgen"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/airtable/formula"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/enums"
	pkgerrors "github.com/AlazarG19/Test-Bulk-Buddy/pkg/errors"
	"github.com/AlazarG19/Test-Bulk-Buddy/pkg/logger"
)

const (
	FieldPoolID   = "Pool ID"
	FieldCreator  = "Created By"
	FieldStatus   = "Status"
	FieldDropOff  = "Drop-Off Location"
	maxCreatorLen = 120
)

// Pool is a shared drop-off group orders can join.
type Pool struct {
	RecordID        string           `json:"recordId"`
	PoolID          string           `json:"poolId"`
	CreatedBy       string           `json:"createdBy"`
	Status          enums.PoolStatus `json:"status"`
	DropOffLocation string           `json:"dropOffLocation"`
}

// Service is the pool registry.
type Service interface {
	ListOpenPools(ctx context.Context) []Pool
	CreatePool(ctx context.Context, creator string) (*Pool, error)
	ResolvePool(ctx context.Context, poolID string) (*Pool, error)
}

type recordStore interface {
	List(ctx context.Context, params airtable.ListParams) ([]airtable.Record, error)
	FirstPage(ctx context.Context, params airtable.ListParams) ([]airtable.Record, error)
	Create(ctx context.Context, fields airtable.Fields) (*airtable.Record, error)
}

// Options tunes pool id minting.
type Options struct {
	View       string
	PoolIDMax  int
	IDAttempts int
	IntN       func(n int) int
}

type service struct {
	pools recordStore
	view  string
	ids   idgen.Minter
	logg  *logger.Logger
}

// NewService builds the pool registry over the pools table.
func NewService(pools recordStore, opts Options, logg *logger.Logger) (Service, error) {
	if pools == nil {
		return nil, fmt.Errorf("pools table required")
	}
	if opts.PoolIDMax <= 0 {
		return nil, fmt.Errorf("pool id max must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		pools: pools,
		view:  opts.View,
		ids: idgen.Minter{
			Min:      0,
			Max:      opts.PoolIDMax - 1,
			Attempts: opts.IDAttempts,
			IntN:     opts.IntN,
		},
		logg: logg,
	}, nil
}

// ListOpenPools returns pools whose status is exactly "Open". Read failures
// are logged and yield an empty list.
func (s *service) ListOpenPools(ctx context.Context) []Pool {
	expr, err := formula.Eq(FieldStatus, enums.PoolStatusOpen.String()).Build()
	if err != nil {
		s.logg.Error(ctx, "pools.list_failed", err)
		return []Pool{}
	}
	records, err := s.pools.List(ctx, airtable.ListParams{Formula: expr, View: s.view})
	if err != nil {
		s.logg.Error(ctx, "pools.list_failed", err)
		return []Pool{}
	}

	open := make([]Pool, 0, len(records))
	for _, rec := range records {
		pool := FromRecord(rec)
		// the store's = is not guaranteed case-sensitive
		if !pool.Status.IsOpen() {
			continue
		}
		open = append(open, pool)
	}
	return open
}

// CreatePool registers a pool awaiting operator acceptance.
func (s *service) CreatePool(ctx context.Context, creator string) (*Pool, error) {
	if strings.TrimSpace(creator) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator is required")
	}
	if len(creator) > maxCreatorLen {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "creator is too long")
	}

	n, err := s.ids.Mint(ctx, s.poolIDTaken)
	if err != nil {
		return nil, err
	}
	poolID := strconv.Itoa(n)

	rec, err := s.pools.Create(ctx, airtable.Fields{
		FieldPoolID:  poolID,
		FieldCreator: creator,
		FieldStatus:  enums.PoolStatusWaitingForAcceptance.String(),
		FieldDropOff: enums.DefaultDropOffLocation,
	})
	if err != nil {
		return nil, err
	}

	pool := FromRecord(*rec)
	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"pool_id":   pool.PoolID,
		"record_id": pool.RecordID,
	}), "pools.created")
	return &pool, nil
}

// ResolvePool looks a pool up by exact id. Absence is (nil, nil); store
// failures are returned.
func (s *service) ResolvePool(ctx context.Context, poolID string) (*Pool, error) {
	if poolID == "" {
		return nil, nil
	}
	rec, err := s.findByPoolID(ctx, poolID)
	if err != nil || rec == nil {
		return nil, err
	}
	pool := FromRecord(*rec)
	return &pool, nil
}

func (s *service) findByPoolID(ctx context.Context, poolID string) (*airtable.Record, error) {
	expr, err := formula.Eq(FieldPoolID, poolID).Build()
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pool id")
	}
	records, err := s.pools.FirstPage(ctx, airtable.ListParams{Formula: expr, MaxRecords: 1})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if rec.Fields.String(FieldPoolID) == poolID {
			return &rec, nil
		}
	}
	return nil, nil
}

func (s *service) poolIDTaken(ctx context.Context, candidate int) (bool, error) {
	rec, err := s.findByPoolID(ctx, strconv.Itoa(candidate))
	if err != nil {
		return false, err
	}
	return rec != nil, nil
}

// FromRecord maps a Pooled Orders row.
func FromRecord(rec airtable.Record) Pool {
	return Pool{
		RecordID:        rec.ID,
		PoolID:          rec.Fields.String(FieldPoolID),
		CreatedBy:       rec.Fields.String(FieldCreator),
		Status:          enums.PoolStatus(rec.Fields.String(FieldStatus)),
		DropOffLocation: rec.Fields.String(FieldDropOff),
	}
}
