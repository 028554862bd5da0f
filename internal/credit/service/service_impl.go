package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	businessdomain "github.com/sokobiz/sokobiz/internal/business/domain"
	"github.com/sokobiz/sokobiz/internal/clock"
	"github.com/sokobiz/sokobiz/internal/credit/domain"
	"github.com/sokobiz/sokobiz/internal/observability/metrics"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	"github.com/sokobiz/sokobiz/pkg/db/pagination"
	"github.com/sokobiz/sokobiz/pkg/money"
)

// maxAttempts bounds the optimistic retry loop on version conflicts.
const maxAttempts = 5

var (
	errStale     = errors.New("stale business version")
	errDuplicate = errors.New("duplicate ledger entry")
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Node       *snowflake.Node
	Businesses businessdomain.Repository
	Ledger     domain.Repository
	Packs      packdomain.Repository
	Clock      clock.Clock
	Logger     *zap.Logger
	Metrics    *metrics.Metrics `optional:"true"`
}

type service struct {
	db         *gorm.DB
	node       *snowflake.Node
	businesses businessdomain.Repository
	ledger     domain.Repository
	packs      packdomain.Repository
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:         p.DB,
		node:       p.Node,
		businesses: p.Businesses,
		ledger:     p.Ledger,
		packs:      p.Packs,
		clock:      p.Clock,
		log:        p.Logger.Named("credit.service"),
		metrics:    p.Metrics,
	}
}

func (s *service) GetBalance(ctx context.Context, businessID snowflake.ID) (*domain.Balance, error) {
	business, err := s.businesses.FindByID(ctx, s.db, businessID)
	if err != nil {
		return nil, err
	}
	if business == nil {
		return nil, businessdomain.ErrNotFound
	}

	available := business.Available()
	return &domain.Balance{
		BusinessID:         business.ID,
		CreditsTotal:       business.CreditsTotal,
		CreditsUsed:        business.CreditsUsed,
		Available:          available,
		OverdraftLimit:     business.OverdraftLimit,
		EffectiveAvailable: available + business.OverdraftLimit,
	}, nil
}

func (s *service) PurchaseCredits(ctx context.Context, businessID snowflake.ID, packCode string, amount money.Money, source domain.Source, idempotencyKey string) (*domain.LedgerEntry, error) {
	return s.PurchaseCreditsTx(ctx, s.db, businessID, packCode, amount, source, idempotencyKey)
}

func (s *service) PurchaseCreditsTx(ctx context.Context, tx *gorm.DB, businessID snowflake.ID, packCode string, amount money.Money, source domain.Source, idempotencyKey string) (*domain.LedgerEntry, error) {
	pack, err := s.packs.FindActiveByCode(ctx, tx, packCode)
	if err != nil {
		return nil, err
	}
	if pack == nil {
		return nil, packdomain.ErrPackNotFound
	}

	granted := pack.EffectiveCredits()
	if granted <= 0 {
		return nil, fmt.Errorf("pack %s grants no credits", pack.Code)
	}
	if source == "" {
		source = domain.SourceMobileMoney
	}

	entry, created, err := s.mutate(ctx, tx, businessID, idempotencyKey, nil,
		func(b *businessdomain.Business) (*domain.LedgerEntry, int64, int64, error) {
			e := &domain.LedgerEntry{
				EntryType:    domain.EntryPurchase,
				CreditsDelta: granted,
				Source:       source,
				PackCode:     pack.Code,
			}
			e.SetAmount(amount)
			return e, b.CreditsTotal + granted, b.CreditsUsed, nil
		})
	if err != nil {
		return nil, err
	}
	if created {
		s.recordEntry(entry)
		s.log.Info("credits granted",
			zap.String("business_id", businessID.String()),
			zap.String("pack_code", pack.Code),
			zap.Int64("credits", granted),
			zap.String("idempotency_key", idempotencyKey),
		)
	}
	return entry, nil
}

func (s *service) ConsumeOneForOrder(ctx context.Context, businessID snowflake.ID, orderID string, source domain.Source) (*domain.LedgerEntry, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}
	if source == "" {
		source = domain.SourceSystem
	}

	entry, created, err := s.mutate(ctx, s.db, businessID, domain.ConsumeKey(orderID), nil,
		func(b *businessdomain.Business) (*domain.LedgerEntry, int64, int64, error) {
			if !b.CanConsume() {
				return nil, 0, 0, domain.ErrInsufficientCredits
			}
			e := &domain.LedgerEntry{
				EntryType:    domain.EntryConsume,
				CreditsDelta: -1,
				Source:       source,
				OrderID:      orderID,
			}
			return e, b.CreditsTotal, b.CreditsUsed + 1, nil
		})
	if err != nil {
		return nil, err
	}
	if created {
		s.recordEntry(entry)
	}
	return entry, nil
}

func (s *service) ReverseConsume(ctx context.Context, businessID snowflake.ID, orderID string) (*domain.LedgerEntry, error) {
	if orderID == "" {
		return nil, fmt.Errorf("order id is required")
	}

	consumed, err := s.ledger.FindByKey(ctx, s.db, businessID, domain.ConsumeKey(orderID))
	if err != nil {
		return nil, err
	}
	if consumed == nil {
		return nil, domain.ErrNoConsumeToReverse
	}

	entry, created, err := s.mutate(ctx, s.db, businessID, domain.ReversalKey(orderID), domain.ErrAlreadyReversed,
		func(b *businessdomain.Business) (*domain.LedgerEntry, int64, int64, error) {
			if b.CreditsUsed <= 0 {
				return nil, 0, 0, domain.ErrNoUsageToReverse
			}
			e := &domain.LedgerEntry{
				EntryType:    domain.EntryReversal,
				CreditsDelta: 1,
				Source:       domain.SourceSystem,
				OrderID:      orderID,
			}
			return e, b.CreditsTotal, b.CreditsUsed - 1, nil
		})
	if err != nil {
		return nil, err
	}
	if created {
		s.recordEntry(entry)
	}
	return entry, nil
}

func (s *service) AdjustCredits(ctx context.Context, businessID snowflake.ID, delta int64, entryType domain.EntryType, idempotencyKey, note string) (*domain.LedgerEntry, error) {
	switch entryType {
	case domain.EntryRefund, domain.EntryBonus, domain.EntryAdjustment:
	default:
		return nil, fmt.Errorf("entry type %s is not an adjustment", entryType)
	}
	if delta == 0 {
		return nil, fmt.Errorf("adjustment delta cannot be zero")
	}
	if idempotencyKey == "" {
		idempotencyKey = "adjust:" + ulid.Make().String()
	}

	entry, created, err := s.mutate(ctx, s.db, businessID, idempotencyKey, nil,
		func(b *businessdomain.Business) (*domain.LedgerEntry, int64, int64, error) {
			e := &domain.LedgerEntry{
				EntryType:    entryType,
				CreditsDelta: delta,
				Source:       domain.SourceAdmin,
			}
			if note != "" {
				e.Metadata = datatypes.JSONMap{"note": note}
			}
			return e, b.CreditsTotal + delta, b.CreditsUsed, nil
		})
	if err != nil {
		return nil, err
	}
	if created {
		s.recordEntry(entry)
	}
	return entry, nil
}

func (s *service) ListLedger(ctx context.Context, businessID snowflake.ID, page pagination.Pagination) ([]*domain.LedgerEntry, *pagination.PageInfo, error) {
	business, err := s.businesses.FindByID(ctx, s.db, businessID)
	if err != nil {
		return nil, nil, err
	}
	if business == nil {
		return nil, nil, businessdomain.ErrNotFound
	}

	var cursor *pagination.Cursor
	if page.PageToken != "" {
		cursor, err = pagination.DecodeCursor(page.PageToken)
		if err != nil {
			return nil, nil, err
		}
	}

	limit := page.Limit()
	rows, err := s.ledger.List(ctx, s.db, businessID, cursor, limit)
	if err != nil {
		return nil, nil, err
	}

	entries, info := pagination.BuildPageInfo(rows, limit, func(e *domain.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{ID: e.ID.String(), CreatedAt: e.CreatedAt}
	})
	return entries, info, nil
}

// mutate runs one balance movement: load the business, derive the new
// counters, append the ledger entry and bump the version, all inside one
// transaction (a savepoint when db is already transactional). A version
// conflict retries with a fresh read; a duplicate idempotency key short
// circuits to the existing entry, or to dupErr when set.
func (s *service) mutate(
	ctx context.Context,
	db *gorm.DB,
	businessID snowflake.ID,
	idempotencyKey string,
	dupErr error,
	build func(b *businessdomain.Business) (*domain.LedgerEntry, int64, int64, error),
) (*domain.LedgerEntry, bool, error) {
	if idempotencyKey == "" {
		return nil, false, fmt.Errorf("idempotency key is required")
	}

	existing, err := s.ledger.FindByKey(ctx, db, businessID, idempotencyKey)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if dupErr != nil {
			return nil, false, dupErr
		}
		return existing, false, nil
	}

	var entry *domain.LedgerEntry
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			business, err := s.businesses.FindByID(ctx, tx, businessID)
			if err != nil {
				return err
			}
			if business == nil {
				return businessdomain.ErrNotFound
			}

			e, newTotal, newUsed, err := build(business)
			if err != nil {
				return err
			}
			e.ID = s.node.Generate()
			e.BusinessID = businessID
			e.IdempotencyKey = idempotencyKey
			e.BalanceAfter = newTotal - newUsed
			e.CreatedAt = s.clock.Now()

			inserted, err := s.ledger.InsertEntry(ctx, tx, e)
			if err != nil {
				return err
			}
			if !inserted {
				return errDuplicate
			}

			updated, err := s.businesses.UpdateCredits(ctx, tx, businessID, newTotal, newUsed, business.Version, e.CreatedAt)
			if err != nil {
				return err
			}
			if !updated {
				return errStale
			}

			entry = e
			return nil
		})
		switch {
		case err == nil:
			return entry, true, nil
		case errors.Is(err, errStale):
			continue
		case errors.Is(err, errDuplicate):
			if dupErr != nil {
				return nil, false, dupErr
			}
			winner, ferr := s.ledger.FindByKey(ctx, db, businessID, idempotencyKey)
			if ferr != nil {
				return nil, false, ferr
			}
			return winner, false, nil
		default:
			return nil, false, err
		}
	}

	s.log.Warn("credit mutation retries exhausted",
		zap.String("business_id", businessID.String()),
		zap.String("idempotency_key", idempotencyKey),
	)
	return nil, false, domain.ErrConflict
}

func (s *service) recordEntry(entry *domain.LedgerEntry) {
	if s.metrics == nil || entry == nil {
		return
	}
	s.metrics.RecordLedgerEntry(string(entry.EntryType))
}
