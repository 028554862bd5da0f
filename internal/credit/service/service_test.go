package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	businessdomain "github.com/sokobiz/sokobiz/internal/business/domain"
	businessrepo "github.com/sokobiz/sokobiz/internal/business/repository"
	"github.com/sokobiz/sokobiz/internal/clock"
	"github.com/sokobiz/sokobiz/internal/credit/domain"
	creditrepo "github.com/sokobiz/sokobiz/internal/credit/repository"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	packrepo "github.com/sokobiz/sokobiz/internal/pack/repository"
	"github.com/sokobiz/sokobiz/pkg/db/pagination"
	"github.com/sokobiz/sokobiz/pkg/money"
)

type creditFixture struct {
	db     *gorm.DB
	node   *snowflake.Node
	clk    *clock.FakeClock
	svc    domain.Service
	ledger domain.Repository
}

func newCreditFixture(t *testing.T) *creditFixture {
	t.Helper()
	return newCreditFixtureWith(t, businessrepo.Provide())
}

func newCreditFixtureWith(t *testing.T, businesses businessdomain.Repository) *creditFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&businessdomain.Business{},
		&packdomain.CreditPack{},
		&domain.LedgerEntry{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	ledger := creditrepo.Provide()

	svc := New(Params{
		DB:         db,
		Node:       node,
		Businesses: businesses,
		Ledger:     ledger,
		Packs:      packrepo.Provide(),
		Clock:      clk,
		Logger:     zap.NewNop(),
	})

	return &creditFixture{db: db, node: node, clk: clk, svc: svc, ledger: ledger}
}

func (f *creditFixture) createBusiness(t *testing.T, total, used, overdraft int64) snowflake.ID {
	t.Helper()
	business := businessdomain.Business{
		ID:             f.node.Generate(),
		Name:           "Mama Ntilie Shop",
		Currency:       "USD",
		CreditsTotal:   total,
		CreditsUsed:    used,
		OverdraftLimit: overdraft,
		CreatedAt:      f.clk.Now(),
		UpdatedAt:      f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&business).Error)
	return business.ID
}

func (f *creditFixture) createPack(t *testing.T, code string, credits, bonusPercent int64, price string) {
	t.Helper()
	pack := packdomain.CreditPack{
		Code:          code,
		Name:          code,
		Credits:       credits,
		BonusPercent:  bonusPercent,
		PriceCurrency: "USD",
		PriceValue:    decimal.RequireFromString(price),
		IsActive:      true,
		CreatedAt:     f.clk.Now(),
		UpdatedAt:     f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&pack).Error)
}

func TestPurchaseCredits_GrantsPackCredits(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 0, 0, 0)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")

	amount, err := money.Parse("USD", "3.00")
	require.NoError(t, err)

	entry, err := f.svc.PurchaseCredits(ctx, businessID, "STARTER_20", amount, domain.SourceMobileMoney, "purchase:dep-1")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryPurchase, entry.EntryType)
	assert.Equal(t, int64(20), entry.CreditsDelta)
	assert.Equal(t, int64(20), entry.BalanceAfter)
	assert.Equal(t, "STARTER_20", entry.PackCode)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditsTotal)
	assert.Equal(t, int64(0), balance.CreditsUsed)
	assert.Equal(t, int64(20), balance.Available)

	// Same idempotency key grants nothing new.
	repeat, err := f.svc.PurchaseCredits(ctx, businessID, "STARTER_20", amount, domain.SourceMobileMoney, "purchase:dep-1")
	require.NoError(t, err)
	assert.Equal(t, entry.ID, repeat.ID)

	balance, err = f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditsTotal)
}

func TestPurchaseCredits_BonusRoundsDown(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 0, 0, 0)
	f.createPack(t, "GROWTH_60", 60, 10, "8.00")

	amount, err := money.Parse("USD", "8.00")
	require.NoError(t, err)

	entry, err := f.svc.PurchaseCredits(ctx, businessID, "GROWTH_60", amount, domain.SourceMobileMoney, "purchase:dep-2")
	require.NoError(t, err)
	assert.Equal(t, int64(66), entry.CreditsDelta)
}

func TestPurchaseCredits_UnknownPack(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 0, 0, 0)

	amount, err := money.Parse("USD", "3.00")
	require.NoError(t, err)

	_, err = f.svc.PurchaseCredits(ctx, businessID, "NO_SUCH_PACK", amount, domain.SourceMobileMoney, "purchase:dep-3")
	assert.ErrorIs(t, err, packdomain.ErrPackNotFound)
}

func TestPurchaseCredits_UnknownBusiness(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	f.createPack(t, "STARTER_20", 20, 0, "3.00")

	amount, err := money.Parse("USD", "3.00")
	require.NoError(t, err)

	_, err = f.svc.PurchaseCredits(ctx, f.node.Generate(), "STARTER_20", amount, domain.SourceMobileMoney, "purchase:dep-4")
	assert.ErrorIs(t, err, businessdomain.ErrNotFound)
}

func TestConsumeOneForOrder_OverdraftBand(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	// Zero available, overdraft allows two more units.
	businessID := f.createBusiness(t, 10, 10, 2)

	first, err := f.svc.ConsumeOneForOrder(ctx, businessID, "order-1", domain.SourceWhatsapp)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), first.CreditsDelta)
	assert.Equal(t, int64(-1), first.BalanceAfter)

	_, err = f.svc.ConsumeOneForOrder(ctx, businessID, "order-2", domain.SourceWhatsapp)
	require.NoError(t, err)

	_, err = f.svc.ConsumeOneForOrder(ctx, businessID, "order-3", domain.SourceWhatsapp)
	assert.ErrorIs(t, err, domain.ErrInsufficientCredits)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(12), balance.CreditsUsed)
	assert.Equal(t, int64(0), balance.EffectiveAvailable)
}

func TestConsumeOneForOrder_Idempotent(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 5, 0, 0)

	first, err := f.svc.ConsumeOneForOrder(ctx, businessID, "order-9", domain.SourceWeb)
	require.NoError(t, err)

	repeat, err := f.svc.ConsumeOneForOrder(ctx, businessID, "order-9", domain.SourceWeb)
	require.NoError(t, err)
	assert.Equal(t, first.ID, repeat.ID)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance.CreditsUsed)
}

func TestReverseConsume_RequiresPriorConsume(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 5, 0, 0)

	_, err := f.svc.ReverseConsume(ctx, businessID, "order-never-consumed")
	assert.ErrorIs(t, err, domain.ErrNoConsumeToReverse)
}

func TestReverseConsume_AtMostOnce(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 5, 0, 0)

	_, err := f.svc.ConsumeOneForOrder(ctx, businessID, "order-5", domain.SourceWeb)
	require.NoError(t, err)

	entry, err := f.svc.ReverseConsume(ctx, businessID, "order-5")
	require.NoError(t, err)
	assert.Equal(t, domain.EntryReversal, entry.EntryType)
	assert.Equal(t, int64(1), entry.CreditsDelta)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.CreditsUsed)

	_, err = f.svc.ReverseConsume(ctx, businessID, "order-5")
	assert.ErrorIs(t, err, domain.ErrAlreadyReversed)

	balance, err = f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.CreditsUsed)
}

func TestAdjustCredits(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 10, 0, 0)

	entry, err := f.svc.AdjustCredits(ctx, businessID, 5, domain.EntryBonus, "adjust:promo-1", "launch promo")
	require.NoError(t, err)
	assert.Equal(t, int64(15), entry.BalanceAfter)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(15), balance.CreditsTotal)

	_, err = f.svc.AdjustCredits(ctx, businessID, 1, domain.EntryConsume, "adjust:bad", "")
	assert.Error(t, err)

	_, err = f.svc.AdjustCredits(ctx, businessID, 0, domain.EntryBonus, "adjust:zero", "")
	assert.Error(t, err)
}

func TestLedgerConservation(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 0, 0, 0)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")

	amount, err := money.Parse("USD", "3.00")
	require.NoError(t, err)

	_, err = f.svc.PurchaseCredits(ctx, businessID, "STARTER_20", amount, domain.SourceMobileMoney, "purchase:dep-7")
	require.NoError(t, err)
	_, err = f.svc.ConsumeOneForOrder(ctx, businessID, "order-a", domain.SourceWeb)
	require.NoError(t, err)
	_, err = f.svc.ConsumeOneForOrder(ctx, businessID, "order-b", domain.SourceWeb)
	require.NoError(t, err)
	_, err = f.svc.ReverseConsume(ctx, businessID, "order-a")
	require.NoError(t, err)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(19), balance.Available)

	sum, err := f.ledger.SumDeltas(ctx, f.db, businessID)
	require.NoError(t, err)
	assert.Equal(t, balance.Available, sum)
}

func TestListLedger_Pagination(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 10, 0, 0)

	for i := 0; i < 5; i++ {
		f.clk.Advance(time.Minute)
		_, err := f.svc.ConsumeOneForOrder(ctx, businessID, fmt.Sprintf("order-%d", i), domain.SourceWeb)
		require.NoError(t, err)
	}

	page1, info1, err := f.svc.ListLedger(ctx, businessID, pagination.Pagination{PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.True(t, info1.HasMore)
	assert.Equal(t, "order-4", page1[0].OrderID)
	assert.Equal(t, "order-3", page1[1].OrderID)

	page2, info2, err := f.svc.ListLedger(ctx, businessID, pagination.Pagination{PageSize: 2, PageToken: info1.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page2, 2)
	assert.True(t, info2.HasMore)
	assert.Equal(t, "order-2", page2[0].OrderID)

	page3, info3, err := f.svc.ListLedger(ctx, businessID, pagination.Pagination{PageSize: 2, PageToken: info2.NextPageToken})
	require.NoError(t, err)
	require.Len(t, page3, 1)
	assert.False(t, info3.HasMore)
	assert.Equal(t, "order-0", page3[0].OrderID)
}

func TestListLedger_InvalidPageToken(t *testing.T) {
	f := newCreditFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t, 10, 0, 0)

	_, _, err := f.svc.ListLedger(ctx, businessID, pagination.Pagination{PageToken: "not-base64!!"})
	assert.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

// staleBusinessRepo reports a version ahead of the stored row for the first
// stale reads, so the conditional counter update misses as if another writer
// had committed between the read and the write.
type staleBusinessRepo struct {
	businessdomain.Repository
	stale int
	calls int
}

func (r *staleBusinessRepo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*businessdomain.Business, error) {
	business, err := r.Repository.FindByID(ctx, db, id)
	if err != nil || business == nil {
		return business, err
	}
	r.calls++
	if r.calls <= r.stale {
		business.Version++
	}
	return business, nil
}

func TestConsumeOneForOrder_RetriesAfterVersionConflict(t *testing.T) {
	businesses := &staleBusinessRepo{Repository: businessrepo.Provide(), stale: 2}
	f := newCreditFixtureWith(t, businesses)
	ctx := context.Background()

	businessID := f.createBusiness(t, 5, 0, 0)

	entry, err := f.svc.ConsumeOneForOrder(ctx, businessID, "order-1", domain.SourceWeb)
	require.NoError(t, err)
	assert.Equal(t, int64(-1), entry.CreditsDelta)
	assert.Equal(t, 3, businesses.calls)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), balance.CreditsUsed)
}

func TestConsumeOneForOrder_ConflictWhenRetriesExhausted(t *testing.T) {
	businesses := &staleBusinessRepo{Repository: businessrepo.Provide(), stale: maxAttempts + 1}
	f := newCreditFixtureWith(t, businesses)
	ctx := context.Background()

	businessID := f.createBusiness(t, 5, 0, 0)

	_, err := f.svc.ConsumeOneForOrder(ctx, businessID, "order-1", domain.SourceWeb)
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, maxAttempts, businesses.calls)

	// Every attempt rolled back, so nothing landed in the ledger.
	entry, err := f.ledger.FindByKey(ctx, f.db, businessID, domain.ConsumeKey("order-1"))
	require.NoError(t, err)
	assert.Nil(t, entry)

	balance, err := f.svc.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance.CreditsUsed)
}
