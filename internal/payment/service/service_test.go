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
	"github.com/sokobiz/sokobiz/internal/config"
	creditdomain "github.com/sokobiz/sokobiz/internal/credit/domain"
	creditrepo "github.com/sokobiz/sokobiz/internal/credit/repository"
	creditservice "github.com/sokobiz/sokobiz/internal/credit/service"
	"github.com/sokobiz/sokobiz/internal/pack/amounts"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	packrepo "github.com/sokobiz/sokobiz/internal/pack/repository"
	packservice "github.com/sokobiz/sokobiz/internal/pack/service"
	"github.com/sokobiz/sokobiz/internal/payment/domain"
	paymentrepo "github.com/sokobiz/sokobiz/internal/payment/repository"
	"github.com/sokobiz/sokobiz/internal/payment/signature"
	"github.com/sokobiz/sokobiz/pkg/money"
)

type paymentFixture struct {
	db       *gorm.DB
	node     *snowflake.Node
	clk      *clock.FakeClock
	svc      domain.Service
	payments domain.Repository
	ledger   creditdomain.Repository
	credits  creditdomain.Service
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&businessdomain.Business{},
		&packdomain.CreditPack{},
		&creditdomain.LedgerEntry{},
		&domain.Payment{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	clk := clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	logger := zap.NewNop()

	businesses := businessrepo.Provide()
	ledger := creditrepo.Provide()
	packs := packrepo.Provide()
	payments := paymentrepo.Provide()

	credits := creditservice.New(creditservice.Params{
		DB:         db,
		Node:       node,
		Businesses: businesses,
		Ledger:     ledger,
		Packs:      packs,
		Clock:      clk,
		Logger:     logger,
	})

	table, err := amounts.NewFromEntries(amounts.DefaultAmountEntries())
	require.NoError(t, err)

	packSvc := packservice.New(packservice.Params{
		DB:      db,
		Repo:    packs,
		Amounts: table,
		Logger:  logger,
	})

	svc := New(Params{
		DB:         db,
		Cfg:        config.Config{WebhookProvider: "pawapay", WebhookAllowUnsigned: true},
		Verifier:   signature.NewVerifier(signature.Config{AllowUnsigned: true}),
		Payments:   payments,
		Businesses: businesses,
		Credits:    credits,
		Packs:      packSvc,
		Clock:      clk,
		Logger:     logger,
	})

	return &paymentFixture{
		db:       db,
		node:     node,
		clk:      clk,
		svc:      svc,
		payments: payments,
		ledger:   ledger,
		credits:  credits,
	}
}

func (f *paymentFixture) createBusiness(t *testing.T) snowflake.ID {
	t.Helper()
	business := businessdomain.Business{
		ID:        f.node.Generate(),
		Name:      "Duka la Mjini",
		Currency:  "USD",
		CreatedAt: f.clk.Now(),
		UpdatedAt: f.clk.Now(),
	}
	require.NoError(t, f.db.Create(&business).Error)
	return business.ID
}

func (f *paymentFixture) createPack(t *testing.T, code string, credits, bonusPercent int64, price string) {
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

func (f *paymentFixture) createPayment(t *testing.T, businessID snowflake.ID, depositID, packCode, expectedValue string) {
	t.Helper()
	payment := domain.Payment{
		ID:         f.node.Generate(),
		Provider:   "pawapay",
		DepositID:  depositID,
		BusinessID: businessID,
		PackCode:   packCode,
		Status:     domain.StatusPending,
		CreatedAt:  f.clk.Now(),
		UpdatedAt:  f.clk.Now(),
	}
	if expectedValue != "" {
		amount, err := money.Parse("USD", expectedValue)
		require.NoError(t, err)
		payment.SetExpectedAmount(amount)
	}
	require.NoError(t, f.payments.Insert(context.Background(), f.db, &payment))
}

func (f *paymentFixture) findPayment(t *testing.T, depositID string) *domain.Payment {
	t.Helper()
	payment, err := f.payments.FindByDepositID(context.Background(), f.db, depositID)
	require.NoError(t, err)
	require.NotNil(t, payment)
	return payment
}

func callbackPayload(depositID, status, currency, value string) []byte {
	return []byte(fmt.Sprintf(
		`{"depositId":%q,"status":%q,"amount":{"currency":%q,"value":%q}}`,
		depositID, status, currency, value,
	))
}

func TestProcessDepositCallback_CompletesAndCredits(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")
	f.createPayment(t, businessID, "dep-1", "STARTER_20", "3.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-1", "COMPLETED", "USD", "3.00"), nil)
	require.NoError(t, err)

	payment := f.findPayment(t, "dep-1")
	assert.Equal(t, domain.StatusCompleted, payment.Status)
	assert.NotNil(t, payment.CompletedAt)

	balance, err := f.credits.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditsTotal)
}

func TestProcessDepositCallback_DuplicateCompletedGrantsOnce(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")
	f.createPayment(t, businessID, "dep-2", "STARTER_20", "3.00")

	payload := callbackPayload("dep-2", "COMPLETED", "USD", "3.00")
	require.NoError(t, f.svc.ProcessDepositCallback(ctx, payload, nil))
	require.NoError(t, f.svc.ProcessDepositCallback(ctx, payload, nil))

	balance, err := f.credits.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), balance.CreditsTotal)

	sum, err := f.ledger.SumDeltas(ctx, f.db, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(20), sum)
}

func TestProcessDepositCallback_AmountMismatchFails(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")
	f.createPayment(t, businessID, "dep-3", "STARTER_20", "3.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-3", "COMPLETED", "USD", "5.00"), nil)
	assert.ErrorIs(t, err, domain.ErrAmountMismatch)

	payment := f.findPayment(t, "dep-3")
	assert.Equal(t, domain.StatusFailed, payment.Status)
	assert.Equal(t, domain.FailureAmountMismatch, payment.FailureReason)

	sum, err := f.ledger.SumDeltas(ctx, f.db, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestProcessDepositCallback_EquivalentDecimalAmounts(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")
	f.createPayment(t, businessID, "dep-4", "STARTER_20", "3.00")

	// 3 and 3.00 are the same amount.
	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-4", "COMPLETED", "USD", "3"), nil)
	require.NoError(t, err)

	payment := f.findPayment(t, "dep-4")
	assert.Equal(t, domain.StatusCompleted, payment.Status)
}

func TestProcessDepositCallback_UnknownDeposit(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-ghost", "COMPLETED", "USD", "3.00"), nil)
	assert.ErrorIs(t, err, domain.ErrUnknownDeposit)

	// No payment row was synthesized.
	payment, err := f.payments.FindByDepositID(ctx, f.db, "dep-ghost")
	require.NoError(t, err)
	assert.Nil(t, payment)
}

func TestProcessDepositCallback_TerminalFailure(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPayment(t, businessID, "dep-5", "STARTER_20", "3.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-5", "FAILED", "USD", "3.00"), nil)
	require.NoError(t, err)

	payment := f.findPayment(t, "dep-5")
	assert.Equal(t, domain.StatusFailed, payment.Status)

	sum, err := f.ledger.SumDeltas(ctx, f.db, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), sum)
}

func TestProcessDepositCallback_UnrecognizedStatusRecordedVerbatim(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPack(t, "STARTER_20", 20, 0, "3.00")
	f.createPayment(t, businessID, "dep-6", "STARTER_20", "3.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-6", "IN_RECONCILIATION", "USD", "3.00"), nil)
	require.NoError(t, err)

	payment := f.findPayment(t, "dep-6")
	assert.Equal(t, domain.StatusPending, payment.Status)
	assert.Equal(t, "IN_RECONCILIATION", payment.CallbackStatus)

	// A later completion still lands.
	err = f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-6", "COMPLETED", "USD", "3.00"), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, f.findPayment(t, "dep-6").Status)
}

func TestProcessDepositCallback_BusinessMissing(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	f.createPack(t, "STARTER_20", 20, 0, "3.00")
	f.createPayment(t, f.node.Generate(), "dep-7", "STARTER_20", "3.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-7", "COMPLETED", "USD", "3.00"), nil)
	assert.ErrorIs(t, err, domain.ErrBusinessNotFound)

	payment := f.findPayment(t, "dep-7")
	assert.Equal(t, domain.StatusFailed, payment.Status)
	assert.Equal(t, domain.FailureBusinessNotFound, payment.FailureReason)
}

func TestProcessDepositCallback_ResolvesPackFromAmount(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	f.createPack(t, "GROWTH_60", 60, 10, "8.00")
	f.createPayment(t, businessID, "dep-8", "", "8.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-8", "COMPLETED", "USD", "8.00"), nil)
	require.NoError(t, err)

	balance, err := f.credits.GetBalance(ctx, businessID)
	require.NoError(t, err)
	assert.Equal(t, int64(66), balance.CreditsTotal)
}

func TestProcessDepositCallback_PackUnavailable(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	businessID := f.createBusiness(t)
	// Pack referenced by the payment was never seeded.
	f.createPayment(t, businessID, "dep-9", "STARTER_20", "3.00")

	err := f.svc.ProcessDepositCallback(ctx, callbackPayload("dep-9", "COMPLETED", "USD", "3.00"), nil)
	assert.ErrorIs(t, err, domain.ErrPackUnavailable)

	payment := f.findPayment(t, "dep-9")
	assert.Equal(t, domain.StatusFailed, payment.Status)
	assert.Equal(t, domain.FailurePackInactiveOrMissing, payment.FailureReason)
}

func TestProcessDepositCallback_InvalidPayload(t *testing.T) {
	f := newPaymentFixture(t)
	ctx := context.Background()

	cases := [][]byte{
		[]byte(`not json`),
		[]byte(`{"status":"COMPLETED","amount":{"currency":"USD","value":"3.00"}}`),
		[]byte(`{"depositId":"dep-x","amount":{"currency":"USD","value":"3.00"}}`),
		[]byte(`{"depositId":"dep-x","status":"COMPLETED"}`),
		[]byte(`{"depositId":"dep-x","status":"COMPLETED","amount":{"currency":"USD","value":"abc"}}`),
	}
	for _, payload := range cases {
		err := f.svc.ProcessDepositCallback(ctx, payload, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidPayload)
	}
}
