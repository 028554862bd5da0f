package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	businessdomain "github.com/sokobiz/sokobiz/internal/business/domain"
	"github.com/sokobiz/sokobiz/internal/clock"
	"github.com/sokobiz/sokobiz/internal/config"
	creditdomain "github.com/sokobiz/sokobiz/internal/credit/domain"
	"github.com/sokobiz/sokobiz/internal/observability/metrics"
	packdomain "github.com/sokobiz/sokobiz/internal/pack/domain"
	"github.com/sokobiz/sokobiz/internal/payment/domain"
	"github.com/sokobiz/sokobiz/internal/payment/signature"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Cfg        config.Config
	Verifier   *signature.Verifier
	Payments   domain.Repository
	Businesses businessdomain.Repository
	Credits    creditdomain.Service
	Packs      packdomain.Service
	Clock      clock.Clock
	Logger     *zap.Logger
	Metrics    *metrics.Metrics `optional:"true"`
}

type service struct {
	db         *gorm.DB
	provider   string
	verifier   *signature.Verifier
	payments   domain.Repository
	businesses businessdomain.Repository
	credits    creditdomain.Service
	packs      packdomain.Service
	clock      clock.Clock
	log        *zap.Logger
	metrics    *metrics.Metrics
}

func New(p Params) domain.Service {
	return &service{
		db:         p.DB,
		provider:   p.Cfg.WebhookProvider,
		verifier:   p.Verifier,
		payments:   p.Payments,
		businesses: p.Businesses,
		credits:    p.Credits,
		packs:      p.Packs,
		clock:      p.Clock,
		log:        p.Logger.Named("payment.service"),
		metrics:    p.Metrics,
	}
}

// ProcessDepositCallback is the reconciliation state machine:
// authenticate, parse, look the payment up by deposit id, then either
// complete it exactly once (crediting in the same transaction), mark it
// terminal, or record an unrecognized status verbatim.
func (s *service) ProcessDepositCallback(ctx context.Context, payload []byte, headers http.Header) error {
	if err := s.verifier.Verify(payload, headers); err != nil {
		s.log.Warn("webhook rejected",
			zap.String("provider", s.provider),
			zap.String("content_digest", signature.MaskForLog(headers.Get("Content-Digest"))),
			zap.String("signature", signature.MaskForLog(headers.Get("Signature"))),
			zap.String("signature_input", signature.MaskForLog(headers.Get("Signature-Input"))),
			zap.Error(err),
		)
		s.recordWebhook("verification_failed")
		return err
	}

	callback, err := domain.ParseDepositCallback(payload)
	if err != nil {
		s.recordWebhook("invalid_payload")
		return err
	}

	payment, err := s.payments.FindByDepositID(ctx, s.db, callback.DepositID)
	if err != nil {
		return err
	}
	if payment == nil {
		// Never synthesize a payment from callback metadata; it is
		// attacker-controlled.
		s.log.Warn("callback for unknown deposit",
			zap.String("provider", s.provider),
			zap.String("deposit_id", callback.DepositID),
		)
		s.recordWebhook("unknown_deposit")
		return domain.ErrUnknownDeposit
	}

	if payment.Status == domain.StatusCompleted {
		s.recordWebhook("duplicate_completed")
		return nil
	}

	now := s.clock.Now()
	if err := s.payments.RecordCallback(ctx, s.db, payment.DepositID, callback.Status, callback.Amount, payload, now); err != nil {
		return err
	}

	switch normalized := domain.NormalizeStatus(callback.Status); normalized {
	case domain.StatusCompleted:
		return s.complete(ctx, payment, callback)
	case domain.StatusFailed, domain.StatusCanceled, domain.StatusExpired:
		if err := s.payments.MarkTerminal(ctx, s.db, payment.DepositID, normalized, payment.FailureReason, now); err != nil {
			return err
		}
		s.recordWebhook("terminal")
		return nil
	default:
		// Unrecognized status: already recorded verbatim, no transition.
		s.log.Info("callback with unrecognized status",
			zap.String("deposit_id", payment.DepositID),
			zap.String("status", callback.Status),
		)
		s.recordWebhook("unrecognized_status")
		return nil
	}
}

func (s *service) complete(ctx context.Context, payment *domain.Payment, callback *domain.DepositCallback) error {
	// Business and pack identity come from the stored payment only.
	business, err := s.businesses.FindByID(ctx, s.db, payment.BusinessID)
	if err != nil {
		return err
	}
	if business == nil {
		return s.fail(ctx, payment, domain.FailureBusinessNotFound, domain.ErrBusinessNotFound)
	}

	packCode := payment.PackCode
	if packCode == "" {
		resolved, err := s.packs.ResolveAmount(ctx, payment.ExpectedAmount())
		if err != nil {
			if errors.Is(err, packdomain.ErrPackNotFound) {
				return s.fail(ctx, payment, domain.FailurePackInactiveOrMissing, domain.ErrPackUnavailable)
			}
			return err
		}
		packCode = resolved.Code
	}

	if payment.HasExpectedAmount() && !payment.ExpectedAmount().Equal(callback.Amount) {
		s.log.Warn("callback amount mismatch",
			zap.String("deposit_id", payment.DepositID),
			zap.String("expected", payment.ExpectedAmount().String()),
			zap.String("reported", callback.Amount.String()),
		)
		return s.fail(ctx, payment, domain.FailureAmountMismatch, domain.ErrAmountMismatch)
	}

	grantAmount := callback.Amount
	if payment.HasExpectedAmount() {
		grantAmount = payment.ExpectedAmount()
	}

	now := s.clock.Now()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		won, err := s.payments.CompleteGate(ctx, tx, payment.DepositID, now)
		if err != nil {
			return err
		}
		if !won {
			// A concurrent delivery completed it; the grant is theirs.
			return nil
		}
		_, err = s.credits.PurchaseCreditsTx(ctx, tx, payment.BusinessID, packCode, grantAmount, creditdomain.SourceMobileMoney, creditdomain.PurchaseKey(payment.DepositID))
		return err
	})
	if err != nil {
		if errors.Is(err, packdomain.ErrPackNotFound) {
			return s.fail(ctx, payment, domain.FailurePackInactiveOrMissing, domain.ErrPackUnavailable)
		}
		return err
	}

	s.recordWebhook("completed")
	s.log.Info("deposit completed",
		zap.String("deposit_id", payment.DepositID),
		zap.String("business_id", payment.BusinessID.String()),
		zap.String("pack_code", packCode),
	)
	return nil
}

// fail marks the payment FAILED with the given reason and surfaces the
// matching domain error so the handler answers 400. No crediting happens.
func (s *service) fail(ctx context.Context, payment *domain.Payment, reason string, cause error) error {
	if err := s.payments.MarkTerminal(ctx, s.db, payment.DepositID, domain.StatusFailed, reason, s.clock.Now()); err != nil {
		return fmt.Errorf("marking payment failed: %w", err)
	}
	s.recordWebhook("failed_" + reason)
	return cause
}

func (s *service) recordWebhook(result string) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordWebhookResult(s.provider, result)
	s.metrics.RecordPaymentEvent(s.provider, result)
}
