package service

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/sokobiz/sokobiz/internal/pack/amounts"
	"github.com/sokobiz/sokobiz/internal/pack/domain"
	"github.com/sokobiz/sokobiz/pkg/money"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Repo    domain.Repository
	Amounts *amounts.Table
	Logger  *zap.Logger
}

type service struct {
	db      *gorm.DB
	repo    domain.Repository
	amounts *amounts.Table
	log     *zap.Logger
}

func New(p Params) domain.Service {
	return &service{
		db:      p.DB,
		repo:    p.Repo,
		amounts: p.Amounts,
		log:     p.Logger.Named("pack.service"),
	}
}

func (s *service) ListPacks(ctx context.Context) ([]*domain.CreditPack, error) {
	return s.repo.ListActive(ctx, s.db)
}

func (s *service) ResolveAmount(ctx context.Context, amount money.Money) (*domain.CreditPack, error) {
	code, ok := s.amounts.Resolve(amount)
	if !ok {
		return nil, domain.ErrPackNotFound
	}

	found, err := s.repo.FindActiveByCode(ctx, s.db, code)
	if err != nil {
		return nil, err
	}
	if found == nil {
		s.log.Warn("amount table references inactive pack", zap.String("pack_code", code))
		return nil, domain.ErrPackNotFound
	}
	return found, nil
}
