package domain

import (
	"context"

	"github.com/sokobiz/sokobiz/pkg/money"
)

type Service interface {
	ListPacks(ctx context.Context) ([]*CreditPack, error)
	// ResolveAmount maps an exact payment amount to its active pack.
	// Returns ErrPackNotFound when no active pack matches.
	ResolveAmount(ctx context.Context, amount money.Money) (*CreditPack, error)
}
