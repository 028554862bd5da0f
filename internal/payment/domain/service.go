package domain

import (
	"context"
	"net/http"
)

type Service interface {
	// ProcessDepositCallback authenticates, parses and reconciles one
	// provider deposit callback. A nil return means the delivery was
	// handled and the provider should stop retrying.
	ProcessDepositCallback(ctx context.Context, payload []byte, headers http.Header) error
}
