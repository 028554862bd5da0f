package payment

import (
	"go.uber.org/fx"

	"github.com/sokobiz/sokobiz/internal/config"
	"github.com/sokobiz/sokobiz/internal/payment/repository"
	"github.com/sokobiz/sokobiz/internal/payment/service"
	"github.com/sokobiz/sokobiz/internal/payment/signature"
)

var Module = fx.Module("payment",
	fx.Provide(provideVerifier),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)

func provideVerifier(cfg config.Config) *signature.Verifier {
	return signature.NewVerifier(signature.Config{
		Secret:        cfg.WebhookSecret,
		AllowUnsigned: cfg.WebhookAllowUnsigned,
	})
}
