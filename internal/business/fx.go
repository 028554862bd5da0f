package business

import (
	"go.uber.org/fx"

	"github.com/sokobiz/sokobiz/internal/business/repository"
)

var Module = fx.Module("business",
	fx.Provide(repository.Provide),
)
