package credit

import (
	"go.uber.org/fx"

	"github.com/sokobiz/sokobiz/internal/credit/repository"
	"github.com/sokobiz/sokobiz/internal/credit/service"
)

var Module = fx.Module("credit",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
