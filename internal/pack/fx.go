package pack

import (
	"go.uber.org/fx"

	"github.com/sokobiz/sokobiz/internal/pack/amounts"
	"github.com/sokobiz/sokobiz/internal/pack/repository"
	"github.com/sokobiz/sokobiz/internal/pack/service"
)

var Module = fx.Module("pack",
	fx.Provide(amounts.New),
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
