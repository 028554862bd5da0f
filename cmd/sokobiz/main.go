package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/sokobiz/sokobiz/internal/business"
	"github.com/sokobiz/sokobiz/internal/clock"
	"github.com/sokobiz/sokobiz/internal/config"
	"github.com/sokobiz/sokobiz/internal/credit"
	"github.com/sokobiz/sokobiz/internal/migration"
	"github.com/sokobiz/sokobiz/internal/observability"
	"github.com/sokobiz/sokobiz/internal/pack"
	"github.com/sokobiz/sokobiz/internal/payment"
	"github.com/sokobiz/sokobiz/internal/ratelimit"
	"github.com/sokobiz/sokobiz/internal/server"
	"github.com/sokobiz/sokobiz/pkg/db"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		business.Module,
		pack.Module,
		credit.Module,
		payment.Module,
		ratelimit.Module,

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
