package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/printpixel/core/internal/clock"
	"github.com/printpixel/core/internal/config"
	"github.com/printpixel/core/internal/migration"
	"github.com/printpixel/core/internal/notify"
	"github.com/printpixel/core/internal/observability"
	"github.com/printpixel/core/internal/server"
	"github.com/printpixel/core/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		notify.Module,

		// Store schema and HTTP surface
		migration.Module,
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
