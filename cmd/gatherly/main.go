package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/migration"
	"github.com/gatherly/gatherly/internal/server"
	"github.com/gatherly/gatherly/internal/sweeper"
	"github.com/gatherly/gatherly/pkg/db"
	"github.com/gatherly/gatherly/pkg/log"
)

func main() {
	app := fx.New(
		config.Module,
		config.PolicyModule,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,

		server.Module,
		migration.Module,
		sweeper.Module,
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
