package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/opencommune/commune/internal/clock"
	"github.com/opencommune/commune/internal/logger"
	"github.com/opencommune/commune/internal/migration"
	"github.com/opencommune/commune/internal/reminder"
	"github.com/opencommune/commune/internal/server"
	"github.com/opencommune/commune/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		logger.Module,
		fx.Provide(newSnowflakeNode),
		db.Module,
		clock.Module,
		server.Module,
		reminder.Module,
		migration.Module,
	)
	app.Run()
}

func newSnowflakeNode() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
