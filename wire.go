//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"
	"go.uber.org/zap"

	"ecorewards/internal/config"
	"ecorewards/internal/server"
)

func InitApp(cfg *config.Config, log *zap.Logger) (*server.App, func(), error) {
	wire.Build(
		server.StoreSet,
		server.ServiceSet,
		server.HandlerSet,
		wire.Struct(new(server.App), "Config", "Engine", "Mirror", "Log"),
	)
	return nil, nil, nil
}
