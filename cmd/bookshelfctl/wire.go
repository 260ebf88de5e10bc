//go:build wireinject
// +build wireinject

package main

import (
	"github.com/google/wire"

	"github.com/xiebiao/bookshelf/internal/infrastructure/config"
	"github.com/xiebiao/bookshelf/internal/infrastructure/provider"
)

// initializeApp CLI只需要用例和Token相关依赖，不构造HTTP层
func initializeApp(cfg *config.Config) (*app, func(), error) {
	wire.Build(
		provider.InfrastructureSet,
		provider.RepositorySet,
		provider.ApplicationSet,
		wire.Struct(new(app), "*"),
	)
	return nil, nil, nil
}
