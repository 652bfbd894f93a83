//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"chartlab/internal/config"

	"github.com/google/wire"
)

func buildAppWithWire(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(
		provideSources,
		provideCandleCache,
		provideCandleStore,
		provideMetrics,
		provideAlerter,
		provideProvider,
		provideCatalog,
		providePresets,
		provideServer,
		newApp,
	)
	return nil, nil, nil
}
