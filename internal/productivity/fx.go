package productivity

import (
	"github.com/smallbiznis/pulse/internal/productivity/repository"
	"github.com/smallbiznis/pulse/internal/productivity/service"
	"go.uber.org/fx"
)

var Module = fx.Module("productivity.service",
	fx.Provide(repository.Provide),
	fx.Provide(repository.ProvideEventSource),
	fx.Provide(repository.ProvideUserSource),
	fx.Provide(service.New),
)
