package dailymetric

import (
	activeuserdomain "github.com/smallbiznis/pulse/internal/activeuser/domain"
	"github.com/smallbiznis/pulse/internal/dailymetric/domain"
	"github.com/smallbiznis/pulse/internal/dailymetric/repository"
	"github.com/smallbiznis/pulse/internal/dailymetric/service"
	"go.uber.org/fx"
)

var Module = fx.Module("dailymetric.service",
	fx.Provide(repository.Provide),
	fx.Provide(func(svc activeuserdomain.Service) domain.Calculator { return svc }),
	fx.Provide(service.New),
)
