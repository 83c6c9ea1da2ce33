package participation

import (
	"go.uber.org/fx"

	"github.com/gatherly/gatherly/internal/participation/repository"
	"github.com/gatherly/gatherly/internal/participation/service"
)

var Module = fx.Module("participation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
