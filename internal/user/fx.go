package user

import (
	"github.com/gatherly/gatherly/internal/user/repository"
	"github.com/gatherly/gatherly/internal/user/service"
	"go.uber.org/fx"
)

var Module = fx.Module("user.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
