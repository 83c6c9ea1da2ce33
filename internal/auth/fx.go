package auth

import (
	"github.com/gatherly/gatherly/internal/auth/repository"
	"github.com/gatherly/gatherly/internal/auth/service"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
