package event

import (
	"github.com/gatherly/gatherly/internal/event/repository"
	"github.com/gatherly/gatherly/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
