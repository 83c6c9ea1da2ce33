package review

import (
	"go.uber.org/fx"

	"github.com/gatherly/gatherly/internal/review/repository"
	"github.com/gatherly/gatherly/internal/review/service"
)

var Module = fx.Module("review.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
