package event

import (
	"github.com/printpixel/core/internal/event/repository"
	"github.com/printpixel/core/internal/event/service"
	"go.uber.org/fx"
)

var Module = fx.Module("event.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
