package settings

import (
	"github.com/printpixel/core/internal/settings/repository"
	"github.com/printpixel/core/internal/settings/service"
	"go.uber.org/fx"
)

var Module = fx.Module("settings.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
