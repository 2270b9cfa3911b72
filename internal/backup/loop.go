package backup

import (
	"context"
	"time"

	"github.com/printpixel/core/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Loop writes an automatic backup on a fixed interval.
type Loop struct {
	svc      *Service
	log      *zap.Logger
	interval time.Duration
}

func NewLoop(svc *Service, cfg config.Config, log *zap.Logger) *Loop {
	return &Loop{
		svc:      svc,
		log:      log.Named("backup.loop"),
		interval: cfg.BackupInterval,
	}
}

func (l *Loop) RunForever(ctx context.Context) {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if _, err := l.svc.Create(ctx, KindAuto); err != nil {
			l.log.Warn("automatic backup failed", zap.Error(err))
		}
	}
}

func StartLoop(lc fx.Lifecycle, cfg config.Config, loop *Loop) {
	if cfg.BackupInterval <= 0 {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go loop.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
