package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/printpixel/core/internal/clock"
	"github.com/printpixel/core/internal/notify"
	"github.com/printpixel/core/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	Clock  clock.Clock
	Repo   domain.Repository
	Broker *notify.Broker
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	clock  clock.Clock
	repo   domain.Repository
	broker *notify.Broker
}

func New(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("settings.service"),
		clock:  p.Clock,
		repo:   p.Repo,
		broker: p.Broker,
	}
}

func (s *Service) All(ctx context.Context) (map[string]any, error) {
	settings, err := s.repo.All(ctx, s.db)
	if err != nil {
		return nil, storeErr(err)
	}

	out := make(map[string]any, len(settings))
	for _, setting := range settings {
		var value any
		if err := json.Unmarshal(setting.Value, &value); err != nil {
			s.log.Warn("skipping undecodable setting", zap.String("key", setting.Key), zap.Error(err))
			continue
		}
		out[setting.Key] = value
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, key string) (any, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, domain.ErrInvalidKey
	}

	setting, err := s.repo.Get(ctx, s.db, key)
	if err != nil {
		return nil, storeErr(err)
	}
	if setting == nil {
		return nil, domain.ErrNotFound
	}

	var value any
	if err := json.Unmarshal(setting.Value, &value); err != nil {
		return nil, fmt.Errorf("decode setting %q: %w", key, err)
	}
	return value, nil
}

func (s *Service) Save(ctx context.Context, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return domain.ErrInvalidKey
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode setting %q: %w", key, err)
	}

	now := s.clock.Now()
	setting := &domain.Setting{
		Key:       key,
		Value:     datatypes.JSON(encoded),
		UpdatedAt: now,
	}
	if err := s.repo.Upsert(ctx, s.db, setting); err != nil {
		return storeErr(err)
	}

	s.broker.Publish(notify.Change{Schema: "settings", ID: key, Action: "saved", At: now})
	return nil
}

func storeErr(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
