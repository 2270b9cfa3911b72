package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/printpixel/core/internal/clock"
	"github.com/printpixel/core/internal/notify"
	"github.com/printpixel/core/internal/settings/domain"
	"github.com/printpixel/core/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (domain.Service, *notify.Broker) {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Setting{}))

	broker := notify.NewBroker(zap.NewNop())
	svc := New(Params{
		DB:     db,
		Log:    zap.NewNop(),
		Clock:  clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:   repository.Provide(),
		Broker: broker,
	})
	return svc, broker
}

func TestSettings_SaveAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "empresa", map[string]any{"nome": "Print Pixel", "telefone": "999"}))

	value, err := svc.Get(ctx, "empresa")
	require.NoError(t, err)
	empresa, ok := value.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Print Pixel", empresa["nome"])
}

func TestSettings_SaveOverwrites(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "tema", "claro"))
	require.NoError(t, svc.Save(ctx, "tema", "escuro"))

	value, err := svc.Get(ctx, "tema")
	require.NoError(t, err)
	assert.Equal(t, "escuro", value)

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSettings_All(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, "tema", "claro"))
	require.NoError(t, svc.Save(ctx, "limite", 42.0))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Equal(t, "claro", all["tema"])
	assert.Equal(t, 42.0, all["limite"])
}

func TestSettings_GetErrors(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Get(ctx, "  ")
	assert.ErrorIs(t, err, domain.ErrInvalidKey)

	assert.ErrorIs(t, svc.Save(ctx, "", "x"), domain.ErrInvalidKey)
}

func TestSettings_SavePublishesChange(t *testing.T) {
	svc, broker := newTestService(t)
	ctx := context.Background()

	changes, cancel := broker.Subscribe(1)
	defer cancel()

	require.NoError(t, svc.Save(ctx, "tema", "claro"))

	select {
	case change := <-changes:
		assert.Equal(t, "settings", change.Schema)
		assert.Equal(t, "tema", change.ID)
		assert.Equal(t, "saved", change.Action)
	case <-time.After(time.Second):
		t.Fatal("no change notification received")
	}
}
