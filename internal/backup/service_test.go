package backup

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/printpixel/core/internal/clock"
	"github.com/printpixel/core/internal/config"
	eventdomain "github.com/printpixel/core/internal/event/domain"
	eventrepository "github.com/printpixel/core/internal/event/repository"
	"github.com/printpixel/core/internal/notify"
	settingsdomain "github.com/printpixel/core/internal/settings/domain"
	settingsrepository "github.com/printpixel/core/internal/settings/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func newTestService(t *testing.T, keep int) (*Service, *gorm.DB, eventdomain.Repository) {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&eventdomain.Event{}, &settingsdomain.Setting{}))

	eventsRepo := eventrepository.Provide()
	svc := New(Params{
		DB:  db,
		Log: zap.NewNop(),
		Cfg: config.Config{
			BackupDir:  t.TempDir(),
			BackupKeep: keep,
			AppVersion: "test",
		},
		Clock:        clock.NewFakeClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		EventsRepo:   eventsRepo,
		SettingsRepo: settingsrepository.Provide(),
		Broker:       notify.NewBroker(zap.NewNop()),
	})
	return svc, db, eventsRepo
}

func seedEvent(t *testing.T, db *gorm.DB, repo eventdomain.Repository, id, schema string) {
	t.Helper()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Insert(context.Background(), db, &eventdomain.Event{
		ID:        id,
		Schema:    schema,
		Payload:   datatypes.JSONMap{"cliente": "Maria"},
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}))
}

func TestBackup_CreateAndList(t *testing.T) {
	svc, db, repo := newTestService(t, 10)
	seedEvent(t, db, repo, "1", "pedido")

	key, err := svc.Create(context.Background(), KindManual)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(key, "backup_manual_"))
	assert.True(t, strings.HasSuffix(key, ".json"))

	backups, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, key, backups[0].Key)
	assert.Greater(t, backups[0].Size, int64(0))
}

func TestBackup_RestoreRoundTrip(t *testing.T) {
	svc, db, repo := newTestService(t, 10)
	ctx := context.Background()
	seedEvent(t, db, repo, "1", "pedido")
	seedEvent(t, db, repo, "2", "despesa")

	key, err := svc.Create(ctx, KindManual)
	require.NoError(t, err)

	// Wipe the store, then restore.
	require.NoError(t, repo.ReplaceAll(ctx, db, nil))
	events, err := repo.All(ctx, db)
	require.NoError(t, err)
	require.Empty(t, events)

	require.NoError(t, svc.Restore(ctx, key))

	events, err = repo.All(ctx, db)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestBackup_RestoreUnknownKey(t *testing.T) {
	svc, _, _ := newTestService(t, 10)

	assert.ErrorIs(t, svc.Restore(context.Background(), "backup_manual_missing.json"), ErrUnknownBackup)
	assert.ErrorIs(t, svc.Restore(context.Background(), ""), ErrUnknownBackup)
}

func TestBackup_ExportAndImport(t *testing.T) {
	svc, db, repo := newTestService(t, 10)
	ctx := context.Background()
	seedEvent(t, db, repo, "1", "venda")

	filename, data, err := svc.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "core_export_2026-03-01.json", filename)

	var snapshot Snapshot
	require.NoError(t, json.Unmarshal(data, &snapshot))
	assert.Len(t, snapshot.Events, 1)
	assert.Equal(t, "test", snapshot.Version)

	require.NoError(t, repo.ReplaceAll(ctx, db, nil))
	require.NoError(t, svc.Import(ctx, data))

	events, err := repo.All(ctx, db)
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestBackup_ImportRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t, 10)

	assert.ErrorIs(t, svc.Import(context.Background(), []byte("not json")), ErrInvalidImport)
	assert.ErrorIs(t, svc.Import(context.Background(), []byte(`{"other": true}`)), ErrInvalidImport)
}

func TestBackup_PruneKeepsNewestAuto(t *testing.T) {
	svc, db, repo := newTestService(t, 2)
	ctx := context.Background()
	seedEvent(t, db, repo, "1", "pedido")

	manual, err := svc.Create(ctx, KindManual)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, err := svc.Create(ctx, KindAuto)
		require.NoError(t, err)
	}

	backups, err := svc.List(ctx)
	require.NoError(t, err)

	autoCount := 0
	manualSeen := false
	for _, b := range backups {
		if strings.HasPrefix(b.Key, "backup_auto_") {
			autoCount++
		}
		if b.Key == manual {
			manualSeen = true
		}
	}
	assert.Equal(t, 2, autoCount)
	assert.True(t, manualSeen, "manual backups must survive pruning")
}
