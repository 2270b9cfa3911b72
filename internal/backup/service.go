package backup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/printpixel/core/internal/clock"
	"github.com/printpixel/core/internal/config"
	eventdomain "github.com/printpixel/core/internal/event/domain"
	"github.com/printpixel/core/internal/notify"
	settingsdomain "github.com/printpixel/core/internal/settings/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	KindManual = "manual"
	KindAuto   = "auto"
)

var (
	ErrUnknownBackup = errors.New("backup_not_found")
	ErrInvalidImport = errors.New("invalid_import")
)

// Snapshot is the on-disk backup document: the full event collection
// (soft-deleted records included) plus every setting.
type Snapshot struct {
	Events    []*eventdomain.Event     `json:"events"`
	Settings  []settingsdomain.Setting `json:"settings"`
	Timestamp time.Time                `json:"timestamp"`
	Kind      string                   `json:"backup_type"`
	Version   string                   `json:"version"`
}

// Info describes one stored backup file.
type Info struct {
	Key       string    `json:"key"`
	Size      int64     `json:"size"`
	Timestamp time.Time `json:"timestamp"`
}

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	Cfg          config.Config
	Clock        clock.Clock
	EventsRepo   eventdomain.Repository
	SettingsRepo settingsdomain.Repository
	Broker       *notify.Broker
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	dir          string
	keep         int
	version      string
	clock        clock.Clock
	eventsRepo   eventdomain.Repository
	settingsRepo settingsdomain.Repository
	broker       *notify.Broker
}

func New(p Params) *Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("backup.service"),
		dir:          p.Cfg.BackupDir,
		keep:         p.Cfg.BackupKeep,
		version:      p.Cfg.AppVersion,
		clock:        p.Clock,
		eventsRepo:   p.EventsRepo,
		settingsRepo: p.SettingsRepo,
		broker:       p.Broker,
	}
}

// Create writes a snapshot of the whole store to the backup directory and
// returns its key.
func (s *Service) Create(ctx context.Context, kind string) (string, error) {
	if kind != KindAuto {
		kind = KindManual
	}

	snapshot, err := s.snapshot(ctx, kind)
	if err != nil {
		return "", err
	}

	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", err
	}

	key := fmt.Sprintf("backup_%s_%s.json", kind, ulid.Make().String())
	if err := os.WriteFile(filepath.Join(s.dir, key), encoded, 0o644); err != nil {
		return "", err
	}
	s.log.Info("backup created",
		zap.String("key", key),
		zap.String("kind", kind),
		zap.Int("events", len(snapshot.Events)),
	)

	if kind == KindAuto {
		s.prune()
	}
	return key, nil
}

// List returns stored backups, newest first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	_ = ctx
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return []Info{}, nil
		}
		return nil, err
	}

	infos := make([]Info, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), "backup_") || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		stat, err := entry.Info()
		if err != nil {
			continue
		}
		infos = append(infos, Info{
			Key:       entry.Name(),
			Size:      stat.Size(),
			Timestamp: stat.ModTime().UTC(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Key > infos[j].Key
	})
	return infos, nil
}

// Restore replaces the whole store with the named snapshot.
func (s *Service) Restore(ctx context.Context, key string) error {
	key = filepath.Base(strings.TrimSpace(key))
	if key == "" || key == "." {
		return ErrUnknownBackup
	}

	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrUnknownBackup
		}
		return err
	}
	return s.importSnapshot(ctx, data)
}

// Export renders the snapshot document for download.
func (s *Service) Export(ctx context.Context) (string, []byte, error) {
	snapshot, err := s.snapshot(ctx, KindManual)
	if err != nil {
		return "", nil, err
	}
	encoded, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", nil, err
	}
	filename := fmt.Sprintf("core_export_%s.json", s.clock.Now().Format("2006-01-02"))
	return filename, encoded, nil
}

// Import replaces the whole store with an uploaded snapshot document.
func (s *Service) Import(ctx context.Context, data []byte) error {
	return s.importSnapshot(ctx, data)
}

func (s *Service) snapshot(ctx context.Context, kind string) (Snapshot, error) {
	var snapshot Snapshot
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		events, err := s.eventsRepo.All(ctx, tx)
		if err != nil {
			return err
		}
		settings, err := s.settingsRepo.All(ctx, tx)
		if err != nil {
			return err
		}
		snapshot = Snapshot{
			Events:    events,
			Settings:  settings,
			Timestamp: s.clock.Now(),
			Kind:      kind,
			Version:   s.version,
		}
		return nil
	})
	return snapshot, err
}

func (s *Service) importSnapshot(ctx context.Context, data []byte) error {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidImport, err)
	}
	if snapshot.Events == nil && snapshot.Settings == nil {
		return ErrInvalidImport
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.eventsRepo.ReplaceAll(ctx, tx, snapshot.Events); err != nil {
			return err
		}
		return s.settingsRepo.ReplaceAll(ctx, tx, snapshot.Settings)
	})
	if err != nil {
		return err
	}

	s.broker.Publish(notify.Change{Schema: eventdomain.SchemaAll, Action: "restored", At: s.clock.Now()})
	s.log.Info("store restored from snapshot",
		zap.Int("events", len(snapshot.Events)),
		zap.Int("settings", len(snapshot.Settings)),
	)
	return nil
}

// prune keeps the newest automatic backups and removes the rest. Manual
// backups are never pruned.
func (s *Service) prune() {
	if s.keep <= 0 {
		return
	}
	infos, err := s.List(context.Background())
	if err != nil {
		s.log.Warn("backup prune skipped", zap.Error(err))
		return
	}

	auto := make([]Info, 0, len(infos))
	for _, info := range infos {
		if strings.HasPrefix(info.Key, "backup_"+KindAuto+"_") {
			auto = append(auto, info)
		}
	}
	for i := s.keep; i < len(auto); i++ {
		if err := os.Remove(filepath.Join(s.dir, auto[i].Key)); err != nil {
			s.log.Warn("backup prune failed", zap.String("key", auto[i].Key), zap.Error(err))
		}
	}
}
