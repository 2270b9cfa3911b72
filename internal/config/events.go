package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// EventsConfig controls upsert behaviour that the source system never
// settled on: which payload fields survive an update untouched, and whether
// an update may move a record to another schema.
type EventsConfig struct {
	ProtectedFields   []string `mapstructure:"protectedFields"`
	AllowSchemaChange bool     `mapstructure:"allowSchemaChange"`
	DateField         string   `mapstructure:"dateField"`
}

func DefaultEventsConfig() EventsConfig {
	return EventsConfig{
		ProtectedFields:   []string{"numero", "status"},
		AllowSchemaChange: false,
		DateField:         "dataRegistro",
	}
}

func (c EventsConfig) IsProtected(field string) bool {
	for _, f := range c.ProtectedFields {
		if strings.EqualFold(f, field) {
			return true
		}
	}
	return false
}

// EventsConfigHolder keeps the current EventsConfig and hot-reloads it when
// core.yml changes on disk.
type EventsConfigHolder struct {
	current atomic.Value // holds EventsConfig
}

func NewEventsConfigHolder() (*EventsConfigHolder, error) {
	v := viper.New()

	v.SetConfigName("core")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/printpixel")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CORE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultEventsConfig()
	v.SetDefault("events.protectedFields", defaults.ProtectedFields)
	v.SetDefault("events.allowSchemaChange", defaults.AllowSchemaChange)
	v.SetDefault("events.dateField", defaults.DateField)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg EventsConfig
	if err := v.UnmarshalKey("events", &cfg); err != nil {
		return nil, err
	}
	if err := validateEventsConfig(cfg); err != nil {
		return nil, err
	}

	holder := &EventsConfigHolder{}
	holder.current.Store(cfg)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated EventsConfig
		if err := v.UnmarshalKey("events", &updated); err != nil {
			log.Printf("[events-config] reload failed: %v", err)
			return
		}
		if err := validateEventsConfig(updated); err != nil {
			log.Printf("[events-config] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[events-config] reloaded from %s", e.Name)
	})

	return holder, nil
}

func NewStaticEventsConfigHolder(cfg EventsConfig) *EventsConfigHolder {
	holder := &EventsConfigHolder{}
	holder.current.Store(cfg)
	return holder
}

func (h *EventsConfigHolder) Get() EventsConfig {
	return h.current.Load().(EventsConfig)
}

func validateEventsConfig(cfg EventsConfig) error {
	if strings.TrimSpace(cfg.DateField) == "" {
		return errors.New("events.dateField cannot be empty")
	}
	return nil
}
