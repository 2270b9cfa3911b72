package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultEventsConfig(t *testing.T) {
	cfg := DefaultEventsConfig()

	assert.True(t, cfg.IsProtected("numero"))
	assert.True(t, cfg.IsProtected("Status"))
	assert.False(t, cfg.IsProtected("cliente"))
	assert.False(t, cfg.AllowSchemaChange)
	assert.Equal(t, "dataRegistro", cfg.DateField)
}

func TestStaticHolder(t *testing.T) {
	holder := NewStaticEventsConfigHolder(EventsConfig{
		ProtectedFields: []string{"numero"},
		DateField:       "criadoEm",
	})

	got := holder.Get()
	assert.True(t, got.IsProtected("NUMERO"))
	assert.Equal(t, "criadoEm", got.DateField)
}

func TestValidateEventsConfig(t *testing.T) {
	assert.Error(t, validateEventsConfig(EventsConfig{}))
	assert.NoError(t, validateEventsConfig(DefaultEventsConfig()))
}
