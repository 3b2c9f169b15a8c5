package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.pickaxe.co/v1/completions", cfg.CompletionsURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 40, cfg.HistoryLimit)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "10s")
	t.Setenv("HISTORY_LIMIT", "12")
	cfg := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 10*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 12, cfg.HistoryLimit)
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	t.Setenv("REQUEST_TIMEOUT", "soon")
	t.Setenv("HISTORY_LIMIT", "many")
	cfg := Load()
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 40, cfg.HistoryLimit)
}

func TestPersonaTokenOverrides(t *testing.T) {
	t.Setenv("PERSONA_2_TOKEN", "deployment-rotated")
	got := PersonaTokenOverrides([]int{1, 2, 3})
	assert.Equal(t, map[int]string{2: "deployment-rotated"}, got)
}
