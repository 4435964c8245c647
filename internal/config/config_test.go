package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KUSTOSCOPE_PROVIDER", "")
	t.Setenv("KUSTOSCOPE_MODEL", "")
	t.Setenv("KUSTOSCOPE_API_KEY", "")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.LLM.Provider)
	assert.Equal(t, 3, cfg.Refine.MaxRegenerationAttempts)
	assert.InDelta(t, 0.7, cfg.Refine.ConfidenceThreshold, 1e-9)
	assert.InDelta(t, 2.0, cfg.Analysis.OutlierSigma, 1e-9)
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	ws := t.TempDir()
	dir := filepath.Join(ws, ".kustoscope")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"llm":{"provider":"openai","model":"gpt-4o-mini"},"refine":{"max_regeneration_attempts":5,"confidence_threshold":0.5}}`), 0644))

	cfg, err := Load(ws)
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.Refine.MaxRegenerationAttempts)
	// Untouched sections keep defaults.
	assert.InDelta(t, 3.0, cfg.Analysis.GapFactor, 1e-9)
}

func TestEnvOverrides(t *testing.T) {
	t.Run("provider and model", func(t *testing.T) {
		t.Setenv("KUSTOSCOPE_PROVIDER", "openai")
		t.Setenv("KUSTOSCOPE_MODEL", "gpt-4o")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "openai", cfg.LLM.Provider)
		assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	})

	t.Run("api key falls through to provider variable", func(t *testing.T) {
		t.Setenv("KUSTOSCOPE_API_KEY", "")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "gem-key", cfg.LLM.APIKey)
	})

	t.Run("explicit key wins", func(t *testing.T) {
		t.Setenv("KUSTOSCOPE_API_KEY", "explicit")
		t.Setenv("GEMINI_API_KEY", "gem-key")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, "explicit", cfg.LLM.APIKey)
	})

	t.Run("invalid numeric override is ignored", func(t *testing.T) {
		t.Setenv("KUSTOSCOPE_MAX_REGENERATIONS", "many")
		t.Setenv("KUSTOSCOPE_CONFIDENCE_THRESHOLD", "1.7")

		cfg := Default()
		cfg.applyEnvOverrides()

		assert.Equal(t, 3, cfg.Refine.MaxRegenerationAttempts)
		assert.InDelta(t, 0.7, cfg.Refine.ConfidenceThreshold, 1e-9)
	})
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "mystery"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Refine.ConfidenceThreshold = 1.5
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Analysis.GapFactor = 1.0
	assert.Error(t, cfg.Validate())
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("KUSTOSCOPE_PROVIDER", "")
	t.Setenv("KUSTOSCOPE_MODEL", "")

	ws := t.TempDir()
	cfg := Default()
	cfg.LLM.Model = "gemini-2.5-pro"
	require.NoError(t, cfg.Save(ws))

	loaded, err := Load(ws)
	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", loaded.LLM.Model)
}
