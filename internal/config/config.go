// Package config loads and validates kustoscope configuration.
// Config lives at <workspace>/.kustoscope/config.json; every field has a
// default, and KUSTOSCOPE_* environment variables override the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// Config holds all kustoscope configuration.
type Config struct {
	// LLM provider configuration
	LLM LLMConfig `json:"llm"`

	// Refinement loop policy
	Refine RefineConfig `json:"refine"`

	// Result analysis policy
	Analysis AnalysisConfig `json:"analysis"`

	// Query explanation tone
	Explain ExplainConfig `json:"explain"`

	// Local data source
	DatabasePath string `json:"database_path"`
	SchemaPath   string `json:"schema_path"`

	// Logging
	Logging LoggingConfig `json:"logging"`
}

// LLMConfig configures the LLM provider used for generation, explanation,
// and insight extraction.
type LLMConfig struct {
	Provider string `json:"provider"` // gemini, openai
	Model    string `json:"model"`
	APIKey   string `json:"api_key"`
	BaseURL  string `json:"base_url"` // OpenAI-compatible endpoints only
}

// RefineConfig configures the refinement state machine.
type RefineConfig struct {
	MaxRegenerationAttempts int     `json:"max_regeneration_attempts"`
	ConfidenceThreshold     float64 `json:"confidence_threshold"`
}

// AnalysisConfig configures the result-analysis engine. The numeric
// thresholds are heuristic policy parameters, not statistical tests.
type AnalysisConfig struct {
	OutlierSigma  float64 `json:"outlier_sigma"`   // stddev multiple for outliers
	GapFactor     float64 `json:"gap_factor"`      // median-interval multiple for gaps
	MaxSampleRows int     `json:"max_sample_rows"` // rows embedded in AI prompts
}

// ExplainConfig configures query explanations.
type ExplainConfig struct {
	Language        string `json:"language"`
	TechnicalLevel  string `json:"technical_level"`
	IncludeExamples bool   `json:"include_examples"`
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	Debug      bool            `json:"debug"`
	Level      string          `json:"level"`
	Categories map[string]bool `json:"categories,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "gemini",
			Model:    "gemini-2.5-flash",
		},
		Refine: RefineConfig{
			MaxRegenerationAttempts: 3,
			ConfidenceThreshold:     0.7,
		},
		Analysis: AnalysisConfig{
			OutlierSigma:  2.0,
			GapFactor:     3.0,
			MaxSampleRows: 20,
		},
		Explain: ExplainConfig{
			Language:        "english",
			TechnicalLevel:  "intermediate",
			IncludeExamples: true,
		},
		DatabasePath: "telemetry.db",
		SchemaPath:   "schema.yaml",
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ConfigPath returns the config file path for a workspace.
func ConfigPath(workspace string) string {
	return filepath.Join(workspace, ".kustoscope", "config.json")
}

// Load reads the workspace config, merges it over defaults, and applies
// environment overrides. A missing config file is not an error.
func Load(workspace string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ConfigPath(workspace))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Relative data paths resolve against the workspace.
	if cfg.DatabasePath != "" && !filepath.IsAbs(cfg.DatabasePath) {
		cfg.DatabasePath = filepath.Join(workspace, ".kustoscope", cfg.DatabasePath)
	}
	if cfg.SchemaPath != "" && !filepath.IsAbs(cfg.SchemaPath) {
		cfg.SchemaPath = filepath.Join(workspace, ".kustoscope", cfg.SchemaPath)
	}

	return cfg, nil
}

// applyEnvOverrides lets KUSTOSCOPE_* variables override the file. Provider
// API keys also fall through to the conventional provider variables.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("KUSTOSCOPE_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("KUSTOSCOPE_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("KUSTOSCOPE_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("KUSTOSCOPE_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if c.LLM.APIKey == "" {
		switch c.LLM.Provider {
		case "gemini":
			c.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		case "openai":
			c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		}
	}
	if v := os.Getenv("KUSTOSCOPE_MAX_REGENERATIONS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			c.Refine.MaxRegenerationAttempts = n
		}
	}
	if v := os.Getenv("KUSTOSCOPE_CONFIDENCE_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 0 && f <= 1 {
			c.Refine.ConfidenceThreshold = f
		}
	}
}

// Validate rejects configurations the rest of the system cannot honor.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (want gemini or openai)", c.LLM.Provider)
	}
	if c.Refine.MaxRegenerationAttempts < 0 {
		return fmt.Errorf("max_regeneration_attempts must be >= 0")
	}
	if c.Refine.ConfidenceThreshold < 0 || c.Refine.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be in [0,1]")
	}
	if c.Analysis.OutlierSigma <= 0 {
		return fmt.Errorf("outlier_sigma must be > 0")
	}
	if c.Analysis.GapFactor <= 1 {
		return fmt.Errorf("gap_factor must be > 1")
	}
	return nil
}

// Save writes the config back to the workspace, creating .kustoscope/ if
// needed. Used by `kustoscope init`-style flows and tests.
func (c *Config) Save(workspace string) error {
	dir := filepath.Join(workspace, ".kustoscope")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(ConfigPath(workspace), data, 0644)
}
