package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/gazeta/pkg/gazeta/ingest"
	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config should validate: %v", err)
	}
}

func TestDefaultValues(t *testing.T) {
	cfg := Default()

	if cfg.WindowSize != 3 {
		t.Errorf("expected window size 3, got %d", cfg.WindowSize)
	}
	if cfg.GCInterval != 30 {
		t.Errorf("expected gc interval 30, got %d", cfg.GCInterval)
	}
	if cfg.ScoreThreshold != 40 {
		t.Errorf("expected threshold 40, got %d", cfg.ScoreThreshold)
	}
	if cfg.ValueSanityCeiling != 850000 {
		t.Errorf("expected ceiling 850000, got %g", cfg.ValueSanityCeiling)
	}
	if cfg.TrailingContextChars != 300 {
		t.Errorf("expected 300 trailing chars, got %d", cfg.TrailingContextChars)
	}
	if cfg.DefaultDateOffsetDays != 30 {
		t.Errorf("expected 30 day offset, got %d", cfg.DefaultDateOffsetDays)
	}
	if cfg.DedupPolicy != "keep_first" {
		t.Errorf("expected keep_first policy, got %q", cfg.DedupPolicy)
	}
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.ArtistBlacklist[0] = "mutated"
	a.TriggerTerms["new term"] = 99

	b := Default()
	if b.ArtistBlacklist[0] == "mutated" {
		t.Error("mutating one Default() result should not affect another")
	}
	if _, ok := b.TriggerTerms["new term"]; ok {
		t.Error("trigger table should not be shared between Default() calls")
	}
}

func TestParsePartialOverlaysDefaults(t *testing.T) {
	cfg, err := ParseMiningConfig([]byte(`
window_size: 5
score_threshold: 60
trigger_terms:
  show: 70
dedup_policy: keep_max_value
`))
	if err != nil {
		t.Fatalf("ParseMiningConfig: %v", err)
	}

	if cfg.WindowSize != 5 {
		t.Errorf("expected window size 5, got %d", cfg.WindowSize)
	}
	if cfg.ScoreThreshold != 60 {
		t.Errorf("expected threshold 60, got %d", cfg.ScoreThreshold)
	}
	if len(cfg.TriggerTerms) != 1 || cfg.TriggerTerms["show"] != 70 {
		t.Errorf("trigger table should be replaced, got %v", cfg.TriggerTerms)
	}
	if cfg.GCInterval != 30 {
		t.Errorf("omitted gc_interval should default to 30, got %d", cfg.GCInterval)
	}
	if len(cfg.VetoTerms) == 0 {
		t.Error("omitted veto_terms should keep defaults")
	}
	if cfg.DedupPolicy != "keep_max_value" {
		t.Errorf("expected keep_max_value, got %q", cfg.DedupPolicy)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("overlaid config should validate: %v", err)
	}
}

func TestParseKeepsExplicitZeros(t *testing.T) {
	cfg, err := ParseMiningConfig([]byte(`
gc_interval: 0
default_date_offset_days: 0
trailing_context_chars: 0
`))
	if err != nil {
		t.Fatalf("ParseMiningConfig: %v", err)
	}

	if cfg.GCInterval != 0 {
		t.Errorf("explicit gc_interval 0 should disable reclaim, got %d", cfg.GCInterval)
	}
	if cfg.DefaultDateOffsetDays != 0 {
		t.Errorf("explicit date offset 0 should survive, got %d", cfg.DefaultDateOffsetDays)
	}
	if cfg.TrailingContextChars != 0 {
		t.Errorf("explicit trailing context 0 should survive, got %d", cfg.TrailingContextChars)
	}
	if cfg.WindowSize != 3 || len(cfg.TriggerTerms) == 0 {
		t.Errorf("omitted keys should keep defaults, got window %d, %d triggers", cfg.WindowSize, len(cfg.TriggerTerms))
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("zeros are valid settings: %v", err)
	}
	if _, err := cfg.BuildPipeline(nil); err != nil {
		t.Errorf("BuildPipeline with zeros: %v", err)
	}
}

func TestParseExplicitZeroWindowIsRejected(t *testing.T) {
	cfg, err := ParseMiningConfig([]byte("window_size: 0\n"))
	if err != nil {
		t.Fatalf("ParseMiningConfig: %v", err)
	}
	if err := cfg.Validate(); !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for window_size 0, got %v", err)
	}
}

func TestParseMalformedYAML(t *testing.T) {
	_, err := ParseMiningConfig([]byte("window_size: [unclosed\n"))
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*MiningConfig)
	}{
		{"zero window", func(c *MiningConfig) { c.WindowSize = 0 }},
		{"negative gc interval", func(c *MiningConfig) { c.GCInterval = -1 }},
		{"negative fragment min score", func(c *MiningConfig) { c.FragmentMinScore = -1 }},
		{"zero threshold", func(c *MiningConfig) { c.ScoreThreshold = 0 }},
		{"empty triggers", func(c *MiningConfig) { c.TriggerTerms = map[string]int{} }},
		{"negative trigger weight", func(c *MiningConfig) { c.TriggerTerms = map[string]int{"show": -5} }},
		{"zero reinforcement weight", func(c *MiningConfig) { c.ReinforcementTerms = map[string]int{"palco": 0} }},
		{"zero ceiling", func(c *MiningConfig) { c.ValueSanityCeiling = 0 }},
		{"negative trailing context", func(c *MiningConfig) { c.TrailingContextChars = -1 }},
		{"negative date offset", func(c *MiningConfig) { c.DefaultDateOffsetDays = -3 }},
		{"inverted artist bounds", func(c *MiningConfig) {
			c.MinArtistLen = 10
			c.MaxArtistLen = 5
		}},
		{"bad municipality regexp", func(c *MiningConfig) { c.MunicipalityPattern = "PREFEITURA (" }},
		{"municipality without group", func(c *MiningConfig) { c.MunicipalityPattern = "PREFEITURA" }},
		{"bad event name regexp", func(c *MiningConfig) { c.EventNamePattern = "[" }},
		{"bad artist rule", func(c *MiningConfig) {
			c.ArtistRules = []ingest.RuleSpec{{Name: "broken", Pattern: "BANDA ("}}
		}},
		{"artist rule without group", func(c *MiningConfig) {
			c.ArtistRules = []ingest.RuleSpec{{Name: "flat", Pattern: "BANDA"}}
		}},
		{"no artist rules", func(c *MiningConfig) { c.ArtistRules = []ingest.RuleSpec{} }},
		{"category without tag", func(c *MiningConfig) { c.Categories = []ingest.Category{{Terms: []string{"x"}}} }},
		{"unknown dedup policy", func(c *MiningConfig) { c.DedupPolicy = "keep_last" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, internalerr.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
			if _, err := cfg.BuildPipeline(nil); err == nil {
				t.Error("BuildPipeline should refuse an invalid config")
			}
		})
	}
}

func TestLoaderEmptyPathUsesDefaults(t *testing.T) {
	loader := Loader{}

	comp, err := loader.Load()
	if err != nil {
		t.Fatalf("Empty loader should succeed: %v", err)
	}
	if comp.Pipeline == nil {
		t.Error("Should have pipeline")
	}
	if comp.Config.WindowSize != 3 {
		t.Errorf("expected default window size, got %d", comp.Config.WindowSize)
	}
}

func TestLoaderNonExistentFile(t *testing.T) {
	loader := Loader{ConfigPath: "/nonexistent/mining.yaml"}

	_, err := loader.Load()
	if err == nil {
		t.Error("Should error on nonexistent config")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected wrapped os.ErrNotExist, got %v", err)
	}
}

func TestLoaderInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("window_size: -2\n"), 0644)

	_, err := (&Loader{ConfigPath: path}).Load()
	if !errors.Is(err, internalerr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestLoaderValidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mining.yaml")
	content := `
window_size: 2
score_threshold: 40
veto_terms:
  - pavimentação
trigger_terms:
  show artístico: 55
reinforcement_terms:
  palco: 10
categories:
  - tag: carnival
    terms: [carnaval]
`
	os.WriteFile(path, []byte(content), 0644)

	comp, err := (&Loader{ConfigPath: path}).Load()
	if err != nil {
		t.Fatalf("Valid file should load: %v", err)
	}

	if comp.Config.WindowSize != 2 {
		t.Errorf("expected window size 2, got %d", comp.Config.WindowSize)
	}
	if len(comp.Config.Categories) != 1 || comp.Config.Categories[0].Tag != "carnival" {
		t.Errorf("categories should be replaced, got %v", comp.Config.Categories)
	}
	if comp.Pipeline == nil {
		t.Fatal("Pipeline should be built")
	}
}

func TestShippedConfigFile(t *testing.T) {
	path := filepath.Join("..", "..", "..", "configs", "mining.yaml")
	if _, err := os.Stat(path); err != nil {
		t.Skipf("shipped config not found: %v", err)
	}

	cfg, err := LoadMiningConfig(path)
	if err != nil {
		t.Fatalf("LoadMiningConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("shipped config should validate: %v", err)
	}
}
