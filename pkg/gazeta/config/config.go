package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/gazeta/pkg/gazeta/ingest"
	"github.com/cognicore/gazeta/pkg/gazeta/internalerr"
)

// MiningConfig holds every tunable of the mining pipeline. Term tables are
// data so operators can retune precision and recall without a redeploy.
type MiningConfig struct {
	WindowSize            int               `yaml:"window_size"`
	GCInterval            int               `yaml:"gc_interval"`
	ScoreThreshold        int               `yaml:"score_threshold"`
	FragmentMinScore      int               `yaml:"fragment_min_score"`
	VetoTerms             []string          `yaml:"veto_terms"`
	TriggerTerms          map[string]int    `yaml:"trigger_terms"`
	ReinforcementTerms    map[string]int    `yaml:"reinforcement_terms"`
	ValueSanityCeiling    float64           `yaml:"value_sanity_ceiling"`
	TrailingContextChars  int               `yaml:"trailing_context_chars"`
	DefaultDateOffsetDays int               `yaml:"default_date_offset_days"`
	AcceptPastDates       bool              `yaml:"accept_past_dates"`
	MunicipalityPattern   string            `yaml:"municipality_pattern"`
	SentinelRegion        string            `yaml:"sentinel_region"`
	ArtistRules           []ingest.RuleSpec `yaml:"artist_rules"`
	ArtistBlacklist       []string          `yaml:"artist_blacklist"`
	ArtistRejectMarkers   []string          `yaml:"artist_reject_markers"`
	MinArtistLen          int               `yaml:"min_artist_len"`
	MaxArtistLen          int               `yaml:"max_artist_len"`
	EventNamePattern      string            `yaml:"event_name_pattern"`
	Categories            []ingest.Category `yaml:"categories"`
	DefaultCategory       string            `yaml:"default_category"`
	DedupPolicy           string            `yaml:"dedup_policy"`
	DedupIncludeValue     bool              `yaml:"dedup_include_value"`
	SourceTag             string            `yaml:"source_tag"`
	Venue                 string            `yaml:"venue"`
}

// Default returns the built-in configuration tuned for Minas Gerais
// municipal gazettes.
func Default() MiningConfig {
	return MiningConfig{
		WindowSize:     ingest.DefaultWindowSize,
		GCInterval:     ingest.DefaultGCInterval,
		ScoreThreshold: 40,
		VetoTerms: []string{
			"pavimentação", "asfáltica", "recapeamento", "calçamento", "drenagem",
			"saneamento", "construção de", "reforma de", "obra de engenharia",
			"medicamento", "hospitalar", "odontológico", "laboratorial", "vacina",
			"combustível", "óleo diesel", "gasolina", "pneus", "peças automotivas",
			"merenda escolar", "gêneros alimentícios", "material de limpeza",
			"material de escritório", "software", "licença de uso", "informática",
			"transporte escolar", "coleta de lixo", "resíduos sólidos",
		},
		TriggerTerms: map[string]int{
			"show artístico":         55,
			"show musical":           55,
			"apresentação artística": 55,
			"apresentação musical":   55,
			"artista consagrado":     50,
			"contratação de banda":   50,
			"contratação de show":    50,
			"inexigibilidade":        20,
		},
		ReinforcementTerms: map[string]int{
			"festival":              20,
			"carnaval":              25,
			"festa junina":          25,
			"aniversário da cidade": 20,
			"cachê":                 30,
			"palco":                 15,
			"banda":                 15,
			"dupla":                 15,
			"sonorização":           10,
			"evento":                10,
		},
		ValueSanityCeiling:    ingest.DefaultValueCeiling,
		TrailingContextChars:  300,
		DefaultDateOffsetDays: ingest.DefaultDateOffsetDays,
		MunicipalityPattern:   ingest.DefaultMunicipalityPattern,
		SentinelRegion:        ingest.DefaultSentinelRegion,
		ArtistRules:           append([]ingest.RuleSpec(nil), ingest.DefaultArtistRules...),
		ArtistBlacklist:       append([]string(nil), ingest.DefaultArtistBlacklist...),
		ArtistRejectMarkers:   append([]string(nil), ingest.DefaultRejectMarkers...),
		MinArtistLen:          ingest.DefaultMinArtistLen,
		MaxArtistLen:          ingest.DefaultMaxArtistLen,
		EventNamePattern:      ingest.DefaultEventNamePattern,
		Categories:            append([]ingest.Category(nil), ingest.DefaultCategories...),
		DefaultCategory:       ingest.CategoryShow,
		DedupPolicy:           string(ingest.KeepFirst),
		SourceTag:             ingest.DefaultSourceTag,
		Venue:                 ingest.DefaultVenue,
	}
}

// LoadMiningConfig reads a YAML file. Keys left out of the file keep their
// Default values.
func LoadMiningConfig(path string) (MiningConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return MiningConfig{}, err
	}
	return ParseMiningConfig(data)
}

// ParseMiningConfig decodes YAML over Default, so omitted keys keep their
// defaults and explicit zeros are kept. Term tables named in the file
// replace the default tables instead of merging into them.
func ParseMiningConfig(data []byte) (MiningConfig, error) {
	cfg := Default()
	cfg.TriggerTerms = nil
	cfg.ReinforcementTerms = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return MiningConfig{}, fmt.Errorf("%w: %v", internalerr.ErrInvalidConfig, err)
	}

	d := Default()
	if cfg.TriggerTerms == nil {
		cfg.TriggerTerms = d.TriggerTerms
	}
	if cfg.ReinforcementTerms == nil {
		cfg.ReinforcementTerms = d.ReinforcementTerms
	}
	return cfg, nil
}

// Validate reports the first configuration error, wrapped in
// internalerr.ErrInvalidConfig.
func (c MiningConfig) Validate() error {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{internalerr.ErrInvalidConfig}, args...)...)
	}

	if c.WindowSize < 1 {
		return invalid("window_size must be at least 1, got %d", c.WindowSize)
	}
	if c.GCInterval < 0 {
		return invalid("gc_interval must not be negative, got %d", c.GCInterval)
	}
	if c.ScoreThreshold <= 0 {
		return invalid("score_threshold must be positive, got %d", c.ScoreThreshold)
	}
	if c.FragmentMinScore < 0 {
		return invalid("fragment_min_score must not be negative, got %d", c.FragmentMinScore)
	}
	if len(c.TriggerTerms) == 0 {
		return invalid("trigger_terms must not be empty")
	}
	for term, w := range c.TriggerTerms {
		if w <= 0 {
			return invalid("trigger term %q has non-positive weight %d", term, w)
		}
	}
	for term, w := range c.ReinforcementTerms {
		if w <= 0 {
			return invalid("reinforcement term %q has non-positive weight %d", term, w)
		}
	}
	if c.ValueSanityCeiling <= 0 {
		return invalid("value_sanity_ceiling must be positive, got %g", c.ValueSanityCeiling)
	}
	if c.TrailingContextChars < 0 {
		return invalid("trailing_context_chars must not be negative, got %d", c.TrailingContextChars)
	}
	if c.DefaultDateOffsetDays < 0 {
		return invalid("default_date_offset_days must not be negative, got %d", c.DefaultDateOffsetDays)
	}
	if c.MinArtistLen < 1 || c.MaxArtistLen < c.MinArtistLen {
		return invalid("artist length bounds [%d, %d] are inconsistent", c.MinArtistLen, c.MaxArtistLen)
	}
	re, err := regexp.Compile(c.MunicipalityPattern)
	if err != nil {
		return invalid("municipality_pattern: %v", err)
	}
	if re.NumSubexp() < 1 {
		return invalid("municipality_pattern needs a capture group")
	}
	ev, err := regexp.Compile(c.EventNamePattern)
	if err != nil {
		return invalid("event_name_pattern: %v", err)
	}
	if ev.NumSubexp() < 1 {
		return invalid("event_name_pattern needs a capture group")
	}
	if _, err := ingest.CompileRules(c.ArtistRules); err != nil {
		return err
	}
	for i, cat := range c.Categories {
		if cat.Tag == "" {
			return invalid("category %d has no tag", i)
		}
	}
	if _, err := ingest.ParseDedupPolicy(c.DedupPolicy); err != nil {
		return invalid("%v", err)
	}
	return nil
}
