package config

import (
	"fmt"
	"log/slog"
	"regexp"

	"github.com/cognicore/gazeta/pkg/gazeta/ingest"
)

// Loader loads the mining configuration and constructs the pipeline
type Loader struct {
	ConfigPath string // optional; built-in defaults when empty
	Logger     *slog.Logger
}

// Components holds the loaded configuration and the pipeline built from it
type Components struct {
	Config   MiningConfig
	Pipeline *ingest.Pipeline
}

// Load reads the configuration file, validates it and builds the pipeline.
func (l *Loader) Load() (*Components, error) {
	cfg := Default()
	if l.ConfigPath != "" {
		loaded, err := LoadMiningConfig(l.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("load mining config: %w", err)
		}
		cfg = loaded
	}

	pipeline, err := cfg.BuildPipeline(l.Logger)
	if err != nil {
		return nil, err
	}

	return &Components{Config: cfg, Pipeline: pipeline}, nil
}

// BuildPipeline validates the configuration and wires every pipeline
// component from it.
func (c MiningConfig) BuildPipeline(logger *slog.Logger) (*ingest.Pipeline, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	filter, err := ingest.NewRelevanceFilter(c.VetoTerms, c.TriggerTerms, c.ReinforcementTerms, c.ScoreThreshold)
	if err != nil {
		return nil, err
	}

	rules, err := ingest.CompileRules(c.ArtistRules)
	if err != nil {
		return nil, err
	}

	// Validate already compiled these.
	municipality := regexp.MustCompile(c.MunicipalityPattern)
	eventName := regexp.MustCompile(c.EventNamePattern)

	extractor := ingest.NewEntityExtractor(ingest.ExtractorOptions{
		Rules:            rules,
		Blacklist:        c.ArtistBlacklist,
		RejectMarkers:    c.ArtistRejectMarkers,
		MinArtistLen:     c.MinArtistLen,
		MaxArtistLen:     c.MaxArtistLen,
		ValueCeiling:     c.ValueSanityCeiling,
		DateOffsetDays:   c.DefaultDateOffsetDays,
		AcceptPastDates:  c.AcceptPastDates,
		EventNamePattern: eventName,
	})

	return ingest.NewPipeline(ingest.Options{
		WindowSize:          c.WindowSize,
		GCInterval:          c.GCInterval,
		MunicipalityPattern: municipality,
		SentinelRegion:      c.SentinelRegion,
		Filter:              filter,
		FragmentMinScore:    c.FragmentMinScore,
		Slicer:              ingest.NewBlockSlicer(c.TrailingContextChars),
		Extractor:           extractor,
		Classifier:          ingest.NewClassifier(c.Categories, c.DefaultCategory),
		DedupPolicy:         ingest.DedupPolicy(c.DedupPolicy),
		DedupIncludeValue:   c.DedupIncludeValue,
		SourceTag:           c.SourceTag,
		Venue:               c.Venue,
		Logger:              logger,
	})
}
