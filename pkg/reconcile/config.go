package reconcile

import (
	"fmt"

	"github.com/agentstation/confmap/pkg/errors"
)

// Config carries every tunable the engine consumes. The engine reads
// thresholds from here and nowhere else, so two runs with equal config
// and input are guaranteed to agree.
type Config struct {
	// SimilarityThreshold is the minimum normalized-name similarity for
	// two records to be considered the same entity.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// DateToleranceDays is the window within which two key dates still
	// denote the same entity. Guards against name collisions across
	// unrelated recurring events.
	DateToleranceDays int `yaml:"date_tolerance_days"`

	// FreshnessWindowDays is how long a fetch stays fully trusted
	// before recency decay starts.
	FreshnessWindowDays int `yaml:"freshness_window_days"`

	// TieEpsilon is the weight gap below which two leading claims are a
	// tie that must go to manual review instead of an arbitrary pick.
	TieEpsilon float64 `yaml:"tie_epsilon"`

	// AuthoritativeSources lists source IDs that override disagreement
	// unconditionally.
	AuthoritativeSources []string `yaml:"authoritative_sources"`

	// BaseWeights maps source IDs to their base trust in [0,1].
	// Sources absent from the map get DefaultBaseWeight, or 1.0 when
	// they are authoritative.
	BaseWeights map[string]float64 `yaml:"base_weights"`

	// DefaultBaseWeight is the base trust for unconfigured sources.
	DefaultBaseWeight float64 `yaml:"default_base_weight"`

	// RecencyFloor is the lowest the recency factor decays to.
	RecencyFloor float64 `yaml:"recency_floor"`

	// DissentPenalty scales how much the strongest dissenting claim
	// subtracts from a highest-weight resolution's confidence.
	DissentPenalty float64 `yaml:"dissent_penalty"`

	// MissingCorroborationCap caps confidence for values only some
	// sources provided.
	MissingCorroborationCap float64 `yaml:"missing_corroboration_cap"`

	// SingletonCap caps overall confidence for entities only a single
	// source reported.
	SingletonCap float64 `yaml:"singleton_cap"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		SimilarityThreshold:     0.85,
		DateToleranceDays:       3,
		FreshnessWindowDays:     30,
		TieEpsilon:              0.05,
		DefaultBaseWeight:       0.5,
		RecencyFloor:            0.6,
		DissentPenalty:          0.5,
		MissingCorroborationCap: 0.7,
		SingletonCap:            0.7,
	}
}

// Validate rejects misconfiguration before any run starts. The engine
// treats its inputs as total after this point, so an out-of-range
// weight must fail here, never mid-run.
func (c Config) Validate() error {
	checkUnit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return errors.NewConfigError(name, fmt.Sprintf("must be in [0,1], got %v", v), nil)
		}
		return nil
	}

	if err := checkUnit("similarity_threshold", c.SimilarityThreshold); err != nil {
		return err
	}
	if err := checkUnit("tie_epsilon", c.TieEpsilon); err != nil {
		return err
	}
	if err := checkUnit("default_base_weight", c.DefaultBaseWeight); err != nil {
		return err
	}
	if err := checkUnit("recency_floor", c.RecencyFloor); err != nil {
		return err
	}
	if err := checkUnit("dissent_penalty", c.DissentPenalty); err != nil {
		return err
	}
	if err := checkUnit("missing_corroboration_cap", c.MissingCorroborationCap); err != nil {
		return err
	}
	if err := checkUnit("singleton_cap", c.SingletonCap); err != nil {
		return err
	}
	if c.DateToleranceDays < 0 {
		return errors.NewConfigError("date_tolerance_days", "must not be negative", nil)
	}
	if c.FreshnessWindowDays <= 0 {
		return errors.NewConfigError("freshness_window_days", "must be positive", nil)
	}
	for id, w := range c.BaseWeights {
		if w < 0 || w > 1 {
			return errors.NewConfigError("base_weights",
				fmt.Sprintf("weight for source %q must be in [0,1], got %v", id, w), nil)
		}
	}
	return nil
}
