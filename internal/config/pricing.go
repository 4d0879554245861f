package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// PricingRules are the tunable multipliers of the quantity and labor calculators.
type PricingRules struct {
	SkillMultipliers map[string]float64 `mapstructure:"skillMultipliers"`
	// DifficultyCeiling bounds how far site conditions may inflate a task's difficulty.
	DifficultyCeiling float64 `mapstructure:"difficultyCeiling"`

	LaborConditions ConditionMultipliers `mapstructure:"laborConditions"`
	WasteConditions ConditionMultipliers `mapstructure:"wasteConditions"`

	DefaultWastePercentage  float64 `mapstructure:"defaultWastePercentage"`
	LegacyLaborHoursPerUnit float64 `mapstructure:"legacyLaborHoursPerUnit"`
	LegacyLaborMultiplier   float64 `mapstructure:"legacyLaborMultiplier"`
}

// ConditionMultipliers maps site conditions to a multiplicative adjustment.
type ConditionMultipliers struct {
	ChallengingAccess   float64 `mapstructure:"challengingAccess"`
	VeryDifficultAccess float64 `mapstructure:"veryDifficultAccess"`
	Scaffolding         float64 `mapstructure:"scaffolding"`
	Moisture            float64 `mapstructure:"moisture"`
}

func DefaultPricingRules() PricingRules {
	return PricingRules{
		SkillMultipliers: map[string]float64{
			"apprentice": 1.0,
			"journeyman": 1.5,
			"master":     2.0,
		},
		DifficultyCeiling: 2.0,
		LaborConditions: ConditionMultipliers{
			ChallengingAccess:   1.15,
			VeryDifficultAccess: 1.3,
			Scaffolding:         1.2,
			Moisture:            1.1,
		},
		WasteConditions: ConditionMultipliers{
			ChallengingAccess:   1.0,
			VeryDifficultAccess: 1.02,
			Scaffolding:         1.0,
			Moisture:            1.05,
		},
		DefaultWastePercentage:  10,
		LegacyLaborHoursPerUnit: 0.1,
		LegacyLaborMultiplier:   1.1,
	}
}

// SkillMultiplier returns the configured multiplier for a skill level, 1.0 when unknown.
func (r PricingRules) SkillMultiplier(level string) float64 {
	if m, ok := r.SkillMultipliers[strings.ToLower(strings.TrimSpace(level))]; ok && m > 0 {
		return m
	}
	return 1.0
}

func (r PricingRules) Validate() error {
	if len(r.SkillMultipliers) == 0 {
		return errors.New("pricing.skillMultipliers cannot be empty")
	}
	for level, m := range r.SkillMultipliers {
		if m <= 0 {
			return fmt.Errorf("pricing.skillMultipliers.%s must be positive", level)
		}
	}
	if r.DifficultyCeiling < 1 {
		return errors.New("pricing.difficultyCeiling must be at least 1.0")
	}
	if r.DefaultWastePercentage < 0 {
		return errors.New("pricing.defaultWastePercentage cannot be negative")
	}
	if r.LegacyLaborHoursPerUnit <= 0 || r.LegacyLaborMultiplier <= 0 {
		return errors.New("pricing legacy labor values must be positive")
	}
	if err := r.LaborConditions.validate("laborConditions", 0); err != nil {
		return err
	}
	// A waste multiplier below 1.0 would order less than was measured.
	return r.WasteConditions.validate("wasteConditions", 1)
}

// validate requires every multiplier to be positive and at least min.
func (c ConditionMultipliers) validate(prefix string, min float64) error {
	for name, v := range map[string]float64{
		"challengingAccess":   c.ChallengingAccess,
		"veryDifficultAccess": c.VeryDifficultAccess,
		"scaffolding":         c.Scaffolding,
		"moisture":            c.Moisture,
	} {
		if v <= 0 {
			return fmt.Errorf("pricing.%s.%s must be positive", prefix, name)
		}
		if v < min {
			return fmt.Errorf("pricing.%s.%s must be at least %g", prefix, name, min)
		}
	}
	return nil
}

// PricingRulesHolder serves the current rules and swaps them when the backing file changes.
type PricingRulesHolder struct {
	current atomic.Value // holds PricingRules
}

// NewStaticPricingRules wraps fixed rules, mainly for tests and the CLI without a rules file.
func NewStaticPricingRules(rules PricingRules) *PricingRulesHolder {
	holder := &PricingRulesHolder{}
	holder.current.Store(rules)
	return holder
}

func NewPricingRulesHolder(cfg Config, log *zap.Logger) (*PricingRulesHolder, error) {
	log = log.Named("config.pricing")

	v := viper.New()
	v.SetConfigType("yml")
	if cfg.PricingRulesPath != "" {
		v.SetConfigFile(cfg.PricingRulesPath)
	} else {
		v.SetConfigName("pricing")
		v.AddConfigPath("/etc/contractorlens")
		v.AddConfigPath(".")
	}
	fileLoaded := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		switch {
		case cfg.PricingRulesPath != "":
			// An explicitly configured file must exist.
			return nil, fmt.Errorf("read pricing rules %s: %w", filepath.Clean(cfg.PricingRulesPath), err)
		case errors.As(err, &notFound):
			fileLoaded = false
		default:
			return nil, err
		}
	}

	// Keys absent from the file keep their defaults.
	rules := DefaultPricingRules()
	if fileLoaded {
		if err := v.UnmarshalKey("pricing", &rules); err != nil {
			return nil, err
		}
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}

	holder := NewStaticPricingRules(rules)
	if !fileLoaded {
		log.Info("pricing rules file not found, using defaults")
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated := DefaultPricingRules()
		if err := v.UnmarshalKey("pricing", &updated); err != nil {
			log.Warn("pricing rules reload failed", zap.Error(err))
			return
		}
		if err := updated.Validate(); err != nil {
			log.Warn("invalid pricing rules ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("pricing rules reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

// Current returns a snapshot of the active rules.
func (h *PricingRulesHolder) Current() PricingRules {
	return h.current.Load().(PricingRules)
}
