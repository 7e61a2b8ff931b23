// Package engine assembles the context bundle: it resolves per-source
// configuration, iterates enabled sources in priority order under the
// global token budget, applies the structural truncator and roadmap
// summarizer, and renders the result into the stable text format consumed
// downstream. Context is always an enhancement: no failure in this
// package prevents the caller from proceeding without it.
package engine

import (
	"log/slog"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/davenloft/contextloom/pkg/contextloom/similarity"
	"github.com/davenloft/contextloom/pkg/contextloom/workspace"
)

// configFile is the engine configuration path under the project root.
var configFile = filepath.Join(".contextloom", "config.yml")

// SourceConfig controls one artifact type. Priority orders loading
// (lower loads first, ties broken by canonical source order); MaxCount
// only applies to the multi-item related-specs source.
type SourceConfig struct {
	Enabled  bool `yaml:"enabled"`
	Priority int  `yaml:"priority"`
	MaxCount int  `yaml:"max_count"`
}

// BudgetConfig holds the global and per-source token caps and the soft
// guidance threshold as a fraction of the global cap.
type BudgetConfig struct {
	TotalTokens      int     `yaml:"total_tokens"`
	PerSourceTokens  int     `yaml:"per_source_tokens"`
	SoftThresholdPct float64 `yaml:"soft_threshold_pct"`
}

// SimilarityConfig tunes related-spec ranking.
type SimilarityConfig struct {
	Strategy     string             `yaml:"strategy"`
	Threshold    float64            `yaml:"threshold"`
	ExcerptChars int                `yaml:"excerpt_chars"`
	Weights      similarity.Weights `yaml:"weights"`
}

// Config is the resolved engine configuration.
type Config struct {
	Budget        BudgetConfig
	Sources       map[workspace.SourceType]SourceConfig
	EvictionOrder []workspace.SourceType
	Similarity    SimilarityConfig

	// overrides holds per-command partial source overrides, applied by
	// forCommand.
	overrides map[string]map[workspace.SourceType]sourceOverride
}

// DefaultConfig returns the built-in configuration used when no config
// document is present or the document is unparsable.
func DefaultConfig() *Config {
	return &Config{
		Budget: BudgetConfig{
			TotalTokens:      16000,
			PerSourceTokens:  4000,
			SoftThresholdPct: 0.8,
		},
		Sources: map[workspace.SourceType]SourceConfig{
			workspace.SourceCharter:      {Enabled: true, Priority: 1},
			workspace.SourceCurrentSpec:  {Enabled: true, Priority: 2},
			workspace.SourceRoadmap:      {Enabled: true, Priority: 3},
			workspace.SourceTechStack:    {Enabled: true, Priority: 4},
			workspace.SourceRelatedSpecs: {Enabled: true, Priority: 5, MaxCount: 3},
			workspace.SourceCompleted:    {Enabled: true, Priority: 6},
		},
		// Keep order under the hard limit; sources at the tail are
		// evicted first. Distinct from load priority.
		EvictionOrder: []workspace.SourceType{
			workspace.SourceCurrentSpec,
			workspace.SourceCharter,
			workspace.SourceRoadmap,
			workspace.SourceRelatedSpecs,
			workspace.SourceTechStack,
			workspace.SourceCompleted,
		},
		Similarity: SimilarityConfig{
			Strategy:     "auto",
			Threshold:    0.25,
			ExcerptChars: 1200,
			Weights:      similarity.DefaultWeights(),
		},
	}
}

// sourceOverride is a partial SourceConfig: only set fields replace the
// base values.
type sourceOverride struct {
	Enabled  *bool `yaml:"enabled"`
	Priority *int  `yaml:"priority"`
	MaxCount *int  `yaml:"max_count"`
}

func (o sourceOverride) applyTo(base SourceConfig) SourceConfig {
	if o.Enabled != nil {
		base.Enabled = *o.Enabled
	}
	if o.Priority != nil {
		base.Priority = *o.Priority
	}
	if o.MaxCount != nil {
		base.MaxCount = *o.MaxCount
	}
	return base
}

// rawConfig mirrors the YAML document. Source entries stay as yaml.Node
// so one malformed entry falls back to its defaults without aborting the
// rest of the document.
type rawConfig struct {
	Budget        *rawBudget            `yaml:"budget"`
	Sources       map[string]yaml.Node  `yaml:"sources"`
	EvictionOrder []string              `yaml:"eviction_order"`
	Commands      map[string]rawCommand `yaml:"commands"`
	Similarity    *rawSimilarity        `yaml:"similarity"`
}

type rawBudget struct {
	TotalTokens      *int     `yaml:"total_tokens"`
	PerSourceTokens  *int     `yaml:"per_source_tokens"`
	SoftThresholdPct *float64 `yaml:"soft_threshold_pct"`
}

type rawCommand struct {
	Sources map[string]yaml.Node `yaml:"sources"`
}

type rawSimilarity struct {
	Strategy     *string             `yaml:"strategy"`
	Threshold    *float64            `yaml:"threshold"`
	ExcerptChars *int                `yaml:"excerpt_chars"`
	Weights      *similarity.Weights `yaml:"weights"`
}

// LoadOrDefault reads .contextloom/config.yml under the project root.
// A missing file, an unparsable document, or any malformed entry degrades
// to defaults (whole-document or per-entry) with a diagnostic; this never
// returns an error because assembly must not block the caller's command.
func LoadOrDefault(root string, logger *slog.Logger) *Config {
	if logger == nil {
		logger = slog.Default()
	}
	cfg := DefaultConfig()

	data, err := os.ReadFile(filepath.Join(root, configFile))
	if err != nil {
		logger.Debug("engine: no config document, using defaults", "path", configFile)
		return cfg
	}

	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		logger.Warn("engine: config unparsable, using defaults", "path", configFile, "error", err)
		return cfg
	}

	if raw.Budget != nil {
		if raw.Budget.TotalTokens != nil {
			cfg.Budget.TotalTokens = *raw.Budget.TotalTokens
		}
		if raw.Budget.PerSourceTokens != nil {
			cfg.Budget.PerSourceTokens = *raw.Budget.PerSourceTokens
		}
		if raw.Budget.SoftThresholdPct != nil {
			cfg.Budget.SoftThresholdPct = *raw.Budget.SoftThresholdPct
		}
	}

	for name, node := range raw.Sources {
		st, known := knownSource(name)
		if !known {
			logger.Warn("engine: unknown source type in config", "source", name)
			continue
		}
		ov, err := decodeOverride(node)
		if err != nil {
			logger.Warn("engine: malformed source entry, keeping defaults", "source", name, "error", err)
			continue
		}
		cfg.Sources[st] = ov.applyTo(cfg.Sources[st])
	}

	if len(raw.EvictionOrder) > 0 {
		var order []workspace.SourceType
		for _, name := range raw.EvictionOrder {
			st, known := knownSource(name)
			if !known {
				logger.Warn("engine: unknown source type in eviction order", "source", name)
				continue
			}
			order = append(order, st)
		}
		if len(order) > 0 {
			cfg.EvictionOrder = order
		}
	}

	if raw.Similarity != nil {
		if raw.Similarity.Strategy != nil {
			cfg.Similarity.Strategy = *raw.Similarity.Strategy
		}
		if raw.Similarity.Threshold != nil {
			cfg.Similarity.Threshold = *raw.Similarity.Threshold
		}
		if raw.Similarity.ExcerptChars != nil {
			cfg.Similarity.ExcerptChars = *raw.Similarity.ExcerptChars
		}
		if raw.Similarity.Weights != nil {
			cfg.Similarity.Weights = *raw.Similarity.Weights
		}
	}

	for command, rawCmd := range raw.Commands {
		overrides := make(map[workspace.SourceType]sourceOverride)
		for name, node := range rawCmd.Sources {
			st, known := knownSource(name)
			if !known {
				logger.Warn("engine: unknown source type in command override", "command", command, "source", name)
				continue
			}
			ov, err := decodeOverride(node)
			if err != nil {
				logger.Warn("engine: malformed command override, keeping defaults", "command", command, "source", name, "error", err)
				continue
			}
			overrides[st] = ov
		}
		if len(overrides) > 0 {
			if cfg.overrides == nil {
				cfg.overrides = make(map[string]map[workspace.SourceType]sourceOverride)
			}
			cfg.overrides[command] = overrides
		}
	}

	return cfg
}

func decodeOverride(node yaml.Node) (sourceOverride, error) {
	var ov sourceOverride
	if err := node.Decode(&ov); err != nil {
		return sourceOverride{}, err
	}
	return ov, nil
}

func knownSource(name string) (workspace.SourceType, bool) {
	st := workspace.SourceType(name)
	for _, known := range workspace.AllSourceTypes {
		if st == known {
			return st, true
		}
	}
	return "", false
}

// forCommand resolves the effective configuration for a named command:
// global defaults with that command's source overrides applied. The
// receiver is not mutated.
func (c *Config) forCommand(command string) *Config {
	eff := &Config{
		Budget:        c.Budget,
		Sources:       make(map[workspace.SourceType]SourceConfig, len(c.Sources)),
		EvictionOrder: c.EvictionOrder,
		Similarity:    c.Similarity,
	}
	for st, sc := range c.Sources {
		eff.Sources[st] = sc
	}
	if command == "" {
		return eff
	}
	for st, ov := range c.overrides[command] {
		eff.Sources[st] = ov.applyTo(eff.Sources[st])
	}
	return eff
}

// Effective exposes the per-command resolution for callers that want to
// inspect or print the configuration a command would run with.
func (c *Config) Effective(command string) *Config {
	return c.forCommand(command)
}

// YAML serializes the resolved configuration in the same shape the
// config document uses, for `contextloom config` style inspection.
func (c *Config) YAML() ([]byte, error) {
	sources := make(map[string]SourceConfig, len(c.Sources))
	for st, sc := range c.Sources {
		sources[string(st)] = sc
	}
	order := make([]string, len(c.EvictionOrder))
	for i, st := range c.EvictionOrder {
		order[i] = string(st)
	}
	view := struct {
		Budget        BudgetConfig            `yaml:"budget"`
		Sources       map[string]SourceConfig `yaml:"sources"`
		EvictionOrder []string                `yaml:"eviction_order"`
		Similarity    SimilarityConfig        `yaml:"similarity"`
	}{c.Budget, sources, order, c.Similarity}
	return yaml.Marshal(view)
}
