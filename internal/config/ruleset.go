package config

import (
	"fmt"
	"os"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// DefaultDedupTTL bounds how long a first claim blocks other addresses
const DefaultDedupTTL = 90 * 24 * time.Hour

// DefaultRuleset is used for communities created without their own settings
func DefaultRuleset() core.Ruleset {
	return core.Ruleset{
		Scorer: core.ScorerWeighted,
		Weights: map[string]decimal.Decimal{
			"Google":       decimal.RequireFromString("2.25"),
			"Twitter":      decimal.RequireFromString("1.75"),
			"Github":       decimal.RequireFromString("2.5"),
			"Discord":      decimal.RequireFromString("0.75"),
			"Linkedin":     decimal.RequireFromString("1.5"),
			"Ens":          decimal.RequireFromString("2.2"),
			"Brightid":     decimal.RequireFromString("3.5"),
			"Poh":          decimal.RequireFromString("4.5"),
			"GitPOAP":      decimal.RequireFromString("1.0"),
			"SnapshotVote": decimal.RequireFromString("1.2"),
		},
		Threshold: decimal.NewFromInt(20),
		Dedup:     core.DedupFirstClaimWins,
		DedupTTL:  DefaultDedupTTL,
	}
}

// LoadRuleset reads a YAML ruleset, filling unset fields from DefaultRuleset.
// An empty path returns the defaults.
func LoadRuleset(path string, trustedIssuers []string) (core.Ruleset, error) {
	ruleset := DefaultRuleset()
	if path != "" {
		buf, err := os.ReadFile(path)
		if err != nil {
			return core.Ruleset{}, fmt.Errorf("reading ruleset file: %w", err)
		}
		var loaded core.Ruleset
		if err := yaml.Unmarshal(buf, &loaded); err != nil {
			return core.Ruleset{}, fmt.Errorf("parsing ruleset file: %w", err)
		}
		ruleset = MergeRuleset(ruleset, loaded)
	}
	ruleset.TrustedIssuers = append(ruleset.TrustedIssuers, trustedIssuers...)
	return ruleset, nil
}

// MergeRuleset overlays the set fields of override onto base
func MergeRuleset(base, override core.Ruleset) core.Ruleset {
	if override.Scorer != "" {
		base.Scorer = override.Scorer
	}
	if len(override.Weights) > 0 {
		base.Weights = override.Weights
	}
	if !override.Threshold.IsZero() {
		base.Threshold = override.Threshold
	}
	if len(override.TrustedIssuers) > 0 {
		base.TrustedIssuers = override.TrustedIssuers
	}
	if override.Dedup != "" {
		base.Dedup = override.Dedup
	}
	if override.DedupTTL > 0 {
		base.DedupTTL = override.DedupTTL
	}
	return base
}
