package scoring

import (
	"encoding/json"
	"fmt"

	"github.com/layer-3/scorer/core"
	"github.com/shopspring/decimal"
)

// Result is what a Scorer produces for a deduplicated stamp set
type Result struct {
	Value    decimal.Decimal
	Evidence json.RawMessage
}

// Scorer turns surviving stamps into a score under a ruleset
type Scorer interface {
	Score(ruleset core.Ruleset, stamps []core.Stamp) (Result, error)
}

// ScorerFor returns the scorer for t. An empty type selects WEIGHTED.
func ScorerFor(t core.ScorerType) (Scorer, error) {
	switch t {
	case core.ScorerWeighted, "":
		return WeightedScorer{}, nil
	case core.ScorerWeightedBinary:
		return BinaryScorer{}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", t)
	}
}

// WeightedScorer sums the weight of every provider present, once per provider
type WeightedScorer struct{}

func (WeightedScorer) Score(ruleset core.Ruleset, stamps []core.Stamp) (Result, error) {
	return Result{Value: weightedSum(ruleset, stamps)}, nil
}

// ThresholdEvidence explains a binary score
type ThresholdEvidence struct {
	Type      string          `json:"type"`
	Success   bool            `json:"success"`
	RawScore  decimal.Decimal `json:"rawScore"`
	Threshold decimal.Decimal `json:"threshold"`
}

// BinaryScorer scores 1 when the weighted sum reaches the threshold, else 0
type BinaryScorer struct{}

func (BinaryScorer) Score(ruleset core.Ruleset, stamps []core.Stamp) (Result, error) {
	raw := weightedSum(ruleset, stamps)
	success := raw.GreaterThanOrEqual(ruleset.Threshold)

	evidence, err := json.Marshal(ThresholdEvidence{
		Type:      "ThresholdScoreCheck",
		Success:   success,
		RawScore:  raw,
		Threshold: ruleset.Threshold,
	})
	if err != nil {
		return Result{}, fmt.Errorf("failed to marshal evidence: %w", err)
	}

	value := decimal.Zero
	if success {
		value = decimal.NewFromInt(1)
	}
	return Result{Value: value, Evidence: evidence}, nil
}

func weightedSum(ruleset core.Ruleset, stamps []core.Stamp) decimal.Decimal {
	sum := decimal.Zero
	counted := make(map[string]struct{}, len(stamps))
	for _, stamp := range stamps {
		provider := stampProvider(stamp)
		if _, ok := counted[provider]; ok {
			continue
		}
		counted[provider] = struct{}{}
		sum = sum.Add(ruleset.Weights[provider])
	}
	return sum
}
