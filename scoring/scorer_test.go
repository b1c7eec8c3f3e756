package scoring

import (
	"encoding/json"
	"testing"

	"github.com/layer-3/scorer/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stampsFor(providers ...string) []core.Stamp {
	stamps := make([]core.Stamp, 0, len(providers))
	for _, p := range providers {
		stamps = append(stamps, core.Stamp{Provider: p})
	}
	return stamps
}

func TestWeightedScorer(t *testing.T) {
	ruleset := core.Ruleset{Weights: map[string]decimal.Decimal{
		"Google": decimal.RequireFromString("2.25"),
		"Ens":    decimal.RequireFromString("2.2"),
	}}

	tests := []struct {
		name   string
		stamps []core.Stamp
		want   string
	}{
		{"empty", nil, "0.000000000"},
		{"single", stampsFor("Google"), "2.250000000"},
		{"sum", stampsFor("Google", "Ens"), "4.450000000"},
		{"duplicate provider counts once", stampsFor("Google", "Google"), "2.250000000"},
		{"unweighted provider adds nothing", stampsFor("Google", "Poap"), "2.250000000"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result, err := WeightedScorer{}.Score(ruleset, tc.stamps)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Value.StringFixed(9))
			assert.Nil(t, result.Evidence)
		})
	}
}

func TestBinaryScorer(t *testing.T) {
	ruleset := core.Ruleset{
		Weights: map[string]decimal.Decimal{
			"Google": decimal.NewFromInt(10),
			"Ens":    decimal.NewFromInt(10),
		},
		Threshold: decimal.NewFromInt(20),
	}

	result, err := BinaryScorer{}.Score(ruleset, stampsFor("Google", "Ens"))
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(1).Equal(result.Value))
	assert.JSONEq(t, `{"type":"ThresholdScoreCheck","success":true,"rawScore":"20","threshold":"20"}`, string(result.Evidence))

	result, err = BinaryScorer{}.Score(ruleset, stampsFor("Google"))
	require.NoError(t, err)
	assert.True(t, result.Value.IsZero())
	var evidence map[string]any
	require.NoError(t, json.Unmarshal(result.Evidence, &evidence))
	assert.Equal(t, false, evidence["success"])
}

func TestScorerFor(t *testing.T) {
	s, err := ScorerFor("")
	require.NoError(t, err)
	assert.IsType(t, WeightedScorer{}, s)

	s, err = ScorerFor(core.ScorerWeightedBinary)
	require.NoError(t, err)
	assert.IsType(t, BinaryScorer{}, s)

	_, err = ScorerFor("RANDOM")
	assert.Error(t, err)
}

func TestStrategyRegistry(t *testing.T) {
	assert.Equal(t, []string{core.DedupFirstClaimWins, core.DedupLastClaimWins}, StrategyNames())

	s, err := StrategyFor("")
	require.NoError(t, err)
	assert.Equal(t, core.DedupFirstClaimWins, s.Name())

	_, err = StrategyFor("nope")
	assert.Error(t, err)
}

func TestDedupKey(t *testing.T) {
	a := core.Credential{Issuer: "did:pkh:eip155:1:0xABC", CredentialSubject: core.CredentialSubject{Provider: "Google", Hash: "h"}}
	b := a
	b.Issuer = "did:pkh:eip155:1:0xabc"
	b.CredentialSubject.ID = "did:pkh:eip155:1:0xother"
	assert.Equal(t, DedupKey(a), DedupKey(b))

	c := a
	c.CredentialSubject.Hash = "other"
	assert.NotEqual(t, DedupKey(a), DedupKey(c))

	// without a hash the key is the issuer and provider alone
	d, e := a, a
	d.CredentialSubject.Hash, e.CredentialSubject.Hash = "", ""
	e.CredentialSubject.ID = "did:pkh:eip155:1:0xsomeoneelse"
	assert.Equal(t, "did:pkh:eip155:1:0xabc|Google|", DedupKey(d))
	assert.Equal(t, DedupKey(d), DedupKey(e))
}
