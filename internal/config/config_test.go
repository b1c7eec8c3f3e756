package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.True(t, cfg.IsDevelopment())
	assert.Equal(t, ":9000", cfg.HTTP.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Auth.ChallengeTTL)
	assert.Equal(t, 120*time.Hour, cfg.Auth.RefreshTTL)
	assert.Equal(t, "scorer", cfg.Scoring.ConsumerGroup)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCORER_ENV", "prod")
	t.Setenv("REDIS_URL", "redis://localhost:6379/1")
	t.Setenv("CHALLENGE_TTL", "30s")
	t.Setenv("TRUSTED_ISSUERS", "did:ethr:0x1,did:ethr:0x2")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.True(t, cfg.IsProduction())
	assert.Equal(t, "redis://localhost:6379/1", cfg.RedisURL)
	assert.Equal(t, 30*time.Second, cfg.Auth.ChallengeTTL)
	assert.Equal(t, []string{"did:ethr:0x1", "did:ethr:0x2"}, cfg.Scoring.TrustedIssuers)
}

func TestLoadRuleset(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		ruleset, err := LoadRuleset("", []string{"did:ethr:0xabc"})
		require.NoError(t, err)
		assert.Equal(t, core.ScorerWeighted, ruleset.Scorer)
		assert.Equal(t, core.DedupFirstClaimWins, ruleset.Dedup)
		assert.Equal(t, []string{"did:ethr:0xabc"}, ruleset.TrustedIssuers)
	})

	t.Run("yaml overrides", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ruleset.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
scorer: WEIGHTED_BINARY
threshold: "15.5"
dedup: last-claim-wins
dedupTTL: 720h
weights:
  Google: "1234"
  Ens: "1000000"
`), 0o600))

		ruleset, err := LoadRuleset(path, nil)
		require.NoError(t, err)
		assert.Equal(t, core.ScorerWeightedBinary, ruleset.Scorer)
		assert.True(t, decimal.RequireFromString("15.5").Equal(ruleset.Threshold))
		assert.Equal(t, core.DedupLastClaimWins, ruleset.Dedup)
		assert.Equal(t, 720*time.Hour, ruleset.DedupTTL)
		require.Len(t, ruleset.Weights, 2)
		assert.True(t, decimal.NewFromInt(1000000).Equal(ruleset.Weights["Ens"]))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRuleset(filepath.Join(t.TempDir(), "nope.yaml"), nil)
		assert.Error(t, err)
	})
}
