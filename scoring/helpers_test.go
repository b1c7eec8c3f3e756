package scoring

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/scorer/adapters/database"
	"github.com/layer-3/scorer/adapters/passport"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type testIssuer struct {
	key *ecdsa.PrivateKey
	did string
}

func newTestIssuer(t *testing.T) testIssuer {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return testIssuer{key: key, did: eth.DIDForAddress(crypto.PubkeyToAddress(key.PublicKey))}
}

func newTestHolder(t *testing.T) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return strings.ToLower(crypto.PubkeyToAddress(key.PublicKey).Hex())
}

func (i testIssuer) stamp(t *testing.T, holder, provider, hash string) core.Stamp {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	cred := core.Credential{
		Context:        []string{"https://www.w3.org/2018/credentials/v1"},
		Type:           []string{"VerifiableCredential"},
		IssuanceDate:   now.Add(-time.Hour),
		ExpirationDate: now.Add(30 * 24 * time.Hour),
		CredentialSubject: core.CredentialSubject{
			ID:       "did:pkh:eip155:1:" + holder,
			Provider: provider,
			Hash:     hash,
		},
	}
	signed, err := SignCredential(cred, i.key, now)
	require.NoError(t, err)
	return core.Stamp{Provider: provider, Credential: signed}
}

// testRuleset reproduces the weights behind the documented 1001234 example
func testRuleset(issuer testIssuer) core.Ruleset {
	return core.Ruleset{
		Scorer: core.ScorerWeighted,
		Weights: map[string]decimal.Decimal{
			"Google": decimal.NewFromInt(1234),
			"Ens":    decimal.NewFromInt(1000000),
		},
		Threshold:      decimal.NewFromInt(20),
		TrustedIssuers: []string{issuer.did},
		Dedup:          core.DedupFirstClaimWins,
		DedupTTL:       time.Hour,
	}
}

type engineFixture struct {
	db        *database.Database
	fetcher   *passport.MemoryFetcher
	engine    *Engine
	issuer    testIssuer
	community *core.Community
}

func newEngineFixture(t *testing.T, mutate func(*core.Ruleset)) *engineFixture {
	t.Helper()
	db, err := database.New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	issuer := newTestIssuer(t)
	ruleset := testRuleset(issuer)
	if mutate != nil {
		mutate(&ruleset)
	}
	community := &core.Community{AccountID: 1, Name: "community_with_gitcoin_default", Ruleset: ruleset}
	require.NoError(t, db.CreateCommunity(context.Background(), community))

	fetcher := passport.NewMemoryFetcher()
	engine := NewEngine(EngineConfig{
		Communities: db,
		Passports:   db,
		Scores:      db,
		Ledger:      db,
		Fetcher:     fetcher,
	})

	return &engineFixture{
		db:        db,
		fetcher:   fetcher,
		engine:    engine,
		issuer:    issuer,
		community: community,
	}
}

// submit mirrors what passport ingest does before enqueueing a job
func (f *engineFixture) submit(t *testing.T, address, submissionID string) core.ScoringJob {
	t.Helper()
	ctx := context.Background()
	_, err := f.db.UpsertPassport(ctx, f.community.ID, address)
	require.NoError(t, err)
	_, err = f.db.ResetScore(ctx, f.community.ID, address, submissionID)
	require.NoError(t, err)
	return core.ScoringJob{CommunityID: f.community.ID, Address: address, SubmissionID: submissionID}
}

func (f *engineFixture) score(t *testing.T, address string) *core.Score {
	t.Helper()
	score, err := f.db.GetScore(context.Background(), f.community.ID, address)
	require.NoError(t, err)
	return score
}
