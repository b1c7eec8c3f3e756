package service

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/scorer/adapters/database"
	"github.com/layer-3/scorer/adapters/store"
	"github.com/layer-3/scorer/adapters/tokenizer"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/config"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/stretchr/testify/require"
)

const testDomain = "app.example.org"

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

func (w wallet) lower() string {
	return strings.ToLower(w.address)
}

func (w wallet) sign(t *testing.T, text string) string {
	t.Helper()
	sig, err := eth.SignText(w.key, []byte(text))
	require.NoError(t, err)
	return hexutil.Encode(sig)
}

func (w wallet) signInMessage(nonce string, issuedAt time.Time) eth.SignInMessage {
	return eth.SignInMessage{
		Domain:    testDomain,
		Address:   w.address,
		Statement: "Sign in to the scorer.",
		URI:       "https://" + testDomain,
		Version:   eth.SIWEVersion,
		ChainID:   1,
		Nonce:     nonce,
		IssuedAt:  issuedAt.UTC().Format(time.RFC3339),
	}
}

type recordingQueue struct {
	mu   sync.Mutex
	jobs []core.ScoringJob
	err  error
}

func (q *recordingQueue) Enqueue(ctx context.Context, job core.ScoringJob) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordingQueue) Jobs() []core.ScoringJob {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]core.ScoringJob(nil), q.jobs...)
}

type fixture struct {
	store     *store.MemoryStore
	db        *database.Database
	tokenizer *tokenizer.JWTTokenizer
	verifier  *Verifier
	queue     *recordingQueue
	auth      *AuthService
	passports *PassportService
	accounts  *AccountService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := database.New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key, err := tokenizer.LoadSigningKey("")
	require.NoError(t, err)
	tok := tokenizer.NewJWTTokenizer(key)

	memStore := store.NewMemoryStore()
	verifier := NewVerifier(memStore, VerifierConfig{Domain: testDomain})
	queue := &recordingQueue{}

	return &fixture{
		store:     memStore,
		db:        db,
		tokenizer: tok,
		verifier:  verifier,
		queue:     queue,
		auth:      NewAuthService(tok, memStore, memStore, verifier, db, AuthConfig{}, nil),
		passports: NewPassportService(verifier, memStore, db, db, db, queue, time.Minute, nil, nil),
		accounts:  NewAccountService(db, db, config.DefaultRuleset()),
	}
}

// community creates a community owned by a freshly signed-in developer
func (f *fixture) community(t *testing.T) (*core.Account, *core.Community) {
	t.Helper()
	ctx := context.Background()
	dev := newWallet(t)
	account, err := f.db.EnsureAccount(ctx, dev.lower())
	require.NoError(t, err)
	community, err := f.accounts.CreateCommunity(ctx, dev.lower(), "community_with_gitcoin_default", "", nil)
	require.NoError(t, err)
	return account, community
}
