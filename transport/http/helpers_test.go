package http

import (
	"context"
	"crypto/ecdsa"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/layer-3/scorer"
	"github.com/layer-3/scorer/adapters/database"
	"github.com/layer-3/scorer/adapters/passport"
	"github.com/layer-3/scorer/adapters/queue"
	"github.com/layer-3/scorer/adapters/store"
	"github.com/layer-3/scorer/adapters/tokenizer"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/config"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/layer-3/scorer/scoring"
	"github.com/layer-3/scorer/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const testDomain = "scorer.example.org"

func init() {
	gin.SetMode(gin.TestMode)
	binding.EnableDecoderDisallowUnknownFields = true
}

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

func (w wallet) did() string {
	return eth.DIDForAddress(crypto.PubkeyToAddress(w.key.PublicKey))
}

// stamp issues a credential signed by w for holder
func (w wallet) stamp(t *testing.T, holder, provider, hash string) core.Stamp {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Second)
	signed, err := scoring.SignCredential(core.Credential{
		Type:           []string{"VerifiableCredential"},
		IssuanceDate:   now.Add(-time.Hour),
		ExpirationDate: now.Add(24 * time.Hour),
		CredentialSubject: core.CredentialSubject{
			ID:       "did:pkh:eip155:1:" + strings.ToLower(holder),
			Provider: provider,
			Hash:     hash,
		},
	}, w.key, now)
	require.NoError(t, err)
	return core.Stamp{Provider: provider, Credential: signed}
}

type server struct {
	srv      *httptest.Server
	client   *scorer.HTTPClient
	fetcher  *passport.MemoryFetcher
	db       *database.Database
	registry *prometheus.Registry
}

// newServer runs the full stack in process: sqlite in memory, memory
// nonces, a gochannel queue and the scoring worker
func newServer(t *testing.T) *server {
	t.Helper()
	db, err := database.New("", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	key, err := tokenizer.LoadSigningKey("")
	require.NoError(t, err)
	tok := tokenizer.NewJWTTokenizer(key)
	memStore := store.NewMemoryStore()
	registry := prometheus.NewRegistry()

	pubsub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	t.Cleanup(func() { _ = pubsub.Close() })

	verifier := service.NewVerifier(memStore, service.VerifierConfig{Domain: testDomain})
	auth := service.NewAuthService(tok, memStore, memStore, verifier, db, service.AuthConfig{}, nil)
	passports := service.NewPassportService(verifier, memStore, db, db, db, queue.NewWatermillQueue(pubsub), time.Minute, nil, registry)
	accounts := service.NewAccountService(db, db, config.DefaultRuleset())

	fetcher := passport.NewMemoryFetcher()
	engine := scoring.NewEngine(scoring.EngineConfig{
		Communities:  db,
		Passports:    db,
		Scores:       db,
		Ledger:       db,
		Fetcher:      fetcher,
		PromRegistry: registry,
	})
	startWorker(t, pubsub, engine.Run)

	router := SetupRouter(RouterConfig{
		Auth:      auth,
		Passports: passports,
		Accounts:  accounts,
		Keys:      tok,
		Gatherer:  registry,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	return &server{
		srv:      srv,
		client:   scorer.NewClient(srv.URL, srv.Client()),
		fetcher:  fetcher,
		db:       db,
		registry: registry,
	}
}

func startWorker(t *testing.T, pubsub *gochannel.GoChannel, handle queue.JobHandler) {
	t.Helper()
	worker, err := queue.NewWorker(pubsub, handle, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = worker.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = worker.Close()
		<-done
	})

	select {
	case <-worker.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not start")
	}
}

func signInMessage(w wallet, nonce string) scorer.SignInMessage {
	return scorer.SignInMessage{
		Domain:    testDomain,
		Address:   w.address,
		Statement: "Sign in to the scorer.",
		URI:       "https://" + testDomain,
		Version:   eth.SIWEVersion,
		ChainID:   1,
		Nonce:     nonce,
		IssuedAt:  time.Now().UTC().Format(time.RFC3339),
	}
}

// signIn runs challenge and verify for w
func (s *server) signIn(t *testing.T, w wallet) scorer.TokenPair {
	t.Helper()
	ctx := context.Background()
	nonce, err := s.client.Challenge(ctx, w.address)
	require.NoError(t, err)

	msg := signInMessage(w, nonce)
	tokens, err := s.client.Verify(ctx, msg, w.sign(t, msg.String()))
	require.NoError(t, err)
	return tokens
}

// developer signs in a fresh wallet and returns its access token and an API key
func (s *server) developer(t *testing.T) (scorer.TokenPair, string) {
	t.Helper()
	tokens := s.signIn(t, newWallet(t))
	key, err := s.client.CreateAPIKey(context.Background(), tokens.Access, "test")
	require.NoError(t, err)
	return tokens, key.Key
}

// submit signs the submission message with holder and posts it
func (s *server) submit(t *testing.T, apiKey string, community uint, holder wallet) (*scorer.ScoreResponse, error) {
	t.Helper()
	ctx := context.Background()
	msg, err := s.client.SigningMessage(ctx)
	require.NoError(t, err)
	return s.client.SubmitPassport(ctx, apiKey, scorer.SubmitPassportRequest{
		Community: community,
		Address:   holder.address,
		Signature: holder.sign(t, msg.Message),
		Nonce:     msg.Nonce,
	})
}
