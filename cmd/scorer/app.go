package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gin-gonic/gin"
	"github.com/layer-3/scorer/adapters/database"
	"github.com/layer-3/scorer/adapters/passport"
	"github.com/layer-3/scorer/adapters/queue"
	"github.com/layer-3/scorer/adapters/store"
	"github.com/layer-3/scorer/adapters/tokenizer"
	"github.com/layer-3/scorer/internal/config"
	"github.com/layer-3/scorer/ports"
	"github.com/layer-3/scorer/scoring"
	"github.com/layer-3/scorer/service"
	transport "github.com/layer-3/scorer/transport/http"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
)

// app holds the infrastructure shared by the serve and worker commands
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry

	redis      *redis.Client // nil when running on in-process stores
	db         *database.Database
	tokens     ports.TokenStore
	nonces     ports.NonceStore
	publisher  message.Publisher
	subscriber message.Subscriber

	closers []func() error
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := database.New(cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	wmLogger := watermill.NewSlogLogger(logger.With("component", "watermill"))

	if cfg.RedisURL == "" {
		logger.Warn("REDIS_URL not set, nonces, revocations and jobs stay in process")
		memStore := store.NewMemoryStore()
		a.tokens, a.nonces = memStore, memStore

		pubsub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 256}, wmLogger)
		a.publisher, a.subscriber = pubsub, pubsub
		a.closers = append(a.closers, pubsub.Close)
		return a, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	a.redis = redis.NewClient(opts)
	a.closers = append(a.closers, a.redis.Close)

	redisStore := store.NewRedisStore(a.redis)
	a.tokens, a.nonces = redisStore, redisStore

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: a.redis}, wmLogger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating redis publisher: %w", err)
	}
	a.publisher = publisher
	a.closers = append(a.closers, publisher.Close)

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        a.redis,
		ConsumerGroup: cfg.Scoring.ConsumerGroup,
	}, wmLogger)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("creating redis subscriber: %w", err)
	}
	a.subscriber = subscriber
	a.closers = append(a.closers, subscriber.Close)

	return a, nil
}

// Close releases resources in reverse order of acquisition
func (a *app) Close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	if err := errors.Join(errs...); err != nil {
		a.logger.Error("shutdown", "error", err)
	}
}

func (a *app) worker() (*queue.Worker, error) {
	var fetcher ports.PassportFetcher
	if a.cfg.Passport.SourceURL != "" {
		fetcher = passport.NewHTTPFetcher(a.cfg.Passport.SourceURL, a.cfg.Passport.FetchTimeout, a.logger)
	} else {
		a.logger.Warn("PASSPORT_SOURCE_URL not set, every passport will be reported missing")
		fetcher = passport.NewMemoryFetcher()
	}

	engine := scoring.NewEngine(scoring.EngineConfig{
		Communities:  a.db,
		Passports:    a.db,
		Scores:       a.db,
		Ledger:       a.db,
		Fetcher:      fetcher,
		Validator:    scoring.NewValidator(a.cfg.Scoring.TrustedIssuers),
		Logger:       a.logger,
		PromRegistry: a.registry,
	})
	return queue.NewWorker(a.subscriber, engine.Run, a.logger)
}

func (a *app) router() (*gin.Engine, error) {
	key, err := tokenizer.LoadSigningKey(a.cfg.Auth.SigningKey)
	if err != nil {
		return nil, fmt.Errorf("loading signing key: %w", err)
	}
	if a.cfg.Auth.SigningKey == "" {
		a.logger.Warn("SIGNING_KEY not set, sessions will not survive a restart")
	}
	tok := tokenizer.NewJWTTokenizer(key)

	ruleset, err := config.LoadRuleset(a.cfg.Scoring.RulesetFile, a.cfg.Scoring.TrustedIssuers)
	if err != nil {
		return nil, err
	}

	verifier := service.NewVerifier(a.nonces, service.VerifierConfig{
		Domain:    a.cfg.Auth.SIWEDomain,
		ClockSkew: a.cfg.Auth.ClockSkew,
		MaxAge:    a.cfg.Auth.MessageMaxAge,
	})
	auth := service.NewAuthService(tok, a.tokens, a.nonces, verifier, a.db, service.AuthConfig{
		ChallengeTTL: a.cfg.Auth.ChallengeTTL,
		AccessTTL:    a.cfg.Auth.AccessTTL,
		RefreshTTL:   a.cfg.Auth.RefreshTTL,
	}, a.logger)
	passports := service.NewPassportService(
		verifier,
		a.nonces,
		a.db,
		a.db,
		a.db,
		queue.NewWatermillQueue(a.publisher),
		a.cfg.Auth.ChallengeTTL,
		a.logger,
		a.registry,
	)
	accounts := service.NewAccountService(a.db, a.db, ruleset)

	if a.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	routerCfg := transport.RouterConfig{
		Auth:      auth,
		Passports: passports,
		Accounts:  accounts,
		Keys:      tok,
		Logger:    a.logger,
	}
	// Metrics go on the API port unless they have their own
	if a.cfg.HTTP.MetricsAddr == "" {
		routerCfg.Gatherer = a.registry
	}
	return transport.SetupRouter(routerCfg), nil
}
