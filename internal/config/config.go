package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Env string `env:"SCORER_ENV,default=dev"`

	HTTP struct {
		Addr        string `env:"HTTP_ADDR,default=:9000"`
		MetricsAddr string `env:"METRICS_ADDR"`
	}

	// Empty RedisURL keeps nonces, revocations and the job queue in process
	RedisURL string `env:"REDIS_URL"`

	// Empty DatabasePath uses an in-memory sqlite database
	DatabasePath string `env:"DATABASE_PATH"`

	Auth struct {
		SigningKey    string        `env:"SIGNING_KEY"`
		SIWEDomain    string        `env:"SIWE_DOMAIN"`
		ChallengeTTL  time.Duration `env:"CHALLENGE_TTL,default=5m"`
		ClockSkew     time.Duration `env:"CLOCK_SKEW,default=1m"`
		MessageMaxAge time.Duration `env:"MESSAGE_MAX_AGE,default=10m"`
		AccessTTL     time.Duration `env:"ACCESS_TTL,default=5m"`
		RefreshTTL    time.Duration `env:"REFRESH_TTL,default=120h"`
	}

	Passport struct {
		SourceURL    string        `env:"PASSPORT_SOURCE_URL"`
		FetchTimeout time.Duration `env:"PASSPORT_FETCH_TIMEOUT,default=10s"`
	}

	Scoring struct {
		RulesetFile    string   `env:"RULESET_FILE"`
		TrustedIssuers []string `env:"TRUSTED_ISSUERS"`
		ConsumerGroup  string   `env:"SCORING_CONSUMER_GROUP,default=scorer"`
	}
}

func Load(ctx context.Context) (*Config, error) {
	config := &Config{}
	if err := envconfig.Process(ctx, config); err != nil {
		return nil, fmt.Errorf("parsing env vars: %w", err)
	}
	return config, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "prod"
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "dev"
}
