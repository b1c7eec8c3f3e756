package ports

import (
	"context"
	"time"

	"github.com/layer-3/scorer/core"
)

// AccountRepository persists sign-in accounts and their API keys
type AccountRepository interface {
	// EnsureAccount returns the account for address, creating it on first use
	EnsureAccount(ctx context.Context, address string) (*core.Account, error)
	GetAccount(ctx context.Context, address string) (*core.Account, error)
	CreateAPIKey(ctx context.Context, key *core.APIKey, hashedKey string) error
	AccountForAPIKey(ctx context.Context, hashedKey string) (*core.Account, error)
}

// CommunityRepository persists scoring communities
type CommunityRepository interface {
	CreateCommunity(ctx context.Context, community *core.Community) error
	GetCommunity(ctx context.Context, id uint) (*core.Community, error)
	ListCommunities(ctx context.Context, accountID uint) ([]core.Community, error)
}

// PassportRepository persists passports, one per (community, address)
type PassportRepository interface {
	UpsertPassport(ctx context.Context, communityID uint, address string) (*core.Passport, error)
	GetPassport(ctx context.Context, communityID uint, address string) (*core.Passport, error)
	SaveStamps(ctx context.Context, communityID uint, address string, stamps []core.Stamp) error
	CountPassports(ctx context.Context, communityID uint) (int64, error)
}

// ScoreRepository persists scores and guards their state machine
type ScoreRepository interface {
	// ResetScore overwrites the score with a PROCESSING placeholder owned by submissionID
	ResetScore(ctx context.Context, communityID uint, address, submissionID string) (*core.Score, error)
	GetScore(ctx context.Context, communityID uint, address string) (*core.Score, error)

	// FinishScore moves a PROCESSING score owned by score.SubmissionID to its
	// terminal state. It reports false when the submission was superseded or
	// the score is already terminal.
	FinishScore(ctx context.Context, score *core.Score) (bool, error)
}

// HashClaim is one deduplication key a submission wants to own
type HashClaim struct {
	Key       string
	ExpiresAt time.Time
}

// HashLedger records which address owns each deduplication key within a community
type HashLedger interface {
	// Claim registers claims for address. Unowned or expired keys are taken;
	// keys owned by another address are taken only when takeOver is set.
	// It returns the owner of every requested key after the claim.
	Claim(ctx context.Context, communityID uint, address string, claims []HashClaim, takeOver bool) (map[string]string, error)
}

// ScoringQueue hands scoring jobs to the asynchronous worker
type ScoringQueue interface {
	Enqueue(ctx context.Context, job core.ScoringJob) error
}

// PassportFetcher loads a holder's credentials from the upstream passport source
type PassportFetcher interface {
	FetchPassport(ctx context.Context, address string) (*core.PassportData, error)
}
