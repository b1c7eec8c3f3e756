package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/config"
	"github.com/layer-3/scorer/ports"
	"github.com/layer-3/scorer/scoring"
)

// apiKeyPrefixLen is how much of a key is kept in clear to identify it
const apiKeyPrefixLen = 8

// AccountService manages the communities and API keys of signed-in accounts
type AccountService struct {
	accounts       ports.AccountRepository
	communities    ports.CommunityRepository
	defaultRuleset core.Ruleset
}

func NewAccountService(accounts ports.AccountRepository, communities ports.CommunityRepository, defaultRuleset core.Ruleset) *AccountService {
	return &AccountService{
		accounts:       accounts,
		communities:    communities,
		defaultRuleset: defaultRuleset,
	}
}

// Me returns the account of a signed-in address
func (s *AccountService) Me(ctx context.Context, address string) (*core.Account, error) {
	return s.accounts.GetAccount(ctx, address)
}

// CreateCommunity creates a community owned by address. Ruleset fields left
// unset are taken from the default ruleset.
func (s *AccountService) CreateCommunity(ctx context.Context, address, name, description string, ruleset *core.Ruleset) (*core.Community, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", core.ErrInvalidInput)
	}
	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}

	effective := s.defaultRuleset
	if ruleset != nil {
		effective = config.MergeRuleset(effective, *ruleset)
	}
	if err := validateRuleset(effective); err != nil {
		return nil, err
	}

	community := &core.Community{
		AccountID:   account.ID,
		Name:        name,
		Description: description,
		Ruleset:     effective,
	}
	if err := s.communities.CreateCommunity(ctx, community); err != nil {
		return nil, err
	}
	return community, nil
}

func (s *AccountService) ListCommunities(ctx context.Context, address string) ([]core.Community, error) {
	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.communities.ListCommunities(ctx, account.ID)
}

// CreateAPIKey issues a key for address. The returned secret is not stored
// and cannot be recovered later.
func (s *AccountService) CreateAPIKey(ctx context.Context, address, name string) (*core.APIKey, string, error) {
	account, err := s.accounts.GetAccount(ctx, address)
	if err != nil {
		return nil, "", err
	}

	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return nil, "", fmt.Errorf("failed to generate api key: %w", err)
	}
	secret := hex.EncodeToString(buf)

	key := &core.APIKey{
		ID:        uuid.New().String(),
		AccountID: account.ID,
		Name:      name,
		Prefix:    secret[:apiKeyPrefixLen],
	}
	if err := s.accounts.CreateAPIKey(ctx, key, hashAPIKey(secret)); err != nil {
		return nil, "", err
	}
	return key, secret, nil
}

// AccountForAPIKey resolves the account behind a raw API key
func (s *AccountService) AccountForAPIKey(ctx context.Context, secret string) (*core.Account, error) {
	if secret == "" {
		return nil, core.ErrUnauthorized
	}
	account, err := s.accounts.AccountForAPIKey(ctx, hashAPIKey(secret))
	if errors.Is(err, core.ErrNotFound) {
		return nil, core.ErrUnauthorized
	}
	return account, err
}

func hashAPIKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

func validateRuleset(r core.Ruleset) error {
	if _, err := scoring.ScorerFor(r.Scorer); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRuleset, err)
	}
	if _, err := scoring.StrategyFor(r.Dedup); err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidRuleset, err)
	}
	for provider, weight := range r.Weights {
		if weight.IsNegative() {
			return fmt.Errorf("%w: negative weight for %s", core.ErrInvalidRuleset, provider)
		}
	}
	return nil
}
