package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/layer-3/scorer/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PassportService accepts signed passport submissions and serves scores
type PassportService struct {
	verifier    *Verifier
	nonces      ports.NonceStore
	communities ports.CommunityRepository
	passports   ports.PassportRepository
	scores      ports.ScoreRepository
	queue       ports.ScoringQueue
	logger      *slog.Logger

	nonceTTL    time.Duration
	submissions *prometheus.CounterVec
}

// NewPassportService creates a passport service. Nonces handed out by
// SigningMessage live for nonceTTL.
func NewPassportService(
	verifier *Verifier,
	nonces ports.NonceStore,
	communities ports.CommunityRepository,
	passports ports.PassportRepository,
	scores ports.ScoreRepository,
	queue ports.ScoringQueue,
	nonceTTL time.Duration,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) *PassportService {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if nonceTTL <= 0 {
		nonceTTL = 5 * time.Minute
	}
	return &PassportService{
		verifier:    verifier,
		nonces:      nonces,
		communities: communities,
		passports:   passports,
		scores:      scores,
		queue:       queue,
		logger:      logger.With("component", "passport"),
		nonceTTL:    nonceTTL,
		submissions: promauto.With(promRegistry).NewCounterVec(prometheus.CounterOpts{
			Name: "scorer_submissions_total",
			Help: "passport submissions by outcome",
		}, []string{"outcome"}),
	}
}

// SigningMessage issues a nonce and the submission text embedding it
func (s *PassportService) SigningMessage(ctx context.Context) (string, string, error) {
	nonce, err := s.nonces.Issue(ctx, s.nonceTTL)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue nonce: %w", err)
	}
	return SubmissionMessage(nonce.Value), nonce.Value, nil
}

// Submit verifies a signed submission, resets the score to a PROCESSING
// placeholder owned by a fresh submission and enqueues scoring. A newer
// submission for the same pair supersedes any job still in flight.
// A nil account skips the community ownership check.
func (s *PassportService) Submit(ctx context.Context, account *core.Account, communityID uint, address, signature, nonce string) (*core.Score, error) {
	if _, err := s.community(ctx, account, communityID); err != nil {
		s.submissions.WithLabelValues("unknown_community").Inc()
		return nil, err
	}

	holder, err := s.verifier.VerifySubmission(ctx, address, nonce, signature)
	if err != nil {
		s.submissions.WithLabelValues("unauthorized").Inc()
		return nil, err
	}

	if _, err := s.passports.UpsertPassport(ctx, communityID, holder); err != nil {
		s.submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to store passport: %w", err)
	}

	submissionID := uuid.New().String()
	score, err := s.scores.ResetScore(ctx, communityID, holder, submissionID)
	if err != nil {
		s.submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to reset score: %w", err)
	}

	job := core.ScoringJob{CommunityID: communityID, Address: holder, SubmissionID: submissionID}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		// Nothing will ever finish this submission, so close it out
		detail := "failed to schedule scoring"
		if _, ferr := s.scores.FinishScore(ctx, &core.Score{
			CommunityID:  communityID,
			Address:      holder,
			Status:       core.ScoreStatusError,
			Error:        &detail,
			SubmissionID: submissionID,
		}); ferr != nil {
			s.logger.Error("failed to record enqueue failure", "error", ferr)
		}
		s.submissions.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to enqueue scoring job: %w", err)
	}

	s.submissions.WithLabelValues("accepted").Inc()
	s.logger.Info(
		"passport submitted",
		"community_id", communityID,
		"address", holder,
		"submission_id", submissionID,
	)
	return score, nil
}

// GetScore returns the current score of address in a community
func (s *PassportService) GetScore(ctx context.Context, account *core.Account, communityID uint, address string) (*core.Score, error) {
	if _, err := s.community(ctx, account, communityID); err != nil {
		return nil, err
	}
	holder, err := eth.NormalizeAddress(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	return s.scores.GetScore(ctx, communityID, holder)
}

func (s *PassportService) community(ctx context.Context, account *core.Account, communityID uint) (*core.Community, error) {
	community, err := s.communities.GetCommunity(ctx, communityID)
	if err != nil {
		if errors.Is(err, core.ErrUnknownCommunity) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to load community: %w", err)
	}
	// Other accounts' communities are indistinguishable from missing ones
	if account != nil && community.AccountID != account.ID {
		return nil, core.ErrUnknownCommunity
	}
	return community, nil
}
