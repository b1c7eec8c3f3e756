package scoring

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Engine executes scoring jobs. Each run ends in exactly one attempt to
// move the score from PROCESSING to DONE or ERROR; results of superseded
// submissions are discarded by the score repository.
type Engine struct {
	communities ports.CommunityRepository
	passports   ports.PassportRepository
	scores      ports.ScoreRepository
	ledger      ports.HashLedger
	fetcher     ports.PassportFetcher
	validator   *Validator
	logger      *slog.Logger
	metrics     engineMetrics
	now         func() time.Time
}

// EngineConfig holds the collaborators of an Engine
type EngineConfig struct {
	Communities  ports.CommunityRepository
	Passports    ports.PassportRepository
	Scores       ports.ScoreRepository
	Ledger       ports.HashLedger
	Fetcher      ports.PassportFetcher
	Validator    *Validator
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
}

func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	validator := cfg.Validator
	if validator == nil {
		validator = NewValidator(nil)
	}
	e := &Engine{
		communities: cfg.Communities,
		passports:   cfg.Passports,
		scores:      cfg.Scores,
		ledger:      cfg.Ledger,
		fetcher:     cfg.Fetcher,
		validator:   validator,
		logger:      logger.With("component", "scoring"),
		now:         time.Now,
	}
	e.metrics.init(cfg.PromRegistry)
	return e
}

// Run scores job and records the outcome. A job without a submission id
// applies to whatever submission currently owns the score. The returned
// error wraps core.ErrScoringFailure when the score was moved to ERROR.
func (e *Engine) Run(ctx context.Context, job core.ScoringJob) error {
	start := e.now()
	defer func() {
		e.metrics.scoringDuration.Observe(e.now().Sub(start).Seconds())
	}()

	if job.SubmissionID == "" {
		current, err := e.scores.GetScore(ctx, job.CommunityID, job.Address)
		if err != nil {
			return fmt.Errorf("failed to load score: %w", err)
		}
		job.SubmissionID = current.SubmissionID
	}

	logger := e.logger.With(
		"community_id", job.CommunityID,
		"address", job.Address,
		"submission_id", job.SubmissionID,
	)

	result, scoreErr := e.compute(ctx, logger, job)

	score := &core.Score{
		CommunityID:  job.CommunityID,
		Address:      job.Address,
		SubmissionID: job.SubmissionID,
	}
	if scoreErr != nil {
		detail := scoreErr.Error()
		score.Status = core.ScoreStatusError
		score.Error = &detail
	} else {
		finished := e.now()
		score.Status = core.ScoreStatusDone
		score.Value = decimal.NewNullDecimal(result.Value)
		score.Evidence = result.Evidence
		score.LastScoreTimestamp = &finished
	}

	written, err := e.scores.FinishScore(ctx, score)
	if err != nil {
		return fmt.Errorf("failed to store score: %w", err)
	}
	if !written {
		e.metrics.resultsSuperseded.Inc()
		logger.Info("dropping result of superseded submission")
		return nil
	}

	e.metrics.scoresCompleted.WithLabelValues(string(score.Status)).Inc()
	if scoreErr != nil {
		logger.Warn("scoring failed", "error", scoreErr)
		return fmt.Errorf("%w: %w", core.ErrScoringFailure, scoreErr)
	}
	logger.Info("scored passport", "score", result.Value.StringFixed(9))
	return nil
}

func (e *Engine) compute(ctx context.Context, logger *slog.Logger, job core.ScoringJob) (Result, error) {
	community, err := e.communities.GetCommunity(ctx, job.CommunityID)
	if err != nil {
		return Result{}, err
	}

	data, err := e.fetcher.FetchPassport(ctx, job.Address)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return Result{}, fmt.Errorf("no passport found for this address")
		}
		return Result{}, fmt.Errorf("failed to fetch passport: %w", err)
	}

	ruleset := community.Ruleset
	results := e.validator.ValidateAll(job.Address, data.Stamps, ruleset.TrustedIssuers)
	valid := make([]core.Stamp, 0, len(results))
	for i, r := range results {
		if !r.Valid {
			e.metrics.credentialsRejected.Inc()
			logger.Debug(
				"dropping invalid credential",
				"index", i,
				"provider", stampProvider(r.Stamp),
				"error", r.Err(),
			)
			continue
		}
		valid = append(valid, r.Stamp)
	}

	if err := e.passports.SaveStamps(ctx, job.CommunityID, job.Address, valid); err != nil {
		return Result{}, fmt.Errorf("failed to save stamps: %w", err)
	}

	strategy, err := StrategyFor(ruleset.Dedup)
	if err != nil {
		return Result{}, err
	}
	kept, dropped, err := strategy.Apply(ctx, e.ledger, community, job.Address, valid, e.now())
	if err != nil {
		return Result{}, err
	}
	if len(dropped) > 0 {
		e.metrics.credentialsDeduplicated.Add(float64(len(dropped)))
		logger.Debug("credentials claimed by other addresses", "count", len(dropped), "strategy", strategy.Name())
	}

	scorer, err := ScorerFor(ruleset.Scorer)
	if err != nil {
		return Result{}, err
	}
	return scorer.Score(ruleset, kept)
}
