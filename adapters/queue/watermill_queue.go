package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/ports"
)

// TopicScorePassport carries one ScoringJob per message
const TopicScorePassport = "scorer.score_passport"

// WatermillQueue implements the ScoringQueue interface using Watermill
type WatermillQueue struct {
	publisher message.Publisher
	topic     string
}

var _ ports.ScoringQueue = (*WatermillQueue)(nil)

// NewWatermillQueue creates a new Watermill backed scoring queue
func NewWatermillQueue(publisher message.Publisher) *WatermillQueue {
	return &WatermillQueue{
		publisher: publisher,
		topic:     TopicScorePassport,
	}
}

// Enqueue publishes a scoring job
func (q *WatermillQueue) Enqueue(ctx context.Context, job core.ScoringJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	msg := message.NewMessage(job.SubmissionID, payload)

	if err := q.publisher.Publish(q.topic, msg); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}

	return nil
}

// JobHandler processes a single scoring job
type JobHandler func(ctx context.Context, job core.ScoringJob) error

// Worker consumes scoring jobs from a subscriber and hands them to a JobHandler
type Worker struct {
	router *message.Router
	logger *slog.Logger
}

// NewWorker wires handle to the scoring topic of subscriber. Messages are
// always acknowledged: failures are recorded on the score by the handler,
// and redelivering a malformed payload would never succeed.
func NewWorker(subscriber message.Subscriber, handle JobHandler, logger *slog.Logger) (*Worker, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	logger = logger.With("component", "worker")

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create router: %w", err)
	}

	w := &Worker{router: router, logger: logger}
	router.AddNoPublisherHandler(
		"score_passport",
		TopicScorePassport,
		subscriber,
		func(msg *message.Message) error {
			var job core.ScoringJob
			if err := json.Unmarshal(msg.Payload, &job); err != nil {
				w.logger.Error("dropping malformed scoring job", "uuid", msg.UUID, "error", err)
				return nil
			}
			if err := handle(msg.Context(), job); err != nil {
				w.logger.Error(
					"scoring job failed",
					"community_id", job.CommunityID,
					"address", job.Address,
					"submission_id", job.SubmissionID,
					"error", err,
				)
			}
			return nil
		},
	)
	return w, nil
}

// Run blocks until ctx is cancelled or the worker is closed
func (w *Worker) Run(ctx context.Context) error {
	return w.router.Run(ctx)
}

// Running is closed once the worker is subscribed and consuming
func (w *Worker) Running() chan struct{} {
	return w.router.Running()
}

// Close stops consuming and waits for in-flight jobs
func (w *Worker) Close() error {
	return w.router.Close()
}
