package relay

import (
	"context"
	"time"

	"github.com/cassiomorais/checkout/internal/application/checkout"
	"github.com/cassiomorais/checkout/internal/domain/outbox"
	"github.com/rs/zerolog"
)

// Publisher delivers one outbox entry to the event stream.
type Publisher interface {
	PublishOutboxEntry(ctx context.Context, entry *outbox.Entry) error
}

// Config tunes the relay loop.
type Config struct {
	BatchSize    int
	PollInterval time.Duration
	// Retention is how long published entries are kept before purging.
	// Zero disables purging.
	Retention time.Duration
}

// Result counts what one relay pass did.
type Result struct {
	Published int
	Failed    int
}

// Relay moves pending outbox entries to the event stream. Entries are
// locked for the duration of a pass, so several relays can run at once.
type Relay struct {
	tx        checkout.TransactionManager
	repo      outbox.Repository
	publisher Publisher
	cfg       Config
	logger    zerolog.Logger

	// OnPass is called after every pass.
	OnPass func(Result)
}

func New(tx checkout.TransactionManager, repo outbox.Repository, publisher Publisher, cfg Config, logger zerolog.Logger) *Relay {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Relay{
		tx:        tx,
		repo:      repo,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger.With().Str("component", "outbox-relay").Logger(),
	}
}

// RunOnce publishes one batch. A publish failure marks the entry failed and
// moves on; only storage errors abort the pass.
func (r *Relay) RunOnce(ctx context.Context) (Result, error) {
	var res Result
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		entries, err := r.repo.GetPending(txCtx, r.cfg.BatchSize)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			if err := r.publisher.PublishOutboxEntry(ctx, entry); err != nil {
				r.logger.Error().Err(err).
					Str("outbox_id", entry.ID.String()).
					Str("event_type", entry.EventType).
					Int("retry_count", entry.RetryCount).
					Msg("Failed to publish outbox entry")
				if err := r.repo.MarkFailed(txCtx, entry.ID); err != nil {
					return err
				}
				res.Failed++
				continue
			}
			if err := r.repo.MarkPublished(txCtx, entry.ID); err != nil {
				return err
			}
			res.Published++
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// Purge deletes entries published more than Retention ago.
func (r *Relay) Purge(ctx context.Context, now time.Time) (int64, error) {
	if r.cfg.Retention <= 0 {
		return 0, nil
	}
	return r.repo.DeletePublishedBefore(ctx, now.Add(-r.cfg.Retention))
}

// Run polls until ctx is cancelled. Published entries are purged once an
// hour.
func (r *Relay) Run(ctx context.Context) error {
	poll := time.NewTicker(r.cfg.PollInterval)
	defer poll.Stop()
	purge := time.NewTicker(time.Hour)
	defer purge.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-purge.C:
			n, err := r.Purge(ctx, time.Now())
			if err != nil {
				r.logger.Error().Err(err).Msg("Outbox purge failed")
				continue
			}
			if n > 0 {
				r.logger.Info().Int64("deleted", n).Msg("Purged published outbox entries")
			}
		case <-poll.C:
			res, err := r.RunOnce(ctx)
			if err != nil {
				r.logger.Error().Err(err).Msg("Outbox relay pass failed")
				continue
			}
			if r.OnPass != nil {
				r.OnPass(res)
			}
		}
	}
}
