// Package downloads drains the download event queue into the catalog
// counters and the analytics topic.
package downloads

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"draftkeeper/internal/metrics"
	"draftkeeper/internal/model"
	"draftkeeper/internal/pgmq"
	"draftkeeper/internal/repository"

	"github.com/rs/zerolog"
)

type Queue interface {
	ReadWithPoll(ctx context.Context, queue string, visibilitySec, maxMessages, pollSec int) ([]*pgmq.Message, error)
	Delete(ctx context.Context, queue string, msgIDs []int64) error
	Archive(ctx context.Context, queue string, msgID int64) error
}

type DraftCounter interface {
	IncrementDownloadCount(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte, attrs map[string]string) (string, error)
}

type Options struct {
	Queue         string
	Topic         string
	VisibilitySec int
	MaxMessages   int
	PollSec       int
	MaxReads      int
}

// retryDelay is how long Run waits after a failed queue read.
var retryDelay = time.Second

// Run starts the download analytics orchestrator. pub may be nil, in which
// case events only update the counters.
func Run(ctx context.Context, logger zerolog.Logger, queue Queue, drafts DraftCounter, pub Publisher, opts Options) error {
	logger = logger.With().Str("orchestrator", "downloads").Str("queue", opts.Queue).Logger()
	logger.Info().Msg("Starting download orchestrator")
	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("Shutting down download orchestrator")
			return nil
		default:
		}

		msgs, err := queue.ReadWithPoll(ctx, opts.Queue, opts.VisibilitySec, opts.MaxMessages, opts.PollSec)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Error().Err(err).Msg("Error reading download queue")
			select {
			case <-ctx.Done():
			case <-time.After(retryDelay):
			}
			continue
		}

		var done []int64
		for _, msg := range msgs {
			if handle(ctx, logger, queue, drafts, pub, opts, msg) {
				done = append(done, msg.ID)
			}
		}
		// Undeleted messages come back after the visibility timeout and are
		// counted again.
		if err := queue.Delete(ctx, opts.Queue, done); err != nil {
			logger.Error().Err(err).Int("count", len(done)).Msg("Error deleting download messages")
		}
	}
}

// handle processes one message and reports whether it can be deleted.
// Messages it returns false for reappear after the visibility timeout.
func handle(ctx context.Context, logger zerolog.Logger, queue Queue, drafts DraftCounter, pub Publisher, opts Options, msg *pgmq.Message) bool {
	log := logger.With().Int64("msg_id", msg.ID).Int("read_count", msg.ReadCount).Logger()

	var ev model.DownloadEvent
	if err := json.Unmarshal(msg.Data, &ev); err != nil || ev.DraftID == "" {
		log.Error().Err(err).Msg("Malformed download event, archiving")
		archive(ctx, log, queue, opts.Queue, msg.ID, "invalid")
		return false
	}
	if opts.MaxReads > 0 && msg.ReadCount > opts.MaxReads {
		log.Error().Str("download_id", ev.DownloadID).Msg("Download event exceeded max reads, archiving")
		archive(ctx, log, queue, opts.Queue, msg.ID, "dead_lettered")
		return false
	}

	// Publishing first keeps a failed publish from leaving the counter ahead
	// of analytics. Delivery is at least once for both: a retry after a failed
	// increment republishes, and a failed Delete recounts. Analytics consumers
	// dedupe on download_id; the counter is approximate.
	if pub != nil {
		attrs := map[string]string{"event_type": "template_download", "tier": ev.Tier}
		if _, err := pub.Publish(ctx, opts.Topic, msg.Data, attrs); err != nil {
			log.Error().Err(err).Str("download_id", ev.DownloadID).Msg("Failed to publish download event")
			metrics.DownloadEventsProcessed.WithLabelValues("retry").Inc()
			return false
		}
	}

	if err := drafts.IncrementDownloadCount(ctx, ev.DraftID); err != nil {
		if !errors.Is(err, repository.ErrDraftNotFound) {
			log.Error().Err(err).Str("draft_id", ev.DraftID).Msg("Failed to increment download count")
			metrics.DownloadEventsProcessed.WithLabelValues("retry").Inc()
			return false
		}
		log.Warn().Str("draft_id", ev.DraftID).Msg("Draft deleted before its download was counted")
	}

	metrics.DownloadEventsProcessed.WithLabelValues("processed").Inc()
	log.Debug().Str("download_id", ev.DownloadID).Str("draft_id", ev.DraftID).Msg("Download event processed")
	return true
}

func archive(ctx context.Context, log zerolog.Logger, queue Queue, name string, id int64, result string) {
	metrics.DownloadEventsProcessed.WithLabelValues(result).Inc()
	if err := queue.Archive(ctx, name, id); err != nil {
		log.Error().Err(err).Msg("Failed to archive download message")
	}
}
