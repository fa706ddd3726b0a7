package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/templui/doin/internal/gateway"
)

// MaxSyncAttempts is how often a queued submission is retried before it is
// dropped.
const MaxSyncAttempts = 10

const syncBatch = 50

type SyncResult struct {
	Sent      int
	Dropped   int
	Remaining int
}

// Sync drains the offline queue oldest first. It stops at the first
// submission that still cannot reach the store. Rejected submissions are
// dropped since resending them cannot succeed.
func (s *EventService) Sync(ctx context.Context) (SyncResult, error) {
	var res SyncResult

	pending, err := s.pending.Pending(syncBatch)
	if err != nil {
		return res, err
	}

	for _, p := range pending {
		if ctx.Err() != nil {
			break
		}

		sub, err := p.Submission()
		if err != nil {
			slog.Error("dropping undecodable queued submission", "pending_id", p.ID, "error", err)
			s.drop(p.ID, &res)
			continue
		}

		result, err := s.gw.Submit(ctx, sub)
		if err == nil {
			if err := s.pending.Delete(p.ID); err != nil {
				slog.Warn("failed to remove synced submission", "pending_id", p.ID, "error", err)
			}
			res.Sent++
			slog.Info("queued submission synced", "pending_id", p.ID, "participation_id", result.ID)
			continue
		}

		if errors.Is(err, gateway.ErrInFlight) {
			slog.Debug("submitter is sending live, retrying queued copy later", "pending_id", p.ID)
			continue
		}

		var subErr *gateway.SubmissionError
		retryable := errors.As(err, &subErr) && (subErr.Unreachable() || subErr.Status >= http.StatusInternalServerError)
		if !retryable || p.Attempts+1 >= MaxSyncAttempts {
			slog.Warn("dropping queued submission", "pending_id", p.ID, "attempts", p.Attempts+1, "error", err)
			s.drop(p.ID, &res)
			continue
		}

		if err := s.pending.MarkFailed(p.ID, err.Error()); err != nil {
			slog.Warn("failed to record sync attempt", "pending_id", p.ID, "error", err)
		}
		if subErr.Unreachable() {
			break
		}
	}

	if n, err := s.pending.Count(); err == nil {
		res.Remaining = n
	}
	if res.Sent > 0 || res.Dropped > 0 {
		slog.Info("offline queue synced", "sent", res.Sent, "dropped", res.Dropped, "remaining", res.Remaining)
	}
	return res, nil
}

func (s *EventService) drop(id string, res *SyncResult) {
	if err := s.pending.Delete(id); err != nil {
		slog.Warn("failed to remove queued submission", "pending_id", id, "error", err)
		return
	}
	res.Dropped++
}
