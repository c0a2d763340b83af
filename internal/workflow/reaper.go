package workflow

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/verifyengine/core/domain/verification"
	"github.com/verifyengine/core/infrastructure/logging"
)

// Reaper periodically sweeps verifications stuck in StatusProcessing past a
// staleness threshold and marks them failed, per spec.md §5's note that an
// aborted or crashed mid-flight job is otherwise left processing forever:
// "a periodic reaper (not in core) may move it to failed." Supplemented here
// on a robfig/cron schedule since the engine's own retry loop has no notion
// of wall-clock staleness, only queue attempt counts.
type Reaper struct {
	store       verification.Store
	logger      *logging.Logger
	staleAfter  time.Duration
	cron        *cron.Cron
}

// NewReaper builds a Reaper that marks any verification still StatusProcessing
// staleAfter after its last update as failed, run on the given cron schedule
// (e.g. "@every 5m").
func NewReaper(store verification.Store, logger *logging.Logger, staleAfter time.Duration, schedule string) (*Reaper, error) {
	r := &Reaper{store: store, logger: logger, staleAfter: staleAfter, cron: cron.New()}
	if _, err := r.cron.AddFunc(schedule, r.sweepOnce); err != nil {
		return nil, err
	}
	return r, nil
}

// Start begins the cron schedule; cancelling ctx stops it.
func (r *Reaper) Start(ctx context.Context) {
	r.cron.Start()
	go func() {
		<-ctx.Done()
		r.cron.Stop()
	}()
}

func (r *Reaper) sweepOnce() {
	ctx := context.Background()
	cutoff := time.Now().UTC()

	for _, subject := range []verification.Subject{verification.SubjectIndividual, verification.SubjectBusiness} {
		rows, err := r.store.ListVerifications(ctx, verification.ListFilter{
			Subject: subject,
			Status:  verification.StatusProcessing,
		}, &cutoff, "", 500)
		if err != nil {
			r.logger.Error(ctx, "reaper: list stale verifications failed", err, map[string]interface{}{"subject": string(subject)})
			continue
		}

		for _, v := range rows {
			if time.Since(v.UpdatedAt) < r.staleAfter {
				continue
			}
			if err := r.store.Fail(ctx, v.ID, "reaped: exceeded processing staleness threshold"); err != nil {
				r.logger.Error(ctx, "reaper: mark failed failed", err, map[string]interface{}{"verification_id": v.ID})
				continue
			}
			r.logger.Warn(ctx, "reaper: marked stale verification failed", map[string]interface{}{
				"verification_id": v.ID, "subject": string(subject), "stale_for": time.Since(v.UpdatedAt).String(),
			})
		}
	}
}
