// Package retention deletes expired rows. Chat turns and usage logs
// age out on independent horizons; leads are never touched.
package retention

import (
	"context"
	"log"
	"time"

	"github.com/nexus-rag/nexus/internal/secure"
)

type Result struct {
	DeletedMessages int64 `json:"deleted_messages"`
	DeletedUsage    int64 `json:"deleted_usage"`
}

type Sweeper struct {
	repo          *secure.Repo
	chatRetention time.Duration
	logRetention  time.Duration
}

func NewSweeper(repo *secure.Repo, chatRetention, logRetention time.Duration) *Sweeper {
	if chatRetention <= 0 {
		chatRetention = 2 * time.Hour
	}
	if logRetention <= 0 {
		logRetention = 24 * time.Hour
	}
	return &Sweeper{repo: repo, chatRetention: chatRetention, logRetention: logRetention}
}

// Sweep deletes everything strictly older than each horizon. Cutoffs
// are taken from the wall clock at call time, so a missed tick is
// recovered by the next run. Running twice back to back deletes
// nothing the second time.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	now := time.Now().UTC()

	deletedMsgs, err := s.repo.DeleteMessagesBefore(ctx, now.Add(-s.chatRetention))
	if err != nil {
		return Result{}, err
	}

	deletedUsage, err := s.repo.DeleteUsageBefore(ctx, now.Add(-s.logRetention))
	if err != nil {
		return Result{DeletedMessages: deletedMsgs}, err
	}

	return Result{DeletedMessages: deletedMsgs, DeletedUsage: deletedUsage}, nil
}

// Run sweeps on a ticker until the context is cancelled. Failures are
// logged and the loop keeps going.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			res, err := s.Sweep(ctx)
			if err != nil {
				log.Printf("[retention] sweep failed: %v", err)
				continue
			}
			if res.DeletedMessages > 0 || res.DeletedUsage > 0 {
				log.Printf("[retention] removed %d chat rows, %d usage rows", res.DeletedMessages, res.DeletedUsage)
			}
		}
	}
}
