package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

type RunningCampaignLister interface {
	ListRunning(ctx context.Context, now time.Time) ([]*model.Campaign, error)
}

type CampaignSyncer interface {
	SyncCampaign(ctx context.Context, campaign *model.Campaign) (int, error)
}

type CampaignDispatcher interface {
	DispatchCampaign(ctx context.Context, campaign *model.Campaign, now time.Time) (*DispatchResult, error)
}

// Scheduler runs one dispatch cycle per interval over every running campaign.
// Campaigns are processed concurrently, at most Workers at a time.
type Scheduler struct {
	Campaigns  RunningCampaignLister
	Syncer     CampaignSyncer
	Dispatcher CampaignDispatcher
	Interval   time.Duration
	Workers    int
	Location   *time.Location
	Now        func() time.Time
	Logger     *zap.Logger
}

// RunOnce evaluates every campaign against one captured instant. A failing campaign is logged
// and does not stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) ([]*DispatchResult, error) {
	logger := logging.OrNop(s.Logger)
	now := s.now()

	running, err := s.Campaigns.ListRunning(ctx, now)
	if err != nil {
		return nil, err
	}

	workers := s.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	results := make([]*DispatchResult, len(running))
	for i, c := range running {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			if s.Syncer != nil {
				if _, err := s.Syncer.SyncCampaign(gctx, c); err != nil {
					logger.Error("enrollment backfill failed", zap.Int("campaign_id", c.ID), zap.Error(err))
				}
			}
			res, err := s.Dispatcher.DispatchCampaign(gctx, c, now)
			results[i] = res
			if err != nil {
				logger.Error("dispatch failed", zap.Int("campaign_id", c.ID), zap.Error(err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	done := make([]*DispatchResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			done = append(done, r)
		}
	}
	return done, nil
}

// Run cycles until ctx is cancelled, starting immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := logging.OrNop(s.Logger)
	interval := s.Interval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler cycle failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) now() time.Time {
	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if s.Location != nil {
		now = now.In(s.Location)
	}
	return now
}
