// Package app wires repositories, caches and services from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unclebandit/dialer-campaign-backend/internal/cache"
	"github.com/unclebandit/dialer-campaign-backend/internal/config"
	"github.com/unclebandit/dialer-campaign-backend/internal/db"
	"github.com/unclebandit/dialer-campaign-backend/internal/repository"
	"github.com/unclebandit/dialer-campaign-backend/internal/service"
)

type App struct {
	DB    *sql.DB
	Stats cache.StatsCache

	Campaigns     *service.CampaignService
	Contacts      *service.ContactService
	Subscriptions *service.SubscriptionService
	Dispatch      *service.DispatchService
	Outcomes      *service.OutcomeService
	Cascade       *service.CascadeService

	closers []func() error
}

// New opens the database and builds every service. Dispatch has no Dialer yet.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	conn, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := Build(conn, cfg, logger)
	a.closers = append(a.closers, conn.Close)

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = a.Close()
			_ = client.Close()
			return nil, fmt.Errorf("ping redis %s: %w", cfg.RedisAddr, err)
		}
		a.setStats(cache.NewRedisStatsCache(client, cfg.StatsCacheTTL, logger))
		a.closers = append(a.closers, client.Close)
	}
	return a, nil
}

// Build wires services over conn with an in-process stats cache.
func Build(conn *sql.DB, cfg config.Config, logger *zap.Logger) *App {
	campaignRepo := &repository.CampaignRepository{DB: conn}
	phonebookRepo := &repository.PhonebookRepository{DB: conn}
	contactRepo := &repository.ContactRepository{DB: conn}
	subscriberRepo := &repository.SubscriberRepository{DB: conn}
	settingsRepo := &repository.SettingsRepository{DB: conn}

	quota := &service.QuotaService{SettingsRepo: settingsRepo, CampaignRepo: campaignRepo, ContactRepo: contactRepo}

	a := &App{DB: conn}
	a.Subscriptions = &service.SubscriptionService{
		CampaignRepo:   campaignRepo,
		ContactRepo:    contactRepo,
		SubscriberRepo: subscriberRepo,
		Logger:         logger,
	}
	a.Campaigns = &service.CampaignService{
		CampaignRepo:   campaignRepo,
		ContactRepo:    contactRepo,
		SubscriberRepo: subscriberRepo,
		Quota:          quota,
		Logger:         logger,
	}
	a.Contacts = &service.ContactService{
		PhonebookRepo: phonebookRepo,
		ContactRepo:   contactRepo,
		Enroller:      a.Subscriptions,
		Quota:         quota,
		Logger:        logger,
	}
	a.Dispatch = &service.DispatchService{
		SubscriberRepo:   subscriberRepo,
		SettingsRepo:     settingsRepo,
		Logger:           logger,
		DefaultAnswerURL: cfg.DefaultAnswerURL,
		NewRequestID:     uuid.NewString,
	}
	a.Outcomes = &service.OutcomeService{SubscriberRepo: subscriberRepo, Logger: logger}
	a.Cascade = &service.CascadeService{Repo: &repository.CascadeRepository{DB: conn}, Logger: logger}

	a.setStats(cache.NewMemoryStatsCache(cfg.StatsCacheTTL))
	return a
}

func (a *App) setStats(stats cache.StatsCache) {
	a.Stats = stats
	a.Subscriptions.Stats = stats
	a.Campaigns.Stats = stats
	a.Dispatch.Stats = stats
	a.Outcomes.Stats = stats
	a.Cascade.Stats = stats
}

// Scheduler builds the dispatch loop over the running campaigns.
func (a *App) Scheduler(cfg config.Config, logger *zap.Logger) (*service.Scheduler, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &service.Scheduler{
		Campaigns:  a.Campaigns,
		Syncer:     a.Subscriptions,
		Dispatcher: a.Dispatch,
		Interval:   cfg.SchedulerInterval,
		Workers:    cfg.SchedulerWorkers,
		Location:   loc,
		Logger:     logger,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
