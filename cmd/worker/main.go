package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/dialer-campaign-backend/internal/app"
	"github.com/unclebandit/dialer-campaign-backend/internal/config"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
	"github.com/unclebandit/dialer-campaign-backend/internal/queue"
	"github.com/unclebandit/dialer-campaign-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("worker stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	scheduler, err := a.Scheduler(cfg, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.AMQPURL != "" {
		closeBroker, err := useBroker(ctx, g, cfg, a, logger)
		if err != nil {
			return err
		}
		defer closeBroker()
	} else {
		if err := useLoopback(ctx, g, cfg, a, logger); err != nil {
			return err
		}
	}

	g.Go(func() error { return scheduler.Run(ctx) })
	return g.Wait()
}

// useBroker publishes dial requests to RabbitMQ and consumes attempt reports from it
func useBroker(ctx context.Context, g *errgroup.Group, cfg config.Config, a *app.App, logger *zap.Logger) (func(), error) {
	conn, err := amqp.Dial(cfg.AMQPURL)
	if err != nil {
		return nil, err
	}
	pubCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	subCh, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	dialer, err := queue.NewAMQPDialer(pubCh, cfg.DialerRequestQueue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	a.Dispatch.Dialer = dialer

	consumer := &queue.OutcomeConsumer{
		Channel:  subCh,
		Queue:    cfg.DialerOutcomeQueue,
		Recorder: a.Outcomes,
		Logger:   logger,
	}
	g.Go(func() error { return consumer.Run(ctx) })

	logger.Info("dialing through broker", zap.String("queue", cfg.DialerRequestQueue))
	return func() { conn.Close() }, nil
}

// useLoopback answers dial requests in process with simulated outcomes
func useLoopback(ctx context.Context, g *errgroup.Group, cfg config.Config, a *app.App, logger *zap.Logger) error {
	q := queue.NewInMemoryQueue(logger)
	if err := queue.StartMockDialer(q, cfg.DialerRequestQueue, cfg.DialerOutcomeQueue, queue.MockOutcome); err != nil {
		return err
	}
	reports := make(chan model.AttemptReport, 100)
	if err := queue.ForwardReports(ctx, q, cfg.DialerOutcomeQueue, reports); err != nil {
		return err
	}
	a.Dispatch.Dialer = &queue.LoopbackDialer{Queue: q, Topic: cfg.DialerRequestQueue}

	worker := service.NewWorker(a.Outcomes, reports, logger)
	g.Go(func() error {
		worker.Start(ctx)
		q.Wait()
		return nil
	})

	logger.Warn("AMQP_URL not set, using the simulated dialer")
	return nil
}
