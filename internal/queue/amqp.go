package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/dialer-campaign-backend/internal/errors"
	"github.com/unclebandit/dialer-campaign-backend/internal/logging"
	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// Channel is the part of *amqp.Channel used here
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

func declare(ch Channel, name string) error {
	_, err := ch.QueueDeclare(
		name,  // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	return nil
}

// AMQPDialer publishes dial requests as persistent JSON messages on a durable queue
type AMQPDialer struct {
	ch    Channel
	queue string
}

func NewAMQPDialer(ch Channel, queue string) (*AMQPDialer, error) {
	if err := declare(ch, queue); err != nil {
		return nil, err
	}
	return &AMQPDialer{ch: ch, queue: queue}, nil
}

func (d *AMQPDialer) Dial(_ context.Context, req model.DialRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return d.ch.Publish("", d.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    req.RequestID,
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// OutcomeRecorder is the consumer's view of the subscriber state machine
type OutcomeRecorder interface {
	RecordOutcome(ctx context.Context, report model.AttemptReport) (*model.CampaignSubscriber, error)
}

// OutcomeConsumer applies attempt reports from the broker with manual acks
type OutcomeConsumer struct {
	Channel  Channel
	Queue    string
	Recorder OutcomeRecorder
	Logger   *zap.Logger
}

// Run consumes until ctx is done or the delivery channel closes.
func (c *OutcomeConsumer) Run(ctx context.Context) error {
	if err := declare(c.Channel, c.Queue); err != nil {
		return err
	}
	msgs, err := c.Channel.Consume(
		c.Queue,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register consumer on %s: %w", c.Queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.Handle(ctx, d)
		}
	}
}

// Handle acks a report once applied. Reports that can never apply (bad payload, unknown
// subscriber, refused transition) are acked and dropped; anything else is requeued once.
func (c *OutcomeConsumer) Handle(ctx context.Context, d amqp.Delivery) {
	logger := logging.OrNop(c.Logger)

	var report model.AttemptReport
	if err := json.Unmarshal(d.Body, &report); err != nil {
		logger.Warn("invalid attempt report", zap.Error(err))
		_ = d.Ack(false)
		return
	}

	_, err := c.Recorder.RecordOutcome(ctx, report)
	if err == nil || permanent(err) {
		if err != nil {
			logger.Warn("attempt report dropped", zap.Int("subscriber_id", report.SubscriberID), zap.Error(err))
		}
		_ = d.Ack(false)
		return
	}

	logger.Error("attempt report not applied", zap.Int("subscriber_id", report.SubscriberID), zap.Error(err))
	_ = d.Nack(false, !d.Redelivered)
}

func permanent(err error) bool {
	var invalid *appErrors.ErrInvalidTransition
	return appErrors.IsNotFound(err) || appErrors.IsStaleReport(err) ||
		errors.As(err, &invalid) || errors.Is(err, appErrors.ErrInvalidStatus)
}
