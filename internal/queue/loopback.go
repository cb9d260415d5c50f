package queue

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/unclebandit/dialer-campaign-backend/internal/model"
)

// LoopbackDialer publishes dial requests on an in-process queue. Used when no broker is configured.
type LoopbackDialer struct {
	Queue Queue
	Topic string
}

func (d *LoopbackDialer) Dial(_ context.Context, req model.DialRequest) error {
	return d.Queue.Publish(d.Topic, req)
}

// Outcome picks the result of a simulated call
type Outcome func(req model.DialRequest) model.AttemptOutcome

// MockOutcome simulates calls with 90% success
func MockOutcome(model.DialRequest) model.AttemptOutcome {
	if rand.Float64() < 0.9 {
		return model.OutcomeComplete
	}
	return model.OutcomeFail
}

// StartMockDialer answers every request on requestTopic with an AttemptReport on outcomeTopic
func StartMockDialer(q Queue, requestTopic, outcomeTopic string, outcome Outcome) error {
	return q.Subscribe(requestTopic, func(payload any) error {
		req, ok := payload.(model.DialRequest)
		if !ok {
			return nil
		}
		return q.Publish(outcomeTopic, model.AttemptReport{
			RequestID:    req.RequestID,
			SubscriberID: req.SubscriberID,
			Outcome:      outcome(req),
			OccurredAt:   time.Now(),
		})
	})
}

// ForwardReports feeds reports published on topic into ch, for a service.Worker to consume.
// A full channel blocks the queue's delivery goroutine until ctx is done.
func ForwardReports(ctx context.Context, q Queue, topic string, ch chan<- model.AttemptReport) error {
	return q.Subscribe(topic, func(payload any) error {
		report, ok := payload.(model.AttemptReport)
		if !ok {
			return nil
		}
		select {
		case ch <- report:
			return nil
		case <-ctx.Done():
			return fmt.Errorf("report for subscriber %d dropped: %w", report.SubscriberID, ctx.Err())
		}
	})
}
