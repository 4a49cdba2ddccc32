package publisher

import (
	"context"
	"time"

	"github.com/fjod/go_bookshop/internal/domain"
	"github.com/fjod/go_bookshop/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	DefaultTopic = "bookshop.orders"
	batchSize    = 100
)

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
	ListStaleSessions(ctx context.Context, cutoff time.Time, limit int) ([]*domain.CheckoutSession, error)
}

// SessionReconciler asks the payment processor about a stale session and settles it.
type SessionReconciler interface {
	ReconcileStaleSession(ctx context.Context, session *domain.CheckoutSession) (domain.CheckoutStatus, error)
}

// MessageWriter is the subset of *kafka.Writer the poller needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	Topic        string
	EventTick    time.Duration
	RecoveryTick time.Duration
	// Sessions still open after SessionTTL are reconciled with the processor.
	SessionTTL time.Duration
}

// OutboxPoller publishes queued order events to Kafka and reconciles abandoned checkout sessions.
type OutboxPoller struct {
	eventTick    time.Duration
	recoveryTick time.Duration
	sessionTTL   time.Duration
	repo         OutboxRepository
	reconciler   SessionReconciler
	writer       MessageWriter
	logger       *zap.Logger
	now          func() time.Time
}

func NewOutboxPoller(repo OutboxRepository, reconciler SessionReconciler, cfg Config, l *zap.Logger) *OutboxPoller {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
	return newPoller(repo, reconciler, w, cfg, l)
}

func newPoller(repo OutboxRepository, reconciler SessionReconciler, w MessageWriter, cfg Config, l *zap.Logger) *OutboxPoller {
	if cfg.EventTick <= 0 {
		cfg.EventTick = time.Second
	}
	if cfg.RecoveryTick <= 0 {
		cfg.RecoveryTick = time.Minute
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	return &OutboxPoller{
		eventTick:    cfg.EventTick,
		recoveryTick: cfg.RecoveryTick,
		sessionTTL:   cfg.SessionTTL,
		repo:         repo,
		reconciler:   reconciler,
		writer:       w,
		logger:       l,
		now:          time.Now,
	}
}

// NewSessionExpirer returns a poller that only reconciles stale checkout sessions.
// Outbox events are left in place for a later publisher.
func NewSessionExpirer(repo OutboxRepository, reconciler SessionReconciler, cfg Config, l *zap.Logger) *OutboxPoller {
	return newPoller(repo, reconciler, nil, cfg, l)
}

// Run blocks until ctx is cancelled.
func (p *OutboxPoller) Run(ctx context.Context) {
	var events <-chan time.Time
	if p.writer != nil {
		eventTicker := time.NewTicker(p.eventTick)
		defer eventTicker.Stop()
		events = eventTicker.C
	}
	recoveryTicker := time.NewTicker(p.recoveryTick)
	defer recoveryTicker.Stop()
	for {
		select {
		case <-events:
			p.processUnpublishedEvents(ctx)
		case <-recoveryTicker.C:
			p.expireStaleSessions(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.repo.GetUnprocessedEvents(ctx, batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish event",
				zap.Int64("event_id", event.ID), zap.String("event_type", event.EventType), zap.Error(err))
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Error("failed to mark event as processed", zap.Int64("event_id", event.ID), zap.Error(err))
		}
	}
}

// expireStaleSessions only fails a session after the processor reports it expired,
// so a payment made late in the session window still gets its order.
func (p *OutboxPoller) expireStaleSessions(ctx context.Context) {
	sessions, err := p.repo.ListStaleSessions(ctx, p.now().Add(-p.sessionTTL), batchSize)
	if err != nil {
		p.logger.Error("failed to list stale checkout sessions", zap.Error(err))
		return
	}

	var failed, recorded int
	for _, session := range sessions {
		status, err := p.reconciler.ReconcileStaleSession(ctx, session)
		if err != nil {
			p.logger.Warn("failed to reconcile checkout session",
				zap.String("session_id", session.ID), zap.Error(err))
			continue
		}
		switch status {
		case domain.CheckoutStatusFailed:
			failed++
		case domain.CheckoutStatusCartCleared:
			recorded++
		}
	}
	if failed > 0 || recorded > 0 {
		p.logger.Info("reconciled stale checkout sessions",
			zap.Int("failed", failed), zap.Int("orders_recorded", recorded))
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order's events on one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}
