package domain

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/subwatch/backend/internal/metrics"
	"github.com/subwatch/backend/internal/store"
)

// DefaultPullBatch caps how many messages a synchronous drain requests.
const DefaultPullBatch = 10

// NotificationSink receives every stored notification, e.g. for a live feed.
type NotificationSink interface {
	Publish(n Notification)
}

// NotificationService ingests notifications from all three transports and
// owns the push and pull collections.
type NotificationService struct {
	push    store.Collection[Notification]
	pull    store.Collection[Notification]
	source  MessageSource
	sink    NotificationSink
	metrics *metrics.Metrics
	logger  *zap.Logger

	mu        sync.Mutex
	listening bool
	stop      context.CancelFunc
	// gen identifies the current listener; a finished listener only clears
	// state when it is still the current generation.
	gen uint64
}

func NewNotificationService(
	push, pull store.Collection[Notification],
	source MessageSource,
	sink NotificationSink,
	m *metrics.Metrics,
	logger *zap.Logger,
) *NotificationService {
	return &NotificationService{
		push:    push,
		pull:    pull,
		source:  source,
		sink:    sink,
		metrics: m,
		logger:  logger,
	}
}

// IngestPush decodes a webhook body and appends it to the push collection.
func (s *NotificationService) IngestPush(ctx context.Context, body []byte) (Notification, error) {
	n := DecodePush(body)
	if err := s.push.Append(ctx, n); err != nil {
		return Notification{}, fmt.Errorf("failed to store push notification: %w", err)
	}
	s.metrics.NotificationReceived(string(SourcePush))
	s.publish(n)
	return n, nil
}

// PullOnce drains up to max messages from the broker. A message is only
// acknowledged after its notification has been durably appended; failed
// appends are left unacknowledged for redelivery.
func (s *NotificationService) PullOnce(ctx context.Context, max int64) ([]Notification, error) {
	if s.source == nil {
		return nil, ErrNotConfigured
	}
	if max <= 0 || max > DefaultPullBatch {
		max = DefaultPullBatch
	}

	msgs, err := s.source.Pull(ctx, max)
	if err != nil {
		return nil, fmt.Errorf("pull failed: %w", err)
	}

	stored := make([]Notification, 0, len(msgs))
	ackIDs := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		n := DecodePull(msg, SourcePull)
		if err := s.pull.Append(ctx, n); err != nil {
			s.logger.Error("failed to store pulled message, leaving unacknowledged",
				zap.String("message_id", msg.ID), zap.Error(err))
			continue
		}
		s.metrics.NotificationReceived(string(SourcePull))
		s.publish(n)
		stored = append(stored, n)
		if msg.AckID != "" {
			ackIDs = append(ackIDs, msg.AckID)
		}
	}

	if len(ackIDs) > 0 {
		if err := s.source.Acknowledge(ctx, ackIDs); err != nil {
			// Stored but unacknowledged: the broker will redeliver and the
			// enricher's idempotency check absorbs the duplicate.
			s.logger.Warn("acknowledge failed", zap.Int("count", len(ackIDs)), zap.Error(err))
		}
	}
	return stored, nil
}

// StartListening launches the streaming subscription. Starting while one is
// active is a no-op reporting false.
func (s *NotificationService) StartListening() (bool, error) {
	if s.source == nil {
		return false, ErrNotConfigured
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listening {
		return false, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.listening = true
	s.stop = cancel
	s.gen++
	gen := s.gen

	go func() {
		err := s.source.Listen(ctx, s.handleStreamed)
		if err != nil && ctx.Err() == nil {
			s.logger.Error("streaming listener stopped", zap.Error(err))
		} else {
			s.logger.Info("streaming listener stopped")
		}
		s.mu.Lock()
		// A restart may have superseded this listener while it was tearing
		// down; its state is no longer ours to clear.
		if s.gen == gen {
			s.listening = false
			s.stop = nil
		}
		s.mu.Unlock()
	}()

	s.logger.Info("streaming listener started")
	return true, nil
}

// StopListening cancels the streaming subscription. Stopping while none is
// active is a no-op reporting false.
func (s *NotificationService) StopListening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.listening || s.stop == nil {
		return false
	}
	s.stop()
	s.stop = nil
	s.listening = false
	return true
}

// Listening reports whether the streaming subscription is active.
func (s *NotificationService) Listening() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listening
}

// handleStreamed stores a streamed message; a returned error prevents the
// acknowledgment so the broker redelivers.
func (s *NotificationService) handleStreamed(ctx context.Context, msg PulledMessage) error {
	n := DecodePull(msg, SourcePullStream)
	if err := s.pull.Append(ctx, n); err != nil {
		return fmt.Errorf("failed to store streamed message: %w", err)
	}
	s.metrics.NotificationReceived(string(SourcePullStream))
	s.publish(n)
	return nil
}

func (s *NotificationService) ListPush(ctx context.Context) ([]Notification, error) {
	return s.push.List(ctx)
}

func (s *NotificationService) GetPush(ctx context.Context, id string) (Notification, error) {
	return s.get(ctx, s.push, id)
}

func (s *NotificationService) DeletePush(ctx context.Context, id string) error {
	return s.delete(ctx, s.push, id)
}

func (s *NotificationService) ListPull(ctx context.Context) ([]Notification, error) {
	return s.pull.List(ctx)
}

func (s *NotificationService) GetPull(ctx context.Context, id string) (Notification, error) {
	return s.get(ctx, s.pull, id)
}

func (s *NotificationService) DeletePull(ctx context.Context, id string) error {
	return s.delete(ctx, s.pull, id)
}

// Counts returns the stored totals for the status endpoint.
func (s *NotificationService) Counts(ctx context.Context) (pushCount, pullCount int, err error) {
	pushCount, err = s.push.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	pullCount, err = s.pull.Count(ctx)
	if err != nil {
		return 0, 0, err
	}
	return pushCount, pullCount, nil
}

func (s *NotificationService) get(ctx context.Context, c store.Collection[Notification], id string) (Notification, error) {
	n, ok, err := c.Find(ctx, func(n Notification) bool { return n.ID == id })
	if err != nil {
		return Notification{}, err
	}
	if !ok {
		return Notification{}, ErrNotFound
	}
	return n, nil
}

func (s *NotificationService) delete(ctx context.Context, c store.Collection[Notification], id string) error {
	removed, err := c.Remove(ctx, func(n Notification) bool { return n.ID == id })
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

func (s *NotificationService) publish(n Notification) {
	if s.sink != nil {
		s.sink.Publish(n)
	}
}
