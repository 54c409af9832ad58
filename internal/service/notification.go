package service

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/store"
)

// Envelope is the wire form of a logged notification, shared by the
// notifications endpoint, the websocket stream and webhook bodies.
type Envelope struct {
	Seq        uint64                  `json:"seq"`
	ID         string                  `json:"id"`
	Event      domain.NotificationKind `json:"event"`
	OccurredAt string                  `json:"occurred_at"`
	Data       domain.Notification     `json:"data"`
}

// NewEnvelope wraps a log record for the wire.
func NewEnvelope(rec *domain.NotificationRecord) Envelope {
	return Envelope{
		Seq:        rec.Seq,
		ID:         rec.ID,
		Event:      rec.Kind,
		OccurredAt: rec.OccurredAt.UTC().Format(time.RFC3339Nano),
		Data:       rec.Payload,
	}
}

// Broadcaster pushes encoded notifications to live subscribers.
type Broadcaster interface {
	Broadcast(msg []byte)
}

// NotificationService records every engine notification and fans it out
// to live subscribers and webhooks. It implements engine.Notifier.
type NotificationService struct {
	log      *store.NotificationLog
	hub      Broadcaster
	webhooks *WebhookService
	logger   *slog.Logger
	now      func() time.Time
}

// NewNotificationService creates a new NotificationService. hub and
// webhooks may be nil.
func NewNotificationService(log *store.NotificationLog, hub Broadcaster, webhooks *WebhookService, logger *slog.Logger) *NotificationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &NotificationService{
		log:      log,
		hub:      hub,
		webhooks: webhooks,
		logger:   logger,
		now:      time.Now,
	}
}

// Notify appends n to the log and fans it out. It never blocks on
// subscribers.
func (s *NotificationService) Notify(n domain.Notification) {
	rec := s.log.Append(n, s.now())

	body, err := json.Marshal(NewEnvelope(rec))
	if err != nil {
		s.logger.Error("failed to encode notification",
			slog.Uint64("seq", rec.Seq),
			slog.String("event", string(rec.Kind)),
			slog.String("error", err.Error()),
		)
		return
	}
	if s.hub != nil {
		s.hub.Broadcast(body)
	}
	if s.webhooks != nil {
		s.webhooks.Dispatch(rec.Kind, body)
	}
}

// After returns up to limit envelopes with sequence numbers above after.
func (s *NotificationService) After(after uint64, limit int) ([]Envelope, error) {
	if limit < 1 || limit > maxPageLimit {
		return nil, &domain.ValidationError{Message: "limit must be between 1 and 200"}
	}
	recs := s.log.After(after, limit)
	out := make([]Envelope, len(recs))
	for i, r := range recs {
		out[i] = NewEnvelope(r)
	}
	return out, nil
}
