package service

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/escrowauction/internal/domain"
	"github.com/efreitasn/escrowauction/internal/store"
)

// Valid webhook event types.
var validWebhookEvents = map[domain.NotificationKind]bool{
	domain.KindListingCreated:   true,
	domain.KindListingUpdated:   true,
	domain.KindListingCancelled: true,
	domain.KindBidPlaced:        true,
	domain.KindAuctionSettled:   true,
}

const validWebhookEventList = "auction.listed, auction.updated, auction.cancelled, auction.bid, auction.settled"

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	Subscriber string
	URL        string
	Events     []string
}

// WebhookService handles webhook CRUD and delivery.
type WebhookService struct {
	store    *store.WebhookStore
	client   *http.Client
	logger   *slog.Logger
	inflight sync.WaitGroup
}

// NewWebhookService creates a new WebhookService with the given dependencies.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration, logger *slog.Logger) *WebhookService {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookService{
		store: webhookStore,
		client: &http.Client{
			Timeout: webhookTimeout,
		},
		logger: logger,
	}
}

// Upsert validates the request and creates or updates webhook subscriptions.
// Returns the resulting webhooks, whether any new subscriptions were created, and any error.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	subscriber, err := ParseAddress("subscriber", req.Subscriber)
	if err != nil {
		return nil, false, err
	}

	// Validate URL.
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	// Validate events.
	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}

	// Deduplicate events while preserving order and validating.
	seen := make(map[domain.NotificationKind]bool, len(req.Events))
	events := make([]domain.NotificationKind, 0, len(req.Events))
	for _, e := range req.Events {
		kind := domain.NotificationKind(e)
		if !validWebhookEvents[kind] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + e + ". Must be one of: " + validWebhookEventList,
			}
		}
		if !seen[kind] {
			seen[kind] = true
			events = append(events, kind)
		}
	}

	// Upsert each (subscriber, event) pair.
	now := time.Now().UTC().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(events))

	for _, event := range events {
		w := &domain.Webhook{
			WebhookID:  uuid.New().String(),
			Subscriber: subscriber.String(),
			Event:      event,
			URL:        req.URL,
			CreatedAt:  now,
			UpdatedAt:  now,
		}

		if s.store.Upsert(w) {
			anyCreated = true
			webhooks = append(webhooks, w)
		} else if existing := s.store.GetBySubscriberEvent(subscriber.String(), event); existing != nil {
			webhooks = append(webhooks, existing)
		}
	}

	return webhooks, anyCreated, nil
}

// List returns all webhook subscriptions of subscriber.
func (s *WebhookService) List(subscriber string) ([]*domain.Webhook, error) {
	addr, err := ParseAddress("subscriber", subscriber)
	if err != nil {
		return nil, err
	}
	return s.store.ListBySubscriber(addr.String()), nil
}

// Delete removes a webhook subscription owned by subscriber.
func (s *WebhookService) Delete(subscriber, webhookID string) error {
	addr, err := ParseAddress("subscriber", subscriber)
	if err != nil {
		return err
	}
	w, err := s.store.Get(webhookID)
	if err != nil {
		return err
	}
	if w.Subscriber != addr.String() {
		// Another subscriber's hook is indistinguishable from a missing one.
		return domain.ErrWebhookNotFound
	}
	return s.store.Delete(webhookID)
}

// Dispatch posts body to every webhook subscribed to kind. Deliveries run
// in the background; failures are logged and not retried.
func (s *WebhookService) Dispatch(kind domain.NotificationKind, body []byte) {
	for _, wh := range s.store.ListByEvent(kind) {
		s.inflight.Add(1)
		go func(wh *domain.Webhook) {
			defer s.inflight.Done()
			s.deliver(wh, kind, body)
		}(wh)
	}
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (s *WebhookService) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// deliver sends the webhook payload via HTTP POST with the delivery headers.
func (s *WebhookService) deliver(wh *domain.Webhook, kind domain.NotificationKind, body []byte) {
	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		return
	}

	deliveryID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", deliveryID)
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", string(kind))

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook delivery failed",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("delivery_id", deliveryID),
			slog.String("error", err.Error()),
		)
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		s.logger.Warn("webhook delivery rejected",
			slog.String("webhook_id", wh.WebhookID),
			slog.String("delivery_id", deliveryID),
			slog.Int("status", resp.StatusCode),
			slog.String("host", strings.ToLower(req.URL.Host)),
		)
	}
}
