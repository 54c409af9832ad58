package store

import (
	"sync"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// WebhookStore is a thread-safe in-memory store for webhooks.
// Primary index: webhook_id → webhook.
// Secondary index: subscriber → event → webhook.
// Tertiary index: event → webhook_id → webhook, for dispatch fan-out.
type WebhookStore struct {
	mu           sync.RWMutex
	webhooks     map[string]*domain.Webhook
	bySubscriber map[string]map[domain.NotificationKind]*domain.Webhook
	byEvent      map[domain.NotificationKind]map[string]*domain.Webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks:     make(map[string]*domain.Webhook),
		bySubscriber: make(map[string]map[domain.NotificationKind]*domain.Webhook),
		byEvent:      make(map[domain.NotificationKind]map[string]*domain.Webhook),
	}
}

// Upsert inserts or updates a webhook subscription keyed by (subscriber, event).
// If a subscription already exists for that pair, the URL and UpdatedAt are
// updated (the webhook_id remains stable). Returns true if a new
// subscription was created.
func (s *WebhookStore) Upsert(w *domain.Webhook) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if events, ok := s.bySubscriber[w.Subscriber]; ok {
		if existing, ok := events[w.Event]; ok {
			if existing.URL != w.URL {
				existing.URL = w.URL
				existing.UpdatedAt = w.UpdatedAt
			}
			return false
		}
	}

	s.webhooks[w.WebhookID] = w

	if s.bySubscriber[w.Subscriber] == nil {
		s.bySubscriber[w.Subscriber] = make(map[domain.NotificationKind]*domain.Webhook)
	}
	s.bySubscriber[w.Subscriber][w.Event] = w

	if s.byEvent[w.Event] == nil {
		s.byEvent[w.Event] = make(map[string]*domain.Webhook)
	}
	s.byEvent[w.Event][w.WebhookID] = w

	return true
}

// Get retrieves a webhook by ID. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Get(id string) (*domain.Webhook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.webhooks[id]
	if !ok {
		return nil, domain.ErrWebhookNotFound
	}
	return w, nil
}

// ListBySubscriber returns all webhooks for a subscriber.
func (s *WebhookStore) ListBySubscriber(subscriber string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.bySubscriber[subscriber]
	result := make([]*domain.Webhook, 0, len(events))
	for _, w := range events {
		result = append(result, w)
	}
	return result
}

// ListByEvent returns every webhook subscribed to event.
func (s *WebhookStore) ListByEvent(event domain.NotificationKind) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hooks := s.byEvent[event]
	result := make([]*domain.Webhook, 0, len(hooks))
	for _, w := range hooks {
		result = append(result, w)
	}
	return result
}

// Delete removes a webhook by ID from every index. It returns
// domain.ErrWebhookNotFound if the webhook does not exist.
func (s *WebhookStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[id]
	if !ok {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, id)

	if events, ok := s.bySubscriber[w.Subscriber]; ok {
		delete(events, w.Event)
		if len(events) == 0 {
			delete(s.bySubscriber, w.Subscriber)
		}
	}
	if hooks, ok := s.byEvent[w.Event]; ok {
		delete(hooks, id)
		if len(hooks) == 0 {
			delete(s.byEvent, w.Event)
		}
	}
	return nil
}

// GetBySubscriberEvent returns the webhook for a specific subscriber+event
// pair, or nil if no subscription exists.
func (s *WebhookStore) GetBySubscriberEvent(subscriber string, event domain.NotificationKind) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.bySubscriber[subscriber]
	if events == nil {
		return nil
	}
	return events[event]
}
