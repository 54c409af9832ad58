package store

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/efreitasn/escrowauction/internal/domain"
)

// NotificationLog is an append-only, thread-safe log of engine
// notifications in emission order. Sequence numbers start at 1.
type NotificationLog struct {
	mu      sync.RWMutex
	records []*domain.NotificationRecord
}

// NewNotificationLog creates an empty NotificationLog.
func NewNotificationLog() *NotificationLog {
	return &NotificationLog{}
}

// Append records n and returns the stored record.
func (s *NotificationLog) Append(n domain.Notification, at time.Time) *domain.NotificationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := &domain.NotificationRecord{
		Seq:        uint64(len(s.records)) + 1,
		ID:         uuid.New().String(),
		Kind:       n.Kind(),
		Payload:    n,
		OccurredAt: at,
	}
	s.records = append(s.records, rec)
	return rec
}

// After returns up to limit records with Seq > after, in order.
func (s *NotificationLog) After(after uint64, limit int) []*domain.NotificationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if after >= uint64(len(s.records)) || limit <= 0 {
		return []*domain.NotificationRecord{}
	}
	end := after + uint64(limit)
	if end > uint64(len(s.records)) {
		end = uint64(len(s.records))
	}
	// Return a copy to avoid callers mutating the internal slice.
	result := make([]*domain.NotificationRecord, end-after)
	copy(result, s.records[after:end])
	return result
}

// Len returns the number of records.
func (s *NotificationLog) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
