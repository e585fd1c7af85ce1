package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"learnpath-service/internal/domain"
)

// NotificationStore is an in-memory implementation of
// app.NotificationRepository; listing returns the user's notifications plus
// broadcasts, newest first.
type NotificationStore struct {
	now func() time.Time

	mu            sync.RWMutex
	notifications map[string]domain.Notification
}

func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		now:           time.Now,
		notifications: make(map[string]domain.Notification),
	}
}

// Seed inserts notifications directly, for demos and tests.
func (s *NotificationStore) Seed(list ...domain.Notification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range list {
		s.notifications[n.ID] = n
	}
}

func (s *NotificationStore) ListNotifications(_ context.Context, userID string) ([]domain.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if n.Broadcast() || n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *NotificationStore) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notifications[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	if n.ReadAt == nil {
		readAt := s.now()
		n.ReadAt = &readAt
		s.notifications[id] = n
	}
	return nil
}

func (s *NotificationStore) MarkAllNotificationsRead(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	readAt := s.now()
	for id, n := range s.notifications {
		if (n.Broadcast() || n.UserID == userID) && n.ReadAt == nil {
			n.ReadAt = &readAt
			s.notifications[id] = n
		}
	}
	return nil
}
