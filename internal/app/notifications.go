package app

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"learnpath-service/internal/domain"
)

// NotificationRepository is the backing store for notifications. Listing
// returns entries addressed to the user plus broadcasts, newest first.
type NotificationRepository interface {
	ListNotifications(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) error
}

// NotificationService is the full-list surface over the notification store;
// display queues consume its listing and report read state back through it.
type NotificationService struct {
	repo NotificationRepository
	log  *logrus.Entry
}

func NewNotificationService(repo NotificationRepository, log *logrus.Entry) *NotificationService {
	return &NotificationService{repo: repo, log: log}
}

// List returns the user's notifications, newest first. An unconfigured
// store degrades to an empty list.
func (s *NotificationService) List(ctx context.Context, userID string) ([]domain.Notification, error) {
	list, err := s.repo.ListNotifications(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotConfigured) {
			return []domain.Notification{}, nil
		}
		return nil, err
	}
	for i := range list {
		list[i] = domain.NormalizeNotification(list[i])
	}
	return list, nil
}

// MarkNotificationRead records read state upstream. Satisfies
// NotificationGateway for display queues.
func (s *NotificationService) MarkNotificationRead(ctx context.Context, id string) error {
	return s.repo.MarkNotificationRead(ctx, id)
}

// MarkAllRead clears the user's unread set.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllNotificationsRead(ctx, userID)
}
