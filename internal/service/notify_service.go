package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campusmess/mealmarket/internal/domain"
	"github.com/campusmess/mealmarket/internal/repository"
	"github.com/google/uuid"
)

// EventPublisher pushes realtime events out of the service layer. Implemented
// by the realtime bridge (Redis pub/sub with a direct-hub fallback).
type EventPublisher interface {
	PublishListingUpdate(summary domain.ListingSummary)
	PublishNotification(n *domain.Notification)
}

// Notifier is the notification sink the other services dispatch through.
// NotifyService is the production implementation.
type Notifier interface {
	Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string)
}

// NotifyService records notifications in the feed and pushes them over the
// realtime channel, honouring each recipient's settings.
//
// Delivery is best effort: failures are logged and swallowed so a broken sink
// can never fail a settlement or a bid.
type NotifyService struct {
	userRepo         *repository.UserRepository
	notificationRepo *repository.NotificationRepository
	publisher        EventPublisher
	logger           *slog.Logger
}

// NewNotifyService creates a NotifyService. publisher may be nil (no realtime
// push, feed only).
func NewNotifyService(
	userRepo *repository.UserRepository,
	notificationRepo *repository.NotificationRepository,
	logger *slog.Logger,
) *NotifyService {
	return &NotifyService{
		userRepo:         userRepo,
		notificationRepo: notificationRepo,
		logger:           logger,
	}
}

// SetPublisher wires the realtime publisher after construction.
func (s *NotifyService) SetPublisher(p EventPublisher) {
	s.publisher = p
}

// Notify formats, stores, and pushes one notification if the recipient's
// settings allow the kind. Never returns an error.
func (s *NotifyService) Notify(ctx context.Context, userID uuid.UUID, kind domain.NotificationKind, title, message string) {
	settings, err := s.userRepo.GetSettings(ctx, userID)
	if err != nil {
		s.logger.Error("notify: load settings failed",
			"user_id", userID, "kind", kind, "error", err)
		return
	}
	if !settings.Allows(kind) {
		return
	}

	n := &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		s.logger.Error("notify: store failed",
			"user_id", userID, "kind", kind, "error", err)
		return
	}
	if s.publisher != nil {
		s.publisher.PublishNotification(n)
	}
}

// ListFeed returns a user's notification feed plus the unread count.
func (s *NotifyService) ListFeed(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Notification, int, error) {
	feed, err := s.notificationRepo.ListByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("notify_service.ListFeed: %w", err)
	}
	unread, err := s.notificationRepo.CountUnread(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("notify_service.ListFeed: %w", err)
	}
	return feed, unread, nil
}

// MarkRead marks one notification as read for its owner.
func (s *NotifyService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	return s.notificationRepo.MarkRead(ctx, userID, notificationID)
}

// MarkAllRead marks the whole feed read.
func (s *NotifyService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	return s.notificationRepo.MarkAllRead(ctx, userID)
}
