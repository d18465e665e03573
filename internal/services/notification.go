package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"popin-backend/internal/config"
	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/sideshow/apns2"
	"github.com/sideshow/apns2/payload"
	"github.com/sideshow/apns2/token"
)

// NotificationService persists notifications and fans them out over the
// WebSocket hub and APNs
type NotificationService struct {
	repo      storage.NotificationStore
	userRepo  storage.UserStore
	hub       *Hub
	apnsCli   *apns2.Client
	apnsTopic string
}

// NewNotificationService creates a new notification service. The APNs
// client is nil when push is not configured.
func NewNotificationService(
	repo storage.NotificationStore,
	userRepo storage.UserStore,
	hub *Hub,
	cfg config.APNSConfig,
) (*NotificationService, error) {
	s := &NotificationService{
		repo:      repo,
		userRepo:  userRepo,
		hub:       hub,
		apnsTopic: cfg.Topic,
	}

	if cfg.KeyFile != "" {
		authKey, err := token.AuthKeyFromFile(cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load APNs auth key: %w", err)
		}
		cli := apns2.NewTokenClient(&token.Token{
			AuthKey: authKey,
			KeyID:   cfg.KeyID,
			TeamID:  cfg.TeamID,
		})
		if cfg.Production {
			cli = cli.Production()
		} else {
			cli = cli.Development()
		}
		s.apnsCli = cli
	}

	return s, nil
}

// Notify creates a notification for a user, pushes it over the WebSocket
// when the user is online, and to APNs when a device token is registered
func (s *NotificationService) Notify(ctx context.Context, userID, ntype, title, message string, data map[string]any) (*models.Notification, error) {
	n := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      ntype,
		Title:     title,
		Message:   message,
		Data:      data,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to store notification: %w", err)
	}

	if s.hub.IsOnline(userID) {
		if err := s.hub.SendToUser(userID, Frame{Type: "notification", Data: n}); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to push notification")
		}
	}

	s.pushAPNs(ctx, userID, title, message)

	return n, nil
}

// pushAPNs sends the notification to the user's device when possible
func (s *NotificationService) pushAPNs(ctx context.Context, userID, title, message string) {
	if s.apnsCli == nil {
		return
	}
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			log.Error().Err(err).Str("user_id", userID).Msg("Failed to load user for push")
		}
		return
	}
	if user.PushToken == nil {
		return
	}

	notification := &apns2.Notification{
		DeviceToken: *user.PushToken,
		Topic:       s.apnsTopic,
		Payload:     payload.NewPayload().AlertTitle(title).AlertBody(message).Sound("default"),
	}

	go func() {
		res, err := s.apnsCli.Push(notification)
		if err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("APNs push failed")
			return
		}
		if !res.Sent() {
			log.Warn().
				Str("user_id", userID).
				Int("status", res.StatusCode).
				Str("reason", res.Reason).
				Msg("APNs push rejected")
		}
	}()
}

// List retrieves a user's notifications, newest first
func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	return s.repo.ListByUser(ctx, userID, limit)
}

// MarkRead marks one notification as read
func (s *NotificationService) MarkRead(ctx context.Context, id, userID string) error {
	return s.repo.MarkRead(ctx, id, userID)
}

// MarkAllRead marks all of a user's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) error {
	return s.repo.MarkAllRead(ctx, userID)
}

// Delete deletes one notification
func (s *NotificationService) Delete(ctx context.Context, id, userID string) error {
	return s.repo.Delete(ctx, id, userID)
}
