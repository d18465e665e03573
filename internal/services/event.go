package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrNotOwner is returned when a user acts on someone else's event
	ErrNotOwner = errors.New("not the event owner")
	// ErrInvalidTimeRange is returned when an event would end before it
	// starts
	ErrInvalidTimeRange = errors.New("event must start before it ends")
	// ErrInvalidEventType is returned for unknown event type tags
	ErrInvalidEventType = errors.New("invalid event type")
)

// EventInput carries the caller-controlled event fields
type EventInput struct {
	Title       string
	Description string
	StartTime   time.Time
	EndTime     time.Time
	Type        models.EventType
	Visibility  models.Visibility
}

// EventService handles calendar events and hangout overlap matching
type EventService struct {
	eventRepo     storage.EventStore
	friendRepo    storage.FriendStore
	userRepo      storage.UserStore
	notifications *NotificationService
}

// NewEventService creates a new event service
func NewEventService(
	eventRepo storage.EventStore,
	friendRepo storage.FriendStore,
	userRepo storage.UserStore,
	notifications *NotificationService,
) *EventService {
	return &EventService{
		eventRepo:     eventRepo,
		friendRepo:    friendRepo,
		userRepo:      userRepo,
		notifications: notifications,
	}
}

func validateInput(in *EventInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("title is required")
	}
	if !in.StartTime.Before(in.EndTime) {
		return ErrInvalidTimeRange
	}
	switch in.Type {
	case models.EventTypePersonal:
		in.Visibility = ""
	case models.EventTypeHangout:
		if in.Visibility == "" {
			in.Visibility = models.VisibilityFriends
		}
		if in.Visibility != models.VisibilityFriends && in.Visibility != models.VisibilityPrivate {
			return fmt.Errorf("invalid visibility")
		}
	default:
		return ErrInvalidEventType
	}
	return nil
}

// Create creates an event and, for visible hangouts, scans for overlaps
// with friends' hangouts
func (s *EventService) Create(ctx context.Context, ownerID string, in EventInput) (*models.Event, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ev := &models.Event{
		ID:          uuid.New().String(),
		OwnerID:     ownerID,
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		StartTime:   in.StartTime.UTC(),
		EndTime:     in.EndTime.UTC(),
		Type:        in.Type,
		Visibility:  in.Visibility,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.eventRepo.Create(ctx, ev); err != nil {
		return nil, err
	}

	s.scanMatches(ctx, ev)

	return ev, nil
}

// Get retrieves an event; only the owner may read it
func (s *EventService) Get(ctx context.Context, eventID, userID string) (*models.Event, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OwnerID != userID {
		return nil, ErrNotOwner
	}
	return ev, nil
}

// Update replaces an event's fields, clears its recorded matches, and
// re-scans for overlaps
func (s *EventService) Update(ctx context.Context, eventID, userID string, in EventInput) (*models.Event, error) {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if ev.OwnerID != userID {
		return nil, ErrNotOwner
	}
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	ev.Title = strings.TrimSpace(in.Title)
	ev.Description = in.Description
	ev.StartTime = in.StartTime.UTC()
	ev.EndTime = in.EndTime.UTC()
	ev.Type = in.Type
	ev.Visibility = in.Visibility
	ev.UpdatedAt = time.Now().UTC()

	if err := s.eventRepo.Update(ctx, ev); err != nil {
		return nil, err
	}

	// Edits invalidate previous matches; the scan re-emits current ones
	if err := s.eventRepo.DeleteMatchesByEvent(ctx, eventID); err != nil {
		return nil, err
	}
	s.scanMatches(ctx, ev)

	return ev, nil
}

// Delete deletes an event and its recorded matches
func (s *EventService) Delete(ctx context.Context, eventID, userID string) error {
	ev, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	if ev.OwnerID != userID {
		return ErrNotOwner
	}
	if err := s.eventRepo.DeleteMatchesByEvent(ctx, eventID); err != nil {
		return err
	}
	return s.eventRepo.Delete(ctx, eventID)
}

// List retrieves a user's events, optionally bounded by a time window
func (s *EventService) List(ctx context.Context, userID string, from, to *time.Time) ([]*models.Event, error) {
	return s.eventRepo.ListByOwner(ctx, userID, from, to)
}

// ListMatches retrieves the caller's current hangout matches
func (s *EventService) ListMatches(ctx context.Context, userID string) ([]*models.HangoutMatch, error) {
	return s.eventRepo.ListMatchesByUser(ctx, userID)
}

// overlapWindow returns the time range common to two events. The window is
// [max(start), min(end)]; a shared instant counts as an overlap.
func overlapWindow(a, b *models.Event) (time.Time, time.Time, bool) {
	start := a.StartTime
	if b.StartTime.After(start) {
		start = b.StartTime
	}
	end := a.EndTime
	if b.EndTime.Before(end) {
		end = b.EndTime
	}
	if start.After(end) {
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}

// scanMatches compares a hangout event against friends' visible hangouts
// and records and announces every new overlap
func (s *EventService) scanMatches(ctx context.Context, ev *models.Event) {
	if ev.Type != models.EventTypeHangout || ev.Visibility != models.VisibilityFriends {
		return
	}

	friendIDs, err := s.friendRepo.ListFriendIDs(ctx, ev.OwnerID)
	if err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to list friends for matching")
		return
	}
	if len(friendIDs) == 0 {
		return
	}

	candidates, err := s.eventRepo.ListVisibleHangouts(ctx, friendIDs)
	if err != nil {
		log.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to list candidate hangouts")
		return
	}

	for _, other := range candidates {
		start, end, ok := overlapWindow(ev, other)
		if !ok {
			continue
		}

		match := &models.HangoutMatch{
			ID:           uuid.New().String(),
			EventAID:     ev.ID,
			EventBID:     other.ID,
			UserAID:      ev.OwnerID,
			UserBID:      other.OwnerID,
			OverlapStart: start,
			OverlapEnd:   end,
			CreatedAt:    time.Now().UTC(),
		}
		// Event pair ordered so the unique index catches both directions
		if match.EventAID > match.EventBID {
			match.EventAID, match.EventBID = match.EventBID, match.EventAID
			match.UserAID, match.UserBID = match.UserBID, match.UserAID
		}

		if err := s.eventRepo.CreateMatch(ctx, match); err != nil {
			if errors.Is(err, storage.ErrDuplicate) {
				continue
			}
			log.Error().Err(err).Str("event_id", ev.ID).Msg("Failed to record hangout match")
			continue
		}

		s.announceMatch(ctx, match, ev, other)
	}
}

// announceMatch notifies both parties about a new overlap
func (s *EventService) announceMatch(ctx context.Context, match *models.HangoutMatch, ev, other *models.Event) {
	window := map[string]any{
		"match_id":      match.ID,
		"overlap_start": match.OverlapStart,
		"overlap_end":   match.OverlapEnd,
	}

	pairs := []struct {
		target   string
		friendID string
		eventID  string
	}{
		{ev.OwnerID, other.OwnerID, ev.ID},
		{other.OwnerID, ev.OwnerID, other.ID},
	}
	for _, p := range pairs {
		friend, err := s.userRepo.GetByID(ctx, p.friendID)
		if err != nil {
			log.Error().Err(err).Str("user_id", p.friendID).Msg("Failed to load friend for match notification")
			continue
		}
		data := map[string]any{"friend_id": p.friendID, "event_id": p.eventID}
		for k, v := range window {
			data[k] = v
		}
		if _, err := s.notifications.Notify(ctx, p.target, models.NotificationHangoutMatch,
			"Hangout match",
			fmt.Sprintf("You and %s are both free to hang out", friend.Username),
			data,
		); err != nil {
			log.Error().Err(err).Str("user_id", p.target).Msg("Failed to notify hangout match")
		}
	}
}
