package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var (
	// ErrSelfRequest is returned when a user friend-requests themselves
	ErrSelfRequest = errors.New("cannot send a friend request to yourself")
	// ErrAlreadyFriends is returned when the users are already friends
	ErrAlreadyFriends = errors.New("users are already friends")
	// ErrRequestPending is returned when a request already exists between
	// the two users
	ErrRequestPending = errors.New("friend request already pending")
	// ErrNotRequestParty is returned when the caller is not allowed to act
	// on a friend request
	ErrNotRequestParty = errors.New("not a party to this friend request")
)

// FriendRequests splits pending requests the way clients consume them
type FriendRequests struct {
	Sent     []*models.FriendRequest `json:"sent"`
	Received []*models.FriendRequest `json:"received"`
}

// FriendService handles the friend request lifecycle and friendships
type FriendService struct {
	friendRepo    storage.FriendStore
	userRepo      storage.UserStore
	notifications *NotificationService
}

// NewFriendService creates a new friend service
func NewFriendService(friendRepo storage.FriendStore, userRepo storage.UserStore, notifications *NotificationService) *FriendService {
	return &FriendService{
		friendRepo:    friendRepo,
		userRepo:      userRepo,
		notifications: notifications,
	}
}

// SendRequest creates a pending friend request and notifies the receiver
func (s *FriendService) SendRequest(ctx context.Context, senderID, receiverID string) (*models.FriendRequest, error) {
	if senderID == receiverID {
		return nil, ErrSelfRequest
	}

	receiver, err := s.userRepo.GetByID(ctx, receiverID)
	if err != nil {
		return nil, err
	}

	friends, err := s.friendRepo.AreFriends(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check friendship: %w", err)
	}
	if friends {
		return nil, ErrAlreadyFriends
	}

	pending, err := s.friendRepo.PendingRequestExists(ctx, senderID, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to check pending request: %w", err)
	}
	if pending {
		return nil, ErrRequestPending
	}

	req := &models.FriendRequest{
		ID:         uuid.New().String(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.friendRepo.CreateRequest(ctx, req); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrRequestPending
		}
		return nil, fmt.Errorf("failed to create friend request: %w", err)
	}

	sender, err := s.userRepo.GetByID(ctx, senderID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, receiver.ID, models.NotificationFriendRequest,
		"New friend request",
		fmt.Sprintf("%s sent you a friend request", sender.Username),
		map[string]any{"request_id": req.ID, "sender_id": senderID},
	)

	return req, nil
}

// Accept accepts a pending request addressed to userID and creates the
// friendship
func (s *FriendService) Accept(ctx context.Context, requestID, userID string) (*models.Friendship, error) {
	req, err := s.friendRepo.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.ReceiverID != userID {
		return nil, ErrNotRequestParty
	}

	// Store the pair in lexicographic order so each friendship exists once
	userA, userB := req.SenderID, req.ReceiverID
	if userA > userB {
		userA, userB = userB, userA
	}
	friendship := &models.Friendship{
		UserAID:   userA,
		UserBID:   userB,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.friendRepo.CreateFriendship(ctx, friendship); err != nil && !errors.Is(err, storage.ErrDuplicate) {
		return nil, fmt.Errorf("failed to create friendship: %w", err)
	}

	if err := s.friendRepo.DeleteRequest(ctx, requestID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("failed to delete friend request: %w", err)
	}

	accepter, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, req.SenderID, models.NotificationFriendAccepted,
		"Friend request accepted",
		fmt.Sprintf("%s accepted your friend request", accepter.Username),
		map[string]any{"friend_id": userID},
	)

	return friendship, nil
}

// Decline declines a pending request addressed to userID
func (s *FriendService) Decline(ctx context.Context, requestID, userID string) error {
	req, err := s.friendRepo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.ReceiverID != userID {
		return ErrNotRequestParty
	}
	return s.friendRepo.DeleteRequest(ctx, requestID)
}

// Cancel withdraws a pending request sent by userID
func (s *FriendService) Cancel(ctx context.Context, requestID, userID string) error {
	req, err := s.friendRepo.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if req.SenderID != userID {
		return ErrNotRequestParty
	}
	return s.friendRepo.DeleteRequest(ctx, requestID)
}

// ListRequests retrieves pending requests split into sent and received
func (s *FriendService) ListRequests(ctx context.Context, userID string) (*FriendRequests, error) {
	sent, err := s.friendRepo.ListRequestsBySender(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := s.friendRepo.ListRequestsByReceiver(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &FriendRequests{Sent: sent, Received: received}, nil
}

// ListFriends retrieves the profiles of a user's friends
func (s *FriendService) ListFriends(ctx context.Context, userID string) ([]*models.User, error) {
	ids, err := s.friendRepo.ListFriendIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	friends := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		user, err := s.userRepo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, err
		}
		friends = append(friends, user)
	}
	return friends, nil
}

// RemoveFriend deletes the friendship between two users
func (s *FriendService) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return s.friendRepo.DeleteFriendship(ctx, userID, friendID)
}

// AreFriends checks if two users are friends
func (s *FriendService) AreFriends(ctx context.Context, userA, userB string) (bool, error) {
	return s.friendRepo.AreFriends(ctx, userA, userB)
}

func (s *FriendService) notify(ctx context.Context, userID, ntype, title, message string, data map[string]any) {
	if _, err := s.notifications.Notify(ctx, userID, ntype, title, message, data); err != nil {
		log.Error().Err(err).Str("user_id", userID).Str("type", ntype).Msg("Failed to notify")
	}
}
