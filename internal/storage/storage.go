// Package storage defines the repository interfaces implemented by the
// postgres and sqlite backends.
package storage

import (
	"context"
	"errors"
	"time"

	"popin-backend/internal/models"
)

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique constraint is violated
	ErrDuplicate = errors.New("already exists")
)

// UserStore handles persistence for users
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Search(ctx context.Context, query string, limit int) ([]*models.User, error)
	UpdatePushToken(ctx context.Context, userID string, pushToken *string) error
	UpdateAvatarURL(ctx context.Context, userID, avatarURL string) error
}

// FriendStore handles persistence for friend requests and friendships
type FriendStore interface {
	CreateRequest(ctx context.Context, req *models.FriendRequest) error
	GetRequest(ctx context.Context, id string) (*models.FriendRequest, error)
	DeleteRequest(ctx context.Context, id string) error
	ListRequestsBySender(ctx context.Context, senderID string) ([]*models.FriendRequest, error)
	ListRequestsByReceiver(ctx context.Context, receiverID string) ([]*models.FriendRequest, error)
	PendingRequestExists(ctx context.Context, userA, userB string) (bool, error)
	CreateFriendship(ctx context.Context, f *models.Friendship) error
	DeleteFriendship(ctx context.Context, userA, userB string) error
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
	ListFriendIDs(ctx context.Context, userID string) ([]string, error)
}

// EventStore handles persistence for events and hangout matches
type EventStore interface {
	Create(ctx context.Context, ev *models.Event) error
	GetByID(ctx context.Context, id string) (*models.Event, error)
	Update(ctx context.Context, ev *models.Event) error
	Delete(ctx context.Context, id string) error
	ListByOwner(ctx context.Context, ownerID string, from, to *time.Time) ([]*models.Event, error)
	ListVisibleHangouts(ctx context.Context, ownerIDs []string) ([]*models.Event, error)

	CreateMatch(ctx context.Context, m *models.HangoutMatch) error
	DeleteMatchesByEvent(ctx context.Context, eventID string) error
	ListMatchesByUser(ctx context.Context, userID string) ([]*models.HangoutMatch, error)
}

// MessageStore handles persistence for direct messages
type MessageStore interface {
	Create(ctx context.Context, msg *models.Message) error
	ListByConversation(ctx context.Context, conversationID string, before time.Time, limit int) ([]*models.Message, error)
	ListConversations(ctx context.Context, userID string) ([]*models.Conversation, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID string) error
}

// NotificationStore handles persistence for notifications
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
	Delete(ctx context.Context, id, userID string) error
}

// Stores bundles all repositories for one backend
type Stores struct {
	Users         UserStore
	Friends       FriendStore
	Events        EventStore
	Messages      MessageStore
	Notifications NotificationStore
}
