package models

import "time"

// User represents a registered account
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	FullName     string    `json:"full_name"`
	PasswordHash string    `json:"-"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	PushToken    *string   `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// FriendRequest represents a pending friend request. Accepted and declined
// requests are deleted, so every stored row is pending.
type FriendRequest struct {
	ID         string    `json:"id"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// Friendship links two users. UserAID is always the lexicographically
// smaller id so each pair is stored exactly once.
type Friendship struct {
	UserAID   string    `json:"user_a_id"`
	UserBID   string    `json:"user_b_id"`
	CreatedAt time.Time `json:"created_at"`
}

// EventType tags an event as a personal calendar entry or a hangout
type EventType string

const (
	EventTypePersonal EventType = "personal"
	EventTypeHangout  EventType = "hangout"
)

// Visibility controls whether a hangout event participates in matching
type Visibility string

const (
	VisibilityFriends Visibility = "friends"
	VisibilityPrivate Visibility = "private"
)

// Event represents a calendar event owned by a user
type Event struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"owner_id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     time.Time  `json:"end_time"`
	Type        EventType  `json:"type"`
	Visibility  Visibility `json:"visibility,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Message represents a direct message between two friends
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	ReceiverID     string    `json:"receiver_id"`
	Content        string    `json:"content"`
	Read           bool      `json:"read"`
	CreatedAt      time.Time `json:"created_at"`
}

// Conversation summarizes one message thread for the conversations list
type Conversation struct {
	ConversationID string   `json:"conversation_id"`
	FriendID       string   `json:"friend_id"`
	LastMessage    *Message `json:"last_message"`
	UnreadCount    int      `json:"unread_count"`
}

// Notification types
const (
	NotificationFriendRequest  = "friend_request"
	NotificationFriendAccepted = "friend_accepted"
	NotificationHangoutMatch   = "hangout_match"
	NotificationMessage        = "message"
)

// Notification represents a stored notification for a user
type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Data      map[string]any `json:"data,omitempty"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"created_at"`
}

// HangoutMatch records an overlap between two friends' hangout events.
// EventAID is the lexicographically smaller event id; UserAID owns event A.
type HangoutMatch struct {
	ID           string    `json:"id"`
	EventAID     string    `json:"event_a_id"`
	EventBID     string    `json:"event_b_id"`
	UserAID      string    `json:"user_a_id"`
	UserBID      string    `json:"user_b_id"`
	OverlapStart time.Time `json:"overlap_start"`
	OverlapEnd   time.Time `json:"overlap_end"`
	CreatedAt    time.Time `json:"created_at"`
}
