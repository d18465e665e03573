package services

import (
	"context"
	"testing"
	"time"

	"popin-backend/internal/config"
	"popin-backend/internal/models"
	"popin-backend/internal/storage"
	"popin-backend/internal/storage/sqlite"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	stores   *storage.Stores
	users    *UserService
	friends  *FriendService
	events   *EventService
	messages *MessageService
	notifs   *NotificationService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store, err := sqlite.Open(t.TempDir() + "/popin.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	stores := sqlite.NewStores(store)
	hub := NewHub(stores.Friends)
	notifs, err := NewNotificationService(stores.Notifications, stores.Users, hub, config.APNSConfig{})
	require.NoError(t, err)

	return &testEnv{
		stores:   stores,
		users:    NewUserService(stores.Users, "test-secret"),
		friends:  NewFriendService(stores.Friends, stores.Users, notifs),
		events:   NewEventService(stores.Events, stores.Friends, stores.Users, notifs),
		messages: NewMessageService(stores.Messages, stores.Friends, stores.Users, hub, notifs),
		notifs:   notifs,
	}
}

func (e *testEnv) register(t *testing.T, username string) *models.User {
	t.Helper()
	user, token, err := e.users.Register(context.Background(),
		username+"@example.com", username, "Test "+username, "password123")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	return user
}

func (e *testEnv) befriend(t *testing.T, a, b *models.User) {
	t.Helper()
	req, err := e.friends.SendRequest(context.Background(), a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.friends.Accept(context.Background(), req.ID, b.ID)
	require.NoError(t, err)
}

func notificationTypes(t *testing.T, e *testEnv, userID string) []string {
	t.Helper()
	list, err := e.notifs.List(context.Background(), userID, 0)
	require.NoError(t, err)
	types := make([]string, len(list))
	for i, n := range list {
		types[i] = n.Type
	}
	return types
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := env.register(t, "alice")

	t.Run("duplicate email", func(t *testing.T) {
		_, _, err := env.users.Register(ctx, "alice@example.com", "other", "", "password123")
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("duplicate username", func(t *testing.T) {
		_, _, err := env.users.Register(ctx, "other@example.com", "alice", "", "password123")
		assert.ErrorIs(t, err, ErrUsernameTaken)
	})

	t.Run("login round trip", func(t *testing.T) {
		user, token, err := env.users.Login(ctx, "Alice@Example.com", "password123")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, user.ID)

		userID, err := env.users.ValidateJWT(token)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, userID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := env.users.Login(ctx, "alice@example.com", "nope")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := env.users.Login(ctx, "ghost@example.com", "password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestFriendRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")

	t.Run("self request rejected", func(t *testing.T) {
		_, err := env.friends.SendRequest(ctx, alice.ID, alice.ID)
		assert.ErrorIs(t, err, ErrSelfRequest)
	})

	t.Run("unknown receiver", func(t *testing.T) {
		_, err := env.friends.SendRequest(ctx, alice.ID, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	req, err := env.friends.SendRequest(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	t.Run("receiver is notified", func(t *testing.T) {
		assert.Contains(t, notificationTypes(t, env, bob.ID), models.NotificationFriendRequest)
	})

	t.Run("duplicate pending rejected both directions", func(t *testing.T) {
		_, err := env.friends.SendRequest(ctx, alice.ID, bob.ID)
		assert.ErrorIs(t, err, ErrRequestPending)
		_, err = env.friends.SendRequest(ctx, bob.ID, alice.ID)
		assert.ErrorIs(t, err, ErrRequestPending)
	})

	t.Run("only the receiver may accept", func(t *testing.T) {
		_, err := env.friends.Accept(ctx, req.ID, alice.ID)
		assert.ErrorIs(t, err, ErrNotRequestParty)
		_, err = env.friends.Accept(ctx, req.ID, carol.ID)
		assert.ErrorIs(t, err, ErrNotRequestParty)
	})

	t.Run("accept creates the friendship and notifies the sender", func(t *testing.T) {
		_, err := env.friends.Accept(ctx, req.ID, bob.ID)
		require.NoError(t, err)

		friends, err := env.friends.AreFriends(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, friends)

		reqs, err := env.friends.ListRequests(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, reqs.Sent)

		assert.Contains(t, notificationTypes(t, env, alice.ID), models.NotificationFriendAccepted)
	})

	t.Run("request between friends rejected", func(t *testing.T) {
		_, err := env.friends.SendRequest(ctx, bob.ID, alice.ID)
		assert.ErrorIs(t, err, ErrAlreadyFriends)
	})

	t.Run("decline and cancel", func(t *testing.T) {
		req, err := env.friends.SendRequest(ctx, carol.ID, bob.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, env.friends.Decline(ctx, req.ID, carol.ID), ErrNotRequestParty)
		require.NoError(t, env.friends.Decline(ctx, req.ID, bob.ID))

		friends, err := env.friends.AreFriends(ctx, carol.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, friends)

		req, err = env.friends.SendRequest(ctx, carol.ID, bob.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, env.friends.Cancel(ctx, req.ID, bob.ID), ErrNotRequestParty)
		require.NoError(t, env.friends.Cancel(ctx, req.ID, carol.ID))
	})

	t.Run("remove friend", func(t *testing.T) {
		require.NoError(t, env.friends.RemoveFriend(ctx, bob.ID, alice.ID))
		friends, err := env.friends.AreFriends(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, friends)
	})
}

func TestHangoutMatching(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	env.befriend(t, alice, bob)

	base := time.Date(2026, 6, 5, 18, 0, 0, 0, time.UTC)

	_, err := env.events.Create(ctx, alice.ID, EventInput{
		Title:     "Evening hang",
		Type:      models.EventTypeHangout,
		StartTime: base,
		EndTime:   base.Add(3 * time.Hour),
	})
	require.NoError(t, err)

	t.Run("no match without a counterpart", func(t *testing.T) {
		matches, err := env.events.ListMatches(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("overlapping friend hangout matches", func(t *testing.T) {
		_, err := env.events.Create(ctx, bob.ID, EventInput{
			Title:     "Free after work",
			Type:      models.EventTypeHangout,
			StartTime: base.Add(time.Hour),
			EndTime:   base.Add(4 * time.Hour),
		})
		require.NoError(t, err)

		for _, user := range []*models.User{alice, bob} {
			matches, err := env.events.ListMatches(ctx, user.ID)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.True(t, matches[0].OverlapStart.Equal(base.Add(time.Hour)))
			assert.True(t, matches[0].OverlapEnd.Equal(base.Add(3*time.Hour)))
			assert.Contains(t, notificationTypes(t, env, user.ID), models.NotificationHangoutMatch)
		}
	})

	t.Run("non-friends never match", func(t *testing.T) {
		_, err := env.events.Create(ctx, carol.ID, EventInput{
			Title:     "Also free",
			Type:      models.EventTypeHangout,
			StartTime: base,
			EndTime:   base.Add(3 * time.Hour),
		})
		require.NoError(t, err)

		matches, err := env.events.ListMatches(ctx, carol.ID)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("private hangouts never match", func(t *testing.T) {
		ev, err := env.events.Create(ctx, bob.ID, EventInput{
			Title:      "Quiet night",
			Type:       models.EventTypeHangout,
			Visibility: models.VisibilityPrivate,
			StartTime:  base,
			EndTime:    base.Add(time.Hour),
		})
		require.NoError(t, err)

		matches, err := env.events.ListMatches(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.NotContains(t, []string{matches[0].EventAID, matches[0].EventBID}, ev.ID)
	})

	t.Run("personal events never match", func(t *testing.T) {
		_, err := env.events.Create(ctx, bob.ID, EventInput{
			Title:     "Dentist",
			Type:      models.EventTypePersonal,
			StartTime: base,
			EndTime:   base.Add(time.Hour),
		})
		require.NoError(t, err)

		matches, err := env.events.ListMatches(ctx, alice.ID)
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("moving an event away clears the match", func(t *testing.T) {
		events, err := env.events.List(ctx, bob.ID, nil, nil)
		require.NoError(t, err)
		var hangout *models.Event
		for _, ev := range events {
			if ev.Title == "Free after work" {
				hangout = ev
			}
		}
		require.NotNil(t, hangout)

		_, err = env.events.Update(ctx, hangout.ID, bob.ID, EventInput{
			Title:     hangout.Title,
			Type:      hangout.Type,
			StartTime: base.Add(24 * time.Hour),
			EndTime:   base.Add(26 * time.Hour),
		})
		require.NoError(t, err)

		matches, err := env.events.ListMatches(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("only the owner may edit or delete", func(t *testing.T) {
		events, err := env.events.List(ctx, alice.ID, nil, nil)
		require.NoError(t, err)
		require.NotEmpty(t, events)

		_, err = env.events.Get(ctx, events[0].ID, bob.ID)
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.ErrorIs(t, env.events.Delete(ctx, events[0].ID, bob.ID), ErrNotOwner)
	})
}

func TestMessaging(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")
	carol := env.register(t, "carol")
	env.befriend(t, alice, bob)

	t.Run("only friends can message", func(t *testing.T) {
		_, err := env.messages.Send(ctx, alice.ID, carol.ID, "hi")
		assert.ErrorIs(t, err, ErrNotFriends)
	})

	t.Run("blank content rejected", func(t *testing.T) {
		_, err := env.messages.Send(ctx, alice.ID, bob.ID, "   ")
		assert.ErrorIs(t, err, ErrEmptyMessage)
	})

	t.Run("send and list", func(t *testing.T) {
		sent, err := env.messages.Send(ctx, alice.ID, bob.ID, "free tonight?")
		require.NoError(t, err)
		assert.Equal(t, ConversationID(alice.ID, bob.ID), sent.ConversationID)

		msgs, err := env.messages.ListMessages(ctx, bob.ID, alice.ID, time.Time{}, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 1)
		assert.Equal(t, "free tonight?", msgs[0].Content)

		// Offline receiver falls back to a stored notification
		assert.Contains(t, notificationTypes(t, env, bob.ID), models.NotificationMessage)
	})

	t.Run("conversations and read state", func(t *testing.T) {
		convs, err := env.messages.ListConversations(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, convs, 1)
		assert.Equal(t, alice.ID, convs[0].FriendID)
		assert.Equal(t, 1, convs[0].UnreadCount)

		require.NoError(t, env.messages.MarkRead(ctx, bob.ID, alice.ID))

		convs, err = env.messages.ListConversations(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, convs, 1)
		assert.Equal(t, 0, convs[0].UnreadCount)
	})
}
