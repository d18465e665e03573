package sqlite

import (
	"context"
	"testing"
	"time"

	"popin-backend/internal/models"
	"popin-backend/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStores(t *testing.T) *storage.Stores {
	t.Helper()
	store, err := Open(t.TempDir() + "/popin.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return NewStores(store)
}

func seedUser(t *testing.T, stores *storage.Stores, username string) *models.User {
	t.Helper()
	user := &models.User{
		ID:           uuid.New().String(),
		Email:        username + "@example.com",
		Username:     username,
		FullName:     "Test " + username,
		PasswordHash: "x",
		CreatedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, stores.Users.Create(context.Background(), user))
	return user
}

func TestForeignKeysEnforced(t *testing.T) {
	ctx := context.Background()
	store, err := Open(t.TempDir() + "/popin.db")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	stores := NewStores(store)

	alice := seedUser(t, stores, "alice")
	bob := seedUser(t, stores, "bob")

	req := &models.FriendRequest{
		ID:         uuid.New().String(),
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, stores.Friends.CreateRequest(ctx, req))

	// Deleting a user must cascade to rows referencing them
	_, err = store.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, alice.ID)
	require.NoError(t, err)

	_, err = stores.Friends.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestUserStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	alice := seedUser(t, stores, "alice")

	t.Run("lookups", func(t *testing.T) {
		got, err := stores.Users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.Email, got.Email)
		assert.True(t, got.CreatedAt.Equal(alice.CreatedAt))

		got, err = stores.Users.GetByEmail(ctx, alice.Email)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		got, err = stores.Users.GetByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.ID)

		_, err = stores.Users.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("duplicate email", func(t *testing.T) {
		dup := &models.User{
			ID:           uuid.New().String(),
			Email:        alice.Email,
			Username:     "alice2",
			PasswordHash: "x",
			CreatedAt:    time.Now().UTC(),
		}
		assert.ErrorIs(t, stores.Users.Create(ctx, dup), storage.ErrDuplicate)
	})

	t.Run("search by prefix", func(t *testing.T) {
		seedUser(t, stores, "albert")
		seedUser(t, stores, "bob")

		users, err := stores.Users.Search(ctx, "al", 10)
		require.NoError(t, err)
		require.Len(t, users, 2)
		assert.Equal(t, "albert", users[0].Username)
		assert.Equal(t, "alice", users[1].Username)
	})

	t.Run("push token", func(t *testing.T) {
		token := "device-token"
		require.NoError(t, stores.Users.UpdatePushToken(ctx, alice.ID, &token))
		got, err := stores.Users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got.PushToken)
		assert.Equal(t, token, *got.PushToken)

		require.NoError(t, stores.Users.UpdatePushToken(ctx, alice.ID, nil))
		got, err = stores.Users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		assert.Nil(t, got.PushToken)
	})

	t.Run("avatar url", func(t *testing.T) {
		require.NoError(t, stores.Users.UpdateAvatarURL(ctx, alice.ID, "https://cdn.example.com/a.jpg"))
		got, err := stores.Users.GetByID(ctx, alice.ID)
		require.NoError(t, err)
		require.NotNil(t, got.AvatarURL)
		assert.Equal(t, "https://cdn.example.com/a.jpg", *got.AvatarURL)

		assert.ErrorIs(t, stores.Users.UpdateAvatarURL(ctx, "missing", "x"), storage.ErrNotFound)
	})
}

func TestFriendStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	alice := seedUser(t, stores, "alice")
	bob := seedUser(t, stores, "bob")

	req := &models.FriendRequest{
		ID:         uuid.New().String(),
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, stores.Friends.CreateRequest(ctx, req))

	t.Run("duplicate request", func(t *testing.T) {
		dup := &models.FriendRequest{
			ID:         uuid.New().String(),
			SenderID:   alice.ID,
			ReceiverID: bob.ID,
			CreatedAt:  time.Now().UTC(),
		}
		assert.ErrorIs(t, stores.Friends.CreateRequest(ctx, dup), storage.ErrDuplicate)
	})

	t.Run("pending exists in either direction", func(t *testing.T) {
		exists, err := stores.Friends.PendingRequestExists(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.True(t, exists)

		exists, err = stores.Friends.PendingRequestExists(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("listing", func(t *testing.T) {
		sent, err := stores.Friends.ListRequestsBySender(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, sent, 1)
		assert.Equal(t, req.ID, sent[0].ID)

		received, err := stores.Friends.ListRequestsByReceiver(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, received, 1)
		assert.Equal(t, req.ID, received[0].ID)
	})

	t.Run("accept flow", func(t *testing.T) {
		got, err := stores.Friends.GetRequest(ctx, req.ID)
		require.NoError(t, err)
		assert.Equal(t, alice.ID, got.SenderID)

		userA, userB := alice.ID, bob.ID
		if userA > userB {
			userA, userB = userB, userA
		}
		require.NoError(t, stores.Friends.CreateFriendship(ctx, &models.Friendship{
			UserAID:   userA,
			UserBID:   userB,
			CreatedAt: time.Now().UTC(),
		}))
		require.NoError(t, stores.Friends.DeleteRequest(ctx, req.ID))

		_, err = stores.Friends.GetRequest(ctx, req.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		friends, err := stores.Friends.AreFriends(ctx, bob.ID, alice.ID)
		require.NoError(t, err)
		assert.True(t, friends)

		ids, err := stores.Friends.ListFriendIDs(ctx, alice.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{bob.ID}, ids)
	})

	t.Run("remove friendship", func(t *testing.T) {
		require.NoError(t, stores.Friends.DeleteFriendship(ctx, bob.ID, alice.ID))

		friends, err := stores.Friends.AreFriends(ctx, alice.ID, bob.ID)
		require.NoError(t, err)
		assert.False(t, friends)

		assert.ErrorIs(t, stores.Friends.DeleteFriendship(ctx, alice.ID, bob.ID), storage.ErrNotFound)
	})
}

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	alice := seedUser(t, stores, "alice")
	bob := seedUser(t, stores, "bob")

	base := time.Date(2026, 6, 1, 18, 0, 0, 0, time.UTC)
	now := time.Now().UTC().Truncate(time.Millisecond)

	newEvent := func(owner string, typ models.EventType, vis models.Visibility, start, end time.Time) *models.Event {
		return &models.Event{
			ID:         uuid.New().String(),
			OwnerID:    owner,
			Title:      "Hang",
			Type:       typ,
			Visibility: vis,
			StartTime:  start,
			EndTime:    end,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
	}

	hangA := newEvent(alice.ID, models.EventTypeHangout, models.VisibilityFriends, base, base.Add(2*time.Hour))
	require.NoError(t, stores.Events.Create(ctx, hangA))

	t.Run("get and update", func(t *testing.T) {
		got, err := stores.Events.GetByID(ctx, hangA.ID)
		require.NoError(t, err)
		assert.True(t, got.StartTime.Equal(hangA.StartTime))
		assert.Equal(t, models.EventTypeHangout, got.Type)

		got.Title = "Park hang"
		require.NoError(t, stores.Events.Update(ctx, got))
		got, err = stores.Events.GetByID(ctx, hangA.ID)
		require.NoError(t, err)
		assert.Equal(t, "Park hang", got.Title)

		_, err = stores.Events.GetByID(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("list by owner with window", func(t *testing.T) {
		later := newEvent(alice.ID, models.EventTypePersonal, "", base.Add(48*time.Hour), base.Add(49*time.Hour))
		require.NoError(t, stores.Events.Create(ctx, later))

		all, err := stores.Events.ListByOwner(ctx, alice.ID, nil, nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		to := base.Add(24 * time.Hour)
		windowed, err := stores.Events.ListByOwner(ctx, alice.ID, nil, &to)
		require.NoError(t, err)
		require.Len(t, windowed, 1)
		assert.Equal(t, hangA.ID, windowed[0].ID)
	})

	t.Run("visible hangouts filter", func(t *testing.T) {
		visible := newEvent(bob.ID, models.EventTypeHangout, models.VisibilityFriends, base, base.Add(time.Hour))
		private := newEvent(bob.ID, models.EventTypeHangout, models.VisibilityPrivate, base, base.Add(time.Hour))
		personal := newEvent(bob.ID, models.EventTypePersonal, "", base, base.Add(time.Hour))
		for _, ev := range []*models.Event{visible, private, personal} {
			require.NoError(t, stores.Events.Create(ctx, ev))
		}

		hangouts, err := stores.Events.ListVisibleHangouts(ctx, []string{bob.ID})
		require.NoError(t, err)
		require.Len(t, hangouts, 1)
		assert.Equal(t, visible.ID, hangouts[0].ID)

		none, err := stores.Events.ListVisibleHangouts(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("matches", func(t *testing.T) {
		hangB, err := stores.Events.ListVisibleHangouts(ctx, []string{bob.ID})
		require.NoError(t, err)
		require.Len(t, hangB, 1)

		eventA, eventB := hangA.ID, hangB[0].ID
		userA, userB := alice.ID, bob.ID
		if eventA > eventB {
			eventA, eventB = eventB, eventA
			userA, userB = userB, userA
		}
		match := &models.HangoutMatch{
			ID:           uuid.New().String(),
			EventAID:     eventA,
			EventBID:     eventB,
			UserAID:      userA,
			UserBID:      userB,
			OverlapStart: base,
			OverlapEnd:   base.Add(time.Hour),
			CreatedAt:    now,
		}
		require.NoError(t, stores.Events.CreateMatch(ctx, match))

		dup := *match
		dup.ID = uuid.New().String()
		assert.ErrorIs(t, stores.Events.CreateMatch(ctx, &dup), storage.ErrDuplicate)

		for _, userID := range []string{alice.ID, bob.ID} {
			matches, err := stores.Events.ListMatchesByUser(ctx, userID)
			require.NoError(t, err)
			require.Len(t, matches, 1)
			assert.Equal(t, match.ID, matches[0].ID)
			assert.True(t, matches[0].OverlapStart.Equal(base))
		}

		require.NoError(t, stores.Events.DeleteMatchesByEvent(ctx, hangA.ID))
		matches, err := stores.Events.ListMatchesByUser(ctx, alice.ID)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, stores.Events.Delete(ctx, hangA.ID))
		_, err := stores.Events.GetByID(ctx, hangA.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, stores.Events.Delete(ctx, hangA.ID), storage.ErrNotFound)
	})
}

func TestMessageStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	alice := seedUser(t, stores, "alice")
	bob := seedUser(t, stores, "bob")
	carol := seedUser(t, stores, "carol")

	convAB := alice.ID + "_" + bob.ID
	if bob.ID < alice.ID {
		convAB = bob.ID + "_" + alice.ID
	}
	convAC := alice.ID + "_" + carol.ID
	if carol.ID < alice.ID {
		convAC = carol.ID + "_" + alice.ID
	}

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	send := func(conv, from, to, content string, at time.Time) {
		t.Helper()
		require.NoError(t, stores.Messages.Create(ctx, &models.Message{
			ID:             uuid.New().String(),
			ConversationID: conv,
			SenderID:       from,
			ReceiverID:     to,
			Content:        content,
			CreatedAt:      at,
		}))
	}

	send(convAB, alice.ID, bob.ID, "hey", base)
	send(convAB, bob.ID, alice.ID, "hi", base.Add(time.Minute))
	send(convAB, bob.ID, alice.ID, "free tonight?", base.Add(2*time.Minute))
	send(convAC, carol.ID, alice.ID, "lunch?", base.Add(3*time.Minute))

	t.Run("list newest first with before cursor", func(t *testing.T) {
		msgs, err := stores.Messages.ListByConversation(ctx, convAB, base.Add(time.Hour), 50)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "free tonight?", msgs[0].Content)
		assert.Equal(t, "hey", msgs[2].Content)

		older, err := stores.Messages.ListByConversation(ctx, convAB, base.Add(time.Minute), 50)
		require.NoError(t, err)
		require.Len(t, older, 1)
		assert.Equal(t, "hey", older[0].Content)

		limited, err := stores.Messages.ListByConversation(ctx, convAB, base.Add(time.Hour), 2)
		require.NoError(t, err)
		assert.Len(t, limited, 2)
	})

	t.Run("conversations summary", func(t *testing.T) {
		convs, err := stores.Messages.ListConversations(ctx, alice.ID)
		require.NoError(t, err)
		require.Len(t, convs, 2)

		// Newest conversation first
		assert.Equal(t, convAC, convs[0].ConversationID)
		assert.Equal(t, carol.ID, convs[0].FriendID)
		assert.Equal(t, 1, convs[0].UnreadCount)

		assert.Equal(t, convAB, convs[1].ConversationID)
		assert.Equal(t, bob.ID, convs[1].FriendID)
		assert.Equal(t, "free tonight?", convs[1].LastMessage.Content)
		assert.Equal(t, 2, convs[1].UnreadCount)

		// Bob sees only his thread, with alice's one message unread
		bobConvs, err := stores.Messages.ListConversations(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, bobConvs, 1)
		assert.Equal(t, 1, bobConvs[0].UnreadCount)
	})

	t.Run("mark conversation read", func(t *testing.T) {
		require.NoError(t, stores.Messages.MarkConversationRead(ctx, convAB, alice.ID))

		convs, err := stores.Messages.ListConversations(ctx, alice.ID)
		require.NoError(t, err)
		for _, c := range convs {
			if c.ConversationID == convAB {
				assert.Equal(t, 0, c.UnreadCount)
			}
		}

		// Reading does not touch messages addressed to the other side
		bobConvs, err := stores.Messages.ListConversations(ctx, bob.ID)
		require.NoError(t, err)
		require.Len(t, bobConvs, 1)
		assert.Equal(t, 1, bobConvs[0].UnreadCount)
	})
}

func TestNotificationStore(t *testing.T) {
	ctx := context.Background()
	stores := openTestStores(t)

	alice := seedUser(t, stores, "alice")

	base := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	first := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    alice.ID,
		Type:      models.NotificationFriendRequest,
		Title:     "Friend request",
		Message:   "bob wants to be friends",
		Data:      map[string]any{"sender_id": "bob"},
		CreatedAt: base,
	}
	second := &models.Notification{
		ID:        uuid.New().String(),
		UserID:    alice.ID,
		Type:      models.NotificationMessage,
		Title:     "New message",
		Message:   "bob: hey",
		CreatedAt: base.Add(time.Minute),
	}
	require.NoError(t, stores.Notifications.Create(ctx, first))
	require.NoError(t, stores.Notifications.Create(ctx, second))

	t.Run("list newest first", func(t *testing.T) {
		list, err := stores.Notifications.ListByUser(ctx, alice.ID, 50)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, second.ID, list[0].ID)
		assert.Equal(t, "bob", list[1].Data["sender_id"])
		assert.False(t, list[0].Read)
	})

	t.Run("mark read", func(t *testing.T) {
		require.NoError(t, stores.Notifications.MarkRead(ctx, first.ID, alice.ID))
		list, err := stores.Notifications.ListByUser(ctx, alice.ID, 50)
		require.NoError(t, err)
		assert.True(t, list[1].Read)
		assert.False(t, list[0].Read)

		assert.ErrorIs(t, stores.Notifications.MarkRead(ctx, first.ID, "someone-else"), storage.ErrNotFound)
	})

	t.Run("mark all read", func(t *testing.T) {
		require.NoError(t, stores.Notifications.MarkAllRead(ctx, alice.ID))
		list, err := stores.Notifications.ListByUser(ctx, alice.ID, 50)
		require.NoError(t, err)
		for _, n := range list {
			assert.True(t, n.Read)
		}
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, stores.Notifications.Delete(ctx, second.ID, alice.ID))
		list, err := stores.Notifications.ListByUser(ctx, alice.ID, 50)
		require.NoError(t, err)
		assert.Len(t, list, 1)

		assert.ErrorIs(t, stores.Notifications.Delete(ctx, second.ID, alice.ID), storage.ErrNotFound)
	})
}
