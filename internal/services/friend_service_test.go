package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

type friendFixture struct {
	db         *gorm.DB
	service    FriendService
	dispatcher *fakeDispatcher
	alice      *models.User
	bob        *models.User
}

func newFriendFixture(t *testing.T) *friendFixture {
	t.Helper()

	db := newTestDB(t)
	dispatcher := &fakeDispatcher{}
	service := NewFriendService(
		db,
		storage.NewGormUserRepository(db),
		storage.NewGormFriendRequestRepository(db),
		storage.NewGormFriendshipRepository(db),
		dispatcher,
	)
	return &friendFixture{
		db:         db,
		service:    service,
		dispatcher: dispatcher,
		alice:      createUser(t, db, "alice"),
		bob:        createUser(t, db, "bob"),
	}
}

func TestSendRequestToSelf(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.service.SendRequest(context.Background(), f.alice.ID, f.alice.ID)
	require.ErrorIs(t, err, ErrInvalidTarget)
}

func TestSendRequestToUnknownUser(t *testing.T) {
	f := newFriendFixture(t)

	_, err := f.service.SendRequest(context.Background(), f.alice.ID, 9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestSendRequestDuplicateAndMirrored(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.Equal(t, models.FriendRequestStatusPending, request.Status)

	// Sending again in the same direction is rejected.
	_, err = f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrRequestAlreadyPending)

	// The mirrored direction is rejected too: bob should accept instead.
	_, err = f.service.SendRequest(ctx, f.bob.ID, f.alice.ID)
	require.ErrorIs(t, err, ErrRequestAlreadyIncoming)

	// Bob was notified about the one request that was created.
	require.Equal(t, []models.NotificationKind{models.NotificationFriendRequest}, f.dispatcher.kindsFor(f.bob.ID))
}

func TestAcceptCreatesSymmetricFriendship(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Accept(ctx, f.bob.ID, request.ID))

	friendshipRepo := storage.NewGormFriendshipRepository(f.db)
	for _, pair := range [][2]uint{{f.alice.ID, f.bob.ID}, {f.bob.ID, f.alice.ID}} {
		exists, err := friendshipRepo.Exists(ctx, pair[0], pair[1])
		require.NoError(t, err)
		require.True(t, exists)
	}

	// Both directed rows carry the same Since timestamp.
	var friendships []models.Friendship
	require.NoError(t, f.db.Find(&friendships).Error)
	require.Len(t, friendships, 2)
	require.Equal(t, friendships[0].Since.Unix(), friendships[1].Since.Unix())

	// Both sides see each other in their friend lists.
	aliceFriends, err := f.service.ListFriends(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, aliceFriends, 1)
	require.Equal(t, f.bob.ID, aliceFriends[0].ID)

	bobFriends, err := f.service.ListFriends(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, bobFriends, 1)
	require.Equal(t, f.alice.ID, bobFriends[0].ID)

	// The sender is told their request was accepted.
	require.Equal(t, []models.NotificationKind{models.NotificationFriendAccept}, f.dispatcher.kindsFor(f.alice.ID))

	// A new request between friends is rejected.
	_, err = f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.ErrorIs(t, err, ErrAlreadyFriends)
}

func TestAcceptByWrongUser(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	// The sender cannot accept their own request.
	require.ErrorIs(t, f.service.Accept(ctx, f.alice.ID, request.ID), ErrInvalidRequestState)

	carol := createUser(t, f.db, "carol")
	require.ErrorIs(t, f.service.Accept(ctx, carol.ID, request.ID), ErrInvalidRequestState)
}

func TestAcceptUnknownRequest(t *testing.T) {
	f := newFriendFixture(t)

	require.ErrorIs(t, f.service.Accept(context.Background(), f.bob.ID, 4242), ErrRequestNotFound)
}

func TestTerminalStatesAreFinal(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Accept(ctx, f.bob.ID, request.ID))

	// No transition leaves a terminal state.
	require.ErrorIs(t, f.service.Accept(ctx, f.bob.ID, request.ID), ErrInvalidRequestState)
	require.ErrorIs(t, f.service.Decline(ctx, f.bob.ID, request.ID), ErrInvalidRequestState)
	require.ErrorIs(t, f.service.Cancel(ctx, f.alice.ID, request.ID), ErrInvalidRequestState)
}

func TestDeclineThenResend(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	// Only the recipient may decline.
	require.ErrorIs(t, f.service.Decline(ctx, f.alice.ID, request.ID), ErrInvalidRequestState)
	require.NoError(t, f.service.Decline(ctx, f.bob.ID, request.ID))

	// No friendship came out of the decline.
	friends, err := f.service.ListFriends(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Empty(t, friends)

	// The pair is free for a new request.
	_, err = f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
}

func TestCancelThenResend(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	// Only the sender may cancel.
	require.ErrorIs(t, f.service.Cancel(ctx, f.bob.ID, request.ID), ErrInvalidRequestState)
	require.NoError(t, f.service.Cancel(ctx, f.alice.ID, request.ID))

	// Either side can start over, including the former recipient.
	_, err = f.service.SendRequest(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
}

func TestDoubleAcceptSingleWinner(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)

	// Simulate the losing side of a race: the guarded update sees the row
	// already transitioned and reports zero rows affected.
	requestRepo := storage.NewGormFriendRequestRepository(f.db)
	rows, err := requestRepo.UpdateStatusIfPending(ctx, request.ID, models.FriendRequestStatusAccepted)
	require.NoError(t, err)
	require.EqualValues(t, 1, rows)

	rows, err = requestRepo.UpdateStatusIfPending(ctx, request.ID, models.FriendRequestStatusAccepted)
	require.NoError(t, err)
	require.EqualValues(t, 0, rows)

	require.ErrorIs(t, f.service.Accept(ctx, f.bob.ID, request.ID), ErrInvalidRequestState)
}

func TestUnfriendIsIdempotent(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Accept(ctx, f.bob.ID, request.ID))

	require.NoError(t, f.service.Unfriend(ctx, f.alice.ID, f.bob.ID))

	var count int64
	require.NoError(t, f.db.Model(&models.Friendship{}).Count(&count).Error)
	require.Zero(t, count)

	// Unfriending again, or with no friendship at all, is a silent no-op.
	require.NoError(t, f.service.Unfriend(ctx, f.alice.ID, f.bob.ID))
	require.NoError(t, f.service.Unfriend(ctx, f.bob.ID, f.alice.ID))

	// After unfriending the pair can reconnect through a fresh request.
	_, err = f.service.SendRequest(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
}

func TestRefriendAfterUnfriend(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	request, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Accept(ctx, f.bob.ID, request.ID))
	require.NoError(t, f.service.Unfriend(ctx, f.alice.ID, f.bob.ID))

	// The full cycle must work again: unfriending clears the edge rows, so
	// accepting a fresh request recreates the friendship cleanly.
	request, err = f.service.SendRequest(ctx, f.bob.ID, f.alice.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Accept(ctx, f.alice.ID, request.ID))

	for _, userID := range []uint{f.alice.ID, f.bob.ID} {
		friends, err := f.service.ListFriends(ctx, userID)
		require.NoError(t, err)
		require.Len(t, friends, 1)
	}
}

func TestListIncomingAndOutgoing(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()
	carol := createUser(t, f.db, "carol")

	_, err := f.service.SendRequest(ctx, f.alice.ID, f.bob.ID)
	require.NoError(t, err)
	_, err = f.service.SendRequest(ctx, carol.ID, f.bob.ID)
	require.NoError(t, err)

	incoming, err := f.service.ListIncoming(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 2)
	for _, req := range incoming {
		require.NotNil(t, req.Sender)
		require.Equal(t, req.FromUserID, req.Sender.ID)
	}

	outgoing, err := f.service.ListOutgoing(ctx, f.alice.ID)
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	require.NotNil(t, outgoing[0].Recipient)
	require.Equal(t, f.bob.ID, outgoing[0].Recipient.ID)

	// Accepted requests drop out of both listings.
	require.NoError(t, f.service.Accept(ctx, f.bob.ID, incoming[0].ID))
	incoming, err = f.service.ListIncoming(ctx, f.bob.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
}

func TestSearchUsersRelationshipAnnotations(t *testing.T) {
	f := newFriendFixture(t)
	ctx := context.Background()

	friend := createUser(t, f.db, "sam-friend")
	outgoing := createUser(t, f.db, "sam-outgoing")
	incoming := createUser(t, f.db, "sam-incoming")
	stranger := createUser(t, f.db, "sam-stranger")

	request, err := f.service.SendRequest(ctx, f.alice.ID, friend.ID)
	require.NoError(t, err)
	require.NoError(t, f.service.Accept(ctx, friend.ID, request.ID))
	_, err = f.service.SendRequest(ctx, f.alice.ID, outgoing.ID)
	require.NoError(t, err)
	_, err = f.service.SendRequest(ctx, incoming.ID, f.alice.ID)
	require.NoError(t, err)

	results, err := f.service.SearchUsers(ctx, f.alice.ID, "sam-")
	require.NoError(t, err)
	require.Len(t, results, 4)

	byID := make(map[uint]models.RelationshipStatus, len(results))
	for _, hit := range results {
		byID[hit.ID] = hit.Relationship
	}
	require.Equal(t, models.RelationshipFriend, byID[friend.ID])
	require.Equal(t, models.RelationshipPendingOutgoing, byID[outgoing.ID])
	require.Equal(t, models.RelationshipPendingIncoming, byID[incoming.ID])
	require.Equal(t, models.RelationshipNone, byID[stranger.ID])
}

func TestSearchUsersExcludesCaller(t *testing.T) {
	f := newFriendFixture(t)

	results, err := f.service.SearchUsers(context.Background(), f.alice.ID, "alice")
	require.NoError(t, err)
	require.Empty(t, results)
}
