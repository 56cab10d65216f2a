package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"gobear/internal/models"
	"gobear/internal/storage"
)

// maxTxRetries bounds the optimistic-concurrency retry loop. A transaction
// that keeps colliding after this many attempts surfaces ErrConflict.
const maxTxRetries = 3

// FriendService owns the friend-request lifecycle and the symmetric friends
// relation.
//
// Requests move pending -> accepted | declined | cancelled and never leave a
// terminal state. At most one pending request exists per unordered user pair,
// and every multi-row mutation (accept, unfriend) commits atomically.
type FriendService interface {
	SendRequest(ctx context.Context, callerID, targetID uint) (*models.FriendRequest, error)
	Accept(ctx context.Context, callerID, requestID uint) error
	Decline(ctx context.Context, callerID, requestID uint) error
	Cancel(ctx context.Context, callerID, requestID uint) error
	Unfriend(ctx context.Context, callerID, otherID uint) error
	ListIncoming(ctx context.Context, callerID uint) ([]*models.FriendRequestWithSender, error)
	ListOutgoing(ctx context.Context, callerID uint) ([]*models.FriendRequestWithRecipient, error)
	ListFriends(ctx context.Context, callerID uint) ([]*models.UserBasicInfo, error)
	SearchUsers(ctx context.Context, callerID uint, query string) ([]*models.UserSearchResult, error)
}

type friendService struct {
	db             *gorm.DB
	userRepo       storage.UserRepository
	requestRepo    storage.FriendRequestRepository
	friendshipRepo storage.FriendshipRepository
	dispatcher     NotificationDispatcher
}

// NewFriendService creates a new FriendService instance.
func NewFriendService(
	db *gorm.DB,
	userRepo storage.UserRepository,
	requestRepo storage.FriendRequestRepository,
	friendshipRepo storage.FriendshipRepository,
	dispatcher NotificationDispatcher,
) FriendService {
	return &friendService{
		db:             db,
		userRepo:       userRepo,
		requestRepo:    requestRepo,
		friendshipRepo: friendshipRepo,
		dispatcher:     dispatcher,
	}
}

// runSerializableTx runs fn in a serializable transaction, retrying a bounded
// number of times when the database aborts it for a serialization conflict.
// Serializable isolation makes check-then-write sequences effectively atomic:
// two racing SendRequest calls cannot both pass the "no pending request"
// check and insert.
func (s *friendService) runSerializableTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxTxRetries; attempt++ {
		err = s.db.WithContext(ctx).Transaction(fn, &sql.TxOptions{Isolation: sql.LevelSerializable})
		if err == nil || !isSerializationFailure(err) {
			return err
		}
		log.Printf("Serialization conflict (attempt %d/%d): %v", attempt+1, maxTxRetries, err)
	}
	return fmt.Errorf("%w: %v", ErrConflict, err)
}

// isSerializationFailure reports whether the error is a Postgres
// serialization failure or deadlock, both of which are safe to retry.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// SendRequest creates a new pending friend request from the caller to the
// target. The existence checks and the insert run in one transaction so two
// users racing each other cannot end up with mirrored pending requests.
func (s *friendService) SendRequest(ctx context.Context, callerID, targetID uint) (*models.FriendRequest, error) {
	if callerID == targetID {
		return nil, ErrInvalidTarget
	}

	request := &models.FriendRequest{
		FromUserID: callerID,
		ToUserID:   targetID,
		Status:     models.FriendRequestStatusPending,
	}

	txErr := s.runSerializableTx(ctx, func(tx *gorm.DB) error {
		txUserRepo := storage.NewGormUserRepository(tx)
		txRequestRepo := storage.NewGormFriendRequestRepository(tx)
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)

		if _, err := txUserRepo.GetByID(ctx, targetID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return fmt.Errorf("failed to check target user %d: %w", targetID, err)
		}

		areFriends, err := txFriendshipRepo.Exists(ctx, callerID, targetID)
		if err != nil {
			return fmt.Errorf("failed to check friendship between %d and %d: %w", callerID, targetID, err)
		}
		if areFriends {
			return ErrAlreadyFriends
		}

		existing, err := txRequestRepo.FindPendingBetween(ctx, callerID, targetID)
		if err != nil {
			return fmt.Errorf("failed to check pending requests between %d and %d: %w", callerID, targetID, err)
		}
		if existing != nil {
			if existing.FromUserID == callerID {
				return ErrRequestAlreadyPending
			}
			// The target already requested the caller; the caller should
			// accept that request instead of sending a new one.
			return ErrRequestAlreadyIncoming
		}

		return txRequestRepo.Create(ctx, request)
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Printf("Friend request %d created: %d -> %d", request.ID, callerID, targetID)
	s.notify(ctx, targetID, models.NotificationFriendRequest, map[string]interface{}{
		"requestId":  request.ID,
		"fromUserId": callerID,
	})
	return request, nil
}

// Accept transitions a pending request to accepted and creates both directed
// friendship rows, all in one transaction. Concurrent accepts of the same
// request resolve to exactly one winner; the loser sees ErrInvalidRequestState.
func (s *friendService) Accept(ctx context.Context, callerID, requestID uint) error {
	var fromUserID uint

	txErr := s.runSerializableTx(ctx, func(tx *gorm.DB) error {
		txRequestRepo := storage.NewGormFriendRequestRepository(tx)
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)

		request, err := txRequestRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to retrieve friend request %d: %w", requestID, err)
		}

		if request.ToUserID != callerID || request.Status != models.FriendRequestStatusPending {
			return ErrInvalidRequestState
		}

		rows, err := txRequestRepo.UpdateStatusIfPending(ctx, requestID, models.FriendRequestStatusAccepted)
		if err != nil {
			return fmt.Errorf("failed to accept friend request %d: %w", requestID, err)
		}
		if rows == 0 {
			// A concurrent transition won between the read and the write.
			return ErrInvalidRequestState
		}

		if err := txFriendshipRepo.CreateBoth(ctx, request.FromUserID, request.ToUserID, time.Now()); err != nil {
			return fmt.Errorf("failed to create friendship for request %d: %w", requestID, err)
		}

		fromUserID = request.FromUserID
		return nil
	})
	if txErr != nil {
		return txErr
	}

	log.Printf("Friend request %d accepted by user %d", requestID, callerID)
	s.notify(ctx, fromUserID, models.NotificationFriendAccept, map[string]interface{}{
		"requestId": requestID,
		"byUserId":  callerID,
	})
	return nil
}

// Decline transitions a pending request to declined. Only the recipient may
// decline, and no friendship is created.
func (s *friendService) Decline(ctx context.Context, callerID, requestID uint) error {
	return s.transition(ctx, callerID, requestID, models.FriendRequestStatusDeclined)
}

// Cancel transitions a pending request to cancelled. Only the sender may
// cancel.
func (s *friendService) Cancel(ctx context.Context, callerID, requestID uint) error {
	return s.transition(ctx, callerID, requestID, models.FriendRequestStatusCancelled)
}

// transition applies a single guarded terminal transition: re-reads the
// request, verifies the caller and the pending status, then writes the new
// status only if the request is still pending at commit time.
func (s *friendService) transition(ctx context.Context, callerID, requestID uint, to models.FriendRequestStatus) error {
	txErr := s.runSerializableTx(ctx, func(tx *gorm.DB) error {
		txRequestRepo := storage.NewGormFriendRequestRepository(tx)

		request, err := txRequestRepo.GetByID(ctx, requestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrRequestNotFound
			}
			return fmt.Errorf("failed to retrieve friend request %d: %w", requestID, err)
		}

		actor := request.ToUserID // decline belongs to the recipient
		if to == models.FriendRequestStatusCancelled {
			actor = request.FromUserID // cancel belongs to the sender
		}
		if actor != callerID || request.Status != models.FriendRequestStatusPending {
			return ErrInvalidRequestState
		}

		rows, err := txRequestRepo.UpdateStatusIfPending(ctx, requestID, to)
		if err != nil {
			return fmt.Errorf("failed to update friend request %d to %s: %w", requestID, to, err)
		}
		if rows == 0 {
			return ErrInvalidRequestState
		}
		return nil
	})
	if txErr != nil {
		return txErr
	}

	log.Printf("Friend request %d moved to %s by user %d", requestID, to, callerID)
	return nil
}

// Unfriend deletes both directed friendship rows atomically. It is an
// explicit no-op when no friendship exists: repeated unfriend calls succeed
// without error, by design.
func (s *friendService) Unfriend(ctx context.Context, callerID, otherID uint) error {
	var removed int64
	txErr := s.runSerializableTx(ctx, func(tx *gorm.DB) error {
		txFriendshipRepo := storage.NewGormFriendshipRepository(tx)
		rows, err := txFriendshipRepo.DeleteBoth(ctx, callerID, otherID)
		if err != nil {
			return fmt.Errorf("failed to remove friendship between %d and %d: %w", callerID, otherID, err)
		}
		removed = rows
		return nil
	})
	if txErr != nil {
		return txErr
	}

	if removed > 0 {
		log.Printf("Friendship between %d and %d removed", callerID, otherID)
	}
	return nil
}

// ListIncoming returns the caller's pending incoming requests, newest first,
// each annotated with the sender's public info.
func (s *friendService) ListIncoming(ctx context.Context, callerID uint) ([]*models.FriendRequestWithSender, error) {
	requests, err := s.requestRepo.ListPendingForRecipient(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests for user %d: %w", callerID, err)
	}

	result := make([]*models.FriendRequestWithSender, 0, len(requests))
	if len(requests) == 0 {
		return result, nil
	}

	senderIDs := make([]uint, 0, len(requests))
	for _, req := range requests {
		senderIDs = append(senderIDs, req.FromUserID)
	}
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, senderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender info: %w", err)
	}
	infoByID := make(map[uint]*models.UserBasicInfo, len(infos))
	for _, info := range infos {
		infoByID[info.ID] = info
	}

	for _, req := range requests {
		result = append(result, &models.FriendRequestWithSender{
			FriendRequest: req,
			Sender:        infoByID[req.FromUserID],
		})
	}
	return result, nil
}

// ListOutgoing returns the caller's pending outgoing requests, newest first.
func (s *friendService) ListOutgoing(ctx context.Context, callerID uint) ([]*models.FriendRequestWithRecipient, error) {
	requests, err := s.requestRepo.ListPendingForSender(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests for user %d: %w", callerID, err)
	}

	result := make([]*models.FriendRequestWithRecipient, 0, len(requests))
	if len(requests) == 0 {
		return result, nil
	}

	recipientIDs := make([]uint, 0, len(requests))
	for _, req := range requests {
		recipientIDs = append(recipientIDs, req.ToUserID)
	}
	infos, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, recipientIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load recipient info: %w", err)
	}
	infoByID := make(map[uint]*models.UserBasicInfo, len(infos))
	for _, info := range infos {
		infoByID[info.ID] = info
	}

	for _, req := range requests {
		result = append(result, &models.FriendRequestWithRecipient{
			FriendRequest: req,
			Recipient:     infoByID[req.ToUserID],
		})
	}
	return result, nil
}

// ListFriends returns the public info of every friend of the caller.
func (s *friendService) ListFriends(ctx context.Context, callerID uint) ([]*models.UserBasicInfo, error) {
	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list friends for user %d: %w", callerID, err)
	}
	if len(friendIDs) == 0 {
		return []*models.UserBasicInfo{}, nil
	}

	friends, err := s.userRepo.GetMultipleBasicInfoByIDs(ctx, friendIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load friend info: %w", err)
	}
	return friends, nil
}

// SearchUsers matches users by name and annotates every hit with exactly one
// relationship status relative to the caller, cross-referencing the caller's
// friendships and pending requests.
func (s *friendService) SearchUsers(ctx context.Context, callerID uint, query string) ([]*models.UserSearchResult, error) {
	candidates, err := s.userRepo.SearchUsers(ctx, query, callerID, 20)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	results := make([]*models.UserSearchResult, 0, len(candidates))
	if len(candidates) == 0 {
		return results, nil
	}

	friendIDs, err := s.friendshipRepo.GetFriendIDs(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load friendships for user %d: %w", callerID, err)
	}
	friendSet := make(map[uint]struct{}, len(friendIDs))
	for _, id := range friendIDs {
		friendSet[id] = struct{}{}
	}

	pending, err := s.requestRepo.ListPendingInvolving(ctx, callerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pending requests for user %d: %w", callerID, err)
	}
	outgoing := make(map[uint]struct{})
	incoming := make(map[uint]struct{})
	for _, req := range pending {
		if req.FromUserID == callerID {
			outgoing[req.ToUserID] = struct{}{}
		} else {
			incoming[req.FromUserID] = struct{}{}
		}
	}

	for _, candidate := range candidates {
		status := models.RelationshipNone
		switch {
		case hasKey(friendSet, candidate.ID):
			status = models.RelationshipFriend
		case hasKey(outgoing, candidate.ID):
			status = models.RelationshipPendingOutgoing
		case hasKey(incoming, candidate.ID):
			status = models.RelationshipPendingIncoming
		}
		results = append(results, &models.UserSearchResult{
			UserBasicInfo: models.UserBasicInfo{
				ID:        candidate.ID,
				Username:  candidate.Username,
				Nickname:  candidate.Nickname,
				AvatarURL: candidate.AvatarURL,
			},
			Relationship: status,
		})
	}
	return results, nil
}

func hasKey(set map[uint]struct{}, id uint) bool {
	_, ok := set[id]
	return ok
}

// notify dispatches a notification after a successful mutation. Dispatch
// failures are logged and never propagated: the relationship change has
// already committed.
func (s *friendService) notify(ctx context.Context, userID uint, kind models.NotificationKind, payload map[string]interface{}) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, userID, kind, payload); err != nil {
		log.Printf("Failed to dispatch %s notification to user %d: %v", kind, userID, err)
	}
}
