package services

import "errors"

// Domain errors. Services return these sentinels for every precondition
// violation so handlers can map them to HTTP statuses; raw store errors are
// wrapped and never reach callers unclassified.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUserNotFound = errors.New("user not found")
	ErrUnauthorized = errors.New("caller is not allowed to perform this operation")
	ErrConflict     = errors.New("conflicting concurrent update, retries exhausted")

	// Friend relationship errors.
	ErrInvalidTarget          = errors.New("cannot send a friend request to yourself")
	ErrAlreadyFriends         = errors.New("users are already friends")
	ErrRequestAlreadyPending  = errors.New("a friend request to this user is already pending")
	ErrRequestAlreadyIncoming = errors.New("this user has already sent you a friend request")
	ErrRequestNotFound        = errors.New("friend request not found")
	ErrInvalidRequestState    = errors.New("friend request is not in a state that allows this transition")

	// Team errors.
	ErrTeamNotFound      = errors.New("team not found")
	ErrTeamNotPublic     = errors.New("team is not public")
	ErrNotTeamMember     = errors.New("caller is not a member of this team")
	ErrCannotRemoveOwner = errors.New("the team owner cannot be removed from the team")

	// Task errors.
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskAlreadyCompleted = errors.New("task has already been completed")

	// Auth errors.
	ErrUserAlreadyExists  = errors.New("username or email already exists")
	ErrInvalidCredentials = errors.New("invalid username or password")
)
