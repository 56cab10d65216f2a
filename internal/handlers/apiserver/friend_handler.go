package apiserver

import (
	"context"
	"encoding/json"
	"net/http"

	"gobear/internal/middleware"
	"gobear/internal/models"
	"gobear/internal/services"
)

// FriendHandler handles friend requests and the friendship list.
type FriendHandler struct {
	friendService services.FriendService
}

// NewFriendHandler creates a new FriendHandler.
func NewFriendHandler(fs services.FriendService) *FriendHandler {
	return &FriendHandler{friendService: fs}
}

// SendFriendRequestPayload defines the expected JSON body for sending a friend request.
type SendFriendRequestPayload struct {
	TargetID uint `json:"targetId"`
}

// SendRequestHandler handles POST /api/v1/friend-requests
func (h *FriendHandler) SendRequestHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	var payload SendFriendRequestPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.TargetID == 0 {
		writeJSONError(w, "missing targetId", http.StatusBadRequest)
		return
	}

	request, err := h.friendService.SendRequest(r.Context(), callerID, payload.TargetID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, request)
}

// AcceptRequestHandler handles POST /api/v1/friend-requests/{requestID}/accept
func (h *FriendHandler) AcceptRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendService.Accept, "friend request accepted")
}

// DeclineRequestHandler handles POST /api/v1/friend-requests/{requestID}/decline
func (h *FriendHandler) DeclineRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendService.Decline, "friend request declined")
}

// CancelRequestHandler handles POST /api/v1/friend-requests/{requestID}/cancel
func (h *FriendHandler) CancelRequestHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.friendService.Cancel, "friend request cancelled")
}

// ListIncomingHandler handles GET /api/v1/friend-requests/incoming
func (h *FriendHandler) ListIncomingHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	requests, err := h.friendService.ListIncoming(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.FriendRequestWithSender{}
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListOutgoingHandler handles GET /api/v1/friend-requests/outgoing
func (h *FriendHandler) ListOutgoingHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	requests, err := h.friendService.ListOutgoing(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if requests == nil {
		requests = []*models.FriendRequestWithRecipient{}
	}
	writeJSONResponse(w, http.StatusOK, requests)
}

// ListFriendsHandler handles GET /api/v1/friends
func (h *FriendHandler) ListFriendsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	friends, err := h.friendService.ListFriends(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if friends == nil {
		friends = []*models.UserBasicInfo{}
	}
	writeJSONResponse(w, http.StatusOK, friends)
}

// UnfriendHandler handles DELETE /api/v1/friends/{userID}
func (h *FriendHandler) UnfriendHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	otherID, err := pathID(r, "userID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.friendService.Unfriend(r.Context(), callerID, otherID); err != nil {
		writeServiceError(w, err)
		return
	}
	// Also returned when there was no friendship to remove.
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "friend removed"})
}

// SearchUsersHandler handles GET /api/v1/users/search?q=...
func (h *FriendHandler) SearchUsersHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	query := r.URL.Query().Get("q")
	results, err := h.friendService.SearchUsers(r.Context(), callerID, query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if results == nil {
		results = []*models.UserSearchResult{}
	}
	writeJSONResponse(w, http.StatusOK, results)
}

// transition runs one of the request state transitions keyed by {requestID}.
func (h *FriendHandler) transition(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, callerID, requestID uint) error, message string) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	requestID, err := pathID(r, "requestID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := fn(r.Context(), callerID, requestID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": message})
}
