package apiserver

import (
	"encoding/json"
	"net/http"

	"gobear/internal/middleware"
	"gobear/internal/services"
)

// UserHandler handles user profile requests.
type UserHandler struct {
	userService services.UserService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us services.UserService) *UserHandler {
	return &UserHandler{userService: us}
}

// GetMeHandler handles GET /api/v1/users/me
func (h *UserHandler) GetMeHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	user, err := h.userService.GetProfile(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// UpdateMeHandler handles PUT /api/v1/users/me
func (h *UserHandler) UpdateMeHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	var update services.ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.userService.UpdateProfile(r.Context(), callerID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, user)
}

// GetUserHandler handles GET /api/v1/users/{userID}
func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "userID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	info, err := h.userService.GetBasicInfo(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, info)
}
