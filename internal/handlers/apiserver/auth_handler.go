package apiserver

import (
	"encoding/json"
	"net/http"

	"gobear/internal/middleware"
	"gobear/internal/models"
	"gobear/internal/services"
)

// AuthHandler handles registration, login and logout.
type AuthHandler struct {
	authService services.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(as services.AuthService) *AuthHandler {
	return &AuthHandler{authService: as}
}

// RegisterPayload defines the expected JSON body for registration.
type RegisterPayload struct {
	Username string `json:"username"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginPayload defines the expected JSON body for login.
type LoginPayload struct {
	UsernameOrEmail string `json:"usernameOrEmail"`
	Password        string `json:"password"`
}

// LoginResponse carries the issued token and the authenticated user.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// RegisterHandler handles POST /api/v1/auth/register
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var payload RegisterPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	user, err := h.authService.Register(r.Context(), payload.Username, payload.Nickname, payload.Email, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, user)
}

// LoginHandler handles POST /api/v1/auth/login
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.UsernameOrEmail == "" || payload.Password == "" {
		writeJSONError(w, "usernameOrEmail and password are required", http.StatusBadRequest)
		return
	}

	token, user, err := h.authService.Login(r.Context(), payload.UsernameOrEmail, payload.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// LogoutHandler handles POST /api/v1/auth/logout. The current token's JTI is
// blacklisted until its natural expiry.
func (h *AuthHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get token claims from context", http.StatusUnauthorized)
		return
	}

	if err := h.authService.Logout(r.Context(), claims.ID, claims.ExpiresAt.Time); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "logged out"})
}
