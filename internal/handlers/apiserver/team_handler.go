package apiserver

import (
	"encoding/json"
	"net/http"

	"gobear/internal/middleware"
	"gobear/internal/models"
	"gobear/internal/services"
)

// TeamHandler handles team CRUD, membership and invitations.
type TeamHandler struct {
	teamService services.TeamService
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(ts services.TeamService) *TeamHandler {
	return &TeamHandler{teamService: ts}
}

// TeamPayload defines the JSON body for creating or updating a team.
type TeamPayload struct {
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Visibility  models.TeamVisibility `json:"visibility"`
}

// InvitePayload defines the JSON body for inviting a member by email.
type InvitePayload struct {
	Email string `json:"email"`
}

// RemoveMemberPayload defines the JSON body for removing a member.
type RemoveMemberPayload struct {
	UserID uint `json:"userId"`
}

// CreateTeamHandler handles POST /api/v1/teams
func (h *TeamHandler) CreateTeamHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	var payload TeamPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	team, err := h.teamService.CreateTeam(r.Context(), callerID, payload.Name, payload.Description, payload.Visibility)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, team)
}

// GetTeamHandler handles GET /api/v1/teams/{teamID}
func (h *TeamHandler) GetTeamHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	team, err := h.teamService.GetTeam(r.Context(), callerID, teamID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, team)
}

// UpdateTeamHandler handles PUT /api/v1/teams/{teamID}
func (h *TeamHandler) UpdateTeamHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var payload TeamPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	team, err := h.teamService.UpdateTeam(r.Context(), callerID, teamID, payload.Name, payload.Description, payload.Visibility)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, team)
}

// DeleteTeamHandler handles DELETE /api/v1/teams/{teamID}
func (h *TeamHandler) DeleteTeamHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.teamService.DeleteTeam(r.Context(), callerID, teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "team deleted"})
}

// SearchTeamsHandler handles GET /api/v1/teams/search?q=...
func (h *TeamHandler) SearchTeamsHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	teams, err := h.teamService.SearchPublicTeams(r.Context(), query, limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	writeJSONResponse(w, http.StatusOK, teams)
}

// JoinTeamHandler handles POST /api/v1/teams/{teamID}/join
func (h *TeamHandler) JoinTeamHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.teamService.JoinPublicTeam(r.Context(), callerID, teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "joined team"})
}

// InviteMemberHandler handles POST /api/v1/teams/{teamID}/invites
func (h *TeamHandler) InviteMemberHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var payload InvitePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	result, err := h.teamService.InviteMember(r.Context(), callerID, teamID, payload.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, result)
}

// AcceptInviteHandler handles POST /api/v1/teams/{teamID}/accept-invite
func (h *TeamHandler) AcceptInviteHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.teamService.AcceptInviteLink(r.Context(), callerID, teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "joined team"})
}

// LeaveTeamHandler handles POST /api/v1/teams/{teamID}/leave
func (h *TeamHandler) LeaveTeamHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.teamService.LeaveTeam(r.Context(), callerID, teamID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "left team"})
}

// RemoveMemberHandler handles DELETE /api/v1/teams/{teamID}/members/{userID}
func (h *TeamHandler) RemoveMemberHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	memberID, err := pathID(r, "userID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.teamService.RemoveMember(r.Context(), callerID, teamID, memberID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{"message": "member removed"})
}

// ListMembersHandler handles GET /api/v1/teams/{teamID}/members
func (h *TeamHandler) ListMembersHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	teamID, err := pathID(r, "teamID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	members, err := h.teamService.ListMembers(r.Context(), callerID, teamID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if members == nil {
		members = []*models.TeamMember{}
	}
	writeJSONResponse(w, http.StatusOK, members)
}

// ListMyTeamsHandler handles GET /api/v1/teams
func (h *TeamHandler) ListMyTeamsHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	teams, err := h.teamService.ListUserTeams(r.Context(), callerID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if teams == nil {
		teams = []*models.Team{}
	}
	writeJSONResponse(w, http.StatusOK, teams)
}
