package apiserver

import (
	"encoding/json"
	"net/http"

	"gobear/internal/middleware"
	"gobear/internal/models"
	"gobear/internal/services"
)

// TaskHandler handles team tasks and the points summary.
type TaskHandler struct {
	taskService services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(ts services.TaskService) *TaskHandler {
	return &TaskHandler{taskService: ts}
}

// CreateTaskPayload defines the JSON body for creating a task.
type CreateTaskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Points      int64  `json:"points"`
	AssigneeID  *uint  `json:"assigneeId,omitempty"`
}

// AssignTaskPayload defines the JSON body for assigning a task.
type AssignTaskPayload struct {
	AssigneeID uint `json:"assigneeId"`
}

// CreateTaskHandler handles POST /api/v1/teams/{teamID}/tasks
func (h *TaskHandler) CreateTaskHandler(w http.ResponseWriter, r *http.Request) {
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

	var payload CreateTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	task, err := h.taskService.CreateTask(r.Context(), callerID, teamID, payload.Title, payload.Description, payload.Points, payload.AssigneeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, task)
}

// AssignTaskHandler handles POST /api/v1/tasks/{taskID}/assign
func (h *TaskHandler) AssignTaskHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	var payload AssignTaskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	if payload.AssigneeID == 0 {
		writeJSONError(w, "missing assigneeId", http.StatusBadRequest)
		return
	}

	task, err := h.taskService.AssignTask(r.Context(), callerID, taskID, payload.AssigneeID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, task)
}

// CompleteTaskHandler handles POST /api/v1/tasks/{taskID}/complete
func (h *TaskHandler) CompleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	task, err := h.taskService.CompleteTask(r.Context(), callerID, taskID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, task)
}

// ListTeamTasksHandler handles GET /api/v1/teams/{teamID}/tasks
func (h *TaskHandler) ListTeamTasksHandler(w http.ResponseWriter, r *http.Request) {
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

	tasks, err := h.taskService.ListTeamTasks(r.Context(), callerID, teamID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSONResponse(w, http.StatusOK, tasks)
}

// ListMyTasksHandler handles GET /api/v1/tasks/mine
func (h *TaskHandler) ListMyTasksHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	tasks, err := h.taskService.ListMyTasks(r.Context(), callerID, queryInt(r, "limit", 50), queryInt(r, "offset", 0))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	writeJSONResponse(w, http.StatusOK, tasks)
}

// GetPointsSummaryHandler handles GET /api/v1/points
func (h *TaskHandler) GetPointsSummaryHandler(w http.ResponseWriter, r *http.Request) {
	callerID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSONError(w, "failed to get user ID from context", http.StatusUnauthorized)
		return
	}

	summary, err := h.taskService.GetPointsSummary(r.Context(), callerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, summary)
}
