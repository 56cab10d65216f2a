package apiserver

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"gobear/internal/services"
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONResponse is a helper for sending JSON responses.
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already out; nothing else we can send.
			log.Printf("Failed to encode JSON response: %v", err)
		}
	}
}

// writeJSONError is a helper for sending JSON-formatted error responses.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONResponse(w, statusCode, ErrorResponse{Error: message})
}

// writeServiceError maps a service error to an HTTP status. Unknown errors
// are logged and reported as a generic 500 so internals do not leak.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidTarget):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrInvalidCredentials):
		writeJSONError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, services.ErrUnauthorized),
		errors.Is(err, services.ErrNotTeamMember),
		errors.Is(err, services.ErrCannotRemoveOwner):
		writeJSONError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrRequestNotFound),
		errors.Is(err, services.ErrTeamNotFound),
		errors.Is(err, services.ErrTaskNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrAlreadyFriends),
		errors.Is(err, services.ErrRequestAlreadyPending),
		errors.Is(err, services.ErrRequestAlreadyIncoming),
		errors.Is(err, services.ErrInvalidRequestState),
		errors.Is(err, services.ErrTeamNotPublic),
		errors.Is(err, services.ErrTaskAlreadyCompleted),
		errors.Is(err, services.ErrUserAlreadyExists),
		errors.Is(err, services.ErrConflict):
		writeJSONError(w, err.Error(), http.StatusConflict)
	default:
		log.Printf("Internal error: %v", err)
		writeJSONError(w, "internal server error", http.StatusInternalServerError)
	}
}

// pathID extracts a numeric path variable from the request.
func pathID(r *http.Request, name string) (uint, error) {
	idStr, ok := mux.Vars(r)[name]
	if !ok {
		return 0, errors.New("missing " + name)
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, errors.New("invalid " + name)
	}
	return uint(id), nil
}

// queryInt parses an optional integer query parameter, falling back to def.
func queryInt(r *http.Request, name string, def int) int {
	if raw := r.URL.Query().Get(name); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return def
}
