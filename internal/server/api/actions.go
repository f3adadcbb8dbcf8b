package api

import (
	"net/http"
	"strconv"

	"github.com/oneoblomov/HandPC/internal/store"
)

const (
	defaultActionLimit = 100
	maxActionLimit     = 1000
)

// ActionLogHandler serves the persisted action log.
type ActionLogHandler struct {
	store *store.Store
}

// NewActionLogHandler creates a new ActionLogHandler with the given store.
func NewActionLogHandler(s *store.Store) *ActionLogHandler {
	return &ActionLogHandler{store: s}
}

type actionEntryResponse struct {
	ID        int64  `json:"id"`
	SessionID string `json:"session_id"`
	ProfileID string `json:"profile_id,omitempty"`
	Action    string `json:"action"`
	App       string `json:"app,omitempty"`
	Success   bool   `json:"success"`
	CreatedAt string `json:"created_at"`
}

type listActionLogResponse struct {
	Actions []actionEntryResponse `json:"actions"`
	Counts  map[string]int        `json:"counts"`
}

// ServeHTTP handles GET /api/actions?limit=N. Entries are newest first.
func (h *ActionLogHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultActionLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxActionLimit)
	}

	entries, err := h.store.ActionLog().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list actions")
		return
	}
	counts, err := h.store.ActionLog().Counts()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count actions")
		return
	}

	response := listActionLogResponse{
		Actions: make([]actionEntryResponse, 0, len(entries)),
		Counts:  counts,
	}
	for _, e := range entries {
		response.Actions = append(response.Actions, actionEntryResponse{
			ID:        e.ID,
			SessionID: e.SessionID,
			ProfileID: e.ProfileID,
			Action:    e.Action,
			App:       e.App,
			Success:   e.Success,
			CreatedAt: e.CreatedAt.Format(timeFormat),
		})
	}

	writeJSON(w, http.StatusOK, response)
}
