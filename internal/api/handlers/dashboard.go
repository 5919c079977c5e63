package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/qcdash/internal/contracts"
	"github.com/wonny/qcdash/internal/output"
	"github.com/wonny/qcdash/pkg/logger"
)

// DashboardHandler serves the artifact written by the pipeline
// ⭐ SSOT: 대시보드 API 핸들러는 이 구조체에서만
type DashboardHandler struct {
	path   string
	logger *logger.Logger
}

// NewDashboardHandler creates a handler for the artifact at path
func NewDashboardHandler(path string, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		path:   path,
		logger: log,
	}
}

// GetDashboard returns the artifact bytes as written
// GET /dashboard.json
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(h.path)
	if errors.Is(err, fs.ErrNotExist) {
		respondError(w, http.StatusNotFound, "No snapshot written yet")
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to open snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to read snapshot")
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to read snapshot")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, "dashboard.json", info.ModTime(), f)
}

// ProjectSummary is one row of GET /api/projects
type ProjectSummary struct {
	ID      int64                `json:"id"`
	Name    string               `json:"name"`
	Tracked bool                 `json:"tracked"`
	State   contracts.EntryState `json:"state"`
	Source  contracts.Source     `json:"source"`
	Error   *string              `json:"error"`
}

// ListProjects returns a compact view of every project in the snapshot
// GET /api/projects
func (h *DashboardHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	snap, ok := h.read(w)
	if !ok {
		return
	}

	rows := make([]ProjectSummary, 0, len(snap.Projects))
	for _, p := range snap.Projects {
		rows = append(rows, ProjectSummary{
			ID:      p.ID,
			Name:    p.Name,
			Tracked: p.Tracked,
			State:   p.State,
			Source:  p.Source,
			Error:   p.Error,
		})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"generated_at": snap.GeneratedAt,
		"projects":     rows,
		"states":       snap.CountByState(),
	})
}

// GetProject returns one snapshot entry
// GET /api/projects/{id}
func (h *DashboardHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid project id")
		return
	}

	snap, ok := h.read(w)
	if !ok {
		return
	}

	entry, found := snap.Find(id)
	if !found {
		respondError(w, http.StatusNotFound, "Project not in snapshot")
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (h *DashboardHandler) read(w http.ResponseWriter) (*contracts.DashboardSnapshot, bool) {
	snap, err := output.Read(h.path)
	if err == nil {
		return snap, true
	}

	if errors.Is(err, fs.ErrNotExist) {
		respondError(w, http.StatusNotFound, "No snapshot written yet")
		return nil, false
	}
	h.logger.WithError(err).Error("Failed to read snapshot")
	respondError(w, http.StatusInternalServerError, "Failed to read snapshot")
	return nil, false
}
