package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/server/dto"
	"github.com/uniQorn-org/graphiti/pkg/types"
	"github.com/uniQorn-org/graphiti/pkg/utils"
)

// GraphEpisodeHandler handles the /graph/episodes surface.
type GraphEpisodeHandler struct {
	graphiti graphiti.Predicato
}

// NewGraphEpisodeHandler creates a new graph episode handler.
func NewGraphEpisodeHandler(g graphiti.Predicato) *GraphEpisodeHandler {
	return &GraphEpisodeHandler{graphiti: g}
}

var validEpisodeSources = map[string]bool{"text": true, "json": true, "message": true}

// AddEpisode handles POST /graph/episodes. The episode is enqueued for
// asynchronous ingestion and the handler returns as soon as it is queued.
func (h *GraphEpisodeHandler) AddEpisode(w http.ResponseWriter, r *http.Request) {
	var req dto.AddEpisodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if strings.TrimSpace(req.Name) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "name is required")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "content is required")
		return
	}
	if req.Source != "" && !validEpisodeSources[req.Source] {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "source must be one of: text, json, message")
		return
	}

	groupID := req.GroupID
	if groupID == "" {
		groupID = "default"
	}

	uuid := req.UUID
	if uuid == "" {
		uuid = utils.GenerateUUID()
	}

	sourceDescription := req.SourceDescription
	if req.SourceURL != "" {
		sourceDescription = strings.TrimSpace(sourceDescription + fmt.Sprintf(" source_url: %s", req.SourceURL))
	}

	now := time.Now()
	episode := types.Episode{
		ID:        uuid,
		Name:      req.Name,
		Content:   req.Content,
		Source:    sourceDescription,
		Reference: now,
		CreatedAt: now,
		GroupID:   groupID,
		Metadata: map[string]interface{}{
			"source_format": req.Source,
		},
	}

	job := h.graphiti.SubmitEpisode(episode, nil)

	writeJSON(w, http.StatusOK, dto.AddEpisodeResponse{
		Status:      "success",
		Message:     fmt.Sprintf("episode %s queued for processing (job %s)", episode.Name, job.ID),
		EpisodeName: episode.Name,
		GroupID:     groupID,
	})
}

// DeleteEpisode handles DELETE /graph/episodes/{uuid}.
func (h *GraphEpisodeHandler) DeleteEpisode(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if uuid == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "uuid parameter is required")
		return
	}

	ctx := r.Context()
	if err := h.graphiti.RemoveEpisode(ctx, uuid); err != nil {
		writeErrorJSON(w, http.StatusNotFound, "episode_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.DeleteEpisodeResponse{
		Status:  "deleted",
		UUID:    uuid,
		Message: fmt.Sprintf("episode %s deleted", uuid),
	})
}
