package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/server/dto"
)

// GraphFactsHandler handles the /graph/facts surface.
type GraphFactsHandler struct {
	graphiti graphiti.Predicato
}

// NewGraphFactsHandler creates a new graph facts handler.
func NewGraphFactsHandler(g graphiti.Predicato) *GraphFactsHandler {
	return &GraphFactsHandler{graphiti: g}
}

// UpdateFact handles PATCH /graph/facts/{uuid}.
func (h *GraphFactsHandler) UpdateFact(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if uuid == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "uuid parameter is required")
		return
	}

	var req dto.UpdateFactRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Fact) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "fact is required")
		return
	}

	ctx := r.Context()

	result, err := h.graphiti.UpdateFact(ctx, uuid, req.Fact, req.SourceNodeUUID, req.TargetNodeUUID, req.Attributes)
	if err != nil {
		if errors.Is(err, graphiti.ErrEdgeNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "fact_not_found", err.Error())
			return
		}
		writeErrorJSON(w, http.StatusInternalServerError, "update_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.UpdateFactResponse{
		Status:  "updated",
		OldUUID: result.OldUUID,
		NewUUID: result.NewUUID,
		Message: result.Message,
		NewEdge: result.NewEdge,
	})
}

// GetFactCitations handles GET /graph/facts/{uuid}/citations.
func (h *GraphFactsHandler) GetFactCitations(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if uuid == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "uuid parameter is required")
		return
	}

	ctx := r.Context()
	citations, err := h.graphiti.GetFactCitations(ctx, uuid)
	if err != nil {
		if errors.Is(err, graphiti.ErrEdgeNotFound) {
			writeErrorJSON(w, http.StatusNotFound, "fact_not_found", err.Error())
			return
		}
		writeErrorJSON(w, http.StatusInternalServerError, "citation_lookup_failed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uuid":      uuid,
		"citations": citations,
		"count":     len(citations),
	})
}

// GetCitationChain handles GET /graph/citations/{uuid}/chain.
func (h *GraphFactsHandler) GetCitationChain(w http.ResponseWriter, r *http.Request) {
	uuid := chi.URLParam(r, "uuid")
	if uuid == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "uuid parameter is required")
		return
	}

	ctx := r.Context()
	chain, err := h.graphiti.GetCitationChain(ctx, uuid)
	if err != nil {
		writeErrorJSON(w, http.StatusNotFound, "citation_chain_not_found", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"uuid":  uuid,
		"chain": chain,
		"count": len(chain),
	})
}
