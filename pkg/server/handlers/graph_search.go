package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/server/dto"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// GraphSearchHandler handles POST /graph/search.
type GraphSearchHandler struct {
	graphiti graphiti.Predicato
}

// NewGraphSearchHandler creates a new graph search handler.
func NewGraphSearchHandler(g graphiti.Predicato) *GraphSearchHandler {
	return &GraphSearchHandler{graphiti: g}
}

var validSearchTypes = map[string]bool{"facts": true, "nodes": true, "episodes": true}

// Search handles POST /graph/search.
func (h *GraphSearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req dto.GraphSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if strings.TrimSpace(req.Query) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "query is required")
		return
	}

	searchType := req.SearchType
	if searchType == "" {
		searchType = "facts"
	}
	if !validSearchTypes[searchType] {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "search_type must be one of: facts, nodes, episodes")
		return
	}

	if req.MaxResults <= 0 || req.MaxResults > 100 {
		writeErrorJSON(w, http.StatusBadRequest, "invalid_request", "max_results must be between 1 and 100")
		return
	}
	maxResults := req.MaxResults

	ctx := r.Context()

	config := &types.SearchConfig{
		Limit:          maxResults,
		IncludeEdges:   searchType != "nodes",
		Rerank:         true,
		CenterNodeUUID: req.CenterNodeUUID,
		Filters: &types.SearchFilters{
			GroupIDs:    req.GroupIDs,
			EntityTypes: req.EntityTypes,
		},
	}

	searchResults, err := h.graphiti.Search(ctx, req.Query, config)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "search_failed", err.Error())
		return
	}

	var results []interface{}
	switch searchType {
	case "nodes":
		for _, node := range searchResults.Nodes {
			results = append(results, node)
		}
	case "episodes":
		for _, node := range searchResults.Nodes {
			if node.Type == types.EpisodicNodeType {
				results = append(results, node)
			}
		}
	default: // facts
		for _, edge := range searchResults.Edges {
			results = append(results, edge)
		}
	}

	writeJSON(w, http.StatusOK, dto.GraphSearchResponse{
		Message:    fmt.Sprintf("found %d results for %q", len(results), req.Query),
		SearchType: searchType,
		Results:    results,
		Count:      len(results),
	})
}
