package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uniQorn-org/graphiti/pkg/server/dto"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

func TestGraphSearchValidation(t *testing.T) {
	handler := NewGraphSearchHandler(&stubPredicato{})

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"invalid JSON", "not json", http.StatusBadRequest},
		{"missing query", dto.GraphSearchRequest{}, http.StatusBadRequest},
		{"bad search_type", dto.GraphSearchRequest{Query: "x", SearchType: "vibes", MaxResults: 10}, http.StatusBadRequest},
		{"max_results too large", dto.GraphSearchRequest{Query: "x", MaxResults: 1000}, http.StatusBadRequest},
		{"max_results zero", dto.GraphSearchRequest{Query: "x", MaxResults: 0}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else {
				body, _ = json.Marshal(tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/graph/search", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.Search(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.expectedStatus, w.Body.String())
			}
		})
	}
}

func TestGraphSearchReturnsFacts(t *testing.T) {
	edge := types.NewEntityEdge("edge-1", "a", "b", "default", "x", types.EntityEdgeType)
	edge.Fact = "checkout-service depends on inventory-db"
	stub := &stubPredicato{searchResult: &types.SearchResults{Edges: []*types.Edge{edge}}}
	handler := NewGraphSearchHandler(stub)

	body, _ := json.Marshal(dto.GraphSearchRequest{Query: "checkout-service", MaxResults: 10})
	req := httptest.NewRequest(http.MethodPost, "/graph/search", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}

	var resp dto.GraphSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.Count != 1 {
		t.Errorf("Count = %d, want 1", resp.Count)
	}
	if resp.SearchType != "facts" {
		t.Errorf("SearchType = %q, want facts (default)", resp.SearchType)
	}
}

func TestGraphSearchFilterNodes(t *testing.T) {
	node := &types.Node{Uuid: "n-1", Name: "checkout-service", Type: types.EntityNodeType}
	stub := &stubPredicato{searchResult: &types.SearchResults{Nodes: []*types.Node{node}}}
	handler := NewGraphSearchHandler(stub)

	body, _ := json.Marshal(dto.GraphSearchRequest{Query: "checkout-service", SearchType: "nodes", MaxResults: 10})
	req := httptest.NewRequest(http.MethodPost, "/graph/search", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	var resp dto.GraphSearchResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.Count != 1 || resp.SearchType != "nodes" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGraphSearchUpstreamError(t *testing.T) {
	stub := &stubPredicato{searchErr: errBoom}
	handler := NewGraphSearchHandler(stub)

	body, _ := json.Marshal(dto.GraphSearchRequest{Query: "x", MaxResults: 10})
	req := httptest.NewRequest(http.MethodPost, "/graph/search", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.Search(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
