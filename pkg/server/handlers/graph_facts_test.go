package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/server/dto"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

func TestUpdateFactValidation(t *testing.T) {
	handler := NewGraphFactsHandler(&stubPredicato{})

	r := chi.NewRouter()
	r.Patch("/graph/facts/{uuid}", handler.UpdateFact)

	body, _ := json.Marshal(dto.UpdateFactRequest{Fact: ""})
	req := httptest.NewRequest(http.MethodPatch, "/graph/facts/edge-1", bytes.NewReader(body))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestUpdateFactNotFound(t *testing.T) {
	stub := &stubPredicato{updateFactErr: graphiti.ErrEdgeNotFound}
	handler := NewGraphFactsHandler(stub)

	r := chi.NewRouter()
	r.Patch("/graph/facts/{uuid}", handler.UpdateFact)

	body, _ := json.Marshal(dto.UpdateFactRequest{Fact: "new fact text"})
	req := httptest.NewRequest(http.MethodPatch, "/graph/facts/missing", bytes.NewReader(body))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestUpdateFactSuccess(t *testing.T) {
	stub := &stubPredicato{updateFactResult: &types.FactUpdateResult{
		OldUUID: "edge-1",
		NewUUID: "edge-2",
		Message: "fact updated",
	}}
	handler := NewGraphFactsHandler(stub)

	r := chi.NewRouter()
	r.Patch("/graph/facts/{uuid}", handler.UpdateFact)

	body, _ := json.Marshal(dto.UpdateFactRequest{Fact: "the db was actually down"})
	req := httptest.NewRequest(http.MethodPatch, "/graph/facts/edge-1", bytes.NewReader(body))
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}

	var resp dto.UpdateFactResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.OldUUID != "edge-1" || resp.NewUUID != "edge-2" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestGetFactCitationsNotFound(t *testing.T) {
	stub := &stubPredicato{factCitationsErr: graphiti.ErrEdgeNotFound}
	handler := NewGraphFactsHandler(stub)

	r := chi.NewRouter()
	r.Get("/graph/facts/{uuid}/citations", handler.GetFactCitations)

	req := httptest.NewRequest(http.MethodGet, "/graph/facts/missing/citations", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestGetFactCitationsSuccess(t *testing.T) {
	stub := &stubPredicato{factCitations: []types.Citation{{EpisodeUUID: "ep-1"}}}
	handler := NewGraphFactsHandler(stub)

	r := chi.NewRouter()
	r.Get("/graph/facts/{uuid}/citations", handler.GetFactCitations)

	req := httptest.NewRequest(http.MethodGet, "/graph/facts/edge-1/citations", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var resp map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp["count"].(float64) != 1 {
		t.Errorf("count = %v, want 1", resp["count"])
	}
}

func TestGetCitationChainSuccess(t *testing.T) {
	stub := &stubPredicato{citationChain: []types.CitationChainEntry{{Operation: types.CitationCreated}}}
	handler := NewGraphFactsHandler(stub)

	r := chi.NewRouter()
	r.Get("/graph/citations/{uuid}/chain", handler.GetCitationChain)

	req := httptest.NewRequest(http.MethodGet, "/graph/citations/entity-1/chain", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestGetCitationChainError(t *testing.T) {
	stub := &stubPredicato{citationChainErr: errBoom}
	handler := NewGraphFactsHandler(stub)

	r := chi.NewRouter()
	r.Get("/graph/citations/{uuid}/chain", handler.GetCitationChain)

	req := httptest.NewRequest(http.MethodGet, "/graph/citations/entity-1/chain", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}
