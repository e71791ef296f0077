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
)

func TestAddEpisodeValidation(t *testing.T) {
	handler := NewGraphEpisodeHandler(&stubPredicato{})

	tests := []struct {
		name           string
		body           interface{}
		expectedStatus int
	}{
		{"invalid JSON", "not json", http.StatusBadRequest},
		{"missing name", dto.AddEpisodeRequest{Content: "x"}, http.StatusBadRequest},
		{"missing content", dto.AddEpisodeRequest{Name: "x"}, http.StatusBadRequest},
		{"invalid source", dto.AddEpisodeRequest{Name: "n", Content: "c", Source: "carrier pigeon"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if s, ok := tt.body.(string); ok {
				body = []byte(s)
			} else {
				body, _ = json.Marshal(tt.body)
			}

			req := httptest.NewRequest(http.MethodPost, "/graph/episodes", bytes.NewReader(body))
			w := httptest.NewRecorder()

			handler.AddEpisode(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.expectedStatus)
			}
		})
	}
}

func TestAddEpisodeQueuesJob(t *testing.T) {
	stub := &stubPredicato{submitEpisodeJob: &graphiti.EpisodeJob{ID: "job-42"}}
	handler := NewGraphEpisodeHandler(stub)

	body, _ := json.Marshal(dto.AddEpisodeRequest{Name: "deploy-1", Content: "rolled out v2", GroupID: "ops"})
	req := httptest.NewRequest(http.MethodPost, "/graph/episodes", bytes.NewReader(body))
	w := httptest.NewRecorder()

	handler.AddEpisode(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}

	var resp dto.AddEpisodeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.EpisodeName != "deploy-1" {
		t.Errorf("EpisodeName = %q, want deploy-1", resp.EpisodeName)
	}
	if resp.GroupID != "ops" {
		t.Errorf("GroupID = %q, want ops", resp.GroupID)
	}
}

func TestDeleteEpisodeNotFound(t *testing.T) {
	stub := &stubPredicato{removeEpisodeErr: graphiti.ErrNodeNotFound}
	handler := NewGraphEpisodeHandler(stub)

	r := chi.NewRouter()
	r.Delete("/graph/episodes/{uuid}", handler.DeleteEpisode)

	req := httptest.NewRequest(http.MethodDelete, "/graph/episodes/missing", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestDeleteEpisodeSuccess(t *testing.T) {
	handler := NewGraphEpisodeHandler(&stubPredicato{})

	r := chi.NewRouter()
	r.Delete("/graph/episodes/{uuid}", handler.DeleteEpisode)

	req := httptest.NewRequest(http.MethodDelete, "/graph/episodes/ep-1", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var resp dto.DeleteEpisodeResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if resp.UUID != "ep-1" {
		t.Errorf("UUID = %q, want ep-1", resp.UUID)
	}
}
