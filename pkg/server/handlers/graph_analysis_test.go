package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uniQorn-org/graphiti/pkg/analytics"
)

func TestCausalityTimelineParsesQueryParams(t *testing.T) {
	var captured analytics.TimelineFilters
	handler := NewGraphAnalysisHandler(&capturingPredicato{
		stubPredicato: stubPredicato{causalityResult: &analytics.TimelineResult{}},
		onCausality:   func(f analytics.TimelineFilters) { captured = f },
	})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/causality-timeline?component=checkout-service&category=reason/disk_pressure&group_ids=a,b&min_incidents=3", nil)
	w := httptest.NewRecorder()

	handler.CausalityTimeline(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
	if captured.Component != "checkout-service" {
		t.Errorf("Component = %q", captured.Component)
	}
	if captured.Category != "reason/disk_pressure" {
		t.Errorf("Category = %q", captured.Category)
	}
	if len(captured.GroupIDs) != 2 || captured.GroupIDs[0] != "a" || captured.GroupIDs[1] != "b" {
		t.Errorf("GroupIDs = %v", captured.GroupIDs)
	}
	if captured.MinIncidents != 3 {
		t.Errorf("MinIncidents = %d, want 3", captured.MinIncidents)
	}
}

func TestCausalityTimelineUpstreamError(t *testing.T) {
	handler := NewGraphAnalysisHandler(&stubPredicato{causalityErr: errBoom})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/causality-timeline", nil)
	w := httptest.NewRecorder()

	handler.CausalityTimeline(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestRecurringIncidentsDefaults(t *testing.T) {
	var captured analytics.RecurrenceOptions
	handler := NewGraphAnalysisHandler(&capturingPredicato{
		stubPredicato: stubPredicato{recurrenceResult: &analytics.RecurrenceResult{}},
		onRecurrence:  func(o analytics.RecurrenceOptions) { captured = o },
	})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/recurring-incidents", nil)
	w := httptest.NewRecorder()

	handler.RecurringIncidents(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if captured.SimilarityThreshold != analytics.DefaultSimilarityThreshold {
		t.Errorf("SimilarityThreshold = %f, want default", captured.SimilarityThreshold)
	}
	if captured.UseLLM {
		t.Error("UseLLM should default to false")
	}
}

func TestRecurringIncidentsUseLLMFlag(t *testing.T) {
	var captured analytics.RecurrenceOptions
	handler := NewGraphAnalysisHandler(&capturingPredicato{
		stubPredicato: stubPredicato{recurrenceResult: &analytics.RecurrenceResult{}},
		onRecurrence:  func(o analytics.RecurrenceOptions) { captured = o },
	})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/recurring-incidents?use_llm=true&similarity_threshold=0.8&min_occurrences=2", nil)
	w := httptest.NewRecorder()

	handler.RecurringIncidents(w, req)

	if !captured.UseLLM {
		t.Error("expected UseLLM = true")
	}
	if captured.SimilarityThreshold != 0.8 {
		t.Errorf("SimilarityThreshold = %f, want 0.8", captured.SimilarityThreshold)
	}
	if captured.MinOccurrences != 2 {
		t.Errorf("MinOccurrences = %d, want 2", captured.MinOccurrences)
	}
}

func TestComponentImpactHandler(t *testing.T) {
	handler := NewGraphAnalysisHandler(&stubPredicato{componentImpactResult: &analytics.ComponentImpactResult{TotalPairs: 4}})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/component-impact?category_filter=reason/disk_pressure", nil)
	w := httptest.NewRecorder()

	handler.ComponentImpact(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body = %s", w.Code, w.Body.String())
	}
}

func TestComponentSeverityHandler(t *testing.T) {
	handler := NewGraphAnalysisHandler(&stubPredicato{componentSeverityResult: &analytics.ComponentSeverityResult{TotalComponents: 2}})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/component-severity", nil)
	w := httptest.NewRecorder()

	handler.ComponentSeverity(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestFlowMetricsHandler(t *testing.T) {
	handler := NewGraphAnalysisHandler(&stubPredicato{flowMetricsResult: &analytics.FlowMetricsResult{TotalFlows: 1}})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/flow-metrics", nil)
	w := httptest.NewRecorder()

	handler.FlowMetrics(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestFlowMetricsUpstreamError(t *testing.T) {
	handler := NewGraphAnalysisHandler(&stubPredicato{flowMetricsErr: errBoom})

	req := httptest.NewRequest(http.MethodGet, "/graph/analysis/flow-metrics", nil)
	w := httptest.NewRecorder()

	handler.FlowMetrics(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}
