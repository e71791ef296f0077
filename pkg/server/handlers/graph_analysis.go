package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/analytics"
)

// GraphAnalysisHandler handles the /graph/analysis surface.
type GraphAnalysisHandler struct {
	graphiti graphiti.Predicato
}

// NewGraphAnalysisHandler creates a new graph analysis handler.
func NewGraphAnalysisHandler(g graphiti.Predicato) *GraphAnalysisHandler {
	return &GraphAnalysisHandler{graphiti: g}
}

func splitCSV(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(r *http.Request, name string, def float64) float64 {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}

func queryBool(r *http.Request, name string, def bool) bool {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

// CausalityTimeline handles GET /graph/analysis/causality-timeline.
func (h *GraphAnalysisHandler) CausalityTimeline(w http.ResponseWriter, r *http.Request) {
	filters := analytics.TimelineFilters{
		Component:    r.URL.Query().Get("component"),
		Category:     r.URL.Query().Get("category"),
		GroupIDs:     splitCSV(r.URL.Query().Get("group_ids")),
		MinIncidents: queryInt(r, "min_incidents", 0),
	}

	result, err := h.graphiti.CausalityTimeline(r.Context(), filters)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RecurringIncidents handles GET /graph/analysis/recurring-incidents.
func (h *GraphAnalysisHandler) RecurringIncidents(w http.ResponseWriter, r *http.Request) {
	opts := analytics.RecurrenceOptions{
		GroupIDs:            splitCSV(r.URL.Query().Get("group_ids")),
		SimilarityThreshold: queryFloat(r, "similarity_threshold", analytics.DefaultSimilarityThreshold),
		UseLLM:              queryBool(r, "use_llm", false),
		MinOccurrences:      queryInt(r, "min_occurrences", 0),
	}

	result, err := h.graphiti.RecurringIncidents(r.Context(), opts)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ComponentImpact handles GET /graph/analysis/component-impact.
func (h *GraphAnalysisHandler) ComponentImpact(w http.ResponseWriter, r *http.Request) {
	opts := analytics.ComponentImpactOptions{
		Category:     r.URL.Query().Get("category_filter"),
		Component:    r.URL.Query().Get("component_filter"),
		GroupIDs:     splitCSV(r.URL.Query().Get("group_ids")),
		MinIncidents: queryInt(r, "min_incidents", 0),
	}

	result, err := h.graphiti.ComponentImpact(r.Context(), opts)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ComponentSeverity handles GET /graph/analysis/component-severity.
func (h *GraphAnalysisHandler) ComponentSeverity(w http.ResponseWriter, r *http.Request) {
	opts := analytics.ComponentSeverityOptions{
		Component:    r.URL.Query().Get("component_filter"),
		GroupIDs:     splitCSV(r.URL.Query().Get("group_ids")),
		MinIncidents: queryInt(r, "min_incidents", 0),
	}

	result, err := h.graphiti.ComponentSeverity(r.Context(), opts)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// FlowMetrics handles GET /graph/analysis/flow-metrics.
func (h *GraphAnalysisHandler) FlowMetrics(w http.ResponseWriter, r *http.Request) {
	opts := analytics.FlowMetricsOptions{
		Category:     r.URL.Query().Get("category_filter"),
		GroupIDs:     splitCSV(r.URL.Query().Get("group_ids")),
		MinFlowCount: queryInt(r, "min_flow_count", 0),
	}

	result, err := h.graphiti.FlowMetrics(r.Context(), opts)
	if err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, "analysis_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, result)
}
