package analytics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/llm"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

type mockLLM struct {
	response *types.Response
	err      error
}

func (m *mockLLM) Chat(ctx context.Context, messages []types.Message) (*types.Response, error) {
	return m.response, m.err
}

func (m *mockLLM) ChatWithStructuredOutput(ctx context.Context, messages []types.Message, schema interface{}) (*types.Response, error) {
	return m.response, m.err
}

func (m *mockLLM) GetCapabilities() []llm.TaskCapability {
	return []llm.TaskCapability{llm.TaskStructuredOutput}
}

func (m *mockLLM) Close() error { return nil }

func TestExtractRootCause(t *testing.T) {
	content := "Incident summary\nRoot cause: disk filled up on node-7\nfollowup notes"
	rootCause, ok := extractRootCause(content)
	if !ok {
		t.Fatal("expected root cause to be found")
	}
	if rootCause != "followup notes" {
		t.Errorf("extractRootCause() = %q, want %q", rootCause, "followup notes")
	}

	if _, ok := extractRootCause("nothing relevant here"); ok {
		t.Error("expected no root cause to be found")
	}
}

func TestRecurringIncidentsEmbeddingOnly(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	epA := newTestEpisode("ep-a", "outage A", "summary\nRoot cause:\ndisk pressure on node-7", base)
	epB := newTestEpisode("ep-b", "outage B", "summary\nRoot cause:\ndisk pressure on node-7", base.Add(72*time.Hour))

	d := newMockDriver()
	d.episodes = []*types.Node{epA, epB}

	emb := newMockEmbedder()
	emb.vectors["disk pressure on node-7"] = []float32{1, 0, 0}

	svc := NewService(d, nil, emb)

	result, err := svc.RecurringIncidents(context.Background(), RecurrenceOptions{})
	if err != nil {
		t.Fatalf("RecurringIncidents() error = %v", err)
	}
	if result.TotalPatterns != 1 {
		t.Fatalf("TotalPatterns = %d, want 1", result.TotalPatterns)
	}
	pattern := result.RecurringPatterns[0]
	if pattern.EmbeddingSimilarity < 0.99 {
		t.Errorf("EmbeddingSimilarity = %f, want ~1.0 for identical root causes", pattern.EmbeddingSimilarity)
	}
	if pattern.IntervalDays < 2.9 || pattern.IntervalDays > 3.1 {
		t.Errorf("IntervalDays = %f, want ~3", pattern.IntervalDays)
	}
	if result.AnalysisMethod != "embedding" {
		t.Errorf("AnalysisMethod = %q, want embedding", result.AnalysisMethod)
	}
}

func TestRecurringIncidentsBelowThresholdExcluded(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	epA := newTestEpisode("ep-a", "outage A", "summary\nRoot cause:\ndisk pressure", base)
	epB := newTestEpisode("ep-b", "outage B", "summary\nRoot cause:\nnetwork partition", base.Add(24*time.Hour))

	d := newMockDriver()
	d.episodes = []*types.Node{epA, epB}

	emb := newMockEmbedder()
	emb.vectors["disk pressure"] = []float32{1, 0, 0}
	emb.vectors["network partition"] = []float32{0, 1, 0}

	svc := NewService(d, nil, emb)

	result, err := svc.RecurringIncidents(context.Background(), RecurrenceOptions{SimilarityThreshold: 0.9})
	if err != nil {
		t.Fatalf("RecurringIncidents() error = %v", err)
	}
	if result.TotalPatterns != 0 {
		t.Errorf("TotalPatterns = %d, want 0 for orthogonal root causes", result.TotalPatterns)
	}
}

func TestRecurringIncidentsWithLLMJudgment(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	epA := newTestEpisode("ep-a", "outage A", "summary\nRoot cause:\ndisk pressure on node-7", base)
	epB := newTestEpisode("ep-b", "outage B", "summary\nRoot cause:\ndisk pressure on node-9", base.Add(24*time.Hour))

	d := newMockDriver()
	d.episodes = []*types.Node{epA, epB}

	emb := newMockEmbedder()
	emb.vectors["disk pressure on node-7"] = []float32{1, 0, 0}
	emb.vectors["disk pressure on node-9"] = []float32{1, 0, 0}

	judgment := recurrenceJudgment{
		SimilarityScore:  0.9,
		SimilarityReason: "both root caused by disk pressure",
		CommonPattern:    "disk pressure",
		IsRecurring:      true,
	}
	payload, _ := json.Marshal(judgment)

	llmClient := &mockLLM{response: &types.Response{Content: string(payload)}}

	svc := NewService(d, llmClient, emb)

	result, err := svc.RecurringIncidents(context.Background(), RecurrenceOptions{UseLLM: true})
	if err != nil {
		t.Fatalf("RecurringIncidents() error = %v", err)
	}
	if result.AnalysisMethod != "embedding+llm" {
		t.Errorf("AnalysisMethod = %q, want embedding+llm", result.AnalysisMethod)
	}
	if result.TotalPatterns != 1 {
		t.Fatalf("TotalPatterns = %d, want 1", result.TotalPatterns)
	}
	if result.RecurringPatterns[0].CommonPattern != "disk pressure" {
		t.Errorf("CommonPattern = %q, want disk pressure", result.RecurringPatterns[0].CommonPattern)
	}
}

func TestFormatChainsEmpty(t *testing.T) {
	if got := formatChains(nil); got != "(none)" {
		t.Errorf("formatChains(nil) = %q, want (none)", got)
	}
}
