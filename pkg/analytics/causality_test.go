package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/types"
)

func newTestEpisode(uuid, name, content string, ref time.Time) *types.Node {
	return &types.Node{
		Uuid:      uuid,
		Name:      name,
		Type:      types.EpisodicNodeType,
		Content:   content,
		Reference: ref,
	}
}

func TestExtractCauseCategory(t *testing.T) {
	content := "Labels: Alert; reason/disk_pressure\nsomething happened"
	if got := extractCauseCategory(content); got != "reason/disk_pressure" {
		t.Errorf("extractCauseCategory() = %q, want reason/disk_pressure", got)
	}

	if got := extractCauseCategory("no labels here"); got != "" {
		t.Errorf("extractCauseCategory() = %q, want empty", got)
	}
}

func TestTimelineBuildsChronologicalEntriesWithCausalChains(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	epLater := newTestEpisode("ep-2", "WARNING:2 db-outage", "Labels: Alert; reason/db_timeout\ncaused by disk", base.Add(48*time.Hour))
	epEarlier := newTestEpisode("ep-1", "INFO restart", "Labels: Alert; reason/db_timeout\ncaused by disk", base)

	d := newMockDriver()
	d.episodes = []*types.Node{epLater, epEarlier}
	d.mentions["ep-1"] = []map[string]interface{}{
		{"uuid": "svc-a", "name": "checkout-service", "entity_type": "service"},
		{"uuid": "svc-b", "name": "payments-db", "entity_type": "service"},
	}
	d.mentions["ep-2"] = d.mentions["ep-1"]
	causalEdge := types.NewEntityEdge("edge-1", "svc-a", "svc-b", "default", "disk full caused timeout", types.EntityEdgeType)
	causalEdge.Fact = "disk full caused the db timeout"
	d.between["svc-a|svc-b"] = []*types.Edge{causalEdge}

	svc := NewService(d, nil, nil)
	result, err := svc.Timeline(context.Background(), TimelineFilters{})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}

	if result.TotalEpisodes != 2 {
		t.Errorf("TotalEpisodes = %d, want 2", result.TotalEpisodes)
	}
	if len(result.Timeline) != 2 {
		t.Fatalf("len(Timeline) = %d, want 2", len(result.Timeline))
	}
	if result.Timeline[0].EpisodeUUID != "ep-1" {
		t.Errorf("expected ep-1 first (chronological), got %s", result.Timeline[0].EpisodeUUID)
	}
	if result.Timeline[0].CauseCategory != "reason/db_timeout" {
		t.Errorf("CauseCategory = %q, want reason/db_timeout", result.Timeline[0].CauseCategory)
	}
}

func TestTimelineFiltersByCategoryAndComponent(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ep := newTestEpisode("ep-1", "WARNING:2 outage", "Labels: Alert; reason/disk_pressure\n", base)

	d := newMockDriver()
	d.episodes = []*types.Node{ep}

	svc := NewService(d, nil, nil)

	result, err := svc.Timeline(context.Background(), TimelineFilters{Category: "reason/other"})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(result.Timeline) != 0 {
		t.Errorf("expected 0 entries for mismatched category, got %d", len(result.Timeline))
	}

	result, err = svc.Timeline(context.Background(), TimelineFilters{Category: "reason/disk_pressure"})
	if err != nil {
		t.Fatalf("Timeline() error = %v", err)
	}
	if len(result.Timeline) != 1 {
		t.Errorf("expected 1 entry for matching category, got %d", len(result.Timeline))
	}
}

func TestIsBlockedFiltersToolEntities(t *testing.T) {
	svc := NewService(newMockDriver(), nil, nil)
	if !svc.isBlocked("PagerDuty") {
		t.Error("expected pagerduty to be blocked")
	}
	if !svc.isBlocked("https://runbooks.example.com/x") {
		t.Error("expected URL-shaped entity to be blocked")
	}
	if svc.isBlocked("checkout-service") {
		t.Error("expected checkout-service not to be blocked")
	}
}

func TestContainsCausalKeyword(t *testing.T) {
	if !containsCausalKeyword("the deploy triggered a rollback") {
		t.Error("expected 'triggered' to be recognized as causal")
	}
	if containsCausalKeyword("just a routine health check") {
		t.Error("expected no causal keyword match")
	}
}
