package graphiti_test

import (
	"context"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// factDriver overrides the edge-store methods of MockGraphDriver with an
// in-memory single-edge fixture so UpdateFact's expire-then-insert protocol
// can be exercised without a real graph backend.
type factDriver struct {
	MockGraphDriver
	edge *types.Edge
}

func (f *factDriver) GetEdge(ctx context.Context, edgeID, groupID string) (*types.Edge, error) {
	if f.edge == nil || f.edge.Uuid != edgeID {
		return nil, graphiti.ErrEdgeNotFound
	}
	return f.edge, nil
}

func (f *factDriver) ExpireEdge(ctx context.Context, edgeID, groupID string, expiredAt time.Time) error {
	if f.edge == nil || f.edge.Uuid != edgeID {
		return graphiti.ErrEdgeNotFound
	}
	f.edge.ExpiredAt = &expiredAt
	return nil
}

func (f *factDriver) UpsertEdge(ctx context.Context, edge *types.Edge) error {
	return nil
}

func newFactTestClient(t *testing.T, edge *types.Edge) *graphiti.Client {
	t.Helper()
	client, err := graphiti.NewClient(&factDriver{edge: edge}, &MockLLMClient{}, &MockEmbedderClient{}, &graphiti.Config{GroupID: "default", TimeZone: time.UTC}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func TestUpdateFactExpiresOldAndCreatesNew(t *testing.T) {
	oldEdge := types.NewEntityEdge("edge-1", "source-1", "target-1", "default", "old fact", types.EntityEdgeType)
	oldEdge.Fact = "the db was slow"
	oldEdge.Episodes = []string{"ep-1"}

	client := newFactTestClient(t, oldEdge)

	result, err := client.UpdateFact(context.Background(), "edge-1", "the db was actually down", nil, nil, nil)
	if err != nil {
		t.Fatalf("UpdateFact() error = %v", err)
	}

	if result.OldUUID != "edge-1" {
		t.Errorf("OldUUID = %q, want edge-1", result.OldUUID)
	}
	if result.NewUUID == "" || result.NewUUID == "edge-1" {
		t.Errorf("expected a freshly generated NewUUID, got %q", result.NewUUID)
	}
	if result.NewEdge.Fact != "the db was actually down" {
		t.Errorf("NewEdge.Fact = %q", result.NewEdge.Fact)
	}
	if oldEdge.ExpiredAt == nil {
		t.Error("expected old edge to be expired in place")
	}
}

func TestUpdateFactUnknownEdgeReturnsNotFound(t *testing.T) {
	client := newFactTestClient(t, nil)

	_, err := client.UpdateFact(context.Background(), "missing-edge", "new text", nil, nil, nil)
	if err == nil {
		t.Fatal("expected an error for an unknown fact uuid")
	}
}

func TestGetFactCitationsUnknownEdgeReturnsNotFound(t *testing.T) {
	client := newFactTestClient(t, nil)

	_, err := client.GetFactCitations(context.Background(), "missing-edge")
	if err == nil {
		t.Fatal("expected an error for an unknown fact uuid")
	}
}
