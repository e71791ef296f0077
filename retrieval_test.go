package graphiti_test

import (
	"context"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// groupFanoutDriver returns one fixed fact per group so tests can confirm
// Client.Search issues one driver call per requested group and merges the
// results instead of scoping everything to a single default group.
type groupFanoutDriver struct {
	MockGraphDriver
	calledGroups []string
}

func (d *groupFanoutDriver) SearchEdges(ctx context.Context, query, groupID string, options *driver.SearchOptions) ([]*types.Edge, error) {
	d.calledGroups = append(d.calledGroups, groupID)
	edge := types.NewEntityEdge(groupID+"-edge", "a", "b", groupID, "fact from "+groupID, types.EntityEdgeType)
	return []*types.Edge{edge}, nil
}

func newSearchTestClient(t *testing.T, gd driver.GraphDriver) *graphiti.Client {
	t.Helper()
	client, err := graphiti.NewClient(gd, &MockLLMClient{}, &MockEmbedderClient{}, &graphiti.Config{GroupID: "default", TimeZone: time.UTC}, nil)
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	return client
}

func bm25OnlyConfig(groupIDs []string) *types.SearchConfig {
	return &types.SearchConfig{
		Limit: 10,
		EdgeConfig: &types.EdgeSearchConfig{
			SearchMethods: []string{"bm25"},
			Reranker:      "rrf",
		},
		Filters: &types.SearchFilters{GroupIDs: groupIDs},
	}
}

func TestSearchFansOutAcrossGroupIDs(t *testing.T) {
	gd := &groupFanoutDriver{}
	client := newSearchTestClient(t, gd)

	result, err := client.Search(context.Background(), "incident", bm25OnlyConfig([]string{"team-a", "team-b"}))
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(gd.calledGroups) != 2 {
		t.Fatalf("expected one driver call per group, got calls to %v", gd.calledGroups)
	}
	if len(result.Edges) != 2 {
		t.Fatalf("expected one edge per group, got %d edges", len(result.Edges))
	}

	seen := map[string]bool{}
	for _, edge := range result.Edges {
		seen[edge.GroupID] = true
		if edge.GroupID != "team-a" && edge.GroupID != "team-b" {
			t.Errorf("edge %s carries unexpected group %q", edge.Uuid, edge.GroupID)
		}
	}
	if !seen["team-a"] || !seen["team-b"] {
		t.Errorf("expected edges from both groups, got %v", result.Edges)
	}
}

func TestSearchDefaultsToClientGroupWhenNoFilterGiven(t *testing.T) {
	gd := &groupFanoutDriver{}
	client := newSearchTestClient(t, gd)

	config := bm25OnlyConfig(nil)
	if _, err := client.Search(context.Background(), "incident", config); err != nil {
		t.Fatalf("Search() error = %v", err)
	}

	if len(gd.calledGroups) != 1 || gd.calledGroups[0] != "default" {
		t.Fatalf("expected a single call scoped to the client's default group, got %v", gd.calledGroups)
	}
}

// centerNodeDriver serves a two-hop neighborhood rooted at "center" so tests
// can verify shortest-path reranking actually reorders candidates.
type centerNodeDriver struct {
	MockGraphDriver
}

func (d *centerNodeDriver) SearchEdges(ctx context.Context, query, groupID string, options *driver.SearchOptions) ([]*types.Edge, error) {
	farEdge := types.NewEntityEdge("far-edge", "far1", "far2", groupID, "an unrelated fact", types.EntityEdgeType)
	nearEdge := types.NewEntityEdge("near-edge", "center", "near", groupID, "a fact touching the center node", types.EntityEdgeType)
	// farEdge is returned first so an unranked (rrf-only) result would keep
	// it ahead of nearEdge; only the distance pass should promote nearEdge.
	return []*types.Edge{farEdge, nearEdge}, nil
}

func (d *centerNodeDriver) GetNodeNeighbors(ctx context.Context, nodeUUID, groupID string) ([]types.Neighbor, error) {
	if nodeUUID == "center" {
		return []types.Neighbor{{NodeUUID: "near", EdgeCount: 1}}, nil
	}
	return nil, nil
}

func TestSearchCenterNodeUUIDRerankPromotesNearbyFacts(t *testing.T) {
	gd := &centerNodeDriver{}
	client := newSearchTestClient(t, gd)

	withoutCenter := bm25OnlyConfig(nil)
	baseline, err := client.Search(context.Background(), "incident", withoutCenter)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(baseline.Edges) != 2 || baseline.Edges[0].Uuid != "far-edge" {
		t.Fatalf("expected rrf-only baseline to keep far-edge first, got %v", baseline.Edges)
	}

	withCenter := bm25OnlyConfig(nil)
	withCenter.CenterNodeUUID = "center"
	withCenter.CenterNodeDistance = 2
	reranked, err := client.Search(context.Background(), "incident", withCenter)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(reranked.Edges) != 2 || reranked.Edges[0].Uuid != "near-edge" {
		t.Fatalf("expected center-node rerank to promote near-edge, got %v", reranked.Edges)
	}
}
