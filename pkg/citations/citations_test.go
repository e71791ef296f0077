package citations

import (
	"context"
	"testing"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// mockDriver implements driver.GraphDriver with just the node/edge/query
// lookups the citations package exercises.
type mockDriver struct {
	nodes       map[string]*types.Node
	edges       map[string]*types.Edge
	entityMatch []map[string]interface{}
	err         error
}

func newMockDriver() *mockDriver {
	return &mockDriver{nodes: make(map[string]*types.Node), edges: make(map[string]*types.Edge)}
}

func (m *mockDriver) ExecuteQuery(ctx context.Context, cypherQuery string, kwargs map[string]interface{}) (interface{}, interface{}, interface{}, error) {
	if m.err != nil {
		return nil, nil, nil, m.err
	}
	return m.entityMatch, nil, nil, nil
}

func (m *mockDriver) Session(database *string) driver.GraphDriverSession { return nil }
func (m *mockDriver) Close() error                                       { return nil }
func (m *mockDriver) DeleteAllIndexes(database string)                   {}
func (m *mockDriver) Provider() driver.GraphProvider                     { return driver.GraphProviderLadybug }
func (m *mockDriver) GetAossClient() interface{}                         { return nil }

func (m *mockDriver) GetNode(ctx context.Context, nodeID, groupID string) (*types.Node, error) {
	if m.err != nil {
		return nil, m.err
	}
	n, ok := m.nodes[nodeID]
	if !ok {
		return nil, nil
	}
	return n, nil
}
func (m *mockDriver) UpsertNode(ctx context.Context, node *types.Node) error { return m.err }
func (m *mockDriver) DeleteNode(ctx context.Context, nodeID, groupID string) error {
	return m.err
}
func (m *mockDriver) GetNodes(ctx context.Context, nodeIDs []string, groupID string) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetEdge(ctx context.Context, edgeID, groupID string) (*types.Edge, error) {
	if m.err != nil {
		return nil, m.err
	}
	e, ok := m.edges[edgeID]
	if !ok {
		return nil, nil
	}
	return e, nil
}
func (m *mockDriver) UpsertEdge(ctx context.Context, edge *types.Edge) error { return m.err }
func (m *mockDriver) UpsertEpisodicEdge(ctx context.Context, episodeUUID, entityUUID, groupID string) error {
	return m.err
}
func (m *mockDriver) UpsertCommunityEdge(ctx context.Context, communityUUID, nodeUUID, uuid, groupID string) error {
	return m.err
}
func (m *mockDriver) DeleteEdge(ctx context.Context, edgeID, groupID string) error { return m.err }
func (m *mockDriver) GetEdges(ctx context.Context, edgeIDs []string, groupID string) ([]*types.Edge, error) {
	return nil, m.err
}
func (m *mockDriver) GetNeighbors(ctx context.Context, nodeID, groupID string, maxDistance int) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetRelatedNodes(ctx context.Context, nodeID, groupID string, edgeTypes []types.EdgeType) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetNodeNeighbors(ctx context.Context, nodeUUID, groupID string) ([]types.Neighbor, error) {
	return nil, m.err
}
func (m *mockDriver) GetBetweenNodes(ctx context.Context, sourceNodeID, targetNodeID string) ([]*types.Edge, error) {
	return nil, m.err
}
func (m *mockDriver) ExpireEdge(ctx context.Context, edgeID, groupID string, expiredAt time.Time) error {
	return m.err
}
func (m *mockDriver) SearchNodesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) SearchEdgesByEmbedding(ctx context.Context, embedding []float32, groupID string, limit int) ([]*types.Edge, error) {
	return nil, m.err
}
func (m *mockDriver) SearchNodes(ctx context.Context, query, groupID string, options *driver.SearchOptions) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) SearchEdges(ctx context.Context, query, groupID string, options *driver.SearchOptions) ([]*types.Edge, error) {
	return nil, m.err
}
func (m *mockDriver) SearchNodesByVector(ctx context.Context, vector []float32, groupID string, options *driver.VectorSearchOptions) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) SearchEdgesByVector(ctx context.Context, vector []float32, groupID string, options *driver.VectorSearchOptions) ([]*types.Edge, error) {
	return nil, m.err
}
func (m *mockDriver) UpsertNodes(ctx context.Context, nodes []*types.Node) error { return m.err }
func (m *mockDriver) UpsertEdges(ctx context.Context, edges []*types.Edge) error { return m.err }
func (m *mockDriver) GetNodesInTimeRange(ctx context.Context, start, end time.Time, groupID string) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetEdgesInTimeRange(ctx context.Context, start, end time.Time, groupID string) ([]*types.Edge, error) {
	return nil, m.err
}
func (m *mockDriver) RetrieveEpisodes(ctx context.Context, referenceTime time.Time, groupIDs []string, limit int, episodeType *types.EpisodeType) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetCommunities(ctx context.Context, groupID string, level int) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) BuildCommunities(ctx context.Context, groupID string) error { return m.err }
func (m *mockDriver) GetExistingCommunity(ctx context.Context, entityUUID string) (*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) FindModalCommunity(ctx context.Context, entityUUID string) (*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) RemoveCommunities(ctx context.Context) error { return m.err }
func (m *mockDriver) CreateIndices(ctx context.Context) error     { return m.err }
func (m *mockDriver) GetStats(ctx context.Context, groupID string) (*driver.GraphStats, error) {
	return nil, m.err
}
func (m *mockDriver) ParseNodesFromRecords(records any) ([]*types.Node, error) { return nil, m.err }
func (m *mockDriver) GetEntityNodesByGroup(ctx context.Context, groupID string) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetAllGroupIDs(ctx context.Context) ([]string, error) { return nil, m.err }

func TestExtractSourceURL(t *testing.T) {
	if got := extractSourceURL("runbook notes source_url: https://example.com/runbook"); got != "https://example.com/runbook" {
		t.Errorf("extractSourceURL() = %q", got)
	}
	if got := extractSourceURL("no url here"); got != "" {
		t.Errorf("extractSourceURL() = %q, want empty", got)
	}
}

func TestForFactResolvesEpisodesSkippingMissing(t *testing.T) {
	d := newMockDriver()
	d.nodes["ep-1"] = &types.Node{Uuid: "ep-1", Name: "deploy", Source: "text", GroupID: "g1"}

	edge := types.NewEntityEdge("edge-1", "a", "b", "g1", "x", types.EntityEdgeType)
	edge.Episodes = []string{"ep-1", "ep-missing"}

	citations, err := ForFact(context.Background(), d, edge)
	if err != nil {
		t.Fatalf("ForFact() error = %v", err)
	}
	if len(citations) != 1 {
		t.Fatalf("len(citations) = %d, want 1", len(citations))
	}
	if citations[0].EpisodeUUID != "ep-1" {
		t.Errorf("EpisodeUUID = %q, want ep-1", citations[0].EpisodeUUID)
	}
}

func TestForEntityParsesExecuteQueryRecords(t *testing.T) {
	d := newMockDriver()
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d.entityMatch = []map[string]interface{}{
		{"uuid": "ep-1", "name": "deploy", "source": "text", "source_description": "source_url: https://x.example/1", "created_at": created},
	}

	node := &types.Node{Uuid: "entity-1", Type: types.EntityNodeType}
	citations, err := ForEntity(context.Background(), d, node)
	if err != nil {
		t.Fatalf("ForEntity() error = %v", err)
	}
	if len(citations) != 1 {
		t.Fatalf("len(citations) = %d, want 1", len(citations))
	}
	if citations[0].SourceURL != "https://x.example/1" {
		t.Errorf("SourceURL = %q", citations[0].SourceURL)
	}
}

func TestClassifyOperation(t *testing.T) {
	created := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	updated := created.Add(time.Hour)

	if op := classifyOperation(created.Add(-time.Minute), created, updated); op != types.CitationCreated {
		t.Errorf("classifyOperation(before created) = %v, want created", op)
	}
	if op := classifyOperation(created, created, updated); op != types.CitationCreated {
		t.Errorf("classifyOperation(at created) = %v, want created", op)
	}
	if op := classifyOperation(updated, created, updated); op != types.CitationUpdated {
		t.Errorf("classifyOperation(at updated) = %v, want updated", op)
	}
	if op := classifyOperation(updated.Add(time.Hour), created, updated); op != types.CitationReferenced {
		t.Errorf("classifyOperation(after updated) = %v, want referenced", op)
	}
}

func TestChainDispatchesToEdgeThenNode(t *testing.T) {
	d := newMockDriver()
	edge := types.NewEntityEdge("edge-1", "a", "b", "", "x", types.EntityEdgeType)
	d.edges["edge-1"] = edge

	chain, err := Chain(context.Background(), d, "edge-1")
	if err != nil {
		t.Fatalf("Chain() error = %v", err)
	}
	if chain == nil {
		t.Error("expected non-nil (possibly empty) chain for known edge")
	}
}
