package analytics

import (
	"context"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/nlp"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// mockDriver implements driver.GraphDriver with just enough behavior for the
// analytics package's read paths: RetrieveEpisodes, ExecuteQuery (backing
// types.GetMentionedNodes), and GetBetweenNodes.
type mockDriver struct {
	episodes []*types.Node
	mentions map[string][]map[string]interface{} // episode uuid -> mentioned entity records
	between  map[string][]*types.Edge             // "srcUUID|dstUUID" -> edges
	err      error
}

func newMockDriver() *mockDriver {
	return &mockDriver{
		mentions: make(map[string][]map[string]interface{}),
		between:  make(map[string][]*types.Edge),
	}
}

func (m *mockDriver) ExecuteQuery(ctx context.Context, cypherQuery string, kwargs map[string]interface{}) (interface{}, interface{}, interface{}, error) {
	if m.err != nil {
		return nil, nil, nil, m.err
	}
	uuids, _ := kwargs["uuids"].([]string)
	var records []map[string]interface{}
	seen := make(map[string]bool)
	for _, uuid := range uuids {
		for _, rec := range m.mentions[uuid] {
			key, _ := rec["uuid"].(string)
			if seen[key] {
				continue
			}
			seen[key] = true
			records = append(records, rec)
		}
	}
	return records, nil, nil, nil
}

func (m *mockDriver) Session(database *string) driver.GraphDriverSession { return nil }
func (m *mockDriver) Close() error                                       { return nil }
func (m *mockDriver) DeleteAllIndexes(database string)                   {}
func (m *mockDriver) Provider() driver.GraphProvider                     { return driver.GraphProviderLadybug }
func (m *mockDriver) GetAossClient() interface{}                         { return nil }

func (m *mockDriver) GetNode(ctx context.Context, nodeID, groupID string) (*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) UpsertNode(ctx context.Context, node *types.Node) error { return m.err }
func (m *mockDriver) DeleteNode(ctx context.Context, nodeID, groupID string) error {
	return m.err
}
func (m *mockDriver) GetNodes(ctx context.Context, nodeIDs []string, groupID string) ([]*types.Node, error) {
	return nil, m.err
}
func (m *mockDriver) GetEdge(ctx context.Context, edgeID, groupID string) (*types.Edge, error) {
	return nil, m.err
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
	if m.err != nil {
		return nil, m.err
	}
	return m.between[sourceNodeID+"|"+targetNodeID], nil
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
	if m.err != nil {
		return nil, m.err
	}
	return m.episodes, nil
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

// mockEmbedder implements embedder.Client, returning one fixed vector per text.
type mockEmbedder struct {
	vectors map[string][]float32
	err     error
}

func newMockEmbedder() *mockEmbedder {
	return &mockEmbedder{vectors: make(map[string][]float32)}
}

func (m *mockEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if v, ok := m.vectors[t]; ok {
			out[i] = v
			continue
		}
		out[i] = []float32{1, 0, 0}
	}
	return out, nil
}

func (m *mockEmbedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vs, err := m.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (m *mockEmbedder) Dimensions() int { return 3 }
func (m *mockEmbedder) Close() error    { return nil }
func (m *mockEmbedder) GetCapabilities() []nlp.TaskCapability {
	return []nlp.TaskCapability{nlp.TaskCapability("embedding")}
}
