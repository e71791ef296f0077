package graphiti

import (
	"context"
	"fmt"

	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// clearGraphScanLimit bounds how many rows ClearGraph asks the driver for
// in one shot. GraphDriver's search methods take no pagination cursor, so
// this is a single generous cap rather than a true page size.
const clearGraphScanLimit = 100000

// ClearGraph removes all entity/episodic nodes and the edges between them
// for a specific group. Deletion is node-driven: most drivers cascade edge
// deletion when their endpoint is removed, but edges are still walked and
// deleted explicitly first so a driver that doesn't cascade can't leave
// orphaned relationship rows behind.
func (c *Client) ClearGraph(ctx context.Context, groupID string) error {
	if groupID == "" {
		groupID = c.config.GroupID
	}

	edges, err := c.getAllEdgesForGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to get edges for clearing: %w", err)
	}
	for _, edge := range edges {
		if err := c.driver.DeleteEdge(ctx, edge.Uuid, groupID); err != nil {
			return fmt.Errorf("failed to delete edge %s: %w", edge.Uuid, err)
		}
	}

	nodes, err := c.getAllNodesForGroup(ctx, groupID)
	if err != nil {
		return fmt.Errorf("failed to get nodes for clearing: %w", err)
	}
	for _, node := range nodes {
		if err := c.driver.DeleteNode(ctx, node.Uuid, groupID); err != nil {
			return fmt.Errorf("failed to delete node %s: %w", node.Uuid, err)
		}
	}

	return nil
}

// getAllNodesForGroup retrieves every node belonging to groupID.
func (c *Client) getAllNodesForGroup(ctx context.Context, groupID string) ([]*types.Node, error) {
	return c.driver.SearchNodes(ctx, "", groupID, &driver.SearchOptions{
		Limit: clearGraphScanLimit,
	})
}

// getAllEdgesForGroup retrieves every edge belonging to groupID.
func (c *Client) getAllEdgesForGroup(ctx context.Context, groupID string) ([]*types.Edge, error) {
	return c.driver.SearchEdges(ctx, "", groupID, &driver.SearchOptions{
		Limit: clearGraphScanLimit,
	})
}

// CreateIndices creates database indices and constraints for optimal performance.
func (c *Client) CreateIndices(ctx context.Context) error {
	return c.driver.CreateIndices(ctx)
}

// soleMentionCountQuery counts how many Episodic nodes MENTIONS a given
// entity, used by RemoveEpisode to decide whether an entity survives the
// removal of one of its episodes.
const soleMentionCountQuery = `MATCH (e:Episodic)-[:MENTIONS]->(n:Entity {uuid: $uuid}) RETURN count(*) AS episode_count`

// RemoveEpisode deletes an episode and unwinds the side effects of having
// ingested it: edges the episode originated are removed, and entities are
// removed too if this was the only episode that ever mentioned them. Edges
// and entities still referenced by other episodes are left in place.
func (c *Client) RemoveEpisode(ctx context.Context, episodeUUID string) error {
	episode, err := types.GetEpisodicNodeByUUID(ctx, c.driver, episodeUUID)
	if err != nil {
		return fmt.Errorf("failed to get episode: %w", err)
	}

	wrapper := &driverWrapper{c.driver}
	edges, err := types.GetEntityEdgesByUUIDs(ctx, wrapper, episode.EntityEdges)
	if err != nil {
		return fmt.Errorf("failed to get entity edges: %w", err)
	}
	edgesToDelete := edgesOriginatedBy(edges, episode.Uuid)

	mentionedNodes, err := types.GetMentionedNodes(ctx, c.driver, []*types.Node{episode})
	if err != nil {
		return fmt.Errorf("failed to get mentioned nodes: %w", err)
	}
	nodesToDelete := c.soleMentionNodes(ctx, mentionedNodes)

	if len(edgesToDelete) > 0 {
		if err := types.DeleteEdgesByUUIDs(ctx, wrapper, uuidsOf(edgesToDelete)); err != nil {
			return fmt.Errorf("failed to delete edges: %w", err)
		}
	}

	if len(nodesToDelete) > 0 {
		if err := types.DeleteNodesByUUIDs(ctx, c.driver, nodeUUIDsOf(nodesToDelete)); err != nil {
			return fmt.Errorf("failed to delete nodes: %w", err)
		}
	}

	if err := types.DeleteNode(ctx, c.driver, episode); err != nil {
		return fmt.Errorf("failed to delete episode: %w", err)
	}

	return nil
}

// edgesOriginatedBy returns the edges whose first recorded episode is
// episodeUUID — i.e. the episode that created the fact, not one that later
// corroborated it.
func edgesOriginatedBy(edges []*types.Edge, episodeUUID string) []*types.Edge {
	var originated []*types.Edge
	for _, edge := range edges {
		if len(edge.Episodes) > 0 && edge.Episodes[0] == episodeUUID {
			originated = append(originated, edge)
		}
	}
	return originated
}

// soleMentionNodes filters candidates down to the ones mentioned by exactly
// one episode, meaning the episode about to be deleted is their only
// remaining anchor in the graph. A node whose mention count can't be
// determined is left alone rather than risk deleting live data.
func (c *Client) soleMentionNodes(ctx context.Context, candidates []*types.Node) []*types.Node {
	var sole []*types.Node
	for _, node := range candidates {
		records, _, _, err := c.driver.ExecuteQuery(ctx, soleMentionCountQuery, map[string]interface{}{
			"uuid": node.Uuid,
		})
		if err != nil {
			c.logger.Warn("failed to check episode mention count for node, skipping deletion",
				"node_uuid", node.Uuid,
				"error", err)
			continue
		}

		recordList, ok := records.([]map[string]interface{})
		if !ok {
			continue
		}
		for _, record := range recordList {
			if count, ok := record["episode_count"].(int64); ok && count == 1 {
				sole = append(sole, node)
			}
		}
	}
	return sole
}

func uuidsOf(edges []*types.Edge) []string {
	uuids := make([]string, len(edges))
	for i, edge := range edges {
		uuids[i] = edge.Uuid
	}
	return uuids
}

func nodeUUIDsOf(nodes []*types.Node) []string {
	uuids := make([]string, len(nodes))
	for i, node := range nodes {
		uuids[i] = node.Uuid
	}
	return uuids
}

// Close closes the client and all its connections, including the
// checkpoint store if SubmitEpisode ever opened one.
func (c *Client) Close(ctx context.Context) error {
	if c.checkpoints != nil {
		if err := c.checkpoints.Close(); err != nil {
			return fmt.Errorf("failed to close checkpoint store: %w", err)
		}
	}
	return c.driver.Close()
}

// ExecuteQuery executes a raw Cypher query against the graph database.
// This exposes the underlying driver's query execution capability.
func (c *Client) ExecuteQuery(ctx context.Context, query string, params map[string]interface{}) (interface{}, interface{}, interface{}, error) {
	return c.driver.ExecuteQuery(ctx, query, params)
}
