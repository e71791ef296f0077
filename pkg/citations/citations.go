// Package citations resolves the episodic provenance of facts and entities:
// which episodes mentioned or asserted a node or edge, and in what role.
package citations

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// sourceURLPattern extracts an embedded source URL from a free-text source description.
var sourceURLPattern = regexp.MustCompile(`source_url:\s*(https?://\S+)`)

// extractSourceURL pulls a source_url annotation out of an episode's source description.
func extractSourceURL(sourceDescription string) string {
	m := sourceURLPattern.FindStringSubmatch(sourceDescription)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

func citationFromEpisode(ep *types.Node) types.Citation {
	return types.Citation{
		EpisodeUUID:       ep.Uuid,
		EpisodeName:       ep.Name,
		Source:            ep.Source,
		SourceDescription: ep.SourceDescription,
		CreatedAt:         ep.CreatedAt,
		SourceURL:         extractSourceURL(ep.SourceDescription),
	}
}

// ForFact resolves the citation list for a RELATES_TO edge: one entry per
// episode uuid listed in edge.Episodes, fetched from the edge's group.
func ForFact(ctx context.Context, d driver.GraphDriver, edge *types.Edge) ([]types.Citation, error) {
	citations := make([]types.Citation, 0, len(edge.Episodes))
	for _, episodeUUID := range edge.Episodes {
		ep, err := d.GetNode(ctx, episodeUUID, edge.GroupID)
		if err != nil || ep == nil {
			// A missing episode doesn't invalidate the rest of the citation list.
			continue
		}
		citations = append(citations, citationFromEpisode(ep))
	}
	return citations, nil
}

// ForEntity resolves the citation list for an entity node by traversing
// MENTIONS edges from episodic nodes that reference it.
func ForEntity(ctx context.Context, d driver.GraphDriver, node *types.Node) ([]types.Citation, error) {
	query := `
		MATCH (e:Episodic)-[:MENTIONS]->(n:Entity {uuid: $uuid})
		RETURN e.uuid AS uuid, e.name AS name, e.source AS source,
		       e.source_description AS source_description, e.created_at AS created_at
		ORDER BY e.created_at ASC
	`
	records, _, _, err := d.ExecuteQuery(ctx, query, map[string]interface{}{"uuid": node.Uuid})
	if err != nil {
		return nil, fmt.Errorf("resolving entity citations for %s: %w", node.Uuid, err)
	}

	recordList, ok := records.([]map[string]interface{})
	if !ok {
		return []types.Citation{}, nil
	}

	out := make([]types.Citation, 0, len(recordList))
	for _, record := range recordList {
		ep := &types.Node{Type: types.EpisodicNodeType}
		if v, ok := record["uuid"].(string); ok {
			ep.Uuid = v
		}
		if v, ok := record["name"].(string); ok {
			ep.Name = v
		}
		if v, ok := record["source"].(string); ok {
			ep.Source = v
		}
		if v, ok := record["source_description"].(string); ok {
			ep.SourceDescription = v
		}
		if v, ok := record["created_at"].(time.Time); ok {
			ep.CreatedAt = v
		}
		out = append(out, citationFromEpisode(ep))
	}
	return out, nil
}

// Chain returns the operation-tagged citation chain for an entity or edge:
// the episodes that cite it, ordered by episode creation time, each tagged
// created/updated/referenced by comparing the episode's timestamp against
// the target's own created_at and updated_at.
func Chain(ctx context.Context, d driver.GraphDriver, uuid string) ([]types.CitationChainEntry, error) {
	if edge, err := d.GetEdge(ctx, uuid, ""); err == nil && edge != nil {
		return edgeChain(ctx, d, edge)
	}

	groupID := "" // node lookups require a group id on most drivers; only the empty group id is tried
	node, err := d.GetNode(ctx, uuid, groupID)
	if err != nil {
		return nil, fmt.Errorf("citation chain: %s is neither a known edge nor node: %w", uuid, err)
	}
	return entityChain(ctx, d, node)
}

func edgeChain(ctx context.Context, d driver.GraphDriver, edge *types.Edge) ([]types.CitationChainEntry, error) {
	base, err := ForFact(ctx, d, edge)
	if err != nil {
		return nil, err
	}
	sort.Slice(base, func(i, j int) bool { return base[i].CreatedAt.Before(base[j].CreatedAt) })

	out := make([]types.CitationChainEntry, 0, len(base))
	for _, c := range base {
		out = append(out, types.CitationChainEntry{
			Citation:  c,
			Operation: classifyOperation(c.CreatedAt, edge.CreatedAt, edge.UpdatedAt),
		})
	}
	return out, nil
}

func entityChain(ctx context.Context, d driver.GraphDriver, node *types.Node) ([]types.CitationChainEntry, error) {
	base, err := ForEntity(ctx, d, node)
	if err != nil {
		return nil, err
	}
	sort.Slice(base, func(i, j int) bool { return base[i].CreatedAt.Before(base[j].CreatedAt) })

	out := make([]types.CitationChainEntry, 0, len(base))
	for _, c := range base {
		out = append(out, types.CitationChainEntry{
			Citation:  c,
			Operation: classifyOperation(c.CreatedAt, node.CreatedAt, node.UpdatedAt),
		})
	}
	return out, nil
}

// classifyOperation tags a citing episode as having created, updated, or merely
// referenced the target, based on proximity of the episode's timestamp to the
// target's created_at/updated_at.
func classifyOperation(episodeTime, targetCreatedAt, targetUpdatedAt time.Time) types.CitationOperation {
	if !episodeTime.After(targetCreatedAt) {
		return types.CitationCreated
	}
	if !targetUpdatedAt.IsZero() && !episodeTime.After(targetUpdatedAt) {
		return types.CitationUpdated
	}
	return types.CitationReferenced
}
