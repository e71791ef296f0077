package graphiti

import (
	"context"
	"fmt"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/citations"
	"github.com/uniQorn-org/graphiti/pkg/types"
	"github.com/uniQorn-org/graphiti/pkg/utils"
)

// UpdateFact implements the fact versioning protocol: the existing edge is
// expired in place (a direct property update, never a full re-save, so
// fact_embedding on the old edge is never touched) and a new edge is created
// carrying the updated text, a freshly computed embedding, and citations
// inherited from the expired edge.
//
// sourceNodeUUID and targetNodeUUID, if non-nil, override the new edge's
// endpoints; otherwise the old edge's endpoints are kept.
func (c *Client) UpdateFact(ctx context.Context, factUUID, newFactText string, sourceNodeUUID, targetNodeUUID *string, attributes map[string]interface{}) (*types.FactUpdateResult, error) {
	oldEdge, err := c.driver.GetEdge(ctx, factUUID, c.config.GroupID)
	if err != nil {
		return nil, fmt.Errorf("%w: fact %s: %v", ErrEdgeNotFound, factUUID, err)
	}

	now := time.Now()
	if err := c.driver.ExpireEdge(ctx, oldEdge.Uuid, oldEdge.GroupID, now); err != nil {
		return nil, fmt.Errorf("failed to expire fact %s: %w", factUUID, err)
	}
	expiredAt := now
	oldEdge.ExpiredAt = &expiredAt

	var newEmbedding []float32
	if c.embedder != nil {
		newEmbedding, err = c.embedder.EmbedSingle(ctx, newFactText)
		if err != nil {
			return nil, fmt.Errorf("failed to embed updated fact: %w", err)
		}
	}

	sourceID := oldEdge.SourceNodeID
	if sourceNodeUUID != nil {
		sourceID = *sourceNodeUUID
	}
	targetID := oldEdge.TargetNodeID
	if targetNodeUUID != nil {
		targetID = *targetNodeUUID
	}

	newEdge := types.NewEntityEdge(utils.GenerateUUID(), sourceID, targetID, oldEdge.GroupID, oldEdge.Name, oldEdge.Type)
	newEdge.Fact = newFactText
	newEdge.Summary = newFactText
	newEdge.FactEmbedding = newEmbedding
	newEdge.Embedding = newEmbedding
	newEdge.Episodes = oldEdge.Episodes
	newEdge.CreatedAt = now
	newEdge.ValidAt = &now
	newEdge.ExpiredAt = nil
	newEdge.InvalidAt = nil
	newEdge.Attributes = attributes

	if err := c.driver.UpsertEdge(ctx, newEdge); err != nil {
		// The old edge remains expired; surfaced via update_reason so a caller
		// can reconcile (retry the insert, or revert the expiry) out of band.
		return nil, fmt.Errorf("old fact %s expired but new fact insert failed (update_reason=insert_failed): %w", factUUID, err)
	}

	return &types.FactUpdateResult{
		OldUUID: oldEdge.Uuid,
		NewUUID: newEdge.Uuid,
		NewEdge: newEdge,
		Message: fmt.Sprintf("fact %s superseded by %s", oldEdge.Uuid, newEdge.Uuid),
	}, nil
}

// GetFactCitations resolves the citation list for a RELATES_TO edge.
func (c *Client) GetFactCitations(ctx context.Context, edgeUUID string) ([]types.Citation, error) {
	edge, err := c.driver.GetEdge(ctx, edgeUUID, c.config.GroupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEdgeNotFound, edgeUUID)
	}
	return citations.ForFact(ctx, c.driver, edge)
}

// GetEntityCitations resolves the citation list for an entity node.
func (c *Client) GetEntityCitations(ctx context.Context, nodeUUID string) ([]types.Citation, error) {
	node, err := c.driver.GetNode(ctx, nodeUUID, c.config.GroupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeUUID)
	}
	return citations.ForEntity(ctx, c.driver, node)
}

// GetCitationChain returns the operation-tagged citation chain for an entity or edge.
func (c *Client) GetCitationChain(ctx context.Context, uuid string) ([]types.CitationChainEntry, error) {
	return citations.Chain(ctx, c.driver, uuid)
}
