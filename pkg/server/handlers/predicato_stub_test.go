package handlers

import (
	"context"
	"errors"

	"github.com/uniQorn-org/graphiti"
	"github.com/uniQorn-org/graphiti/pkg/analytics"
	"github.com/uniQorn-org/graphiti/pkg/factstore"
	"github.com/uniQorn-org/graphiti/pkg/modeler"
	"github.com/uniQorn-org/graphiti/pkg/types"
)

// errBoom is a generic upstream failure used across handler tests.
var errBoom = errors.New("boom")

// stubPredicato is a settable fake of graphiti.Predicato for handler tests.
// Each field defaults to a zero-value success response; tests override only
// the fields their scenario exercises.
type stubPredicato struct {
	searchResult *types.SearchResults
	searchErr    error

	removeEpisodeErr error

	submitEpisodeJob *graphiti.EpisodeJob

	updateFactResult *types.FactUpdateResult
	updateFactErr    error

	factCitations    []types.Citation
	factCitationsErr error

	entityCitations    []types.Citation
	entityCitationsErr error

	citationChain    []types.CitationChainEntry
	citationChainErr error

	causalityResult *analytics.TimelineResult
	causalityErr    error

	recurrenceResult *analytics.RecurrenceResult
	recurrenceErr    error

	componentImpactResult *analytics.ComponentImpactResult
	componentImpactErr    error

	componentSeverityResult *analytics.ComponentSeverityResult
	componentSeverityErr    error

	flowMetricsResult *analytics.FlowMetricsResult
	flowMetricsErr    error
}

func (s *stubPredicato) Add(ctx context.Context, episodes []types.Episode, options *graphiti.AddEpisodeOptions) (*types.AddBulkEpisodeResults, error) {
	return &types.AddBulkEpisodeResults{}, nil
}

func (s *stubPredicato) AddEpisode(ctx context.Context, episode types.Episode, options *graphiti.AddEpisodeOptions) (*types.AddEpisodeResults, error) {
	return &types.AddEpisodeResults{}, nil
}

func (s *stubPredicato) Search(ctx context.Context, query string, config *types.SearchConfig) (*types.SearchResults, error) {
	if s.searchResult != nil || s.searchErr != nil {
		return s.searchResult, s.searchErr
	}
	return &types.SearchResults{}, nil
}

func (s *stubPredicato) GetNode(ctx context.Context, nodeID string) (*types.Node, error) {
	return nil, graphiti.ErrNodeNotFound
}

func (s *stubPredicato) GetEdge(ctx context.Context, edgeID string) (*types.Edge, error) {
	return nil, graphiti.ErrEdgeNotFound
}

func (s *stubPredicato) GetEpisodes(ctx context.Context, groupID string, limit int) ([]*types.Node, error) {
	return nil, nil
}

func (s *stubPredicato) ClearGraph(ctx context.Context, groupID string) error {
	return nil
}

func (s *stubPredicato) CreateIndices(ctx context.Context) error {
	return nil
}

func (s *stubPredicato) AddTriplet(ctx context.Context, sourceNode *types.Node, edge *types.Edge, targetNode *types.Node, createEmbeddings bool) (*types.AddTripletResults, error) {
	return &types.AddTripletResults{}, nil
}

func (s *stubPredicato) RemoveEpisode(ctx context.Context, episodeUUID string) error {
	return s.removeEpisodeErr
}

func (s *stubPredicato) GetNodesAndEdgesByEpisode(ctx context.Context, episodeUUID string) ([]*types.Node, []*types.Edge, error) {
	return nil, nil, nil
}

func (s *stubPredicato) Close(ctx context.Context) error {
	return nil
}

func (s *stubPredicato) UpdateCommunities(ctx context.Context, episodeUUID string, groupID string) ([]*types.Node, []*types.Edge, error) {
	return nil, nil, nil
}

func (s *stubPredicato) GetFactStore() factstore.FactsDB {
	return nil
}

func (s *stubPredicato) SearchFacts(ctx context.Context, query string, config *types.SearchConfig) (*factstore.FactSearchResults, error) {
	return &factstore.FactSearchResults{}, nil
}

func (s *stubPredicato) ExtractToFacts(ctx context.Context, episode types.Episode, options *graphiti.AddEpisodeOptions) (*types.ExtractionResults, error) {
	return &types.ExtractionResults{}, nil
}

func (s *stubPredicato) PromoteToGraph(ctx context.Context, sourceID string, options *graphiti.AddEpisodeOptions) (*types.AddEpisodeResults, error) {
	return &types.AddEpisodeResults{}, nil
}

func (s *stubPredicato) ValidateModeler(ctx context.Context, gm modeler.GraphModeler) (*modeler.ModelerValidationResult, error) {
	return &modeler.ModelerValidationResult{}, nil
}

func (s *stubPredicato) UpdateFact(ctx context.Context, factUUID, newFactText string, sourceNodeUUID, targetNodeUUID *string, attributes map[string]interface{}) (*types.FactUpdateResult, error) {
	return s.updateFactResult, s.updateFactErr
}

func (s *stubPredicato) GetFactCitations(ctx context.Context, edgeUUID string) ([]types.Citation, error) {
	return s.factCitations, s.factCitationsErr
}

func (s *stubPredicato) GetEntityCitations(ctx context.Context, nodeUUID string) ([]types.Citation, error) {
	return s.entityCitations, s.entityCitationsErr
}

func (s *stubPredicato) GetCitationChain(ctx context.Context, uuid string) ([]types.CitationChainEntry, error) {
	return s.citationChain, s.citationChainErr
}

func (s *stubPredicato) CausalityTimeline(ctx context.Context, filters analytics.TimelineFilters) (*analytics.TimelineResult, error) {
	return s.causalityResult, s.causalityErr
}

func (s *stubPredicato) RecurringIncidents(ctx context.Context, opts analytics.RecurrenceOptions) (*analytics.RecurrenceResult, error) {
	return s.recurrenceResult, s.recurrenceErr
}

func (s *stubPredicato) ComponentImpact(ctx context.Context, opts analytics.ComponentImpactOptions) (*analytics.ComponentImpactResult, error) {
	return s.componentImpactResult, s.componentImpactErr
}

func (s *stubPredicato) ComponentSeverity(ctx context.Context, opts analytics.ComponentSeverityOptions) (*analytics.ComponentSeverityResult, error) {
	return s.componentSeverityResult, s.componentSeverityErr
}

func (s *stubPredicato) FlowMetrics(ctx context.Context, opts analytics.FlowMetricsOptions) (*analytics.FlowMetricsResult, error) {
	return s.flowMetricsResult, s.flowMetricsErr
}

func (s *stubPredicato) SubmitEpisode(episode types.Episode, options *graphiti.AddEpisodeOptions) *graphiti.EpisodeJob {
	if s.submitEpisodeJob != nil {
		return s.submitEpisodeJob
	}
	return &graphiti.EpisodeJob{ID: "job-1"}
}

// capturingPredicato wraps stubPredicato to let analysis-handler tests inspect
// the options/filters the handler derived from query parameters.
type capturingPredicato struct {
	stubPredicato
	onCausality  func(analytics.TimelineFilters)
	onRecurrence func(analytics.RecurrenceOptions)
}

func (c *capturingPredicato) CausalityTimeline(ctx context.Context, filters analytics.TimelineFilters) (*analytics.TimelineResult, error) {
	if c.onCausality != nil {
		c.onCausality(filters)
	}
	return c.stubPredicato.CausalityTimeline(ctx, filters)
}

func (c *capturingPredicato) RecurringIncidents(ctx context.Context, opts analytics.RecurrenceOptions) (*analytics.RecurrenceResult, error) {
	if c.onRecurrence != nil {
		c.onRecurrence(opts)
	}
	return c.stubPredicato.RecurringIncidents(ctx, opts)
}
