package graphiti

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/analytics"
	"github.com/uniQorn-org/graphiti/pkg/checkpoint"
	"github.com/uniQorn-org/graphiti/pkg/community"
	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/embedder"
	"github.com/uniQorn-org/graphiti/pkg/factstore"
	"github.com/uniQorn-org/graphiti/pkg/llm"
	"github.com/uniQorn-org/graphiti/pkg/modeler"
	"github.com/uniQorn-org/graphiti/pkg/queue"
	"github.com/uniQorn-org/graphiti/pkg/search"
	"github.com/uniQorn-org/graphiti/pkg/types"
	"github.com/uniQorn-org/graphiti/pkg/utils/maintenance"
)

// driverWrapper wraps driver.GraphDriver to implement types.EdgeOperations
type driverWrapper struct {
	driver.GraphDriver
}

// Provider converts driver.GraphProvider to types.GraphProvider
func (w *driverWrapper) Provider() types.GraphProvider {
	switch w.GraphDriver.Provider() {
	case driver.GraphProviderLadybug:
		return types.GraphProviderLadybug
	case driver.GraphProviderNeo4j:
		return types.GraphProviderNeo4j
	case driver.GraphProviderFalkorDB:
		return types.GraphProviderFalkorDB
	case driver.GraphProviderNeptune:
		return types.GraphProviderNeptune
	default:
		return types.GraphProviderLadybug // default fallback
	}
}

// nodeOpsWrapper adapts maintenance.NodeOperations to utils.NodeOperations interface
type nodeOpsWrapper struct {
	*maintenance.NodeOperations
}

// ResolveExtractedNodes wraps maintenance.NodeOperations.ResolveExtractedNodes to match the interface
func (w *nodeOpsWrapper) ResolveExtractedNodes(ctx context.Context, extractedNodes []*types.Node, episode *types.Node, previousEpisodes []*types.Node, entityTypes map[string]interface{}) ([]*types.Node, map[string]string, interface{}, error) {
	nodes, uuidMap, pairs, err := w.NodeOperations.ResolveExtractedNodes(ctx, extractedNodes, episode, previousEpisodes, entityTypes)
	// Return pairs as interface{} to satisfy the interface
	return nodes, uuidMap, pairs, err
}

// Predicato is the main interface for interacting with temporal knowledge graphs.
// It provides methods for building, querying, and maintaining temporally-aware
// knowledge graphs designed for AI agents.
type Predicato interface {
	// Add processes and adds new episodes to the knowledge graph.
	// Episodes can be text, conversations, or any temporal data.
	// Options parameter is optional and can be nil for default behavior.
	Add(ctx context.Context, episodes []types.Episode, options *AddEpisodeOptions) (*types.AddBulkEpisodeResults, error)

	// AddEpisode processes and adds a single episode to the knowledge graph.
	AddEpisode(ctx context.Context, episode types.Episode, options *AddEpisodeOptions) (*types.AddEpisodeResults, error)

	// Search performs hybrid search across the knowledge graph combining
	// semantic embeddings, keyword search, and graph traversal.
	Search(ctx context.Context, query string, config *types.SearchConfig) (*types.SearchResults, error)

	// GetNode retrieves a specific node from the knowledge graph.
	GetNode(ctx context.Context, nodeID string) (*types.Node, error)

	// GetEdge retrieves a specific edge from the knowledge graph.
	GetEdge(ctx context.Context, edgeID string) (*types.Edge, error)

	// GetEpisodes retrieves recent episodes from the knowledge graph.
	GetEpisodes(ctx context.Context, groupID string, limit int) ([]*types.Node, error)

	// ClearGraph removes all nodes and edges from the knowledge graph for a specific group.
	ClearGraph(ctx context.Context, groupID string) error

	// CreateIndices creates database indices and constraints for optimal performance.
	CreateIndices(ctx context.Context) error

	// AddTriplet adds a triplet (subject-predicate-object) directly to the knowledge graph.
	AddTriplet(ctx context.Context, sourceNode *types.Node, edge *types.Edge, targetNode *types.Node, createEmbeddings bool) (*types.AddTripletResults, error)

	// RemoveEpisode removes an episode and its associated nodes and edges from the knowledge graph.
	RemoveEpisode(ctx context.Context, episodeUUID string) error

	// GetNodesAndEdgesByEpisode retrieves all nodes and edges associated with a specific episode.
	GetNodesAndEdgesByEpisode(ctx context.Context, episodeUUID string) ([]*types.Node, []*types.Edge, error)

	// Close closes all connections and cleans up resources.
	Close(ctx context.Context) error

	UpdateCommunities(ctx context.Context, episodeUUID string, groupID string) ([]*types.Node, []*types.Edge, error)

	// GetFactStore returns the underlying fact store, or nil if one was not configured.
	GetFactStore() factstore.FactsDB

	// SearchFacts performs RAG search directly on the factstore without graph queries.
	SearchFacts(ctx context.Context, query string, config *types.SearchConfig) (*factstore.FactSearchResults, error)

	// ExtractToFacts extracts entities and relationships from an episode into the fact store
	// without promoting them to the graph.
	ExtractToFacts(ctx context.Context, episode types.Episode, options *AddEpisodeOptions) (*types.ExtractionResults, error)

	// PromoteToGraph takes previously extracted facts from the fact store and promotes
	// them to the knowledge graph.
	PromoteToGraph(ctx context.Context, sourceID string, options *AddEpisodeOptions) (*types.AddEpisodeResults, error)

	// ValidateModeler tests a GraphModeler implementation with sample data.
	ValidateModeler(ctx context.Context, gm modeler.GraphModeler) (*modeler.ModelerValidationResult, error)

	// UpdateFact expires an existing RELATES_TO edge and creates a new one carrying the
	// updated fact text, inheriting citations from the expired edge.
	UpdateFact(ctx context.Context, factUUID, newFactText string, sourceNodeUUID, targetNodeUUID *string, attributes map[string]interface{}) (*types.FactUpdateResult, error)

	// GetFactCitations resolves the citation list for a RELATES_TO edge.
	GetFactCitations(ctx context.Context, edgeUUID string) ([]types.Citation, error)

	// GetEntityCitations resolves the citation list for an entity node via its MENTIONS edges.
	GetEntityCitations(ctx context.Context, nodeUUID string) ([]types.Citation, error)

	// GetCitationChain returns the operation-tagged citation chain for an entity or edge.
	GetCitationChain(ctx context.Context, uuid string) ([]types.CitationChainEntry, error)

	// CausalityTimeline builds the chronological causality timeline for a namespace.
	CausalityTimeline(ctx context.Context, filters analytics.TimelineFilters) (*analytics.TimelineResult, error)

	// RecurringIncidents finds episodes whose root cause recurs across the namespace.
	RecurringIncidents(ctx context.Context, opts analytics.RecurrenceOptions) (*analytics.RecurrenceResult, error)

	// ComponentImpact reports each component's contribution to each cause category.
	ComponentImpact(ctx context.Context, opts analytics.ComponentImpactOptions) (*analytics.ComponentImpactResult, error)

	// ComponentSeverity reports each component's severe-incident rate.
	ComponentSeverity(ctx context.Context, opts analytics.ComponentSeverityOptions) (*analytics.ComponentSeverityResult, error)

	// FlowMetrics builds the component -> severe -> SLO-breach funnel per cause category.
	FlowMetrics(ctx context.Context, opts analytics.FlowMetricsOptions) (*analytics.FlowMetricsResult, error)

	// SubmitEpisode enqueues an episode for asynchronous ingestion and returns immediately.
	SubmitEpisode(episode types.Episode, options *AddEpisodeOptions) *EpisodeJob
}

// Client is the main implementation of the Predicato interface.
type Client struct {
	driver    driver.GraphDriver
	llm       llm.Client
	embedder  embedder.Client
	searcher  *search.Searcher
	community *community.Builder
	config    *Config
	logger    *slog.Logger

	// Specialized LLM clients for different steps
	languageModels LanguageModels

	// queue is the per-namespace ingestion queue backing SubmitEpisode. It is
	// created lazily on first use so callers that only ever call AddEpisode
	// synchronously never pay for it.
	queue     *queue.Queue
	queueOnce sync.Once

	// checkpoints durably records the progress of queued episode jobs so a
	// restarted process can tell which submissions never finished. Created
	// lazily, and only ever non-nil when Config.CheckpointDir is set.
	checkpoints     *checkpoint.CheckpointManager
	checkpointsOnce sync.Once

	// factStore backs the two-phase extract-then-promote pipeline (ExtractToFacts,
	// PromoteToGraph, SearchFacts). Nil unless Config.FactStoreConfig is set.
	factStore factstore.FactsDB

	// analytics derives causality, recurrence, and funnel metrics from the graph.
	analytics *analytics.Service
}

// LanguageModels holds specialized LLM clients for different steps.
type LanguageModels struct {
	NodeExtraction llm.Client
	NodeReflexion  llm.Client
	NodeResolution llm.Client
	NodeAttribute  llm.Client
	EdgeExtraction llm.Client
	EdgeResolution llm.Client
	Summarization  llm.Client
	TextGeneration llm.Client
}

// Config holds configuration for the Predicato client.
type Config struct {
	// GroupID is used to isolate data for multi-tenant scenarios
	GroupID string
	// TimeZone for temporal operations
	TimeZone *time.Location
	// Search configuration
	SearchConfig *types.SearchConfig
	// EntityTypes defines the default entity types to use when AddEpisodeOptions.EntityTypes is nil
	EntityTypes map[string]interface{}
	EdgeTypes   map[string]interface{}

	EdgeMap map[string]map[string][]interface{}
	// LanguageModels holds specialized LLM clients for different steps
	LanguageModels LanguageModels

	// FactStoreConfig, if set, backs the two-phase extract-then-promote pipeline.
	FactStoreConfig *factstore.FactStoreConfig

	// CheckpointDir, if set, enables durable checkpointing of episodes
	// submitted through SubmitEpisode: a record is written before the job
	// runs and cleared on success, so a restarted process can list episodes
	// that were still in flight when it went down. Leaving this empty
	// disables checkpointing entirely; SubmitEpisode still works, it just
	// has no crash-recovery trail.
	CheckpointDir string
}

// AddEpisodeOptions holds options for adding a single episode.
type AddEpisodeOptions struct {
	// EntityTypes custom entity type definitions
	EntityTypes map[string]interface{}
	// ExcludedEntityTypes entity types to exclude from extraction
	ExcludedEntityTypes []string
	// PreviousEpisodeUUIDs UUIDs of previous episodes for context
	PreviousEpisodeUUIDs []string
	// EdgeTypes custom edge type definitions
	EdgeTypes map[string]interface{}
	// EdgeTypeMap mapping of entity pairs to edge types
	EdgeTypeMap map[string]map[string][]interface{}
	// OverwriteExisting whether to overwrite an existing episode with the same UUID
	// Default behavior is false (skip if exists)
	OverwriteExisting  bool
	GenerateEmbeddings bool
	MaxCharacters      int

	// Skip options for faster ingestion or debugging
	SkipReflexion      bool
	SkipResolution     bool
	SkipAttributes     bool
	SkipEdgeResolution bool

	// UseYAML toggles between CSV/TSV (default) and YAML for LLM interchange
	UseYAML bool
}

// NewClient creates a new Predicato client with the provided configuration.
func NewClient(driver driver.GraphDriver, llmClient llm.Client, embedderClient embedder.Client, config *Config, logger *slog.Logger) (*Client, error) {
	if config == nil {
		config = &Config{
			GroupID:  "default",
			TimeZone: time.UTC,
		}
	}
	if config.SearchConfig == nil {
		config.SearchConfig = NewDefaultSearchConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	searcher := search.NewSearcher(driver, embedderClient, llmClient)
	communityBuilder := community.NewBuilder(driver, llmClient, config.LanguageModels.Summarization, embedderClient)

	var facts factstore.FactsDB
	if config.FactStoreConfig != nil {
		fs, err := factstore.NewFactsDB(config.FactStoreConfig)
		if err != nil {
			logger.Warn("facts store init failed, continuing without it", "error", err)
		} else {
			facts = fs
		}
	}

	return &Client{
		driver:         driver,
		llm:            llmClient,
		embedder:       embedderClient,
		searcher:       searcher,
		community:      communityBuilder,
		config:         config,
		logger:         logger,
		languageModels: config.LanguageModels,
		factStore:      facts,
		analytics:      analytics.NewService(driver, llmClient, embedderClient),
	}, nil
}

// GetFactStore returns the underlying fact store, or nil if one was not configured.
func (c *Client) GetFactStore() factstore.FactsDB {
	return c.factStore
}

// GetDriver returns the underlying graph driver
func (c *Client) GetDriver() driver.GraphDriver {
	return c.driver
}

// GetLLM returns the LLM client
func (c *Client) GetLLM() llm.Client {
	return c.llm
}

// GetEmbedder returns the embedder client
func (c *Client) GetEmbedder() embedder.Client {
	return c.embedder
}

// GetCommunityBuilder returns the community builder
func (c *Client) GetCommunityBuilder() *community.Builder {
	return c.community
}

// GetAnalyticsService returns the causality/recurrence/funnel analytics service.
func (c *Client) GetAnalyticsService() *analytics.Service {
	return c.analytics
}

// CausalityTimeline builds the chronological causality timeline for a namespace.
func (c *Client) CausalityTimeline(ctx context.Context, filters analytics.TimelineFilters) (*analytics.TimelineResult, error) {
	return c.analytics.Timeline(ctx, filters)
}

// RecurringIncidents finds episodes whose root cause recurs across the namespace.
func (c *Client) RecurringIncidents(ctx context.Context, opts analytics.RecurrenceOptions) (*analytics.RecurrenceResult, error) {
	return c.analytics.RecurringIncidents(ctx, opts)
}

// ComponentImpact reports each component's contribution to each cause category.
func (c *Client) ComponentImpact(ctx context.Context, opts analytics.ComponentImpactOptions) (*analytics.ComponentImpactResult, error) {
	return c.analytics.ComponentImpact(ctx, opts)
}

// ComponentSeverity reports each component's severe-incident rate.
func (c *Client) ComponentSeverity(ctx context.Context, opts analytics.ComponentSeverityOptions) (*analytics.ComponentSeverityResult, error) {
	return c.analytics.ComponentSeverity(ctx, opts)
}

// FlowMetrics builds the component -> severe -> SLO-breach funnel per cause category.
func (c *Client) FlowMetrics(ctx context.Context, opts analytics.FlowMetricsOptions) (*analytics.FlowMetricsResult, error) {
	return c.analytics.FlowMetrics(ctx, opts)
}

var (
	// ErrNodeNotFound is returned when a node is not found.
	ErrNodeNotFound = errors.New("node not found")
	// ErrEdgeNotFound is returned when an edge is not found.
	ErrEdgeNotFound = errors.New("edge not found")
	// ErrInvalidEpisode is returned when an episode is invalid.
	ErrInvalidEpisode = errors.New("invalid episode")
)
