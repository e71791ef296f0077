package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/uniQorn-org/graphiti/pkg/types"
	"github.com/uniQorn-org/graphiti/pkg/utils"
)

// ErrInvalidEpisodeID is returned when an episode ID is unusable as a checkpoint key.
var ErrInvalidEpisodeID = errors.New("invalid episode ID: empty or contains a null byte")

// ProcessingStep represents a step in the addEpisodeChunked pipeline
type ProcessingStep string

const (
	StepInitial              ProcessingStep = "initial"
	StepPrepared             ProcessingStep = "prepared"
	StepGotPreviousEpisodes  ProcessingStep = "got_previous_episodes"
	StepCreatedChunks        ProcessingStep = "created_chunks"
	StepExtractedEntities    ProcessingStep = "extracted_entities"
	StepDeduplicatedEntities ProcessingStep = "deduplicated_entities"
	StepExtractedEdges       ProcessingStep = "extracted_edges"
	StepResolvedEdges        ProcessingStep = "resolved_edges"
	StepExtractedAttributes  ProcessingStep = "extracted_attributes"
	StepBuiltEpisodicEdges   ProcessingStep = "built_episodic_edges"
	StepPerformedGraphUpdate ProcessingStep = "performed_graph_update"
	StepUpdatedCommunities   ProcessingStep = "updated_communities"
	StepCompleted            ProcessingStep = "completed"
)

// EpisodeCheckpoint represents the state of a partially processed episode
type EpisodeCheckpoint struct {
	// Episode identification
	EpisodeID string         `json:"episode_id"`
	GroupID   string         `json:"group_id"`
	Step      ProcessingStep `json:"step"`

	// Timestamp tracking
	CreatedAt      time.Time `json:"created_at"`
	LastUpdatedAt  time.Time `json:"last_updated_at"`
	AttemptCount   int       `json:"attempt_count"`
	LastError      string    `json:"last_error,omitempty"`
	LastErrorStack string    `json:"last_error_stack,omitempty"`

	// Original episode data
	Episode       types.Episode      `json:"episode"`
	Options       *AddEpisodeOptions `json:"options,omitempty"`
	MaxCharacters int                `json:"max_characters"`

	// STEP 1-2: Preparation data
	Chunks           []string      `json:"chunks,omitempty"`
	PreviousEpisodes []*types.Node `json:"previous_episodes,omitempty"`

	// STEP 3: Chunk structures
	ChunkEpisodeNodes []*types.Node        `json:"chunk_episode_nodes,omitempty"`
	MainEpisodeNode   *types.Node          `json:"main_episode_node,omitempty"`
	EpisodeTuples     []utils.EpisodeTuple `json:"episode_tuples,omitempty"`

	// STEP 5: Extracted entities
	ExtractedNodesByChunk [][]*types.Node `json:"extracted_nodes_by_chunk,omitempty"`

	// STEP 6: Deduplicated entities
	DedupeChunkIndices []int         `json:"dedupe_chunk_indices,omitempty"`
	AllResolvedNodes   []*types.Node `json:"all_resolved_nodes,omitempty"`

	// STEP 7: Extracted edges
	AllExtractedEdges []*types.Edge `json:"all_extracted_edges,omitempty"`

	// STEP 8: Resolved edges
	ResolvedEdges    []*types.Edge `json:"resolved_edges,omitempty"`
	InvalidatedEdges []*types.Edge `json:"invalidated_edges,omitempty"`

	// STEP 9: Hydrated nodes with attributes
	HydratedNodes []*types.Node `json:"hydrated_nodes,omitempty"`

	// STEP 10: Episodic edges
	EpisodicEdges []*types.Edge `json:"episodic_edges,omitempty"`

	// STEP 12: Communities
	Communities    []*types.Node `json:"communities,omitempty"`
	CommunityEdges []*types.Edge `json:"community_edges,omitempty"`
}

// AddEpisodeOptions mirrors graphiti.AddEpisodeOptions for checkpoint serialization.
type AddEpisodeOptions struct {
	EntityTypes          map[string]interface{}              `json:"entity_types,omitempty"`
	ExcludedEntityTypes  []string                            `json:"excluded_entity_types,omitempty"`
	PreviousEpisodeUUIDs []string                            `json:"previous_episode_uuids,omitempty"`
	EdgeTypes            map[string]interface{}              `json:"edge_types,omitempty"`
	EdgeTypeMap          map[string]map[string][]interface{} `json:"edge_type_map,omitempty"`
	OverwriteExisting    bool                                `json:"overwrite_existing"`
	GenerateEmbeddings   bool                                `json:"generate_embeddings"`
	MaxCharacters        int                                 `json:"max_characters"`
	DeferGraphIngestion  bool                                `json:"defer_graph_ingestion"`
}

// checkpointKeyPrefix namespaces checkpoint records within the badger
// keyspace so CheckpointManager can share a database with other consumers
// in the future without key collisions.
const checkpointKeyPrefix = "episode-checkpoint:"

// CheckpointManager persists episode processing checkpoints in an embedded
// badger store, so a crashed or restarted process can tell which episodes
// were mid-flight and either resume or discard them instead of silently
// losing track of queued work.
type CheckpointManager struct {
	dir string
	db  *badger.DB
}

// NewCheckpointManager opens (creating if necessary) a badger-backed
// checkpoint store rooted at checkpointDir. If checkpointDir is empty, it
// defaults to os.TempDir()/predicato-checkpoints.
func NewCheckpointManager(checkpointDir string) (*CheckpointManager, error) {
	if checkpointDir == "" {
		checkpointDir = filepath.Join(os.TempDir(), "predicato-checkpoints")
	}

	if err := os.MkdirAll(checkpointDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}

	opts := badger.DefaultOptions(checkpointDir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open checkpoint store: %w", err)
	}

	return &CheckpointManager{dir: checkpointDir, db: db}, nil
}

// Close releases the underlying badger store. Safe to call on a nil manager.
func (m *CheckpointManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func validateEpisodeID(episodeID string) error {
	if episodeID == "" || strings.ContainsRune(episodeID, '\x00') {
		return ErrInvalidEpisodeID
	}
	return nil
}

func checkpointKey(episodeID string) []byte {
	return []byte(checkpointKeyPrefix + episodeID)
}

// Save persists the checkpoint. LastUpdatedAt is stamped with the current
// time unless the caller already set one, which lets tests and replayed
// checkpoints control their own timestamp.
func (m *CheckpointManager) Save(ctx context.Context, checkpoint *EpisodeCheckpoint) error {
	if err := validateEpisodeID(checkpoint.EpisodeID); err != nil {
		return fmt.Errorf("invalid episode ID: %w", err)
	}
	if checkpoint.LastUpdatedAt.IsZero() {
		checkpoint.LastUpdatedAt = time.Now()
	}

	data, err := json.Marshal(checkpoint)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	err = m.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(checkpoint.EpisodeID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write checkpoint: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint, returning (nil, nil) if none exists.
func (m *CheckpointManager) Load(ctx context.Context, episodeID string) (*EpisodeCheckpoint, error) {
	if err := validateEpisodeID(episodeID); err != nil {
		return nil, fmt.Errorf("invalid episode ID: %w", err)
	}

	var checkpoint EpisodeCheckpoint
	err := m.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(episodeID))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &checkpoint)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes a checkpoint. Deleting an absent checkpoint is not an error.
func (m *CheckpointManager) Delete(ctx context.Context, episodeID string) error {
	if err := validateEpisodeID(episodeID); err != nil {
		return fmt.Errorf("invalid episode ID: %w", err)
	}

	err := m.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(checkpointKey(episodeID))
	})
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

// Exists reports whether a checkpoint is stored for episodeID.
func (m *CheckpointManager) Exists(ctx context.Context, episodeID string) (bool, error) {
	checkpoint, err := m.Load(ctx, episodeID)
	if err != nil {
		return false, err
	}
	return checkpoint != nil, nil
}

// List returns every stored checkpoint.
func (m *CheckpointManager) List(ctx context.Context) ([]*EpisodeCheckpoint, error) {
	var checkpoints []*EpisodeCheckpoint

	err := m.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(checkpointKeyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			item := it.Item()
			err := item.Value(func(val []byte) error {
				var checkpoint EpisodeCheckpoint
				if err := json.Unmarshal(val, &checkpoint); err != nil {
					return nil // skip corrupt records rather than fail the whole listing
				}
				checkpoints = append(checkpoints, &checkpoint)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	return checkpoints, nil
}

// UpdateStep advances the checkpoint's step and refreshes its timestamp.
func (m *CheckpointManager) UpdateStep(ctx context.Context, episodeID string, step ProcessingStep) error {
	checkpoint, err := m.Load(ctx, episodeID)
	if err != nil {
		return err
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint not found for episode %s", episodeID)
	}

	checkpoint.Step = step
	checkpoint.LastUpdatedAt = time.Now()
	return m.Save(ctx, checkpoint)
}

// RecordError records a processing failure against the checkpoint.
func (m *CheckpointManager) RecordError(ctx context.Context, episodeID string, err error, stackTrace string) error {
	checkpoint, loadErr := m.Load(ctx, episodeID)
	if loadErr != nil {
		return loadErr
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint not found for episode %s", episodeID)
	}

	checkpoint.AttemptCount++
	checkpoint.LastError = err.Error()
	checkpoint.LastErrorStack = stackTrace
	checkpoint.LastUpdatedAt = time.Now()

	return m.Save(ctx, checkpoint)
}

// GetCheckpointDir returns the directory backing the badger store.
func (m *CheckpointManager) GetCheckpointDir() string {
	return m.dir
}

// CleanOld removes checkpoints whose LastUpdatedAt is older than maxAge.
func (m *CheckpointManager) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0

	for _, checkpoint := range checkpoints {
		if checkpoint.LastUpdatedAt.Before(cutoff) {
			if err := m.Delete(ctx, checkpoint.EpisodeID); err != nil {
				continue
			}
			removed++
		}
	}

	return removed, nil
}
