package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	jsonrepair "github.com/kaptinlin/jsonrepair"
	"github.com/uniQorn-org/graphiti/pkg/llm"
	"github.com/uniQorn-org/graphiti/pkg/types"
	"github.com/uniQorn-org/graphiti/pkg/utils"
)

// DefaultSimilarityThreshold is τ, the minimum root-cause embedding cosine
// similarity a pair of episodes must clear before being considered recurring.
const DefaultSimilarityThreshold = 0.75

// rootCauseMarker is the line whose presence marks everything after it as the
// episode's root-cause text.
const rootCauseMarker = "root cause"

func extractRootCause(content string) (string, bool) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		if strings.Contains(strings.ToLower(line), rootCauseMarker) {
			rest := strings.TrimSpace(strings.Join(lines[i+1:], "\n"))
			if rest != "" {
				return rest, true
			}
		}
	}
	return "", false
}

// RecurrenceOptions controls the recurrence-detection pass.
type RecurrenceOptions struct {
	GroupIDs           []string
	SimilarityThreshold float64
	UseLLM             bool
	MinOccurrences     int
}

// RecurrencePattern is one detected recurring-incident pair.
type RecurrencePattern struct {
	EpisodeAUUID        string  `json:"episode_a_uuid"`
	EpisodeAName        string  `json:"episode_a_name"`
	EpisodeBUUID        string  `json:"episode_b_uuid"`
	EpisodeBName        string  `json:"episode_b_name"`
	EmbeddingSimilarity float64 `json:"embedding_similarity"`
	LLMSimilarityScore  float64 `json:"llm_similarity_score,omitempty"`
	LLMSimilarityReason string  `json:"llm_similarity_reason,omitempty"`
	CommonPattern       string  `json:"common_pattern,omitempty"`
	IntervalDays        float64 `json:"interval_days"`
}

// RecurrenceResult is the full recurring-incidents response.
type RecurrenceResult struct {
	RecurringPatterns   []RecurrencePattern `json:"recurring_patterns"`
	TotalPatterns       int                 `json:"total_patterns"`
	AnalysisMethod      string              `json:"analysis_method"`
	SimilarityThreshold float64             `json:"similarity_threshold"`
}

type recurrenceCandidate struct {
	episode   *types.Node
	rootCause string
	embedding []float32
}

// RecurringIncidents finds pairs of episodes whose root-cause text is
// semantically similar (and, if UseLLM, LLM-judged to share a common failure
// pattern).
func (s *Service) RecurringIncidents(ctx context.Context, opts RecurrenceOptions) (*RecurrenceResult, error) {
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}

	episodes, err := s.driver.RetrieveEpisodes(ctx, time.Now(), opts.GroupIDs, maxTimelineEpisodes, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieving episodes for recurrence detection: %w", err)
	}

	var candidates []recurrenceCandidate
	for _, ep := range episodes {
		rootCause, ok := extractRootCause(ep.Content)
		if !ok {
			continue
		}
		candidates = append(candidates, recurrenceCandidate{episode: ep, rootCause: rootCause})
	}

	if s.embedder != nil && len(candidates) > 0 {
		texts := make([]string, len(candidates))
		for i, c := range candidates {
			texts[i] = c.rootCause
		}
		embeddings, err := s.embedder.Embed(ctx, texts)
		if err == nil && len(embeddings) == len(candidates) {
			for i := range candidates {
				candidates[i].embedding = embeddings[i]
			}
		}
	}

	method := "embedding"
	result := &RecurrenceResult{SimilarityThreshold: opts.SimilarityThreshold}

	for i := 0; i < len(candidates); i++ {
		for j := i + 1; j < len(candidates); j++ {
			a, b := candidates[i], candidates[j]
			if a.embedding == nil || b.embedding == nil {
				continue
			}

			sim := utils.CosineSimilarity(a.embedding, b.embedding)
			if sim < opts.SimilarityThreshold {
				continue
			}

			pattern := RecurrencePattern{
				EpisodeAUUID:        a.episode.Uuid,
				EpisodeAName:        a.episode.Name,
				EpisodeBUUID:        b.episode.Uuid,
				EpisodeBName:        b.episode.Name,
				EmbeddingSimilarity: sim,
				IntervalDays:        math.Abs(a.episode.Reference.Sub(b.episode.Reference).Hours()) / 24,
			}

			if opts.UseLLM && s.llm != nil {
				method = "embedding+llm"
				judged, err := s.judgeRecurrence(ctx, a, b)
				if err != nil || judged == nil || !judged.IsRecurring {
					continue
				}
				pattern.LLMSimilarityScore = judged.SimilarityScore
				pattern.LLMSimilarityReason = judged.SimilarityReason
				pattern.CommonPattern = judged.CommonPattern
			}

			result.RecurringPatterns = append(result.RecurringPatterns, pattern)
		}
	}

	if opts.MinOccurrences > 0 && len(result.RecurringPatterns) < opts.MinOccurrences {
		result.RecurringPatterns = nil
	}

	result.TotalPatterns = len(result.RecurringPatterns)
	result.AnalysisMethod = method
	return result, nil
}

// recurrenceJudgment is the JSON shape requested from the LLM.
type recurrenceJudgment struct {
	SimilarityScore  float64 `json:"similarity_score"`
	SimilarityReason string  `json:"similarity_reason"`
	CommonPattern    string  `json:"common_pattern"`
	IsRecurring      bool    `json:"is_recurring"`
}

var recurrenceJudgmentSchema = map[string]interface{}{
	"type": "object",
	"properties": map[string]interface{}{
		"similarity_score":  map[string]interface{}{"type": "number"},
		"similarity_reason": map[string]interface{}{"type": "string"},
		"common_pattern":    map[string]interface{}{"type": "string"},
		"is_recurring":      map[string]interface{}{"type": "boolean"},
	},
	"required": []string{"similarity_score", "similarity_reason", "common_pattern", "is_recurring"},
}

func (s *Service) judgeRecurrence(ctx context.Context, a, b recurrenceCandidate) (*recurrenceJudgment, error) {
	chainsA, _ := s.chainsForEpisode(ctx, a.episode)
	chainsB, _ := s.chainsForEpisode(ctx, b.episode)

	prompt := fmt.Sprintf(
		"Incident A root cause: %s\nIncident A causality chain: %s\n\nIncident B root cause: %s\nIncident B causality chain: %s\n\nAre these the same recurring failure pattern? Respond with JSON: {\"similarity_score\": 0-1, \"similarity_reason\": string, \"common_pattern\": string, \"is_recurring\": boolean}.",
		a.rootCause, formatChains(chainsA), b.rootCause, formatChains(chainsB),
	)

	resp, err := s.llm.ChatWithStructuredOutput(ctx, []types.Message{
		{Role: llm.RoleSystem, Content: "You analyze SRE incident root causes for recurring failure patterns."},
		{Role: llm.RoleUser, Content: prompt},
	}, recurrenceJudgmentSchema)
	if err != nil {
		return nil, fmt.Errorf("LLM recurrence judgment failed: %w", err)
	}

	repaired, _ := jsonrepair.JSONRepair(resp.Content)
	var judgment recurrenceJudgment
	if err := json.Unmarshal([]byte(repaired), &judgment); err != nil {
		return nil, fmt.Errorf("unparseable recurrence judgment: %w", err)
	}
	return &judgment, nil
}

func formatChains(chains []CausalityChain) string {
	if len(chains) == 0 {
		return "(none)"
	}
	parts := make([]string, len(chains))
	for i, c := range chains {
		parts[i] = fmt.Sprintf("%s -> %s -> %s", c.Source, c.Fact, c.Target)
	}
	return strings.Join(parts, "; ")
}
