package analytics

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	"github.com/uniQorn-org/graphiti/pkg/types"
)

// maxTimelineEpisodes bounds how far back a causality timeline scans; analytics
// reads the whole namespace history rather than a recent window.
const maxTimelineEpisodes = 100000

// causeCategoryPattern pulls the alert reason label out of an episode's content.
var causeCategoryPattern = regexp.MustCompile(`Labels:\s*Alert;\s*(reason/\w+)`)

func extractCauseCategory(content string) string {
	m := causeCategoryPattern.FindStringSubmatch(content)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// CausalityChain is one causally-worded RELATES_TO edge between two entities
// that the same episode mentions.
type CausalityChain struct {
	EdgeUUID string `json:"edge_uuid"`
	Source   string `json:"source"`
	Target   string `json:"target"`
	Fact     string `json:"fact"`
}

// TimelineEntry is one episode's causality record.
type TimelineEntry struct {
	Date            time.Time        `json:"date"`
	EpisodeUUID     string           `json:"episode_uuid"`
	EpisodeName     string           `json:"episode_name"`
	CauseCategory   string           `json:"cause_category,omitempty"`
	CausalityChains []CausalityChain `json:"causality_chains"`
	Components      []string         `json:"components"`
}

// ComponentHistory aggregates a single component's incident history across the timeline.
type ComponentHistory struct {
	Occurrences   int       `json:"occurrences"`
	FirstIncident time.Time `json:"first_incident"`
	LastIncident  time.Time `json:"last_incident"`
	Incidents     []string  `json:"incidents"`
}

// TimelineFilters narrows a causality timeline query.
type TimelineFilters struct {
	Component    string   `json:"component,omitempty"`
	Category     string   `json:"category,omitempty"`
	GroupIDs     []string `json:"group_ids,omitempty"`
	MinIncidents int      `json:"min_incidents,omitempty"`
}

// TimelineResult is the full causality timeline response.
type TimelineResult struct {
	Timeline         []TimelineEntry              `json:"timeline"`
	ComponentHistory map[string]*ComponentHistory `json:"component_history"`
	TotalEpisodes    int                           `json:"total_episodes"`
	Filters          TimelineFilters               `json:"filters"`
}

// Timeline builds the chronological causality timeline for a namespace.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (*TimelineResult, error) {
	episodes, err := s.driver.RetrieveEpisodes(ctx, time.Now(), filters.GroupIDs, maxTimelineEpisodes, nil)
	if err != nil {
		return nil, fmt.Errorf("retrieving episodes for causality timeline: %w", err)
	}

	sort.Slice(episodes, func(i, j int) bool { return episodes[i].Reference.Before(episodes[j].Reference) })

	result := &TimelineResult{
		Timeline:         make([]TimelineEntry, 0, len(episodes)),
		ComponentHistory: make(map[string]*ComponentHistory),
		TotalEpisodes:    len(episodes),
		Filters:          filters,
	}

	for _, episode := range episodes {
		category := extractCauseCategory(episode.Content)
		if filters.Category != "" && category != filters.Category {
			continue
		}

		chains, err := s.chainsForEpisode(ctx, episode)
		if err != nil {
			continue
		}
		components := s.componentsFromChains(chains)

		if filters.Component != "" && !containsString(components, filters.Component) {
			continue
		}

		entry := TimelineEntry{
			Date:            episode.Reference,
			EpisodeUUID:     episode.Uuid,
			EpisodeName:     episode.Name,
			CauseCategory:   category,
			CausalityChains: chains,
			Components:      components,
		}
		result.Timeline = append(result.Timeline, entry)

		for _, comp := range components {
			hist, ok := result.ComponentHistory[comp]
			if !ok {
				hist = &ComponentHistory{FirstIncident: episode.Reference, LastIncident: episode.Reference}
				result.ComponentHistory[comp] = hist
			}
			hist.Occurrences++
			hist.Incidents = append(hist.Incidents, episode.Uuid)
			if episode.Reference.Before(hist.FirstIncident) {
				hist.FirstIncident = episode.Reference
			}
			if episode.Reference.After(hist.LastIncident) {
				hist.LastIncident = episode.Reference
			}
		}
	}

	if filters.MinIncidents > 0 {
		for comp, hist := range result.ComponentHistory {
			if hist.Occurrences < filters.MinIncidents {
				delete(result.ComponentHistory, comp)
			}
		}
	}

	return result, nil
}

// chainsForEpisode resolves the entities an episode MENTIONS, then the
// causally-worded RELATES_TO edges between every pair of those entities.
func (s *Service) chainsForEpisode(ctx context.Context, episode *types.Node) ([]CausalityChain, error) {
	mentioned, err := types.GetMentionedNodes(ctx, s.driver, []*types.Node{episode})
	if err != nil {
		return nil, err
	}

	var chains []CausalityChain
	seen := make(map[string]bool)
	for i := range mentioned {
		for j := range mentioned {
			if i == j {
				continue
			}
			edges, err := s.driver.GetBetweenNodes(ctx, mentioned[i].Uuid, mentioned[j].Uuid)
			if err != nil {
				continue
			}
			for _, edge := range edges {
				if seen[edge.Uuid] || !containsCausalKeyword(edge.Fact) {
					continue
				}
				seen[edge.Uuid] = true
				chains = append(chains, CausalityChain{
					EdgeUUID: edge.Uuid,
					Source:   mentioned[i].Name,
					Target:   mentioned[j].Name,
					Fact:     edge.Fact,
				})
			}
		}
	}
	return chains, nil
}

// componentsFromChains is the union of chain endpoints, minus the tool-entity blocklist.
func (s *Service) componentsFromChains(chains []CausalityChain) []string {
	seen := make(map[string]bool)
	var components []string
	add := func(name string) {
		if name == "" || seen[name] || s.isBlocked(name) {
			return
		}
		seen[name] = true
		components = append(components, name)
	}
	for _, chain := range chains {
		add(chain.Source)
		add(chain.Target)
	}
	sort.Strings(components)
	return components
}

func containsString(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
