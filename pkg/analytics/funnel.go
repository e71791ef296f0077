package analytics

import (
	"context"
	"fmt"
	"sort"
)

// ComponentImpactOptions narrows a component-impact query.
type ComponentImpactOptions struct {
	Category     string
	Component    string
	GroupIDs     []string
	MinIncidents int
}

// ComponentImpactEntry is one (category, component) pair's contribution to a
// cause category's total incident count.
type ComponentImpactEntry struct {
	Category             string  `json:"cause_category"`
	Component            string  `json:"component"`
	Count                int     `json:"count"`
	TotalForCategory      int     `json:"total_for_category"`
	ContributionRate      float64 `json:"contribution_rate"`
	SevereCount           int     `json:"severe_count"`
	SeverityWeightedRate  float64 `json:"severity_weighted_rate"`
}

// ComponentImpactResult is the full component-impact response.
type ComponentImpactResult struct {
	AnalysisResults []ComponentImpactEntry `json:"analysis_results"`
	CategoryTotals  map[string]int         `json:"category_totals"`
	TotalPairs      int                    `json:"total_pairs"`
	Filters         ComponentImpactOptions `json:"filters"`
}

type pairKey struct {
	category  string
	component string
}

// ComponentImpact reports how much each component contributes to each cause
// category's incident count, weighted by how often that pairing was severe.
func (s *Service) ComponentImpact(ctx context.Context, opts ComponentImpactOptions) (*ComponentImpactResult, error) {
	timeline, err := s.Timeline(ctx, TimelineFilters{GroupIDs: opts.GroupIDs, Category: opts.Category, Component: opts.Component})
	if err != nil {
		return nil, fmt.Errorf("building timeline for component impact: %w", err)
	}

	counts := make(map[pairKey]int)
	severe := make(map[pairKey]int)
	categoryTotals := make(map[string]int)

	for _, entry := range timeline.Timeline {
		if entry.CauseCategory == "" {
			continue
		}
		categoryTotals[entry.CauseCategory]++
		isSevere := isSevereEpisodeName(entry.EpisodeName)
		seenComponent := make(map[string]bool)
		for _, comp := range entry.Components {
			if seenComponent[comp] {
				continue
			}
			seenComponent[comp] = true
			key := pairKey{category: entry.CauseCategory, component: comp}
			counts[key]++
			if isSevere {
				severe[key]++
			}
		}
	}

	result := &ComponentImpactResult{
		CategoryTotals: categoryTotals,
		Filters:        opts,
	}

	for key, count := range counts {
		if opts.MinIncidents > 0 && count < opts.MinIncidents {
			continue
		}
		total := categoryTotals[key.category]
		severeCount := severe[key]
		contribution := 0.0
		if total > 0 {
			contribution = float64(count) / float64(total)
		}
		result.AnalysisResults = append(result.AnalysisResults, ComponentImpactEntry{
			Category:             key.category,
			Component:            key.component,
			Count:                count,
			TotalForCategory:     total,
			ContributionRate:     contribution,
			SevereCount:          severeCount,
			SeverityWeightedRate: contribution * (1 + float64(severeCount)/float64(count)),
		})
	}

	sort.Slice(result.AnalysisResults, func(i, j int) bool {
		if result.AnalysisResults[i].Category != result.AnalysisResults[j].Category {
			return result.AnalysisResults[i].Category < result.AnalysisResults[j].Category
		}
		return result.AnalysisResults[i].Component < result.AnalysisResults[j].Component
	})

	result.TotalPairs = len(result.AnalysisResults)
	return result, nil
}

// ComponentSeverityOptions narrows a component-severity query.
type ComponentSeverityOptions struct {
	Component    string
	GroupIDs     []string
	MinIncidents int
}

// ComponentSeverityEntry reports how often a component's incidents escalate
// to severe.
type ComponentSeverityEntry struct {
	Component     string  `json:"component"`
	TotalIncidents int    `json:"total_incidents"`
	SevereIncidents int   `json:"severe_incidents"`
	SeverityRate  float64 `json:"severity_rate"`
}

// ComponentSeverityResult is the full component-severity response.
type ComponentSeverityResult struct {
	AnalysisResults  []ComponentSeverityEntry `json:"analysis_results"`
	TotalComponents  int                      `json:"total_components"`
	Filters          ComponentSeverityOptions `json:"filters"`
	SeverityCriteria []string                 `json:"severity_criteria"`
}

// severityCriteria documents what counts as "severe" for this analysis: a
// WARNING:2/CRITICAL episode name, or a causality chain mentioning paging,
// triggering, or an SLO breach.
var severityCriteria = []string{"episode severity WARNING:2 or CRITICAL", "causality chain mentions PagerDuty, triggered, or SLO"}

// ComponentSeverity reports, per component, what fraction of its incidents
// were severe.
func (s *Service) ComponentSeverity(ctx context.Context, opts ComponentSeverityOptions) (*ComponentSeverityResult, error) {
	timeline, err := s.Timeline(ctx, TimelineFilters{GroupIDs: opts.GroupIDs, Component: opts.Component})
	if err != nil {
		return nil, fmt.Errorf("building timeline for component severity: %w", err)
	}

	total := make(map[string]int)
	severe := make(map[string]int)

	for _, entry := range timeline.Timeline {
		isSevere := isSevereEpisodeName(entry.EpisodeName) || chainsMentionAny(entry.CausalityChains, "PagerDuty", "triggered", "SLO")
		seenComponent := make(map[string]bool)
		for _, comp := range entry.Components {
			if seenComponent[comp] {
				continue
			}
			seenComponent[comp] = true
			total[comp]++
			if isSevere {
				severe[comp]++
			}
		}
	}

	result := &ComponentSeverityResult{Filters: opts, SeverityCriteria: severityCriteria}
	for comp, count := range total {
		if opts.MinIncidents > 0 && count < opts.MinIncidents {
			continue
		}
		result.AnalysisResults = append(result.AnalysisResults, ComponentSeverityEntry{
			Component:       comp,
			TotalIncidents:  count,
			SevereIncidents: severe[comp],
			SeverityRate:    float64(severe[comp]) / float64(count),
		})
	}

	sort.Slice(result.AnalysisResults, func(i, j int) bool {
		return result.AnalysisResults[i].Component < result.AnalysisResults[j].Component
	})

	result.TotalComponents = len(result.AnalysisResults)
	return result, nil
}

// FlowMetricsOptions narrows a flow-metrics query.
type FlowMetricsOptions struct {
	Category     string
	GroupIDs     []string
	MinFlowCount int
}

// FlowMetricEntry is one (category, component) funnel: how often it
// escalates from component involvement to severe, and from severe to an SLO
// breach.
type FlowMetricEntry struct {
	Category              string  `json:"cause_category"`
	Component             string  `json:"component"`
	Total                 int     `json:"total"`
	Severe                int     `json:"severe"`
	SLOBreach             int     `json:"slo_breach"`
	ComponentToSevereRate float64 `json:"component_to_severe_rate"`
	SevereToSLORate       float64 `json:"severe_to_slo_rate"`
	EndToEndCVR           float64 `json:"end_to_end_cvr"`
}

// FlowMetricsResult is the full flow-metrics response.
type FlowMetricsResult struct {
	FlowMetrics     []FlowMetricEntry      `json:"flow_metrics"`
	TotalFlows      int                    `json:"total_flows"`
	CategoryTotals  map[string]int         `json:"category_totals"`
	CVRDefinitions  map[string]string      `json:"cvr_definitions"`
	Filters         FlowMetricsOptions     `json:"filters"`
}

var cvrDefinitions = map[string]string{
	"component_to_severe_rate": "severe incidents / total incidents for this (category, component) pair",
	"severe_to_slo_rate":       "severe incidents that also breached an SLO / severe incidents",
	"end_to_end_cvr":           "incidents that breached an SLO / total incidents for this pair",
}

// FlowMetrics builds a CVR-style funnel for each (category, component) pair:
// component involvement -> severe -> SLO breach.
func (s *Service) FlowMetrics(ctx context.Context, opts FlowMetricsOptions) (*FlowMetricsResult, error) {
	timeline, err := s.Timeline(ctx, TimelineFilters{GroupIDs: opts.GroupIDs, Category: opts.Category})
	if err != nil {
		return nil, fmt.Errorf("building timeline for flow metrics: %w", err)
	}

	total := make(map[pairKey]int)
	severe := make(map[pairKey]int)
	slo := make(map[pairKey]int)
	sloFlows := make(map[pairKey]int)
	categoryTotals := make(map[string]int)

	for _, entry := range timeline.Timeline {
		if entry.CauseCategory == "" {
			continue
		}
		categoryTotals[entry.CauseCategory]++
		isSevere := isSevereEpisodeName(entry.EpisodeName)
		isSLO := chainsMentionAny(entry.CausalityChains, "SLO")
		seenComponent := make(map[string]bool)
		for _, comp := range entry.Components {
			if seenComponent[comp] {
				continue
			}
			seenComponent[comp] = true
			key := pairKey{category: entry.CauseCategory, component: comp}
			total[key]++
			if isSLO {
				sloFlows[key]++
			}
			if isSevere {
				severe[key]++
				if isSLO {
					slo[key]++
				}
			}
		}
	}

	result := &FlowMetricsResult{
		CategoryTotals: categoryTotals,
		CVRDefinitions: cvrDefinitions,
		Filters:        opts,
	}

	for key, count := range total {
		if opts.MinFlowCount > 0 && count < opts.MinFlowCount {
			continue
		}
		severeCount := severe[key]
		sloCount := slo[key]

		severeToSLO := 0.0
		if severeCount > 0 {
			severeToSLO = float64(sloCount) / float64(severeCount)
		}

		result.FlowMetrics = append(result.FlowMetrics, FlowMetricEntry{
			Category:              key.category,
			Component:             key.component,
			Total:                 count,
			Severe:                severeCount,
			SLOBreach:             sloCount,
			ComponentToSevereRate: float64(severeCount) / float64(count),
			SevereToSLORate:       severeToSLO,
			EndToEndCVR:           float64(sloFlows[key]) / float64(count),
		})
	}

	sort.Slice(result.FlowMetrics, func(i, j int) bool {
		if result.FlowMetrics[i].Category != result.FlowMetrics[j].Category {
			return result.FlowMetrics[i].Category < result.FlowMetrics[j].Category
		}
		return result.FlowMetrics[i].Component < result.FlowMetrics[j].Component
	})

	result.TotalFlows = len(result.FlowMetrics)
	return result, nil
}
