// Package analytics derives incident causality timelines, recurrence
// patterns, and CVR-style funnel metrics from the episodes and RELATES_TO
// edges already stored in the graph. It reads; it never writes to the graph.
package analytics

import (
	"regexp"
	"strings"

	"github.com/uniQorn-org/graphiti/pkg/driver"
	"github.com/uniQorn-org/graphiti/pkg/embedder"
	"github.com/uniQorn-org/graphiti/pkg/llm"
)

// DefaultToolBlocklist names generic infra/tooling entities that should never
// be reported as an incident "component" even when they appear as an
// endpoint of a causal RELATES_TO edge (pager targets, chat, VCS, docs).
var DefaultToolBlocklist = []string{
	"pagerduty", "slack", "git", "github", "gitlab", "runbook",
	"dashboard", "grafana", "jira", "confluence", "example.com",
}

// exampleURLPattern flags entity names that are themselves URLs, which the
// extraction pipeline occasionally produces from linked runbooks/dashboards.
var exampleURLPattern = regexp.MustCompile(`^https?://`)

// causalKeywords is the fixed vocabulary that marks a RELATES_TO edge's fact
// text as describing a causal relationship rather than a merely descriptive one.
var causalKeywords = []string{
	"caused", "triggered", "linked", "introduced", "resulted in",
	"led to", "due to", "because of", "rolled back", "mitigated", "resolved by",
}

// Service computes causality, recurrence, and funnel analytics over a graph.
type Service struct {
	driver    driver.GraphDriver
	llm       llm.Client
	embedder  embedder.Client
	blocklist map[string]struct{}
}

// NewService builds an analytics Service backed by the default tool-entity blocklist.
func NewService(d driver.GraphDriver, llmClient llm.Client, embedderClient embedder.Client) *Service {
	return NewServiceWithBlocklist(d, llmClient, embedderClient, DefaultToolBlocklist)
}

// NewServiceWithBlocklist builds an analytics Service with a caller-supplied
// tool-entity blocklist, overriding DefaultToolBlocklist.
func NewServiceWithBlocklist(d driver.GraphDriver, llmClient llm.Client, embedderClient embedder.Client, blocklist []string) *Service {
	set := make(map[string]struct{}, len(blocklist))
	for _, name := range blocklist {
		set[strings.ToLower(name)] = struct{}{}
	}
	return &Service{driver: d, llm: llmClient, embedder: embedderClient, blocklist: set}
}

func containsCausalKeyword(fact string) bool {
	lower := strings.ToLower(fact)
	for _, kw := range causalKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (s *Service) isBlocked(entityName string) bool {
	lower := strings.ToLower(entityName)
	if exampleURLPattern.MatchString(lower) {
		return true
	}
	for blocked := range s.blocklist {
		if strings.Contains(lower, blocked) {
			return true
		}
	}
	return false
}

func isSevereEpisodeName(name string) bool {
	return strings.Contains(name, "WARNING:2") || strings.Contains(name, "CRITICAL")
}

func chainsMentionAny(chains []CausalityChain, keywords ...string) bool {
	for _, ch := range chains {
		for _, kw := range keywords {
			if strings.Contains(ch.Fact, kw) {
				return true
			}
		}
	}
	return false
}
