// Package faq matches user utterances against the static FAQ table.
package faq

import (
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	faqmodel "github.com/mzhao28/agentchat/internal/model/faq"
)

// DefaultThreshold is the minimum normalized similarity a question must score
// before its answer short-circuits the agent. Strict on purpose: a false
// positive here silently overrides a legitimate agent query.
const DefaultThreshold = 0.8

// Matcher scores queries against every FAQ question and returns the best
// answer above the threshold. Deterministic for a fixed table and threshold.
type Matcher struct {
	store     faqmodel.Store
	threshold float64
	metric    *metrics.SorensenDice
}

// NewMatcher builds a Matcher over the supplied store. A non-positive
// threshold falls back to DefaultThreshold.
func NewMatcher(store faqmodel.Store, threshold float64) *Matcher {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	metric := metrics.NewSorensenDice()
	metric.CaseSensitive = false
	metric.NgramSize = 2

	return &Matcher{store: store, threshold: threshold, metric: metric}
}

// Match returns the answer of the single best-scoring question whose
// similarity to query clears the threshold. An empty query never matches.
func (m *Matcher) Match(query string) (string, bool) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", false
	}

	bestScore := 0.0
	bestAnswer := ""
	for _, entry := range m.store.List() {
		score := strutil.Similarity(query, entry.Question, m.metric)
		if score > bestScore {
			bestScore = score
			bestAnswer = entry.Answer
		}
	}

	if bestScore < m.threshold {
		return "", false
	}
	return bestAnswer, true
}
