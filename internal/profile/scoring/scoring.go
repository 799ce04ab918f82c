// Package scoring computes the compliance risk score. The scorer is a
// pluggable strategy; the default weighs sanctions hits and their topics.
// Scoring is pure: same inputs always produce the same result.
package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"

	"kompas/internal/profile/models"
)

// Signals carries auxiliary risk inputs not yet backed by live sources. The
// orchestrator passes static placeholders until those integrations land.
type Signals struct {
	PEPHits           int
	UBOMissing        bool
	RecentNameChanges int
}

// Scorer turns a merged profile and its screening results into a risk score
// on a 0-100 scale with ordered reasons.
type Scorer interface {
	Score(profile models.CompanyProfile, sanctions models.SanctionsSection, aux Signals) models.RiskResult
}

// topicWeights maps high-risk screening topics to score contributions. Only
// the highest matching weight counts.
var topicWeights = []struct {
	topic  string
	weight float64
}{
	{"sanction", 40},
	{"crime", 30},
	{"role.pep", 25},
	{"poi", 20},
	{"fin", 15},
}

// TopicScorer is the default scoring strategy.
type TopicScorer struct{}

// NewScorer returns the default scorer.
func NewScorer() *TopicScorer {
	return &TopicScorer{}
}

// Score computes base score from hit count (15 per hit, capped at 60), adds
// the heaviest matched topic weight and a status penalty, and caps at 100.
func (s *TopicScorer) Score(profile models.CompanyProfile, sanctions models.SanctionsSection, aux Signals) models.RiskResult {
	var score float64
	var reasons []string

	if sanctions.HitsCount > 0 {
		base := float64(sanctions.HitsCount) * 15
		if base > 60 {
			base = 60
		}
		score += base
		reasons = append(reasons, fmt.Sprintf("sanctions screening returned %d match(es)", sanctions.HitsCount))

		if topic, weight := maxTopicWeight(sanctions.Matches); weight > 0 {
			score += weight
			reasons = append(reasons, "high-risk topic: "+topic)
		}
	}

	switch profile.Status {
	case models.StatusDissolved:
		score += 10
		reasons = append(reasons, "company is dissolved")
	case models.StatusInactive:
		score += 5
		reasons = append(reasons, "company is inactive")
	}

	if aux.PEPHits > 0 {
		reasons = append(reasons, fmt.Sprintf("politically exposed person matches: %d", aux.PEPHits))
	}
	if aux.UBOMissing {
		reasons = append(reasons, "required beneficial-ownership data missing")
	}
	if aux.RecentNameChanges > 0 {
		reasons = append(reasons, fmt.Sprintf("recent name changes: %d", aux.RecentNameChanges))
	}

	if score > 100 {
		score = 100
	}
	if len(reasons) == 0 {
		reasons = []string{"no risk indicators found"}
	}

	return models.RiskResult{
		Score:   score,
		Reasons: reasons,
		Provenance: map[string]any{
			"sanctionsHits": sanctions.HitsCount,
			"pepHits":       aux.PEPHits,
		},
	}
}

// maxTopicWeight returns the heaviest configured topic present in any match.
func maxTopicWeight(matches []models.Match) (string, float64) {
	topicSet := make(map[string]struct{})
	for _, m := range matches {
		gjson.GetBytes(m.Raw, "properties.topics").ForEach(func(_, t gjson.Result) bool {
			topicSet[strings.ToLower(t.String())] = struct{}{}
			return true
		})
	}

	topics := make([]string, 0, len(topicSet))
	for t := range topicSet {
		topics = append(topics, t)
	}
	sort.Strings(topics)

	var bestTopic string
	var bestWeight float64
	for _, entry := range topicWeights {
		for _, t := range topics {
			if strings.Contains(t, entry.topic) && entry.weight > bestWeight {
				bestTopic = entry.topic
				bestWeight = entry.weight
			}
		}
	}
	return bestTopic, bestWeight
}
