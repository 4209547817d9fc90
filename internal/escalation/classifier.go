package escalation

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/metrics"
	"github.com/Ugochu266/chatbot-sub001/internal/rulestore"
)

// Escalation types.
const (
	TypeCrisis    = "crisis"
	TypeLegal     = "legal"
	TypeComplaint = "complaint"
	TypeSentiment = "sentiment"
)

// Reasons are fixed mnemonics per category.
const (
	ReasonCrisis    = "CRISIS_DETECTED"
	ReasonLegal     = "LEGAL_CONCERN"
	ReasonComplaint = "ESCALATION_REQUESTED"
	ReasonSentiment = "NEGATIVE_SENTIMENT"
	ReasonGeneric   = "ESCALATION_TRIGGERED"
)

// categoryRank is one row of the static priority table. Resolution is a
// max-by scan over matched categories, so new categories are added here
// without touching branching logic.
type categoryRank struct {
	Category string
	Priority int
	Urgency  string
	Reason   string
}

var priorityTable = []categoryRank{
	{TypeCrisis, 100, "critical", ReasonCrisis},
	{TypeLegal, 80, "high", ReasonLegal},
	{TypeComplaint, 60, "medium", ReasonComplaint},
	{TypeSentiment, 40, "medium", ReasonSentiment},
}

var unknownRank = categoryRank{Priority: 50, Urgency: "medium", Reason: ReasonGeneric}

func rankFor(category string) categoryRank {
	for _, r := range priorityTable {
		if r.Category == category {
			return r
		}
	}
	r := unknownRank
	r.Category = category
	return r
}

// Trigger is one matched (category, keyword) pair.
type Trigger struct {
	Category string `json:"category"`
	Keyword  string `json:"keyword"`
}

// Result is the human-review verdict for one piece of text. Type, Reason and
// Urgency reflect only the highest-priority matching category; Triggers carries
// every match for audit.
type Result struct {
	ShouldEscalate bool      `json:"should_escalate"`
	Type           string    `json:"type,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	Urgency        string    `json:"urgency,omitempty"`
	Triggers       []Trigger `json:"triggers,omitempty"`
}

// Classifier decides whether a human must be alerted and with what urgency.
// It never blocks content by itself.
type Classifier struct {
	rules   *rulestore.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func New(rules *rulestore.Store, logger *zap.Logger, m *metrics.Metrics) *Classifier {
	return &Classifier{rules: rules, logger: logger, metrics: m}
}

// Check matches text against the configured escalation keywords and resolves
// the matches to a single priority-ranked verdict. When the rule store is
// degraded it switches to the built-in detection with its stricter rules.
func (c *Classifier) Check(ctx context.Context, text string) Result {
	matches, degraded := c.rules.MatchEscalationKeywords(ctx, text)
	if degraded {
		return c.checkFallback(text)
	}
	if len(matches) == 0 {
		return Result{}
	}

	triggers := make([]Trigger, 0, len(matches))
	best := categoryRank{Priority: -1}
	for _, m := range matches {
		triggers = append(triggers, Trigger{Category: m.Category, Keyword: m.Keyword})
		if r := rankFor(m.Category); r.Priority > best.Priority {
			best = r
		}
	}

	c.countEscalation(best.Category)
	return Result{
		ShouldEscalate: true,
		Type:           best.Category,
		Reason:         best.Reason,
		Urgency:        best.Urgency,
		Triggers:       triggers,
	}
}

// checkFallback screens text against the built-in keyword sets in priority
// order. Crisis short-circuits immediately; it is the only category allowed to
// preempt the rest of the scan. Sentiment requires at least two distinct
// matches so a single angry word does not page a human.
func (c *Classifier) checkFallback(text string) Result {
	lower := strings.ToLower(text)
	defaults := rulestore.DefaultEscalationKeywords()

	for _, kw := range defaults[TypeCrisis] {
		if strings.Contains(lower, kw) {
			c.countEscalation(TypeCrisis)
			return Result{
				ShouldEscalate: true,
				Type:           TypeCrisis,
				Reason:         ReasonCrisis,
				Urgency:        "critical",
				Triggers:       []Trigger{{Category: TypeCrisis, Keyword: kw}},
			}
		}
	}

	var triggers []Trigger
	best := categoryRank{Priority: -1}
	sentimentHits := 0
	for _, rank := range priorityTable[1:] {
		for _, kw := range defaults[rank.Category] {
			if !strings.Contains(lower, kw) {
				continue
			}
			triggers = append(triggers, Trigger{Category: rank.Category, Keyword: kw})
			if rank.Category == TypeSentiment {
				sentimentHits++
				if sentimentHits < 2 {
					continue
				}
			}
			if rank.Priority > best.Priority {
				best = rank
			}
		}
	}

	if best.Priority < 0 {
		return Result{}
	}

	c.countEscalation(best.Category)
	return Result{
		ShouldEscalate: true,
		Type:           best.Category,
		Reason:         best.Reason,
		Urgency:        best.Urgency,
		Triggers:       triggers,
	}
}

func (c *Classifier) countEscalation(category string) {
	if c.metrics != nil {
		c.metrics.Escalations.WithLabelValues(category).Inc()
	}
}
