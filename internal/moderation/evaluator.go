package moderation

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/metrics"
	"github.com/Ugochu266/chatbot-sub001/internal/models"
	"github.com/Ugochu266/chatbot-sub001/internal/rulestore"
)

// CategoryVerdict is the resolved outcome for one flagged category.
type CategoryVerdict struct {
	Category  string
	Score     float64
	Threshold float64
	Action    string
}

// Result aggregates the per-category verdicts for one piece of text. Scores
// carries the raw classifier output for audit regardless of outcome.
type Result struct {
	Flagged        bool
	ShouldBlock    bool
	ShouldEscalate bool
	ShouldFlag     bool
	Categories     []CategoryVerdict
	Scores         map[string]float64
}

// Evaluator submits text to the external classifier and maps per-category
// scores to actions using the configured thresholds.
type Evaluator struct {
	classifier Classifier
	rules      *rulestore.Store
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

func NewEvaluator(classifier Classifier, rules *rulestore.Store, logger *zap.Logger, m *metrics.Metrics) *Evaluator {
	return &Evaluator{classifier: classifier, rules: rules, logger: logger, metrics: m}
}

// Moderate classifies text and resolves each category against its threshold.
// Classifier failure fails open: moderation outages must not take down the
// chat pipeline, so the text is allowed through and the failure logged.
func (e *Evaluator) Moderate(ctx context.Context, text string) Result {
	classification, err := e.classifier.Classify(ctx, text)
	if err != nil {
		e.logger.Error("content classifier unavailable, failing open", zap.Error(err))
		if e.metrics != nil {
			e.metrics.ClassifierFailures.Inc()
		}
		return Result{}
	}

	result := Result{Scores: classification.Scores}
	for _, category := range Categories {
		score := classification.Scores[category]
		decision, degraded := e.rules.ResolveModerationAction(ctx, category, score)

		action := decision.Action
		act := decision.ShouldAct
		if degraded {
			// Threshold config unavailable: trust the classifier's own flag
			// and treat any hit as a block.
			act = classification.Flags[category]
			action = models.ActionBlock
		}
		if !act {
			continue
		}

		result.Flagged = true
		result.Categories = append(result.Categories, CategoryVerdict{
			Category:  category,
			Score:     score,
			Threshold: decision.Threshold,
			Action:    action,
		})
		switch action {
		case models.ActionBlock:
			result.ShouldBlock = true
		case models.ActionEscalate:
			result.ShouldEscalate = true
		default:
			result.ShouldFlag = true
		}
	}

	return result
}
