package moderation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/models"
	"github.com/Ugochu266/chatbot-sub001/internal/rulestore"
	"github.com/Ugochu266/chatbot-sub001/internal/testsupport"
)

type fakeClassifier struct {
	result *Classification
	err    error
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, _ string) (*Classification, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func newTestEvaluator(classifier Classifier, repo *testsupport.FakeRuleRepo) *Evaluator {
	store := rulestore.New(repo, zap.NewNop(), nil, time.Second)
	return NewEvaluator(classifier, store, zap.NewNop(), nil)
}

func scoresWith(category string, score float64) map[string]float64 {
	scores := make(map[string]float64, len(Categories))
	for _, c := range Categories {
		scores[c] = 0
	}
	scores[category] = score
	return scores
}

func TestModerateEscalatesAboveThreshold(t *testing.T) {
	classifier := &fakeClassifier{result: &Classification{
		Flagged: true,
		Scores:  scoresWith("self-harm", 0.6),
		Flags:   map[string]bool{"self-harm": true},
	}}
	repo := &testsupport.FakeRuleRepo{
		Thresholds: []*models.ModerationThreshold{
			{Category: "self-harm", Threshold: 0.5, Action: models.ActionEscalate},
		},
	}
	evaluator := newTestEvaluator(classifier, repo)

	result := evaluator.Moderate(context.Background(), "some concerning text")
	assert.True(t, result.ShouldEscalate)
	assert.False(t, result.ShouldBlock)
	require.Len(t, result.Categories, 1)
	assert.Equal(t, "self-harm", result.Categories[0].Category)
	assert.Equal(t, 0.5, result.Categories[0].Threshold)
}

func TestModerateBelowThresholdPasses(t *testing.T) {
	classifier := &fakeClassifier{result: &Classification{
		Scores: scoresWith("violence", 0.4),
		Flags:  map[string]bool{},
	}}
	repo := &testsupport.FakeRuleRepo{
		Thresholds: []*models.ModerationThreshold{
			{Category: "violence", Threshold: 0.8, Action: models.ActionFlag},
		},
	}
	evaluator := newTestEvaluator(classifier, repo)

	result := evaluator.Moderate(context.Background(), "mild text")
	assert.False(t, result.Flagged)
	assert.False(t, result.ShouldBlock)
	assert.Empty(t, result.Categories)
}

func TestModerateFailsOpenOnClassifierError(t *testing.T) {
	classifier := &fakeClassifier{err: errors.New("quota exceeded")}
	evaluator := newTestEvaluator(classifier, &testsupport.FakeRuleRepo{})

	result := evaluator.Moderate(context.Background(), "anything")
	assert.False(t, result.Flagged)
	assert.False(t, result.ShouldBlock)
	assert.False(t, result.ShouldEscalate)
	assert.Nil(t, result.Scores)
}

func TestModerateUsesClassifierFlagWhenStoreDegraded(t *testing.T) {
	classifier := &fakeClassifier{result: &Classification{
		Flagged: true,
		Scores:  scoresWith("hate", 0.9),
		Flags:   map[string]bool{"hate": true},
	}}
	repo := &testsupport.FakeRuleRepo{}
	repo.SetErr(errors.New("db down"))
	evaluator := newTestEvaluator(classifier, repo)

	result := evaluator.Moderate(context.Background(), "hateful text")
	assert.True(t, result.ShouldBlock, "degraded threshold config must fall back to the classifier flag with action block")
	require.Len(t, result.Categories, 1)
	assert.Equal(t, models.ActionBlock, result.Categories[0].Action)
}

func TestModerateKeepsRawScoresForAudit(t *testing.T) {
	scores := scoresWith("harassment", 0.3)
	classifier := &fakeClassifier{result: &Classification{Scores: scores, Flags: map[string]bool{}}}
	evaluator := newTestEvaluator(classifier, &testsupport.FakeRuleRepo{
		Thresholds: []*models.ModerationThreshold{
			{Category: "harassment", Threshold: 0.8, Action: models.ActionFlag},
		},
	})

	result := evaluator.Moderate(context.Background(), "text")
	assert.Equal(t, scores, result.Scores)
}
