package escalation

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

func standardRepo() *testsupport.FakeRuleRepo {
	return &testsupport.FakeRuleRepo{
		KeywordSets: []*models.EscalationKeywordSet{
			{Category: "crisis", Keywords: "end my life,kill myself,suicide", Priority: 100},
			{Category: "legal", Keywords: "lawyer,lawsuit,legal action", Priority: 80},
			{Category: "complaint", Keywords: "speak to a manager,file a complaint", Priority: 60},
			{Category: "sentiment", Keywords: "furious,worst service,terrible", Priority: 40},
		},
	}
}

func newTestClassifier(repo *testsupport.FakeRuleRepo) *Classifier {
	store := rulestore.New(repo, zap.NewNop(), nil, time.Second)
	return New(store, zap.NewNop(), nil)
}

func TestCrisisDetection(t *testing.T) {
	c := newTestClassifier(standardRepo())

	result := c.Check(context.Background(), "I want to end my life")
	require.True(t, result.ShouldEscalate)
	assert.Equal(t, TypeCrisis, result.Type)
	assert.Equal(t, "critical", result.Urgency)
	assert.Equal(t, ReasonCrisis, result.Reason)
}

func TestCrisisWinsOverLowerPriorityCategories(t *testing.T) {
	c := newTestClassifier(standardRepo())

	result := c.Check(context.Background(), "my lawyer will file a complaint but honestly I want to end my life")
	require.True(t, result.ShouldEscalate)
	assert.Equal(t, TypeCrisis, result.Type)
	assert.Equal(t, "critical", result.Urgency)

	// All matches are kept as triggers for audit even though crisis won.
	categories := map[string]bool{}
	for _, trig := range result.Triggers {
		categories[trig.Category] = true
	}
	assert.True(t, categories["crisis"])
	assert.True(t, categories["legal"])
	assert.True(t, categories["complaint"])
}

func TestSentimentEscalation(t *testing.T) {
	c := newTestClassifier(standardRepo())

	result := c.Check(context.Background(), "I'm furious, this is the worst service, absolutely terrible")
	require.True(t, result.ShouldEscalate)
	assert.Equal(t, TypeSentiment, result.Type)
	assert.Equal(t, "medium", result.Urgency)
	assert.Equal(t, ReasonSentiment, result.Reason)
	assert.Len(t, result.Triggers, 3)
}

func TestUnknownCategoryGetsGenericRank(t *testing.T) {
	repo := &testsupport.FakeRuleRepo{
		KeywordSets: []*models.EscalationKeywordSet{
			{Category: "billing", Keywords: "refund dispute", Priority: 50},
			{Category: "sentiment", Keywords: "terrible", Priority: 40},
		},
	}
	c := newTestClassifier(repo)

	result := c.Check(context.Background(), "this refund dispute is terrible")
	require.True(t, result.ShouldEscalate)
	assert.Equal(t, "billing", result.Type, "unknown category at priority 50 outranks sentiment at 40")
	assert.Equal(t, ReasonGeneric, result.Reason)
	assert.Equal(t, "medium", result.Urgency)
}

func TestNoMatchesNoEscalation(t *testing.T) {
	c := newTestClassifier(standardRepo())

	result := c.Check(context.Background(), "What are your opening hours?")
	assert.False(t, result.ShouldEscalate)
	assert.Empty(t, result.Type)
}

func TestFallbackSentimentBoundary(t *testing.T) {
	repo := standardRepo()
	repo.SetErr(errors.New("db down"))
	c := newTestClassifier(repo)
	ctx := context.Background()

	// One sentiment keyword must not escalate in fallback mode.
	one := c.Check(ctx, "this is terrible")
	assert.False(t, one.ShouldEscalate)

	// Two distinct sentiment keywords must.
	two := c.Check(ctx, "this is terrible and the worst service")
	require.True(t, two.ShouldEscalate)
	assert.Equal(t, TypeSentiment, two.Type)
	assert.Equal(t, "medium", two.Urgency)
}

func TestFallbackCrisisShortCircuits(t *testing.T) {
	repo := standardRepo()
	repo.SetErr(errors.New("db down"))
	c := newTestClassifier(repo)

	result := c.Check(context.Background(), "my lawyer is useless and I want to kill myself")
	require.True(t, result.ShouldEscalate)
	assert.Equal(t, TypeCrisis, result.Type)
	assert.Equal(t, "critical", result.Urgency)
	require.Len(t, result.Triggers, 1, "crisis short-circuits before lower categories are evaluated")
	assert.Equal(t, TypeCrisis, result.Triggers[0].Category)
}

func TestResponseTemplates(t *testing.T) {
	crisis := ResponseFor(TypeCrisis)
	assert.NotEmpty(t, crisis.Message)
	assert.NotEmpty(t, crisis.Resources)

	complaint := ResponseFor(TypeComplaint)
	assert.NotEmpty(t, complaint.Message)
	assert.Empty(t, complaint.Resources)

	generic := ResponseFor("something-else")
	assert.NotEmpty(t, generic.Message)
}
