package moderation

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Categories is the fixed taxonomy scored by the external classifier.
var Categories = []string{
	"hate",
	"hate/threatening",
	"harassment",
	"harassment/threatening",
	"self-harm",
	"self-harm/intent",
	"self-harm/instructions",
	"sexual",
	"sexual/minors",
	"violence",
	"violence/graphic",
	"illicit",
	"illicit/violent",
}

// Classification is the raw classifier output: a score in [0,1] per category
// plus the classifier's own binary flag per category.
type Classification struct {
	Flagged bool
	Scores  map[string]float64
	Flags   map[string]bool
}

// Classifier is the external content classifier. Implementations may fail or
// time out; callers own the fallback policy.
type Classifier interface {
	Classify(ctx context.Context, text string) (*Classification, error)
}

// OpenAIClassifier calls the OpenAI moderation endpoint.
type OpenAIClassifier struct {
	client  openai.Client
	timeout time.Duration
}

func NewOpenAIClassifier(apiKey string, timeout time.Duration) *OpenAIClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &OpenAIClassifier{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		timeout: timeout,
	}
}

func (c *OpenAIClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.client.Moderations.New(ctx, openai.ModerationNewParams{
		Input: openai.ModerationNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.ModerationModelOmniModerationLatest,
	})
	if err != nil {
		return nil, fmt.Errorf("moderation request failed: %w", err)
	}
	if len(resp.Results) == 0 {
		return nil, fmt.Errorf("moderation response contained no results")
	}

	r := resp.Results[0]
	scores := map[string]float64{
		"hate":                   r.CategoryScores.Hate,
		"hate/threatening":       r.CategoryScores.HateThreatening,
		"harassment":             r.CategoryScores.Harassment,
		"harassment/threatening": r.CategoryScores.HarassmentThreatening,
		"self-harm":              r.CategoryScores.SelfHarm,
		"self-harm/intent":       r.CategoryScores.SelfHarmIntent,
		"self-harm/instructions": r.CategoryScores.SelfHarmInstructions,
		"sexual":                 r.CategoryScores.Sexual,
		"sexual/minors":          r.CategoryScores.SexualMinors,
		"violence":               r.CategoryScores.Violence,
		"violence/graphic":       r.CategoryScores.ViolenceGraphic,
		"illicit":                r.CategoryScores.Illicit,
		"illicit/violent":        r.CategoryScores.IllicitViolent,
	}
	flags := map[string]bool{
		"hate":                   r.Categories.Hate,
		"hate/threatening":       r.Categories.HateThreatening,
		"harassment":             r.Categories.Harassment,
		"harassment/threatening": r.Categories.HarassmentThreatening,
		"self-harm":              r.Categories.SelfHarm,
		"self-harm/intent":       r.Categories.SelfHarmIntent,
		"self-harm/instructions": r.Categories.SelfHarmInstructions,
		"sexual":                 r.Categories.Sexual,
		"sexual/minors":          r.Categories.SexualMinors,
		"violence":               r.Categories.Violence,
		"violence/graphic":       r.Categories.ViolenceGraphic,
		"illicit":                r.Categories.Illicit,
		"illicit/violent":        r.Categories.IllicitViolent,
	}

	return &Classification{Flagged: r.Flagged, Scores: scores, Flags: flags}, nil
}
