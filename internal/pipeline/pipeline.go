package pipeline

import (
	"context"

	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/audit"
	"github.com/Ugochu266/chatbot-sub001/internal/escalation"
	"github.com/Ugochu266/chatbot-sub001/internal/metrics"
	"github.com/Ugochu266/chatbot-sub001/internal/moderation"
	"github.com/Ugochu266/chatbot-sub001/internal/sanitizer"
)

// Pipeline stages, reported as the blocking stage in verdicts and audit records.
const (
	StageSanitizer        = "sanitizer"
	StageModerationInput  = "moderation_input"
	StageEscalation       = "escalation"
	StageModerationOutput = "moderation_output"
)

// fallbackMessage is the generic, non-alarming redirect surfaced to the user
// whenever content is blocked or an internal failure occurs.
const fallbackMessage = "I'm sorry, but I can't help with that. Is there something else I can do for you?"

// InputResult is the combined verdict for one inbound message.
type InputResult struct {
	InputPassed      bool              `json:"input_passed"`
	SanitizedInput   string            `json:"sanitized_input,omitempty"`
	Blocked          bool              `json:"blocked"`
	BlockReason      string            `json:"block_reason,omitempty"`
	BlockedBy        string            `json:"blocked_by,omitempty"`
	Escalation       escalation.Result `json:"escalation"`
	FallbackResponse string            `json:"fallback_response,omitempty"`
	Resources        []string          `json:"resources,omitempty"`
	Moderation       moderation.Result `json:"-"`
}

// OutputResult is the verdict for one generated reply.
type OutputResult struct {
	Passed    bool   `json:"passed"`
	FinalText string `json:"final_text"`
}

// Pipeline sequences sanitization, moderation and escalation for inbound text,
// and moderation alone for generated replies. One run is active per message;
// the rule store cache is the only shared state underneath.
type Pipeline struct {
	sanitizer *sanitizer.Sanitizer
	moderator *moderation.Evaluator
	escalator *escalation.Classifier
	sink      audit.Sink
	logger    *zap.Logger
	metrics   *metrics.Metrics
}

func New(
	s *sanitizer.Sanitizer,
	m *moderation.Evaluator,
	e *escalation.Classifier,
	sink audit.Sink,
	logger *zap.Logger,
	mt *metrics.Metrics,
) *Pipeline {
	return &Pipeline{
		sanitizer: s,
		moderator: m,
		escalator: e,
		sink:      sink,
		logger:    logger,
		metrics:   mt,
	}
}

// RunPipeline screens one inbound message. The classifier is never called once
// the sanitizer blocks, and crisis detection stops the run before any reply
// generation with a fixed empathetic response plus resource list.
func (p *Pipeline) RunPipeline(ctx context.Context, inputText string) InputResult {
	preview := sanitizer.Truncate(inputText, 100)

	sanResult := p.sanitizer.Sanitize(ctx, inputText)
	if sanResult.Blocked {
		p.sink.LogDecision(StageSanitizer, map[string]interface{}{
			"blocked": true,
			"reason":  sanResult.BlockReason,
			"pattern": sanResult.Pattern,
		}, preview)
		p.countBlock(StageSanitizer)
		p.countRun("input", "blocked")
		return InputResult{
			Blocked:          true,
			BlockReason:      sanResult.BlockReason,
			BlockedBy:        StageSanitizer,
			FallbackResponse: fallbackMessage,
		}
	}

	modResult := p.moderator.Moderate(ctx, sanResult.Sanitized)
	p.sink.LogDecision(StageModerationInput, map[string]interface{}{
		"flagged":      modResult.Flagged,
		"should_block": modResult.ShouldBlock,
		"scores":       modResult.Scores,
	}, preview)
	if modResult.ShouldBlock {
		p.countBlock(StageModerationInput)
		p.countRun("input", "blocked")
		return InputResult{
			Blocked:          true,
			BlockReason:      blockReasonFor(modResult),
			BlockedBy:        StageModerationInput,
			Moderation:       modResult,
			FallbackResponse: fallbackMessage,
		}
	}

	escResult := p.escalator.Check(ctx, sanResult.Sanitized)
	if escResult.ShouldEscalate {
		p.sink.LogDecision(StageEscalation, map[string]interface{}{
			"type":    escResult.Type,
			"urgency": escResult.Urgency,
			"reason":  escResult.Reason,
		}, preview)
	}

	if escResult.Type == escalation.TypeCrisis {
		// Crisis is the one category where escalating and blocking are the
		// same action: stop before generation and answer with resources.
		resp := escalation.ResponseFor(escalation.TypeCrisis)
		p.countBlock(StageEscalation)
		p.countRun("input", "crisis")
		return InputResult{
			Blocked:          true,
			BlockReason:      escalation.ReasonCrisis,
			BlockedBy:        StageEscalation,
			SanitizedInput:   sanResult.Sanitized,
			Escalation:       escResult,
			Moderation:       modResult,
			FallbackResponse: resp.Message,
			Resources:        resp.Resources,
		}
	}

	outcome := "passed"
	if escResult.ShouldEscalate || modResult.ShouldEscalate || modResult.ShouldFlag {
		outcome = "flagged"
	}
	p.countRun("input", outcome)
	return InputResult{
		InputPassed:    true,
		SanitizedInput: sanResult.Sanitized,
		Escalation:     escResult,
		Moderation:     modResult,
	}
}

// EvaluateOutput moderates a generated reply before delivery. Blocked replies
// are replaced with the generic fallback text.
func (p *Pipeline) EvaluateOutput(ctx context.Context, generatedText string) OutputResult {
	modResult := p.moderator.Moderate(ctx, generatedText)
	p.sink.LogDecision(StageModerationOutput, map[string]interface{}{
		"flagged":      modResult.Flagged,
		"should_block": modResult.ShouldBlock,
		"scores":       modResult.Scores,
	}, sanitizer.Truncate(generatedText, 100))

	if modResult.ShouldBlock {
		p.logger.Warn("generated reply blocked by output moderation",
			zap.String("reason", blockReasonFor(modResult)))
		p.countBlock(StageModerationOutput)
		p.countRun("output", "blocked")
		return OutputResult{Passed: false, FinalText: fallbackMessage}
	}

	p.countRun("output", "passed")
	return OutputResult{Passed: true, FinalText: generatedText}
}

// blockReasonFor names the first blocking category.
func blockReasonFor(r moderation.Result) string {
	for _, c := range r.Categories {
		if c.Action == "block" {
			return "MODERATION_" + c.Category
		}
	}
	return "MODERATION_BLOCKED"
}

func (p *Pipeline) countBlock(stage string) {
	if p.metrics != nil {
		p.metrics.BlockedMessages.WithLabelValues(stage).Inc()
	}
}

func (p *Pipeline) countRun(direction, outcome string) {
	if p.metrics != nil {
		p.metrics.PipelineRuns.WithLabelValues(direction, outcome).Inc()
	}
}
