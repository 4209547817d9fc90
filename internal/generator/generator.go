package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Turn is one prior exchange turn handed to the generator.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

// Generator produces an assistant reply from conversation history plus
// retrieved context. Opaque to the safety pipeline.
type Generator interface {
	Generate(ctx context.Context, history []Turn, contextDocs []string) (string, error)
}

const systemPrompt = "You are a helpful customer support assistant. Answer using the provided " +
	"context when it is relevant. If you do not know the answer, say so instead of guessing."

// OpenAIGenerator generates replies through the chat completions API.
type OpenAIGenerator struct {
	client  openai.Client
	model   openai.ChatModel
	timeout time.Duration
}

func NewOpenAIGenerator(apiKey, model string, timeout time.Duration) *OpenAIGenerator {
	if model == "" {
		model = string(openai.ChatModelGPT4oMini)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIGenerator{
		client:  openai.NewClient(option.WithAPIKey(apiKey)),
		model:   openai.ChatModel(model),
		timeout: timeout,
	}
}

func (g *OpenAIGenerator) Generate(ctx context.Context, history []Turn, contextDocs []string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	messages := make([]openai.ChatCompletionMessageParamUnion, 0, len(history)+2)
	messages = append(messages, openai.SystemMessage(systemPrompt))
	if len(contextDocs) > 0 {
		contextBlock := "Context documents:\n"
		for _, doc := range contextDocs {
			contextBlock += "- " + doc + "\n"
		}
		messages = append(messages, openai.SystemMessage(contextBlock))
	}
	for _, turn := range history {
		if turn.Role == "assistant" {
			messages = append(messages, openai.AssistantMessage(turn.Content))
		} else {
			messages = append(messages, openai.UserMessage(turn.Content))
		}
	}

	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    g.model,
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return resp.Choices[0].Message.Content, nil
}
