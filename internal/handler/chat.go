package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/generator"
	"github.com/Ugochu266/chatbot-sub001/internal/models"
	"github.com/Ugochu266/chatbot-sub001/internal/notifier"
	"github.com/Ugochu266/chatbot-sub001/internal/pipeline"
	"github.com/Ugochu266/chatbot-sub001/internal/repository"
	"github.com/Ugochu266/chatbot-sub001/internal/retrieval"
	"github.com/Ugochu266/chatbot-sub001/internal/sanitizer"
)

const historyLimit = 10

// genericFailureReply is shown when reply generation itself fails. Internal
// failures must never surface as errors to the end user.
const genericFailureReply = "I'm having trouble answering right now. Could you try again in a moment?"

type ChatHandler interface {
	SendMessage(c *gin.Context)
}

type chatHandler struct {
	pipeline  *pipeline.Pipeline
	generator generator.Generator
	retriever retrieval.Retriever
	convRepo  repository.ConversationRepository
	notifier  notifier.Notifier
	docLimit  int
	logger    *zap.Logger
}

func NewChatHandler(
	p *pipeline.Pipeline,
	gen generator.Generator,
	ret retrieval.Retriever,
	convRepo repository.ConversationRepository,
	n notifier.Notifier,
	docLimit int,
	logger *zap.Logger,
) ChatHandler {
	if docLimit <= 0 {
		docLimit = 3
	}
	return &chatHandler{
		pipeline:  p,
		generator: gen,
		retriever: ret,
		convRepo:  convRepo,
		notifier:  n,
		docLimit:  docLimit,
		logger:    logger,
	}
}

type SendMessageRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	Message   string `json:"message" binding:"required"`
}

type SendMessageResponse struct {
	Reply      string             `json:"reply"`
	Blocked    bool               `json:"blocked"`
	Escalation *escalationSummary `json:"escalation,omitempty"`
	Resources  []string           `json:"resources,omitempty"`
}

type escalationSummary struct {
	Type    string `json:"type"`
	Urgency string `json:"urgency"`
}

// SendMessage handles POST /api/chat/message: runs the safety pipeline on the
// inbound text, generates a reply with retrieved context, moderates the reply
// and persists the exchange.
func (h *chatHandler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	conv, err := h.convRepo.GetOrCreateConversation(ctx, req.SessionID)
	if err != nil {
		h.logger.Error("Failed to load conversation", zap.Error(err), zap.String("session_id", req.SessionID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process message"})
		return
	}

	result := h.pipeline.RunPipeline(ctx, req.Message)
	h.saveUserMessage(c, conv.ID, req.Message, result)

	if h.notifier != nil && result.Escalation.ShouldEscalate {
		go h.notifier.NotifyEscalation(req.SessionID, result.Escalation, sanitizer.Truncate(req.Message, 100))
	}

	if !result.InputPassed {
		resp := SendMessageResponse{
			Reply:     result.FallbackResponse,
			Blocked:   true,
			Resources: result.Resources,
		}
		if result.Escalation.ShouldEscalate {
			resp.Escalation = &escalationSummary{Type: result.Escalation.Type, Urgency: result.Escalation.Urgency}
		}
		h.saveAssistantMessage(c, conv.ID, resp.Reply, false)
		c.JSON(http.StatusOK, resp)
		return
	}

	reply := h.generateReply(c, conv.ID, result.SanitizedInput)
	output := h.pipeline.EvaluateOutput(ctx, reply)
	h.saveAssistantMessage(c, conv.ID, output.FinalText, !output.Passed)

	resp := SendMessageResponse{Reply: output.FinalText, Blocked: false}
	if result.Escalation.ShouldEscalate {
		resp.Escalation = &escalationSummary{Type: result.Escalation.Type, Urgency: result.Escalation.Urgency}
	}
	c.JSON(http.StatusOK, resp)
}

// generateReply fetches context and calls the generator. Both are external
// collaborators; their failures degrade to a generic reply, never an error.
func (h *chatHandler) generateReply(c *gin.Context, conversationID int64, sanitizedInput string) string {
	ctx := c.Request.Context()

	var contextDocs []string
	if h.retriever != nil {
		docs, err := h.retriever.Retrieve(ctx, sanitizedInput, h.docLimit)
		if err != nil {
			h.logger.Warn("Retrieval failed, generating without context", zap.Error(err))
		} else {
			contextDocs = docs
		}
	}

	history := h.loadHistory(c, conversationID)
	history = append(history, generator.Turn{Role: "user", Content: sanitizedInput})

	reply, err := h.generator.Generate(ctx, history, contextDocs)
	if err != nil {
		h.logger.Error("Reply generation failed", zap.Error(err))
		return genericFailureReply
	}
	return reply
}

func (h *chatHandler) loadHistory(c *gin.Context, conversationID int64) []generator.Turn {
	messages, err := h.convRepo.GetRecentMessages(c.Request.Context(), conversationID, historyLimit)
	if err != nil {
		h.logger.Warn("Failed to load conversation history", zap.Error(err), zap.Int64("conversation_id", conversationID))
		return nil
	}
	turns := make([]generator.Turn, 0, len(messages))
	for _, m := range messages {
		turns = append(turns, generator.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}

func (h *chatHandler) saveUserMessage(c *gin.Context, conversationID int64, content string, result pipeline.InputResult) {
	msg := &models.ChatMessage{
		ConversationID: conversationID,
		Role:           "user",
		Content:        sanitizer.Truncate(content, 4000),
		Blocked:        result.Blocked,
		Escalated:      result.Escalation.ShouldEscalate,
	}
	if result.Blocked {
		reason := result.BlockReason
		msg.BlockReason = &reason
	}
	if result.Escalation.ShouldEscalate {
		escalationType := result.Escalation.Type
		msg.EscalationType = &escalationType
	}
	if err := h.convRepo.SaveMessage(c.Request.Context(), msg); err != nil {
		h.logger.Error("Failed to save user message", zap.Error(err), zap.Int64("conversation_id", conversationID))
	}
}

func (h *chatHandler) saveAssistantMessage(c *gin.Context, conversationID int64, content string, blocked bool) {
	msg := &models.ChatMessage{
		ConversationID: conversationID,
		Role:           "assistant",
		Content:        content,
		Blocked:        blocked,
	}
	if err := h.convRepo.SaveMessage(c.Request.Context(), msg); err != nil {
		h.logger.Error("Failed to save assistant message", zap.Error(err), zap.Int64("conversation_id", conversationID))
	}
}
