package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/models"
	"github.com/Ugochu266/chatbot-sub001/internal/repository"
	"github.com/Ugochu266/chatbot-sub001/internal/rulestore"
)

// RulesHandler is the administrative surface for safety rules. Every mutation
// invalidates the rule cache so edits take effect without waiting for TTL expiry.
type RulesHandler interface {
	ListRules(c *gin.Context)
	CreateRule(c *gin.Context)
	UpdateRule(c *gin.Context)
	DeleteRule(c *gin.Context)
	UpsertThreshold(c *gin.Context)
	UpsertEscalationKeywords(c *gin.Context)
}

type rulesHandler struct {
	ruleRepo repository.RuleRepository
	rules    *rulestore.Store
	logger   *zap.Logger
}

func NewRulesHandler(ruleRepo repository.RuleRepository, rules *rulestore.Store, logger *zap.Logger) RulesHandler {
	return &rulesHandler{ruleRepo: ruleRepo, rules: rules, logger: logger}
}

// ListRules handles GET /api/admin/rules
func (h *rulesHandler) ListRules(c *gin.Context) {
	rules, err := h.ruleRepo.ListRules(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to list rules", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve rules"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rules": rules})
}

type RuleRequest struct {
	RuleType    string `json:"rule_type" binding:"required,oneof=blocked_keyword escalation_keyword regex_pattern allowed_topic"`
	Category    string `json:"category" binding:"required"`
	Value       string `json:"value" binding:"required"`
	Action      string `json:"action" binding:"required,oneof=block escalate flag warn"`
	Priority    int    `json:"priority"`
	Enabled     *bool  `json:"enabled"`
	Description string `json:"description"`
}

func (r *RuleRequest) toModel() *models.Rule {
	enabled := true
	if r.Enabled != nil {
		enabled = *r.Enabled
	}
	return &models.Rule{
		RuleType:    r.RuleType,
		Category:    r.Category,
		Value:       r.Value,
		Action:      r.Action,
		Priority:    r.Priority,
		Enabled:     enabled,
		Description: r.Description,
	}
}

// CreateRule handles POST /api/admin/rules
func (h *rulesHandler) CreateRule(c *gin.Context) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := req.toModel()
	if err := h.ruleRepo.CreateRule(c.Request.Context(), rule); err != nil {
		h.logger.Error("Failed to create rule", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create rule"})
		return
	}

	h.rules.Invalidate()
	c.JSON(http.StatusCreated, gin.H{"rule": rule})
}

// UpdateRule handles PUT /api/admin/rules/:id
func (h *rulesHandler) UpdateRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := req.toModel()
	rule.ID = id
	if err := h.ruleRepo.UpdateRule(c.Request.Context(), rule); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
			return
		}
		h.logger.Error("Failed to update rule", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update rule"})
		return
	}

	h.rules.Invalidate()
	c.JSON(http.StatusOK, gin.H{"rule": rule})
}

// DeleteRule handles DELETE /api/admin/rules/:id
func (h *rulesHandler) DeleteRule(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rule ID"})
		return
	}

	if err := h.ruleRepo.DeleteRule(c.Request.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
			return
		}
		h.logger.Error("Failed to delete rule", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete rule"})
		return
	}

	h.rules.Invalidate()
	c.JSON(http.StatusOK, gin.H{"message": "Rule deleted"})
}

type ThresholdRequest struct {
	Category  string   `json:"category" binding:"required"`
	Threshold *float64 `json:"threshold" binding:"required"`
	Action    string   `json:"action" binding:"required,oneof=block escalate flag warn"`
	Enabled   *bool    `json:"enabled"`
}

// UpsertThreshold handles PUT /api/admin/thresholds
func (h *rulesHandler) UpsertThreshold(c *gin.Context) {
	var req ThresholdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if *req.Threshold < 0 || *req.Threshold > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be in [0,1]"})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	threshold := &models.ModerationThreshold{
		Category:  req.Category,
		Threshold: *req.Threshold,
		Action:    req.Action,
		Enabled:   enabled,
	}
	if err := h.ruleRepo.UpsertModerationThreshold(c.Request.Context(), threshold); err != nil {
		h.logger.Error("Failed to upsert threshold", zap.String("category", req.Category), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save threshold"})
		return
	}

	h.rules.Invalidate()
	c.JSON(http.StatusOK, gin.H{"threshold": threshold})
}

type EscalationKeywordsRequest struct {
	Category string `json:"category" binding:"required"`
	Keywords string `json:"keywords" binding:"required"`
	Priority int    `json:"priority"`
	Enabled  *bool  `json:"enabled"`
}

// UpsertEscalationKeywords handles PUT /api/admin/escalation-keywords
func (h *rulesHandler) UpsertEscalationKeywords(c *gin.Context) {
	var req EscalationKeywordsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}
	set := &models.EscalationKeywordSet{
		Category: req.Category,
		Keywords: req.Keywords,
		Priority: req.Priority,
		Enabled:  enabled,
	}
	if err := h.ruleRepo.UpsertEscalationKeywordSet(c.Request.Context(), set); err != nil {
		h.logger.Error("Failed to upsert escalation keywords", zap.String("category", req.Category), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save escalation keywords"})
		return
	}

	h.rules.Invalidate()
	c.JSON(http.StatusOK, gin.H{"keyword_set": set})
}
