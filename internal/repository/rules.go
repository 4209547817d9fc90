package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/models"
)

// ErrSettingNotFound is returned when a system setting key does not exist.
var ErrSettingNotFound = errors.New("system setting not found")

// RuleRepository is the backing store for safety rules. List methods return only
// enabled rows; the rule store layer handles caching and fallback.
type RuleRepository interface {
	ListActiveRegexPatterns(ctx context.Context) ([]*models.Rule, error)
	ListActiveBlockedKeywords(ctx context.Context) ([]*models.Rule, error)
	ListActiveEscalationKeywordSets(ctx context.Context) ([]*models.EscalationKeywordSet, error)
	ListActiveModerationThresholds(ctx context.Context) ([]*models.ModerationThreshold, error)
	GetSystemSetting(ctx context.Context, key string) (string, error)

	CreateRule(ctx context.Context, rule *models.Rule) error
	UpdateRule(ctx context.Context, rule *models.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	ListRules(ctx context.Context) ([]*models.Rule, error)
	UpsertModerationThreshold(ctx context.Context, t *models.ModerationThreshold) error
	UpsertEscalationKeywordSet(ctx context.Context, s *models.EscalationKeywordSet) error
}

type ruleRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewRuleRepository(db *sqlx.DB, logger *zap.Logger) RuleRepository {
	return &ruleRepository{db: db, logger: logger}
}

func (r *ruleRepository) ListActiveRegexPatterns(ctx context.Context) ([]*models.Rule, error) {
	var rules []*models.Rule
	query := `SELECT id, rule_type, category, value, action, priority, enabled, description, created_at, updated_at
	          FROM rules WHERE rule_type = $1 AND enabled = true ORDER BY priority DESC, id ASC`
	if err := r.db.SelectContext(ctx, &rules, query, models.RuleTypeRegexPattern); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) ListActiveBlockedKeywords(ctx context.Context) ([]*models.Rule, error) {
	var rules []*models.Rule
	query := `SELECT id, rule_type, category, value, action, priority, enabled, description, created_at, updated_at
	          FROM rules WHERE rule_type = $1 AND enabled = true ORDER BY priority DESC, id ASC`
	if err := r.db.SelectContext(ctx, &rules, query, models.RuleTypeBlockedKeyword); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) ListActiveEscalationKeywordSets(ctx context.Context) ([]*models.EscalationKeywordSet, error) {
	var sets []*models.EscalationKeywordSet
	query := `SELECT id, category, keywords, priority, enabled, updated_at
	          FROM escalation_keyword_sets WHERE enabled = true ORDER BY priority DESC, id ASC`
	if err := r.db.SelectContext(ctx, &sets, query); err != nil {
		return nil, err
	}
	return sets, nil
}

func (r *ruleRepository) ListActiveModerationThresholds(ctx context.Context) ([]*models.ModerationThreshold, error) {
	var thresholds []*models.ModerationThreshold
	query := `SELECT id, category, threshold, action, enabled, updated_at
	          FROM moderation_thresholds WHERE enabled = true ORDER BY category ASC`
	if err := r.db.SelectContext(ctx, &thresholds, query); err != nil {
		return nil, err
	}
	return thresholds, nil
}

func (r *ruleRepository) GetSystemSetting(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM system_settings WHERE key = $1`
	err := r.db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrSettingNotFound
	}
	if err != nil {
		return "", err
	}
	return value, nil
}

func (r *ruleRepository) CreateRule(ctx context.Context, rule *models.Rule) error {
	query := `INSERT INTO rules (rule_type, category, value, action, priority, enabled, description)
	          VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id, created_at, updated_at`
	return r.db.QueryRowxContext(ctx, query, rule.RuleType, rule.Category, rule.Value, rule.Action,
		rule.Priority, rule.Enabled, rule.Description).StructScan(rule)
}

func (r *ruleRepository) UpdateRule(ctx context.Context, rule *models.Rule) error {
	query := `UPDATE rules SET rule_type = $1, category = $2, value = $3, action = $4, priority = $5,
	          enabled = $6, description = $7, updated_at = NOW() WHERE id = $8 RETURNING updated_at`
	return r.db.QueryRowxContext(ctx, query, rule.RuleType, rule.Category, rule.Value, rule.Action,
		rule.Priority, rule.Enabled, rule.Description, rule.ID).StructScan(rule)
}

func (r *ruleRepository) DeleteRule(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM rules WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *ruleRepository) ListRules(ctx context.Context) ([]*models.Rule, error) {
	var rules []*models.Rule
	query := `SELECT id, rule_type, category, value, action, priority, enabled, description, created_at, updated_at
	          FROM rules ORDER BY rule_type ASC, priority DESC, id ASC`
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, err
	}
	return rules, nil
}

func (r *ruleRepository) UpsertModerationThreshold(ctx context.Context, t *models.ModerationThreshold) error {
	query := `INSERT INTO moderation_thresholds (category, threshold, action, enabled)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (category) DO UPDATE SET threshold = $2, action = $3, enabled = $4, updated_at = NOW()
	          RETURNING id, updated_at`
	return r.db.QueryRowxContext(ctx, query, t.Category, t.Threshold, t.Action, t.Enabled).StructScan(t)
}

func (r *ruleRepository) UpsertEscalationKeywordSet(ctx context.Context, s *models.EscalationKeywordSet) error {
	query := `INSERT INTO escalation_keyword_sets (category, keywords, priority, enabled)
	          VALUES ($1, $2, $3, $4)
	          ON CONFLICT (category) DO UPDATE SET keywords = $2, priority = $3, enabled = $4, updated_at = NOW()
	          RETURNING id, updated_at`
	return r.db.QueryRowxContext(ctx, query, s.Category, s.Keywords, s.Priority, s.Enabled).StructScan(s)
}
