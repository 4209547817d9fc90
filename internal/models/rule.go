package models

import "time"

// Rule types as stored in the 'rules' table.
const (
	RuleTypeBlockedKeyword    = "blocked_keyword"
	RuleTypeEscalationKeyword = "escalation_keyword"
	RuleTypeRegexPattern      = "regex_pattern"
	RuleTypeAllowedTopic      = "allowed_topic"
)

// Actions a rule can request when it matches.
const (
	ActionBlock    = "block"
	ActionEscalate = "escalate"
	ActionFlag     = "flag"
	ActionWarn     = "warn"
)

// Rule represents a safety rule stored in the 'rules' table.
type Rule struct {
	ID          int64     `db:"id" json:"id"`
	RuleType    string    `db:"rule_type" json:"rule_type"`
	Category    string    `db:"category" json:"category"`
	Value       string    `db:"value" json:"value"`
	Action      string    `db:"action" json:"action"`
	Priority    int       `db:"priority" json:"priority"`
	Enabled     bool      `db:"enabled" json:"enabled"`
	Description string    `db:"description" json:"description"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ModerationThreshold maps a moderation category to a score threshold and action.
type ModerationThreshold struct {
	ID        int64     `db:"id" json:"id"`
	Category  string    `db:"category" json:"category"`
	Threshold float64   `db:"threshold" json:"threshold"`
	Action    string    `db:"action" json:"action"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// EscalationKeywordSet holds the keywords for one escalation category.
// Keywords are stored as a comma-separated list in Postgres and split on read.
type EscalationKeywordSet struct {
	ID        int64     `db:"id" json:"id"`
	Category  string    `db:"category" json:"category"`
	Keywords  string    `db:"keywords" json:"keywords"`
	Priority  int       `db:"priority" json:"priority"`
	Enabled   bool      `db:"enabled" json:"enabled"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// SystemSetting is a key/value row in the 'system_settings' table.
type SystemSetting struct {
	Key       string    `db:"key" json:"key"`
	Value     string    `db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
