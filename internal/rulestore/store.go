package rulestore

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Ugochu266/chatbot-sub001/internal/metrics"
	"github.com/Ugochu266/chatbot-sub001/internal/models"
	"github.com/Ugochu266/chatbot-sub001/internal/repository"
)

// DefaultTTL is used when the rule_cache_ttl_seconds system setting is absent.
const DefaultTTL = 5 * time.Minute

// ttlSettingKey overrides the cache TTL without a redeploy.
const ttlSettingKey = "rule_cache_ttl_seconds"

// CompiledPattern is a regex rule ready for matching.
type CompiledPattern struct {
	Pattern  *regexp.Regexp
	Source   string
	Action   string
	Category string
}

// ThresholdRule is the configured decision for one moderation category.
type ThresholdRule struct {
	Threshold float64
	Action    string
}

// RegexMatch reports the first regex rule that matched.
type RegexMatch struct {
	Matched  bool
	Pattern  string
	Action   string
	Category string
}

// KeywordMatch reports a blocked-keyword containment hit.
type KeywordMatch struct {
	Matched bool
	Keyword string
}

// EscalationMatch is one (category, keyword) escalation hit.
type EscalationMatch struct {
	Category string
	Keyword  string
}

// ModerationDecision is the resolved action for one category score.
type ModerationDecision struct {
	ShouldAct bool
	Action    string
	Threshold float64
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

func (e *cacheEntry[T]) valid(now time.Time) bool {
	return e != nil && now.Before(e.expiresAt)
}

// Store serves the four rule subtypes with TTL caching over the backing store.
// Reads degrade to built-in defaults when the store is unreachable; the second
// return value of every getter reports that degraded state. Fallback values are
// never cached, so the next read retries the real store.
type Store struct {
	repo         repository.RuleRepository
	logger       *zap.Logger
	metrics      *metrics.Metrics
	defaultTTL   time.Duration
	storeTimeout time.Duration

	mu              sync.RWMutex
	regexEntry      *cacheEntry[[]CompiledPattern]
	keywordEntry    *cacheEntry[[]string]
	escalationEntry *cacheEntry[map[string][]string]
	thresholdEntry  *cacheEntry[map[string]ThresholdRule]
}

// New creates a rule store. metrics may be nil (tests).
func New(repo repository.RuleRepository, logger *zap.Logger, m *metrics.Metrics, storeTimeout time.Duration) *Store {
	if storeTimeout <= 0 {
		storeTimeout = 3 * time.Second
	}
	return &Store{
		repo:         repo,
		logger:       logger,
		metrics:      m,
		defaultTTL:   DefaultTTL,
		storeTimeout: storeTimeout,
	}
}

// Invalidate drops all four cache entries. Called by the admin handlers after
// every rule mutation so edits are visible without waiting for TTL expiry.
func (s *Store) Invalidate() {
	s.mu.Lock()
	s.regexEntry = nil
	s.keywordEntry = nil
	s.escalationEntry = nil
	s.thresholdEntry = nil
	s.mu.Unlock()
	s.logger.Info("rule cache invalidated")
}

// GetRegexPatterns returns the compiled regex rules. The bool is true when the
// backing store failed and the built-in fallback set was served instead.
func (s *Store) GetRegexPatterns(ctx context.Context) ([]CompiledPattern, bool) {
	now := time.Now()
	s.mu.RLock()
	if s.regexEntry.valid(now) {
		v := s.regexEntry.value
		s.mu.RUnlock()
		return v, false
	}
	s.mu.RUnlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rows, err := s.repo.ListActiveRegexPatterns(fetchCtx)
	if err != nil {
		s.logger.Warn("rule store unreachable, serving built-in regex patterns", zap.Error(err))
		s.countFallback("regex_patterns")
		return DefaultRegexPatterns(), true
	}

	compiled := make([]CompiledPattern, 0, len(rows))
	for _, rule := range rows {
		re, err := compileCaseInsensitive(rule.Value)
		if err != nil {
			s.logger.Warn("discarding rule with invalid regex",
				zap.Int64("rule_id", rule.ID),
				zap.String("value", rule.Value),
				zap.Error(err))
			continue
		}
		compiled = append(compiled, CompiledPattern{
			Pattern:  re,
			Source:   rule.Value,
			Action:   rule.Action,
			Category: rule.Category,
		})
	}

	ttl := s.ttl(ctx)
	s.mu.Lock()
	s.regexEntry = &cacheEntry[[]CompiledPattern]{value: compiled, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return compiled, false
}

// GetBlockedKeywords returns the blocked-keyword list, lowercased.
func (s *Store) GetBlockedKeywords(ctx context.Context) ([]string, bool) {
	now := time.Now()
	s.mu.RLock()
	if s.keywordEntry.valid(now) {
		v := s.keywordEntry.value
		s.mu.RUnlock()
		return v, false
	}
	s.mu.RUnlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rows, err := s.repo.ListActiveBlockedKeywords(fetchCtx)
	if err != nil {
		s.logger.Warn("rule store unreachable, serving built-in blocked keywords", zap.Error(err))
		s.countFallback("blocked_keywords")
		return DefaultBlockedKeywords(), true
	}

	keywords := make([]string, 0, len(rows))
	for _, rule := range rows {
		keywords = append(keywords, strings.ToLower(rule.Value))
	}

	ttl := s.ttl(ctx)
	s.mu.Lock()
	s.keywordEntry = &cacheEntry[[]string]{value: keywords, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return keywords, false
}

// GetEscalationKeywords returns the category -> keywords map.
func (s *Store) GetEscalationKeywords(ctx context.Context) (map[string][]string, bool) {
	now := time.Now()
	s.mu.RLock()
	if s.escalationEntry.valid(now) {
		v := s.escalationEntry.value
		s.mu.RUnlock()
		return v, false
	}
	s.mu.RUnlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rows, err := s.repo.ListActiveEscalationKeywordSets(fetchCtx)
	if err != nil {
		s.logger.Warn("rule store unreachable, serving built-in escalation keywords", zap.Error(err))
		s.countFallback("escalation_keywords")
		return DefaultEscalationKeywords(), true
	}

	byCategory := make(map[string][]string, len(rows))
	for _, set := range rows {
		for _, kw := range strings.Split(set.Keywords, ",") {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" {
				byCategory[set.Category] = append(byCategory[set.Category], kw)
			}
		}
	}

	ttl := s.ttl(ctx)
	s.mu.Lock()
	s.escalationEntry = &cacheEntry[map[string][]string]{value: byCategory, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return byCategory, false
}

// GetModerationThresholds returns the category -> threshold/action map.
func (s *Store) GetModerationThresholds(ctx context.Context) (map[string]ThresholdRule, bool) {
	now := time.Now()
	s.mu.RLock()
	if s.thresholdEntry.valid(now) {
		v := s.thresholdEntry.value
		s.mu.RUnlock()
		return v, false
	}
	s.mu.RUnlock()

	fetchCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	rows, err := s.repo.ListActiveModerationThresholds(fetchCtx)
	if err != nil {
		s.logger.Warn("rule store unreachable, serving built-in moderation thresholds", zap.Error(err))
		s.countFallback("moderation_thresholds")
		return DefaultModerationThresholds(), true
	}

	thresholds := make(map[string]ThresholdRule, len(rows))
	for _, t := range rows {
		thresholds[t.Category] = ThresholdRule{Threshold: t.Threshold, Action: t.Action}
	}

	ttl := s.ttl(ctx)
	s.mu.Lock()
	s.thresholdEntry = &cacheEntry[map[string]ThresholdRule]{value: thresholds, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
	return thresholds, false
}

// MatchRegex returns the first pattern (store order) matching text.
func (s *Store) MatchRegex(ctx context.Context, text string) (RegexMatch, bool) {
	patterns, degraded := s.GetRegexPatterns(ctx)
	for _, p := range patterns {
		if p.Pattern.MatchString(text) {
			return RegexMatch{Matched: true, Pattern: p.Source, Action: p.Action, Category: p.Category}, degraded
		}
	}
	return RegexMatch{}, degraded
}

// MatchKeywords does a case-insensitive containment check over the blocked list.
func (s *Store) MatchKeywords(ctx context.Context, text string) (KeywordMatch, bool) {
	keywords, degraded := s.GetBlockedKeywords(ctx)
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if kw != "" && strings.Contains(lower, kw) {
			return KeywordMatch{Matched: true, Keyword: kw}, degraded
		}
	}
	return KeywordMatch{}, degraded
}

// MatchEscalationKeywords returns all (category, keyword) pairs contained in
// text. Priority resolution is the caller's job.
func (s *Store) MatchEscalationKeywords(ctx context.Context, text string) ([]EscalationMatch, bool) {
	byCategory, degraded := s.GetEscalationKeywords(ctx)
	lower := strings.ToLower(text)

	// Stable order so tie-breaking downstream is deterministic.
	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	var matches []EscalationMatch
	for _, category := range categories {
		for _, kw := range byCategory[category] {
			if strings.Contains(lower, kw) {
				matches = append(matches, EscalationMatch{Category: category, Keyword: kw})
			}
		}
	}
	return matches, degraded
}

// ResolveModerationAction decides whether a category score crosses its
// configured threshold. Unknown categories get threshold 0.7, action "flag".
func (s *Store) ResolveModerationAction(ctx context.Context, category string, score float64) (ModerationDecision, bool) {
	thresholds, degraded := s.GetModerationThresholds(ctx)
	rule, ok := thresholds[category]
	if !ok {
		rule = ThresholdRule{Threshold: 0.7, Action: models.ActionFlag}
	}
	return ModerationDecision{
		ShouldAct: score >= rule.Threshold,
		Action:    rule.Action,
		Threshold: rule.Threshold,
	}, degraded
}

func (s *Store) ttl(ctx context.Context) time.Duration {
	fetchCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	raw, err := s.repo.GetSystemSetting(fetchCtx, ttlSettingKey)
	if err != nil {
		return s.defaultTTL
	}
	seconds, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || seconds <= 0 {
		s.logger.Warn("ignoring invalid rule_cache_ttl_seconds setting", zap.String("value", raw))
		return s.defaultTTL
	}
	return time.Duration(seconds) * time.Second
}

func (s *Store) countFallback(subtype string) {
	if s.metrics != nil {
		s.metrics.RuleStoreFallbacks.WithLabelValues(subtype).Inc()
	}
}

func compileCaseInsensitive(source string) (*regexp.Regexp, error) {
	if strings.HasPrefix(source, "(?i)") {
		return regexp.Compile(source)
	}
	return regexp.Compile("(?i)" + source)
}
