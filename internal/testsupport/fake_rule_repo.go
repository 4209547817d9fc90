package testsupport

import (
	"context"
	"sync"

	"github.com/Ugochu266/chatbot-sub001/internal/models"
	"github.com/Ugochu266/chatbot-sub001/internal/repository"
)

// FakeRuleRepo is an in-memory RuleRepository for tests. Setting Err makes
// every list call fail, simulating a backing-store outage. Call counters track
// how often the store actually hits the backing store.
type FakeRuleRepo struct {
	mu sync.Mutex

	RegexRules  []*models.Rule
	Keywords    []*models.Rule
	KeywordSets []*models.EscalationKeywordSet
	Thresholds  []*models.ModerationThreshold
	Settings    map[string]string

	Err error

	RegexCalls     int
	KeywordCalls   int
	SetCalls       int
	ThresholdCalls int
}

var _ repository.RuleRepository = (*FakeRuleRepo)(nil)

func (f *FakeRuleRepo) ListActiveRegexPatterns(_ context.Context) ([]*models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RegexCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.RegexRules, nil
}

func (f *FakeRuleRepo) ListActiveBlockedKeywords(_ context.Context) ([]*models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeywordCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Keywords, nil
}

func (f *FakeRuleRepo) ListActiveEscalationKeywordSets(_ context.Context) ([]*models.EscalationKeywordSet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.SetCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.KeywordSets, nil
}

func (f *FakeRuleRepo) ListActiveModerationThresholds(_ context.Context) ([]*models.ModerationThreshold, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ThresholdCalls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Thresholds, nil
}

func (f *FakeRuleRepo) GetSystemSetting(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return "", f.Err
	}
	if v, ok := f.Settings[key]; ok {
		return v, nil
	}
	return "", repository.ErrSettingNotFound
}

func (f *FakeRuleRepo) SetErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

func (f *FakeRuleRepo) CreateRule(_ context.Context, rule *models.Rule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch rule.RuleType {
	case models.RuleTypeRegexPattern:
		f.RegexRules = append(f.RegexRules, rule)
	case models.RuleTypeBlockedKeyword:
		f.Keywords = append(f.Keywords, rule)
	}
	return nil
}

func (f *FakeRuleRepo) UpdateRule(_ context.Context, _ *models.Rule) error { return nil }
func (f *FakeRuleRepo) DeleteRule(_ context.Context, _ int64) error        { return nil }

func (f *FakeRuleRepo) ListRules(_ context.Context) ([]*models.Rule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	all := make([]*models.Rule, 0, len(f.RegexRules)+len(f.Keywords))
	all = append(all, f.RegexRules...)
	all = append(all, f.Keywords...)
	return all, nil
}

func (f *FakeRuleRepo) UpsertModerationThreshold(_ context.Context, t *models.ModerationThreshold) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Thresholds = append(f.Thresholds, t)
	return nil
}

func (f *FakeRuleRepo) UpsertEscalationKeywordSet(_ context.Context, s *models.EscalationKeywordSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.KeywordSets = append(f.KeywordSets, s)
	return nil
}
