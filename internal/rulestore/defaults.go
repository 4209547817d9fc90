package rulestore

import (
	"regexp"

	"github.com/Ugochu266/chatbot-sub001/internal/models"
)

// Built-in rule sets served when the backing store is unreachable. They are a
// deliberately small floor, not a replacement for the configured rules.

var defaultInjectionPatterns = []struct {
	source   string
	category string
}{
	// instruction override
	{`ignore\s+(all\s+)?(previous|prior|above)\s+(instructions|rules|prompts)`, "instruction_override"},
	{`disregard\s+(all\s+)?(previous|prior|your)\s+(instructions|rules|guidelines)`, "instruction_override"},
	{`forget\s+(everything|all|your)\s+(you|instructions|rules)`, "instruction_override"},
	// role manipulation
	{`you\s+are\s+now\s+(a\s+|an\s+)?\w+\s+(without|with\s+no)\s+(restrictions|limits|rules)`, "role_manipulation"},
	{`pretend\s+(to\s+be|you\s+are)\s+(a\s+|an\s+)?(unrestricted|unfiltered|jailbroken)`, "role_manipulation"},
	{`act\s+as\s+(if\s+you\s+have|though\s+you\s+have)\s+no\s+(filter|restrictions)`, "role_manipulation"},
	// system prompt extraction
	{`(reveal|show|print|repeat|output)\s+(me\s+)?(your\s+)?(system\s+prompt|initial\s+instructions|hidden\s+instructions)`, "prompt_extraction"},
	{`what\s+(is|are)\s+your\s+(system\s+prompt|original\s+instructions)`, "prompt_extraction"},
	// safety bypass
	{`(bypass|disable|turn\s+off|remove)\s+(your\s+)?(safety|content\s+filter|moderation|guardrails)`, "safety_bypass"},
	{`(developer|debug|god)\s+mode\s+(enabled|activated|on)`, "safety_bypass"},
}

var compiledDefaults []CompiledPattern

func init() {
	compiledDefaults = make([]CompiledPattern, 0, len(defaultInjectionPatterns))
	for _, p := range defaultInjectionPatterns {
		compiledDefaults = append(compiledDefaults, CompiledPattern{
			Pattern:  regexp.MustCompile(`(?i)` + p.source),
			Source:   p.source,
			Action:   models.ActionBlock,
			Category: p.category,
		})
	}
}

// DefaultRegexPatterns returns the built-in prompt-injection screen.
func DefaultRegexPatterns() []CompiledPattern {
	return compiledDefaults
}

// DefaultBlockedKeywords returns the built-in blocked-keyword floor.
func DefaultBlockedKeywords() []string {
	return []string{
		"ignore all previous instructions",
		"jailbreak prompt",
		"do anything now",
	}
}

// DefaultEscalationKeywords returns the built-in escalation keyword map.
func DefaultEscalationKeywords() map[string][]string {
	return map[string][]string{
		"crisis": {
			"end my life", "kill myself", "suicide", "suicidal",
			"self harm", "hurt myself", "want to die", "no reason to live",
		},
		"legal": {
			"lawyer", "attorney", "lawsuit", "sue you", "legal action",
			"small claims", "regulator", "data protection complaint",
		},
		"complaint": {
			"speak to a manager", "speak to a human", "talk to a person",
			"real person", "human agent", "file a complaint", "formal complaint",
		},
		"sentiment": {
			"furious", "worst service", "terrible", "awful", "useless",
			"disgusted", "unacceptable", "horrible experience", "fed up",
		},
	}
}

// DefaultModerationThresholds returns the built-in per-category decisions over
// the classifier's fixed taxonomy.
func DefaultModerationThresholds() map[string]ThresholdRule {
	return map[string]ThresholdRule{
		"hate":                   {Threshold: 0.7, Action: models.ActionBlock},
		"hate/threatening":       {Threshold: 0.5, Action: models.ActionBlock},
		"harassment":             {Threshold: 0.8, Action: models.ActionFlag},
		"harassment/threatening": {Threshold: 0.6, Action: models.ActionBlock},
		"self-harm":              {Threshold: 0.4, Action: models.ActionEscalate},
		"self-harm/intent":       {Threshold: 0.3, Action: models.ActionEscalate},
		"self-harm/instructions": {Threshold: 0.3, Action: models.ActionBlock},
		"sexual":                 {Threshold: 0.8, Action: models.ActionFlag},
		"sexual/minors":          {Threshold: 0.1, Action: models.ActionBlock},
		"violence":               {Threshold: 0.8, Action: models.ActionFlag},
		"violence/graphic":       {Threshold: 0.6, Action: models.ActionBlock},
		"illicit":                {Threshold: 0.7, Action: models.ActionFlag},
		"illicit/violent":        {Threshold: 0.5, Action: models.ActionBlock},
	}
}
