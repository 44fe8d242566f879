package client

import (
	"regexp"
	"strings"
)

// BlacklistChecker matches captured text against configured blacklisted
// phrases. Matching is case-insensitive and on word boundaries, so "class"
// does not trip a "lass" phrase, and separator variants ("team-site",
// "team_site") match a "team site" phrase.
type BlacklistChecker struct {
	phrases  []string
	patterns []*regexp.Regexp
}

// NewBlacklistChecker compiles checkers for the given phrases. Blank phrases
// are ignored.
func NewBlacklistChecker(phrases []string) *BlacklistChecker {
	c := &BlacklistChecker{}
	for _, phrase := range phrases {
		normalized := normalizeText(phrase)
		if normalized == "" {
			continue
		}
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(normalized) + `\b`)
		c.phrases = append(c.phrases, phrase)
		c.patterns = append(c.patterns, pattern)
	}
	return c
}

// Check returns the first blacklisted phrase found in the text, or "" when
// the text is clean.
func (c *BlacklistChecker) Check(text string) string {
	normalized := normalizeText(text)
	for i, pattern := range c.patterns {
		if pattern.MatchString(normalized) {
			return c.phrases[i]
		}
	}
	return ""
}

var separatorRun = regexp.MustCompile(`[-_./\\]+`)
var spaceRun = regexp.MustCompile(`\s+`)

// normalizeText folds separator characters to spaces so phrase matching
// catches dashed and slashed spellings.
func normalizeText(text string) string {
	text = separatorRun.ReplaceAllString(text, " ")
	text = spaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
