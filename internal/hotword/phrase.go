package hotword

import (
	"regexp"
	"strings"
)

var spaceRe = regexp.MustCompile(`\s+`)

// Matcher checks whether a transcript contains a configured wake phrase near
// its start and strips the phrase from the text, leaving the query.
type Matcher struct {
	phrases     [][]string // phrase split into normalized words
	windowWords int        // phrase must begin within this many words
}

// NewMatcher builds a matcher. windowS bounds how deep into the transcript
// the phrase may appear, derived from an assumed ~3 words/second speech rate;
// 0 means strict-prefix semantics (window of the phrase length itself).
func NewMatcher(phrases []string, windowS int) *Matcher {
	m := &Matcher{windowWords: windowS * 3}
	for _, p := range phrases {
		words := strings.Fields(strings.ToLower(strings.TrimSpace(p)))
		if len(words) > 0 {
			m.phrases = append(m.phrases, words)
		}
	}
	if m.windowWords < 3 {
		m.windowWords = 3
	}
	return m
}

func normalizeToken(tok string) string {
	return strings.Trim(strings.ToLower(tok), " ,.!?;:-\"'`~")
}

// Match returns whether the transcript contains a wake phrase within the
// head window, plus the transcript with everything up to and including the
// phrase removed. A transcript that is only the phrase matches with an empty
// remainder.
func (m *Matcher) Match(text string) (bool, string) {
	if strings.TrimSpace(text) == "" {
		return false, ""
	}
	words := strings.Fields(spaceRe.ReplaceAllString(text, " "))
	limit := m.windowWords
	if limit > len(words) {
		limit = len(words)
	}
	for _, phrase := range m.phrases {
		for i := 0; i+len(phrase) <= len(words) && i < limit; i++ {
			if !matchesAt(words, i, phrase) {
				continue
			}
			rest := words[i+len(phrase):]
			stripped := strings.Trim(strings.Join(rest, " "), " ,.!?;:-\"'`~")
			return true, stripped
		}
	}
	return false, ""
}

func matchesAt(words []string, at int, phrase []string) bool {
	for j, pw := range phrase {
		if normalizeToken(words[at+j]) != pw {
			return false
		}
	}
	return true
}
