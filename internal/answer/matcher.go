package answer

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultMinChars is the length floor applied when none is configured.
const DefaultMinChars = 5

// Matcher decides whether a free-text attempt is an acceptable answer.
//
// Every submitted variant is compared to every canonical variant: the pair matches
// when the trimmed submission is at least min(MinChars, len(canonical variant)) runes
// long and is contained in the canonical variant. Short fragments of the canonical
// answer are accepted once they clear the floor.
type Matcher struct {
	minChars   int
	normalizer *Normalizer
}

func NewMatcher(minChars int, logger *zap.SugaredLogger) *Matcher {
	if minChars <= 0 {
		minChars = DefaultMinChars
	}
	return &Matcher{minChars: minChars, normalizer: NewNormalizer(logger)}
}

// MinChars reports the configured length floor.
func (m *Matcher) MinChars() int {
	return m.minChars
}

func (m *Matcher) Matches(submitted, canonical string) bool {
	canonicalVariants := m.normalizer.Variants(canonical)
	submittedVariants := m.normalizer.Variants(submitted)

	for _, c := range canonicalVariants {
		threshold := min(m.minChars, utf8.RuneCountInString(c))
		for _, s := range submittedVariants {
			s = strings.TrimSpace(s)
			if utf8.RuneCountInString(s) >= threshold && strings.Contains(c, s) {
				return true
			}
		}
	}
	return false
}

// Matches is a convenience wrapper using the default logger.
func Matches(submitted, canonical string, minChars int) bool {
	return NewMatcher(minChars, nil).Matches(submitted, canonical)
}
