package answer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/mozillazg/go-unidecode"
	"go.uber.org/zap"

	"trivia-service/internal/logging"
)

var numeralPattern = regexp.MustCompile(`[0-9]+(?:[.,][0-9]+)?`)

var symbolWords = [][2]string{{"&", "and"}, {"%", "percent"}}

var leadingArticles = []string{"a ", "an ", "the "}

const punctuation = `'(),"-.`

type stage struct {
	name  string
	apply func(string) ([]string, error)
}

var stages = []stage{
	{name: "transliterate", apply: transliterateStage},
	{name: "numbers", apply: numbersStage},
	{name: "symbols", apply: symbolsStage},
	{name: "articles", apply: articlesStage},
	{name: "whitespace", apply: func(s string) ([]string, error) { return []string{removeSpaces(s)}, nil }},
	{name: "punctuation", apply: func(s string) ([]string, error) { return []string{removePunctuation(s)}, nil }},
}

// Normalizer produces the set of acceptable spellings of an answer.
type Normalizer struct {
	logger *zap.SugaredLogger
}

func NewNormalizer(logger *zap.SugaredLogger) *Normalizer {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Normalizer{logger: logger.Named("answer.normalizer")}
}

// Variants returns the lowercased input followed by every variant the stages add.
// A stage that fails for one variant is logged and skipped for that variant only.
func (n *Normalizer) Variants(raw string) []string {
	seed := strings.ToLower(raw)
	variants := []string{seed}
	seen := map[string]struct{}{seed: {}}

	for _, st := range stages {
		current := append([]string(nil), variants...)
		for _, v := range current {
			added, err := n.run(st, v)
			if err != nil {
				n.logger.Warnw("answer variant stage failed", "stage", st.name, "variant", v, "error", err)
				continue
			}
			for _, a := range added {
				if _, ok := seen[a]; ok {
					continue
				}
				seen[a] = struct{}{}
				variants = append(variants, a)
			}
		}
	}
	return variants
}

func (n *Normalizer) run(st stage, v string) (added []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return st.apply(v)
}

// transliterateStage adds the ASCII spelling, so smart quotes, dashes and
// non-Latin scripts meet plain keyboard input.
func transliterateStage(s string) ([]string, error) {
	out := unidecode.Unidecode(s)
	if out == s {
		return nil, nil
	}
	return []string{out}, nil
}

func numbersStage(s string) ([]string, error) {
	var spellErr error
	out := numeralPattern.ReplaceAllStringFunc(s, func(numeral string) string {
		words, err := spellNumber(numeral)
		if err != nil {
			spellErr = err
			return numeral
		}
		return words
	})
	if spellErr != nil {
		return nil, spellErr
	}
	return []string{out}, nil
}

func symbolsStage(s string) ([]string, error) {
	var out []string
	for _, pair := range symbolWords {
		if strings.Contains(s, pair[0]) {
			out = append(out, strings.ReplaceAll(s, pair[0], pair[1]))
		}
	}
	return out, nil
}

func articlesStage(s string) ([]string, error) {
	var out []string
	for _, article := range leadingArticles {
		if strings.HasPrefix(s, article) {
			out = append(out, s[len(article):])
		}
	}
	return out, nil
}

func removeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "")
}

func removePunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(punctuation, r) {
			return -1
		}
		return r
	}, s)
}
