// Package fuzzy implements the string similarity scores used to resolve noisy
// symptom input: a Levenshtein based ratio, a token order insensitive variant
// and a partial (substring window) variant. All scores are integers in [0,100].
package fuzzy

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agext/levenshtein"
)

// indelParams makes a substitution cost the same as a delete plus an insert,
// so the distance counts characters outside the longest common subsequence.
var indelParams = levenshtein.NewParams().SubCost(2)

// perfectWindow is the raw ratio above which a partial window counts as a full hit.
const perfectWindow = 0.995

// Process lowercases s, turns every rune that is not a letter, digit or
// underscore into a space and trims the result.
func Process(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if isWordRune(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, s))
}

// processASCII is Process after dropping every non ASCII rune.
func processASCII(s string) string {
	s = strings.Map(func(r rune) rune {
		if r >= utf8.RuneSelf {
			return -1
		}
		return r
	}, s)
	return Process(s)
}

// Ratio scores how similar a and b are, 100 meaning identical.
func Ratio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}
	return toScore(rawRatio(a, b))
}

// TokenSortRatio is Ratio over the processed, alphabetically sorted tokens of
// each string, so word order does not matter.
func TokenSortRatio(a, b string) int {
	return Ratio(SortTokens(a), SortTokens(b))
}

// PartialRatio scores the shorter string against its best aligned window in
// the longer one, so a prefix or fragment of a phrase scores high.
func PartialRatio(a, b string) int {
	if a == b {
		return 100
	}
	if a == "" || b == "" {
		return 0
	}

	shorter, longer := []rune(a), []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	short := string(shorter)

	best := 0.0
	for start := 0; start+len(shorter) <= len(longer); start++ {
		r := rawRatio(short, string(longer[start:start+len(shorter)]))
		if r > perfectWindow {
			return 100
		}
		if r > best {
			best = r
		}
	}
	return toScore(best)
}

// Distance returns the plain edit distance between a and b.
func Distance(a, b string) int {
	return levenshtein.Distance(a, b, nil)
}

func rawRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	d := levenshtein.Distance(a, b, indelParams)
	return float64(total-d) / float64(total)
}

// SortTokens processes s (ASCII only), sorts its tokens and joins them with
// single spaces. TokenSortRatio(a, b) == Ratio(SortTokens(a), SortTokens(b)).
func SortTokens(s string) string {
	tokens := strings.Fields(processASCII(s))
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// toScore rounds half to even, the way the scores were calibrated.
func toScore(r float64) int {
	return int(math.RoundToEven(100 * r))
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
