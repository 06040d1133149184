package matching

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// stringSimilarity is 1 - editDistance/longerLength, in [0,1].
func stringSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}

	maxLen := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > maxLen {
		maxLen = n
	}

	dist := levenshtein.ComputeDistance(a, b)
	return 1 - float64(dist)/float64(maxLen)
}

// CompanySimilarity compares two company names after normalization.
// A side that normalizes to nothing never matches.
func CompanySimilarity(a, b string) float64 {
	na := NormalizeCompany(a)
	nb := NormalizeCompany(b)
	if na == "" || nb == "" {
		return 0
	}
	return stringSimilarity(na, nb)
}

// NameSimilarity compares two person names token-wise and returns the
// best token-pair similarity found, not an average. One strong token,
// typically a matched surname, is treated as sufficient signal.
func NameSimilarity(a, b string) float64 {
	tokensA := nameTokens(a)
	tokensB := nameTokens(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	best := 0.0
	for _, ta := range tokensA {
		for _, tb := range tokensB {
			if sim := tokenSimilarity(ta, tb); sim > best {
				best = sim
				if best == 1 {
					return 1
				}
			}
		}
	}
	return best
}

// tokenSimilarity takes the best score across the two tokens and their
// nickname expansions, so "bob" and "robert" compare as equal.
func tokenSimilarity(a, b string) float64 {
	best := 0.0
	for _, va := range nicknameVariants(a) {
		for _, vb := range nicknameVariants(b) {
			if sim := stringSimilarity(va, vb); sim > best {
				best = sim
				if best == 1 {
					return 1
				}
			}
		}
	}
	return best
}

func nameTokens(name string) []string {
	fields := strings.Fields(strings.ToLower(name))
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		token := strings.TrimFunc(f, func(r rune) bool {
			return unicode.IsPunct(r) || unicode.IsSymbol(r)
		})
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}
