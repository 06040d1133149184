package matching

import (
	"regexp"
	"strings"
)

// legalSuffixes are stripped from the end of normalized company names.
// Longer entries come first so "incorporated" is consumed before "inc"
// gets a chance to bite into it.
var legalSuffixes = []string{
	"incorporated",
	"international",
	"technologies",
	"corporation",
	"enterprises",
	"holdings",
	"solutions",
	"ventures",
	"partners",
	"limited",
	"company",
	"systems",
	"group",
	"corp",
	"gmbh",
	"inc",
	"llc",
	"llp",
	"ltd",
	"plc",
	"co",
}

var companyPunctPattern = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// NormalizeCompany reduces a company name to its comparable core:
// lowercase, punctuation collapsed to single spaces, legal-entity
// suffixes stripped from the end until none remain. The result is a
// fixpoint, so normalizing twice changes nothing.
func NormalizeCompany(raw string) string {
	s := strings.ToLower(raw)
	s = companyPunctPattern.ReplaceAllString(s, " ")
	s = strings.Join(strings.Fields(s), " ")

	for {
		stripped := stripOneSuffix(s)
		if stripped == s {
			return s
		}
		s = stripped
	}
}

func stripOneSuffix(s string) string {
	for _, suffix := range legalSuffixes {
		if strings.HasSuffix(s, " "+suffix) {
			return strings.TrimSpace(strings.TrimSuffix(s, " "+suffix))
		}
	}
	return s
}
