package matching

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

// companyPatterns are tried in order against the label with the email
// already removed; the first hit wins. The whole matched span is cut
// from the remainder so pattern scaffolding never leaks into the name.
var companyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bfrom\s+(.+)\z`),
	regexp.MustCompile(`\(([^)]*)\)\s*\z`),
	regexp.MustCompile(`@\s*([^@]+)\z`),
	regexp.MustCompile(`\s-\s*(.+)\z`),
}

var (
	nameJunkPattern   = regexp.MustCompile(`[<>\[\]{}()"',;:|]+`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ParseParticipant splits a noisy human-typed label like
// "John Smith from Acme Inc <john@acme.com>" into name, email and
// company parts. All three are best-effort and may come back empty.
func ParseParticipant(raw string) ParsedParticipant {
	var parsed ParsedParticipant

	remainder := strings.TrimSpace(raw)

	if loc := emailPattern.FindStringIndex(remainder); loc != nil {
		parsed.Email = remainder[loc[0]:loc[1]]
		remainder = remainder[:loc[0]] + remainder[loc[1]:]
	}

	for _, pattern := range companyPatterns {
		m := pattern.FindStringSubmatchIndex(remainder)
		if m == nil {
			continue
		}
		company := cleanupText(remainder[m[2]:m[3]])
		if company == "" {
			continue
		}
		parsed.Company = company
		remainder = remainder[:m[0]] + remainder[m[1]:]
		break
	}

	parsed.Name = cleanupText(remainder)
	return parsed
}

// cleanupText drops brackets, quotes and leftover separators and
// collapses runs of whitespace.
func cleanupText(s string) string {
	s = nameJunkPattern.ReplaceAllString(s, " ")
	s = whitespacePattern.ReplaceAllString(s, " ")
	return strings.Trim(s, " -@.")
}
