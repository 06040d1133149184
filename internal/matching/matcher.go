package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"osprey/internal/constants"
	"osprey/internal/matching/roster"
)

// Confidence bands per strategy. Bases and caps put the strategies in
// strictly decreasing order, so a contact found by an earlier strategy
// always outranks its own later findings.
const (
	emailExactConfidence = 98

	domainCompanyBase = 80
	domainCompanyCap  = 95

	nameCompanyBase = 70
	nameCompanyCap  = 84

	companyOnlyBase = 60
	companyOnlyCap  = 75
)

const (
	domainCompanyMinSimilarity = 0.7
	nameMinSimilarity          = 0.6
	companyMinSimilarity       = 0.7
	companyOnlyMinSimilarity   = 0.8
)

// Matcher scores roster contacts against participant labels. It holds
// no mutable state; one instance serves all requests.
type Matcher struct {
	threshold int
}

func NewMatcher(threshold int) *Matcher {
	if threshold <= 0 {
		threshold = constants.ReviewThreshold
	}
	return &Matcher{threshold: threshold}
}

func (m *Matcher) Threshold() int {
	return m.threshold
}

// Match parses the label, runs the four strategies in fixed order and
// merges their candidates into a ranked shortlist.
func (m *Matcher) Match(participant string, contacts []roster.Contact) ParticipantMatchResult {
	parsed := ParseParticipant(participant)

	var candidates []ContactMatch
	candidates = append(candidates, matchEmailExact(parsed, contacts)...)
	candidates = append(candidates, matchEmailDomainCompany(parsed, contacts)...)
	candidates = append(candidates, matchNameCompany(parsed, contacts)...)
	candidates = append(candidates, matchCompanyOnly(parsed, contacts)...)

	matches := rankMatches(candidates)

	return ParticipantMatchResult{
		Participant:         participant,
		Parsed:              parsed,
		SuggestedMatches:    matches,
		RequiresReview:      len(matches) == 0 || matches[0].Confidence < m.threshold,
		ConfidenceThreshold: m.threshold,
	}
}

func matchEmailExact(p ParsedParticipant, contacts []roster.Contact) []ContactMatch {
	if p.Email == "" {
		return nil
	}

	var out []ContactMatch
	for _, c := range contacts {
		if c.Email == "" || !strings.EqualFold(c.Email, p.Email) {
			continue
		}
		out = append(out, ContactMatch{
			ContactID:   c.ID,
			Confidence:  emailExactConfidence,
			MatchMethod: constants.MatchMethodEmailExact,
			Reasoning:   fmt.Sprintf("Email address %s is an exact match", p.Email),
			ContactData: c,
		})
	}
	return out
}

func matchEmailDomainCompany(p ParsedParticipant, contacts []roster.Contact) []ContactMatch {
	if p.Email == "" || p.Company == "" {
		return nil
	}
	domain := emailDomain(p.Email)
	if domain == "" {
		return nil
	}

	var out []ContactMatch
	for _, c := range contacts {
		if c.Email == "" || !strings.EqualFold(emailDomain(c.Email), domain) {
			continue
		}
		sim := CompanySimilarity(p.Company, c.Company)
		if sim <= domainCompanyMinSimilarity {
			continue
		}
		out = append(out, ContactMatch{
			ContactID:   c.ID,
			Confidence:  cappedConfidence(domainCompanyBase, sim*15, domainCompanyCap),
			MatchMethod: constants.MatchMethodEmailDomainCompany,
			Reasoning:   fmt.Sprintf("Email domain %s matches and company names are %d%% similar", domain, percent(sim)),
			ContactData: c,
		})
	}
	return out
}

func matchNameCompany(p ParsedParticipant, contacts []roster.Contact) []ContactMatch {
	if p.Name == "" || p.Company == "" {
		return nil
	}

	var out []ContactMatch
	for _, c := range contacts {
		if c.Name == "" || c.Company == "" {
			continue
		}
		nameSim := NameSimilarity(p.Name, c.Name)
		if nameSim <= nameMinSimilarity {
			continue
		}
		companySim := CompanySimilarity(p.Company, c.Company)
		if companySim <= companyMinSimilarity {
			continue
		}
		combined := 0.6*nameSim + 0.4*companySim
		out = append(out, ContactMatch{
			ContactID:   c.ID,
			Confidence:  cappedConfidence(nameCompanyBase, combined*14, nameCompanyCap),
			MatchMethod: constants.MatchMethodNameCompany,
			Reasoning:   fmt.Sprintf("Name is %d%% similar and company names are %d%% similar", percent(nameSim), percent(companySim)),
			ContactData: c,
		})
	}
	return out
}

func matchCompanyOnly(p ParsedParticipant, contacts []roster.Contact) []ContactMatch {
	if p.Company == "" {
		return nil
	}

	var out []ContactMatch
	for _, c := range contacts {
		if c.Company == "" {
			continue
		}
		sim := CompanySimilarity(p.Company, c.Company)
		if sim <= companyOnlyMinSimilarity {
			continue
		}
		out = append(out, ContactMatch{
			ContactID:   c.ID,
			Confidence:  cappedConfidence(companyOnlyBase, sim*15, companyOnlyCap),
			MatchMethod: constants.MatchMethodCompanyOnly,
			Reasoning:   fmt.Sprintf("Company names are %d%% similar", percent(sim)),
			ContactData: c,
		})
	}
	return out
}

// rankMatches dedupes by contact id keeping the first occurrence, sorts
// by confidence descending and caps the shortlist. First occurrence is
// also the strongest one because strategy bands do not overlap.
func rankMatches(candidates []ContactMatch) []ContactMatch {
	seen := make(map[string]struct{}, len(candidates))
	matches := make([]ContactMatch, 0, len(candidates))
	for _, m := range candidates {
		if _, ok := seen[m.ContactID]; ok {
			continue
		}
		seen[m.ContactID] = struct{}{}
		matches = append(matches, m)
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if len(matches) > constants.MaxSuggestedMatches {
		matches = matches[:constants.MaxSuggestedMatches]
	}
	return matches
}

func cappedConfidence(base int, bonus float64, max int) int {
	confidence := base + int(math.Round(bonus))
	if confidence > max {
		return max
	}
	return confidence
}

func emailDomain(email string) string {
	_, domain, found := strings.Cut(email, "@")
	if !found {
		return ""
	}
	return strings.ToLower(domain)
}

func percent(sim float64) int {
	return int(math.Round(sim * 100))
}
