package matching

// nicknameTable maps formal given names to their common short forms.
// Lookups go both ways, and two short forms of the same formal name
// also resolve to each other through it.
var nicknameTable = map[string][]string{
	"abigail":     {"abby"},
	"alexander":   {"alex", "al"},
	"alexandra":   {"alex", "lexi"},
	"andrew":      {"andy", "drew"},
	"anthony":     {"tony"},
	"benjamin":    {"ben", "benny"},
	"charles":     {"charlie", "chuck"},
	"christopher": {"chris", "topher"},
	"daniel":      {"dan", "danny"},
	"david":       {"dave", "davey"},
	"deborah":     {"deb", "debbie"},
	"donald":      {"don", "donny"},
	"edward":      {"ed", "eddie", "ted"},
	"elizabeth":   {"liz", "beth", "betty", "eliza"},
	"frederick":   {"fred", "freddie"},
	"gregory":     {"greg"},
	"henry":       {"hank", "harry"},
	"james":       {"jim", "jimmy", "jamie"},
	"jennifer":    {"jen", "jenny"},
	"jessica":     {"jess", "jessie"},
	"john":        {"jack", "johnny", "jon"},
	"jonathan":    {"jon", "jonny"},
	"joseph":      {"joe", "joey"},
	"joshua":      {"josh"},
	"katherine":   {"kate", "katie", "kathy", "kat"},
	"kenneth":     {"ken", "kenny"},
	"lawrence":    {"larry"},
	"margaret":    {"maggie", "meg", "peggy"},
	"matthew":     {"matt"},
	"michael":     {"mike", "mikey"},
	"nicholas":    {"nick", "nicky"},
	"patricia":    {"pat", "patty", "tricia"},
	"peter":       {"pete"},
	"raymond":     {"ray"},
	"rebecca":     {"becky", "becca"},
	"richard":     {"rick", "dick", "richie"},
	"robert":      {"rob", "bob", "bobby"},
	"ronald":      {"ron", "ronnie"},
	"samantha":    {"sam"},
	"samuel":      {"sam", "sammy"},
	"stephen":     {"steve"},
	"steven":      {"steve"},
	"susan":       {"sue", "susie"},
	"theodore":    {"ted", "theo", "teddy"},
	"thomas":      {"tom", "tommy"},
	"timothy":     {"tim", "timmy"},
	"victoria":    {"vicky", "tori"},
	"william":     {"will", "bill", "billy", "liam"},
	"zachary":     {"zach"},
}

var nicknameIndex = buildNicknameIndex()

func buildNicknameIndex() map[string][]string {
	index := make(map[string][]string, len(nicknameTable)*3)
	for formal, nicks := range nicknameTable {
		index[formal] = append(index[formal], nicks...)
		for _, nick := range nicks {
			index[nick] = append(index[nick], formal)
		}
	}
	return index
}

// nicknameVariants returns the token plus every name linked to it. An
// unknown token comes back alone.
func nicknameVariants(token string) []string {
	linked := nicknameIndex[token]
	if len(linked) == 0 {
		return []string{token}
	}

	variants := make([]string, 0, len(linked)+1)
	variants = append(variants, token)
	variants = append(variants, linked...)
	return variants
}
