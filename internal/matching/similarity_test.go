package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical", a: "acme", b: "acme", want: 1},
		{name: "one edit in five", a: "smith", b: "smyth", want: 0.8},
		{name: "one insert in four", a: "jon", b: "john", want: 0.75},
		{name: "classic kitten sitting", a: "kitten", b: "sitting", want: 4.0 / 7.0},
		{name: "nothing shared", a: "abc", b: "xyz", want: 0},
		{name: "empty left", a: "", b: "acme", want: 0},
		{name: "empty right", a: "acme", b: "", want: 0},
		{name: "both empty", a: "", b: "", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, stringSimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestCompanySimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "same core different suffixes", a: "Acme Inc.", b: "ACME INCORPORATED", want: 1},
		{name: "corp vs llc", a: "Acme Corp", b: "Acme LLC", want: 1},
		{name: "unrelated companies", a: "Acme Inc", b: "Initech LLC", want: stringSimilarity("acme", "initech")},
		{name: "empty side never matches", a: "", b: "Acme Inc", want: 0},
		{name: "bare suffix is kept as the core", a: "Inc.", b: "INC", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CompanySimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestNameSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want float64
	}{
		{name: "identical names", a: "John Smith", b: "John Smith", want: 1},
		{name: "nickname short form", a: "Bob", b: "Robert", want: 1},
		{name: "two short forms of one name", a: "Bobby", b: "Bob", want: 1},
		{name: "nickname with matching surname", a: "Bob Jones", b: "Robert Jones", want: 1},
		{name: "single strong surname token carries", a: "Smith", b: "Jane Smith", want: 1},
		{name: "nickname via table beats raw distance", a: "Jon Smyth", b: "John Davies", want: 1},
		{name: "best pair wins over average", a: "Alice Smyth", b: "Bertha Smith", want: 0.8},
		{name: "token punctuation trimmed", a: "smith,", b: "Smith", want: 1},
		{name: "no tokens", a: "", b: "John", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, NameSimilarity(tt.a, tt.b), 0.0001)
		})
	}
}

func TestNameSimilarity_IsMaxNotAverage(t *testing.T) {
	// A perfect surname match must not be dragged down by a weak first
	// name pair.
	full := NameSimilarity("Xavier Smith", "Yolanda Smith")
	assert.InDelta(t, 1.0, full, 0.0001)
}
