package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "already canonical", raw: "jan kowalski", want: "jan kowalski"},
		{name: "mixed case", raw: "Jan KOWALSKI", want: "jan kowalski"},
		{name: "diacritics stripped", raw: "Żółć Müller", want: "zolc muller"},
		{name: "polish l folds", raw: "Michał Wałęsa", want: "michal walesa"},
		{name: "crossed d folds", raw: "Đorđe Petrović", want: "dorde petrovic"},
		{name: "ascii hyphen", raw: "Anna-Maria Nowak", want: "anna maria nowak"},
		{name: "en dash", raw: "Anna–Maria Nowak", want: "anna maria nowak"},
		{name: "em dash", raw: "Anna—Maria Nowak", want: "anna maria nowak"},
		{name: "non-breaking space", raw: "Jan Kowalski", want: "jan kowalski"},
		{name: "narrow no-break space", raw: "Jan Kowalski", want: "jan kowalski"},
		{name: "whitespace run collapsed", raw: "  Jan \t  Kowalski\n", want: "jan kowalski"},
		{name: "empty input", raw: "", want: ""},
		{name: "whitespace only", raw: " \t\n ", want: ""},
		{name: "dashes only", raw: "—–-", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}

func TestNormalizeEquivalence(t *testing.T) {
	// Варианты одного и того же имени обязаны схлопываться в один ключ:
	// иначе в ростере появятся дубли игрока.
	variants := []string{
		"Michał Kowalski-Nowak",
		"michał kowalski nowak",
		"MICHAL  Kowalski–Nowak",
		"Michal Kowalski—Nowak",
	}
	want := Normalize(variants[0])
	assert.Equal(t, "michal kowalski nowak", want)
	for _, variant := range variants[1:] {
		assert.Equal(t, want, Normalize(variant), "variant %q diverged", variant)
	}
}

func TestNormalizeDeterministic(t *testing.T) {
	raw := "Żółta–Łódź  Đöê"
	first := Normalize(raw)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Normalize(raw))
	}
}

func TestSplitFull(t *testing.T) {
	tests := []struct {
		raw        string
		wantGiven  string
		wantFamily string
	}{
		{raw: "Jan Kowalski", wantGiven: "Jan", wantFamily: "Kowalski"},
		{raw: "Anna Maria Nowak", wantGiven: "Anna Maria", wantFamily: "Nowak"},
		{raw: "Madonna", wantGiven: "Madonna", wantFamily: ""},
		{raw: "  Jan   Kowalski  ", wantGiven: "Jan", wantFamily: "Kowalski"},
		{raw: "", wantGiven: "", wantFamily: ""},
		{raw: "   ", wantGiven: "", wantFamily: ""},
	}
	for _, tt := range tests {
		given, family := SplitFull(tt.raw)
		assert.Equal(t, tt.wantGiven, given, "given part of %q", tt.raw)
		assert.Equal(t, tt.wantFamily, family, "family part of %q", tt.raw)
	}
}

func TestSplitThenNormalizeMatchesDirectKey(t *testing.T) {
	// Ключ, построенный из given+family после разбиения, обязан байт в байт
	// совпадать с ключом от исходной строки: на этом держится уникальность
	// norm_key при вставке.
	raws := []string{
		"Jan Kowalski",
		"  Anna  Maria   Nowak ",
		"Michał Wałęsa",
		"Madonna",
	}
	for _, raw := range raws {
		given, family := SplitFull(raw)
		recombined := given
		if family != "" {
			recombined += " " + family
		}
		assert.Equal(t, Normalize(raw), Normalize(recombined), "key mismatch for %q", raw)
	}
}
