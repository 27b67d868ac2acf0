// Package names канонизирует отображаемые имена игроков. Normalize даёт то
// самое единственное место нормализации: по его результату строится
// уникальный ключ norm_key в таблице players, так что любое расхождение
// между нормализацией и ключом хранилища приводит к дублям игроков.
package names

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks decomposes to NFD and drops combining diacritical marks,
// turning "müller" into "muller" and "żółty" into "zolty"... almost: see
// baseFold below.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)))

// spaceFold maps non-breaking spaces and every dash variant to a plain
// space before whitespace collapsing.
var spaceFold = strings.NewReplacer(
	" ", " ", // no-break space
	" ", " ", // figure space
	" ", " ", // narrow no-break space
	"-", " ",
	"‐", " ",
	"‑", " ",
	"‒", " ",
	"–", " ",
	"—", " ",
	"―", " ",
	"−", " ",
)

// baseFold handles precomposed letters that have no diacritic-only NFD
// decomposition, so stripMarks leaves them alone. Polish ł is the common
// offender in our rosters.
var baseFold = strings.NewReplacer(
	"ł", "l",
	"đ", "d",
)

// Normalize canonicalizes a raw display name into the comparable key used
// for player deduplication. Deterministic and pure; returns "" for input
// consisting of symbols/whitespace only; callers must reject empty keys.
func Normalize(raw string) string {
	s := strings.ToLower(raw)
	s = spaceFold.Replace(s)
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	s = baseFold.Replace(s)
	// Fields collapses runs of any unicode whitespace and trims.
	return strings.Join(strings.Fields(s), " ")
}

// SplitFull splits a raw name into given and family parts: the last
// whitespace-delimited token is the family name, everything before it the
// given name. A single-token name yields an empty family name.
func SplitFull(raw string) (given, family string) {
	fields := strings.Fields(raw)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
}
