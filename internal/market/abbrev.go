package market

import (
	"regexp"
	"strings"
)

// titlePattern extracts "Away at Home[: suffix]" from an exchange market
// title, e.g. "Gardner-Webb at Radford: Total Points".
var titlePattern = regexp.MustCompile(`^(.+?) at (.+?)(?::.*)?$`)

// ParseGameTitle splits a market title into (away, home) team names.
// Returns false if the title doesn't match the expected pattern.
func ParseGameTitle(title string) (away, home string, ok bool) {
	m := titlePattern.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "", "", false
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
}

// campusPrefixes are common leading tokens that SportsData-style abbreviations
// sometimes fold into the following word (e.g. "UMass" -> "Mass" for the
// compound strategy below).
var campusPrefixes = []string{"U"}

// cleanLetters uppercases s and strips everything but letters.
func cleanLetters(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func splitWords(name string) []string {
	fields := strings.FieldsFunc(name, func(r rune) bool {
		return r == ' ' || r == '-'
	})
	words := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != "" {
			words = append(words, f)
		}
	}
	return words
}

// AbbrevMatchesName reports whether a SportsData-style team abbreviation
// plausibly refers to the given full team name, using a small family of
// fuzzy heuristics. This is intentionally a loose acceptance test, not a
// precise matcher: false positives on truly unrelated names are tolerated
// in trade for catching the wide variety of abbreviation conventions
// real providers use.
func AbbrevMatchesName(abbrev, name string) bool {
	abbrev = cleanLetters(abbrev)
	if abbrev == "" {
		return false
	}
	cleanedName := cleanLetters(name)
	if cleanedName == "" {
		return false
	}

	// Strategy 1: simple prefix (covers exact equality too).
	if strings.HasPrefix(cleanedName, abbrev) {
		return true
	}

	words := splitWords(name)

	// Strategy 2: acronym — first letter of each word.
	if len(words) > 1 {
		var acronym strings.Builder
		for _, w := range words {
			acronym.WriteString(cleanLetters(w[:1]))
		}
		if acronym.String() == abbrev {
			return true
		}
	}

	// Strategy 3: vowel-dropping subsequence — abbrev's letters appear in
	// order somewhere in the full name (short abbreviations are excluded to
	// avoid spurious matches against long names).
	if len(abbrev) >= 4 && isSubsequence(abbrev, cleanedName) {
		return true
	}

	// Strategy 4: compound — word[0][:k] + word[-1][:m], trying both the
	// literal first word and a campus-prefix-stripped variant (UMass -> Mass).
	if len(words) >= 2 {
		first := words[0]
		last := words[len(words)-1]
		firstVariants := []string{first}
		for _, p := range campusPrefixes {
			if strings.HasPrefix(strings.ToUpper(first), p) && len(first) > len(p) {
				firstVariants = append(firstVariants, first[len(p):])
			}
		}
		if matchesCompound(abbrev, firstVariants, last) {
			return true
		}
	}

	// Strategy 5: shared 3-character prefix — a last-resort, lenient
	// fallback for abbreviations that fold in a distinguishing campus name
	// (e.g. LOULAF for "Louisiana").
	if len(abbrev) >= 3 && len(cleanedName) >= 3 && abbrev[:3] == cleanedName[:3] {
		return true
	}

	return false
}

func matchesCompound(abbrev string, firstVariants []string, last string) bool {
	lastVariants := []string{last, dropVowels(last)}
	for _, fv := range firstVariants {
		fvClean := cleanLetters(fv)
		for _, lv := range lastVariants {
			lvClean := cleanLetters(lv)
			for k := 1; k <= 5 && k <= len(fvClean); k++ {
				for m := 1; m <= 5 && m <= len(lvClean); m++ {
					if fvClean[:k]+lvClean[:m] == abbrev {
						return true
					}
				}
			}
		}
	}
	return false
}

func dropVowels(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		switch r {
		case 'A', 'E', 'I', 'O', 'U':
			continue
		}
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// isSubsequence reports whether every character of needle appears, in
// order, somewhere within haystack (not necessarily contiguous).
func isSubsequence(needle, haystack string) bool {
	i := 0
	for j := 0; i < len(needle) && j < len(haystack); j++ {
		if needle[i] == haystack[j] {
			i++
		}
	}
	return i == len(needle)
}
