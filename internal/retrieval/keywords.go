package retrieval

import (
	"strings"
	"unicode"
)

// stopWords holds Portuguese articles, prepositions and conjunctions.
// Tokens of two runes or fewer are dropped before this set is consulted.
var stopWords = map[string]struct{}{
	// articles and contractions
	"uma": {}, "uns": {}, "umas": {}, "das": {}, "dos": {}, "nas": {}, "nos": {},
	"aos": {}, "num": {}, "numa": {}, "nuns": {}, "numas": {}, "dum": {}, "duma": {},
	"pelo": {}, "pela": {}, "pelos": {}, "pelas": {},
	"neste": {}, "nesta": {}, "nesse": {}, "nessa": {}, "naquele": {}, "naquela": {},
	"deste": {}, "desta": {}, "desse": {}, "dessa": {}, "daquele": {}, "daquela": {},
	// prepositions
	"ante": {}, "após": {}, "apos": {}, "até": {}, "ate": {}, "com": {}, "contra": {},
	"desde": {}, "entre": {}, "para": {}, "pra": {}, "perante": {}, "por": {},
	"sem": {}, "sob": {}, "sobre": {}, "trás": {}, "tras": {},
	// conjunctions
	"mas": {}, "porém": {}, "porem": {}, "contudo": {}, "todavia": {}, "entretanto": {},
	"que": {}, "porque": {}, "pois": {}, "como": {}, "quando": {}, "nem": {},
	"logo": {}, "portanto": {}, "embora": {}, "caso": {}, "conforme": {},
	"também": {}, "tambem": {}, "enquanto": {}, "então": {}, "entao": {},
}

const minKeywordRunes = 3

// Keywords returns the significant words of text: lowercased, punctuation
// removed, tokens of two runes or fewer and stop words dropped, duplicates
// removed keeping the first occurrence.
func Keywords(text string) []string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsMark(r), unicode.IsSpace(r), r == '_':
			return r
		default:
			return -1
		}
	}, strings.ToLower(text))

	seen := map[string]struct{}{}
	var out []string
	for _, tok := range strings.Fields(cleaned) {
		if len([]rune(tok)) < minKeywordRunes {
			continue
		}
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}
	return out
}

// KeywordOverlap is |K(query) ∩ K(candidate)| / |K(query)|, or 0 when the
// query has no keywords.
func KeywordOverlap(query, candidate string) float64 {
	q := Keywords(query)
	if len(q) == 0 {
		return 0
	}
	c := map[string]struct{}{}
	for _, k := range Keywords(candidate) {
		c[k] = struct{}{}
	}
	shared := 0
	for _, k := range q {
		if _, ok := c[k]; ok {
			shared++
		}
	}
	return float64(shared) / float64(len(q))
}
