package encode

import (
	"hash/fnv"
	"strings"
	"unicode"
)

// stopWords are dropped before hashing. Filtering them keeps the hashed
// buckets dominated by content-bearing tokens.
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "be": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "do": true, "does": true,
	"did": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "to": true,
	"of": true, "in": true, "for": true, "on": true, "with": true,
	"at": true, "by": true, "from": true, "as": true, "into": true,
	"through": true, "during": true, "before": true, "after": true,
	"what": true, "where": true, "when": true, "how": true, "which": true,
	"who": true, "whom": true, "this": true, "that": true, "these": true,
	"those": true, "i": true, "me": true, "my": true, "it": true,
	"its": true, "and": true, "but": true, "or": true, "not": true,
}

// Text encodes free text into a unit vector of TextDim via feature
// hashing: each lowercased, stop-word-filtered token is hashed into a
// bucket with non-negative accumulation. No trained vocabulary or
// persisted model is involved, so encoding is reproducible from the text
// alone. Text with no usable tokens encodes to the zero vector.
func (e *Encoder) Text(text string) ([]float32, error) {
	counts := make([]float64, e.cfg.TextDim)
	for _, tok := range tokenize(text) {
		h := fnv.New32a()
		h.Write([]byte(tok))
		counts[int(h.Sum32()%uint32(e.cfg.TextDim))]++
	}
	return toVector(l2Normalize(counts)), nil
}

// tokenize lowercases and splits on non-alphanumeric runes, dropping
// single-rune tokens and stop words.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var toks []string
	for _, f := range fields {
		if len([]rune(f)) < 2 || stopWords[f] {
			continue
		}
		toks = append(toks, f)
	}
	return toks
}
