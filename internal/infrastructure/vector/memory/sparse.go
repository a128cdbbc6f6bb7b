package memory

import (
	"hash/fnv"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
)

// sparseVector holds hashed term weights with indices in ascending order.
type sparseVector struct {
	Indices []uint32
	Values  []float32
}

const (
	docBM25K1  = 1.2
	queryBM25K = 1.2
	pathBoost  = 1.5
)

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "by": {},
	"for": {}, "from": {}, "in": {}, "is": {}, "it": {}, "of": {}, "on": {}, "or": {},
	"that": {}, "the": {}, "this": {}, "to": {}, "with": {},
}

func encodeDocument(text, path string) sparseVector {
	tf := make(map[uint32]float64, 64)
	addTerms(tf, tokenize(text), 1.0)
	if path != "" {
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		addTerms(tf, tokenize(name), pathBoost)
	}
	return saturate(tf, docBM25K1)
}

func encodeQuery(query string) sparseVector {
	tf := make(map[uint32]float64, 32)
	addTerms(tf, tokenize(query), 1.0)
	return saturate(tf, queryBM25K)
}

func addTerms(dst map[uint32]float64, tokens []string, weight float64) {
	for _, token := range tokens {
		dst[hashToken(token)] += weight
	}
}

func saturate(tf map[uint32]float64, k float64) sparseVector {
	if len(tf) == 0 {
		return sparseVector{}
	}
	indices := make([]uint32, 0, len(tf))
	for idx := range tf {
		indices = append(indices, idx)
	}
	sort.Slice(indices, func(i, j int) bool { return indices[i] < indices[j] })

	values := make([]float32, 0, len(indices))
	for _, idx := range indices {
		f := tf[idx]
		w := (f * (k + 1.0)) / (f + k)
		if math.IsNaN(w) || math.IsInf(w, 0) {
			w = 0
		}
		values = append(values, float32(w))
	}
	return sparseVector{Indices: indices, Values: values}
}

// dot walks both sorted index lists once.
func dot(a, b sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a.Indices) && j < len(b.Indices) {
		switch {
		case a.Indices[i] == b.Indices[j]:
			sum += float64(a.Values[i]) * float64(b.Values[j])
			i++
			j++
		case a.Indices[i] < b.Indices[j]:
			i++
		default:
			j++
		}
	}
	return sum
}

func hashToken(token string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(token))
	if sum := h.Sum32(); sum != 0 {
		return sum
	}
	return 1
}

// tokenize lower-cases s and splits it on anything that is not a letter or a
// digit, dropping stopwords.
func tokenize(s string) []string {
	if s == "" {
		return nil
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if _, stop := stopwords[tok]; !stop {
			out = append(out, tok)
		}
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		flush()
	}
	flush()
	return out
}
