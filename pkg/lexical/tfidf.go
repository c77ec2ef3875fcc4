// Package lexical provides a TF-IDF vector index over a fixed set of short
// documents. It is fit once and then only read, so it is safe for concurrent use.
package lexical

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// tokenPattern keeps runs of two or more word characters.
var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]{2,}`)

// Index holds one l2-normalised TF-IDF vector per document.
type Index struct {
	terms   map[string]int
	idf     []float64
	vectors []sparseVector
}

// sparseVector is sorted by term id so sums run in a fixed order.
type sparseVector []weight

type weight struct {
	term  int
	value float64
}

// Hit is the best scoring document for a query.
type Hit struct {
	Doc   int
	Score float64
}

// Fit builds an index over docs; document i keeps position i.
func Fit(docs []string) *Index {
	idx := &Index{terms: make(map[string]int)}

	docFreq := make([]int, 0)
	tokenized := make([][]string, len(docs))
	for i, doc := range docs {
		tokens := Tokenize(doc)
		tokenized[i] = tokens
		seen := make(map[int]bool, len(tokens))
		for _, tok := range tokens {
			id, ok := idx.terms[tok]
			if !ok {
				id = len(idx.terms)
				idx.terms[tok] = id
				docFreq = append(docFreq, 0)
			}
			if !seen[id] {
				seen[id] = true
				docFreq[id]++
			}
		}
	}

	n := float64(len(docs))
	idx.idf = make([]float64, len(docFreq))
	for id, df := range docFreq {
		idx.idf[id] = math.Log((1+n)/(1+float64(df))) + 1
	}

	idx.vectors = make([]sparseVector, len(docs))
	for i, tokens := range tokenized {
		idx.vectors[i] = idx.weigh(tokens)
	}
	return idx
}

// Tokenize lowercases text and splits it into index terms.
func Tokenize(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Len returns the number of indexed documents.
func (idx *Index) Len() int {
	return len(idx.vectors)
}

// Terms returns the number of distinct indexed terms.
func (idx *Index) Terms() int {
	return len(idx.terms)
}

// Best returns the document with the highest cosine similarity to query.
// Ties go to the lowest document position. A query sharing no term with the
// index scores 0 against document 0.
func (idx *Index) Best(query string) Hit {
	q := idx.weigh(Tokenize(query))
	best := Hit{}
	if len(q) == 0 || len(idx.vectors) == 0 {
		return best
	}
	for i, doc := range idx.vectors {
		if s := dot(q, doc); s > best.Score {
			best = Hit{Doc: i, Score: s}
		}
	}
	if best.Score > 1 {
		best.Score = 1
	}
	return best
}

// weigh turns tokens into an l2-normalised TF-IDF vector, dropping unknown terms.
func (idx *Index) weigh(tokens []string) sparseVector {
	counts := make(map[int]float64, len(tokens))
	for _, tok := range tokens {
		if id, ok := idx.terms[tok]; ok {
			counts[id]++
		}
	}
	vec := make(sparseVector, 0, len(counts))
	for id, tf := range counts {
		vec = append(vec, weight{term: id, value: tf * idx.idf[id]})
	}
	sort.Slice(vec, func(i, j int) bool { return vec[i].term < vec[j].term })

	var norm float64
	for _, w := range vec {
		norm += w.value * w.value
	}
	if norm == 0 {
		return vec
	}
	norm = math.Sqrt(norm)
	for i := range vec {
		vec[i].value /= norm
	}
	return vec
}

// dot merges two sorted vectors.
func dot(a, b sparseVector) float64 {
	var sum float64
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].term == b[j].term:
			sum += a[i].value * b[j].value
			i++
			j++
		case a[i].term < b[j].term:
			i++
		default:
			j++
		}
	}
	return sum
}
