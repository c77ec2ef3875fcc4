/*
Package vocab holds the two immutable lookup tables every prediction depends on:
the ordered symptom vocabulary and the disease label codec.

The vocabulary order is the feature order of the classifier, and the codec
order is its class order. Both orders are exposed through explicit index
lookups so callers never rely on slice positions directly:

	v, err := vocab.New([]string{"itching", "skin rash", "chills"})
	i, ok := v.Index("skin rash") // 1, true

	c, err := vocab.NewLabelCodec([]string{"Allergy", "Fungal infection"})
	name, ok := c.Decode(1) // "Fungal infection", true

Nothing in this package mutates after construction, so a single instance is
shared by all requests without locking.
*/
package vocab

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/tchap/go-patricia/v2/patricia"
)

var (
	// ErrInvalidVocabulary is returned when a symptom list cannot back a feature space.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
	// ErrInvalidCodec is returned when a disease list cannot back a label codec.
	ErrInvalidCodec = errors.New("invalid label codec")
)

// Vocabulary is the ordered, closed set of known symptoms.
type Vocabulary struct {
	symptoms []string
	index    *patricia.Trie
}

// New builds a vocabulary from the given symptoms, preserving their order.
// Entries must be non-empty, unique, lowercase and trimmed, which is the form
// matcher input takes before lookup.
func New(symptoms []string) (*Vocabulary, error) {
	if len(symptoms) == 0 {
		return nil, fmt.Errorf("%w: no symptoms", ErrInvalidVocabulary)
	}
	v := &Vocabulary{
		symptoms: make([]string, len(symptoms)),
		index:    patricia.NewTrie(),
	}
	for i, s := range symptoms {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%w: empty symptom at position %d", ErrInvalidVocabulary, i)
		}
		if s != strings.ToLower(strings.TrimSpace(s)) {
			return nil, fmt.Errorf("%w: symptom %q at position %d is not lowercase and trimmed", ErrInvalidVocabulary, s, i)
		}
		if !v.index.Insert(patricia.Prefix(s), i) {
			return nil, fmt.Errorf("%w: duplicate symptom %q at position %d", ErrInvalidVocabulary, s, i)
		}
		v.symptoms[i] = s
	}
	return v, nil
}

// Len returns the vocabulary size, which is also the feature vector length.
func (v *Vocabulary) Len() int {
	return len(v.symptoms)
}

// At returns the symptom at position i.
func (v *Vocabulary) At(i int) (string, bool) {
	if i < 0 || i >= len(v.symptoms) {
		return "", false
	}
	return v.symptoms[i], true
}

// Index returns the feature position of symptom.
func (v *Vocabulary) Index(symptom string) (int, bool) {
	item := v.index.Get(patricia.Prefix(symptom))
	if item == nil {
		return 0, false
	}
	return item.(int), true
}

// Contains reports whether symptom is a vocabulary member.
func (v *Vocabulary) Contains(symptom string) bool {
	_, ok := v.Index(symptom)
	return ok
}

// Symptoms returns a copy of the ordered symptom list.
func (v *Vocabulary) Symptoms() []string {
	out := make([]string, len(v.symptoms))
	copy(out, v.symptoms)
	return out
}

// WithPrefix returns the symptoms starting with prefix, in vocabulary order.
func (v *Vocabulary) WithPrefix(prefix string) []string {
	var positions []int
	err := v.index.VisitSubtree(patricia.Prefix(prefix), func(_ patricia.Prefix, item patricia.Item) error {
		positions = append(positions, item.(int))
		return nil
	})
	if err != nil {
		return nil
	}
	sort.Ints(positions)
	out := make([]string, len(positions))
	for i, pos := range positions {
		out[i] = v.symptoms[pos]
	}
	return out
}

// Containing returns the symptoms that contain term case-insensitively, in vocabulary order.
func (v *Vocabulary) Containing(term string) []string {
	lowerTerm := strings.ToLower(term)
	var out []string
	for _, s := range v.symptoms {
		if strings.Contains(strings.ToLower(s), lowerTerm) {
			out = append(out, s)
		}
	}
	return out
}
