package tfidf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StateFile is the name of the vocabulary file saved inside an index directory.
const StateFile = "tfidf.json"

// Embedder is a TF-IDF vectorizer over the synthesized invoice documents.
// Its vocabulary and IDF weights persist with the index.
type Embedder struct {
	vocabulary   map[string]int
	idf          []float64
	dimension    int
	prepared     bool
	tokenPattern *regexp.Regexp
	stopwords    map[string]struct{}
}

type state struct {
	Terms []string  `json:"terms"`
	IDF   []float64 `json:"idf"`
}

// NewEmbedder returns an embedder with no vocabulary; call Prepare or
// LoadState before Embed.
func NewEmbedder() *Embedder {
	return &Embedder{
		vocabulary:   make(map[string]int),
		tokenPattern: regexp.MustCompile(`[\p{L}\p{N}]+`),
		stopwords:    defaultStopwords(),
	}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Prepare derives the vocabulary and smoothed IDF weights from corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make(map[string]int)
	for _, text := range corpus {
		seen := make(map[string]struct{})
		for _, tok := range e.tokenize(text) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			df[tok]++
		}
	}
	terms := make([]string, 0, len(df))
	for term := range df {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	if len(terms) == 0 {
		return errors.New("no tokens found in corpus")
	}
	n := float64(len(corpus))
	idf := make([]float64, len(terms))
	for i, term := range terms {
		// smoothed
		idf[i] = math.Log((1+n)/(1+float64(df[term]))) + 1.0
	}
	e.load(terms, idf)
	return nil
}

// Dimension is the vocabulary size.
func (e *Embedder) Dimension() int { return e.dimension }

// Embed computes the L2-normalized TF-IDF embedding for the given text.
// Text sharing no term with the vocabulary yields the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	if !e.prepared {
		return nil, errors.New("tfidf embedder not prepared")
	}
	vec := make([]float32, e.dimension)
	tf := make(map[int]int)
	total := 0
	for _, tok := range e.tokenize(text) {
		if idx, ok := e.vocabulary[tok]; ok {
			tf[idx]++
			total++
		}
	}
	if total == 0 {
		return vec, nil
	}
	idxs := make([]int, 0, len(tf))
	for idx := range tf {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	weights := make([]float64, len(idxs))
	norm := 0.0
	for i, idx := range idxs {
		w := float64(tf[idx]) / float64(total) * e.idf[idx]
		weights[i] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	for i, idx := range idxs {
		vec[idx] = float32(weights[i] / norm)
	}
	return vec, nil
}

// SaveState writes the vocabulary and IDF values into dir.
func (e *Embedder) SaveState(dir string) error {
	if !e.prepared {
		return errors.New("tfidf embedder not prepared")
	}
	terms := make([]string, len(e.vocabulary))
	for term, i := range e.vocabulary {
		terms[i] = term
	}
	data, err := json.Marshal(state{Terms: terms, IDF: e.idf})
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, StateFile), data, 0o644)
}

// LoadState restores a vocabulary saved by SaveState.
func (e *Embedder) LoadState(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, StateFile))
	if err != nil {
		return err
	}
	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return fmt.Errorf("decoding %s: %w", StateFile, err)
	}
	if len(st.Terms) == 0 || len(st.Terms) != len(st.IDF) {
		return fmt.Errorf("%s: %d terms for %d idf values", StateFile, len(st.Terms), len(st.IDF))
	}
	e.load(st.Terms, st.IDF)
	return nil
}

func (e *Embedder) load(terms []string, idf []float64) {
	e.vocabulary = make(map[string]int, len(terms))
	for i, term := range terms {
		e.vocabulary[term] = i
	}
	e.idf = idf
	e.dimension = len(terms)
	e.prepared = true
}

// tokenize lower-cases, folds diacritics and drops stopwords.
func (e *Embedder) tokenize(text string) []string {
	folded, _, err := transform.String(foldChain(), strings.ToLower(text))
	if err != nil {
		folded = strings.ToLower(text)
	}
	raw := e.tokenPattern.FindAllString(folded, -1)
	out := raw[:0]
	for _, t := range raw {
		if _, isStop := e.stopwords[t]; isStop {
			continue
		}
		out = append(out, t)
	}
	return out
}

func foldChain() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		// en
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		// pt, already folded
		"o", "os", "as", "um", "uma", "uns", "umas", "de", "do", "da", "dos", "das", "no", "na", "nos", "nas", "em", "por", "para", "pelo", "pela", "com", "sem", "e", "ou", "que", "se", "ao", "aos", "mais", "menos", "qual", "quais", "quem", "onde", "quando", "como", "foi", "ser", "sao", "esta", "este", "isso", "essa", "esse", "sobre", "entre", "ate", "tem", "ha",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
