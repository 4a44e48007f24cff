// Package summarizer produces short extractive synopses of ingested books.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

// DefaultMaxSentences is used when a non-positive limit is configured.
const DefaultMaxSentences = 3

var (
	sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+["'’”)\]]*`)
	wordRe     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
)

// Frequency ranks sentences by the normalized frequency of their content
// words and keeps the best ones in document order.
type Frequency struct {
	maxSentences int
	maxWords     int
	stopwords    map[string]struct{}
}

// NewFrequency creates a summarizer returning at most maxSentences sentences.
func NewFrequency(maxSentences int) *Frequency {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	return &Frequency{maxSentences: maxSentences, maxWords: 60, stopwords: stopwords}
}

type sentence struct {
	text   string
	tokens []string
	score  float64
	pos    int
}

// Summarize returns the selected sentences joined by single spaces. Text
// with no sentence punctuation is returned trimmed. Sentences longer than
// the word cap, usually extraction noise such as tables of contents, are
// never selected.
func (f *Frequency) Summarize(text string) string {
	raw := sentenceRe.FindAllString(text, -1)
	if len(raw) == 0 {
		return strings.TrimSpace(text)
	}

	sentences := make([]sentence, 0, len(raw))
	freq := make(map[string]float64)
	for i, r := range raw {
		s := sentence{text: strings.TrimSpace(r), pos: i}
		s.tokens = wordRe.FindAllString(strings.ToLower(s.text), -1)
		for _, tok := range s.tokens {
			if _, stop := f.stopwords[tok]; !stop {
				freq[tok]++
			}
		}
		sentences = append(sentences, s)
	}

	peak := 0.0
	for _, v := range freq {
		peak = math.Max(peak, v)
	}
	for i := range sentences {
		s := &sentences[i]
		if len(s.tokens) == 0 || len(s.tokens) > f.maxWords {
			s.score = -1
			continue
		}
		for _, tok := range s.tokens {
			s.score += freq[tok] / peak
		}
		s.score /= math.Sqrt(float64(len(s.tokens)))
	}

	ranked := make([]sentence, len(sentences))
	copy(ranked, sentences)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	var picked []sentence
	for _, s := range ranked {
		if len(picked) == f.maxSentences || s.score < 0 {
			break
		}
		picked = append(picked, s)
	}
	if len(picked) == 0 {
		return ""
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].pos < picked[j].pos })

	parts := make([]string, len(picked))
	for i, s := range picked {
		parts[i] = s.text
	}
	return strings.Join(parts, " ")
}

var stopwords = func() map[string]struct{} {
	words := strings.Fields(`a an the and or but if then else for to of in on at by with as
		is are was were be been being it its this that these those from up down over under
		again further than so such into about between through during before after above
		below out off own same too very can will just don should now i you he she we they
		me him her us them my your his our their not no nor what which who whom had has
		have do does did`)
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
