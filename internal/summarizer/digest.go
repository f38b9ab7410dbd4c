// Package summarizer condenses retrieved chunks into a short extractive digest.
package summarizer

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"docrag/internal/domain"
)

var (
	wordPattern     = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`)
	sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)
)

// Digest picks the sentences of the retrieved chunks that best cover the
// frequent terms of the result set. A term's weight is boosted by the
// similarity score of the chunks it appears in.
type Digest struct {
	stopwords map[string]struct{}
}

func NewDigest() *Digest {
	return &Digest{stopwords: defaultStopwords()}
}

type sentence struct {
	text  string
	chunk int // position in the result list
	order int
	score float64
}

// Summarize returns at most maxSentences sentences, ordered by result rank
// and then by position within the chunk.
func (d *Digest) Summarize(results []domain.SearchResult, maxSentences int) string {
	if maxSentences <= 0 || len(results) == 0 {
		return ""
	}

	var sentences []sentence
	weights := map[string]float64{}
	for ri, r := range results {
		boost := math.Max(r.Score, 0)
		for si, s := range sentencePattern.FindAllString(r.Text, -1) {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			sentences = append(sentences, sentence{text: s, chunk: ri, order: si})
			for _, tok := range d.terms(s) {
				weights[tok] += 1 + boost
			}
		}
	}
	if len(sentences) == 0 {
		return ""
	}

	var top float64
	for _, w := range weights {
		top = math.Max(top, w)
	}
	for i := range sentences {
		toks := d.terms(sentences[i].text)
		if len(toks) == 0 || top == 0 {
			continue
		}
		var sum float64
		for _, tok := range toks {
			sum += weights[tok] / top
		}
		sentences[i].score = sum / math.Sqrt(float64(len(toks)))
	}

	ranked := make([]int, len(sentences))
	for i := range ranked {
		ranked[i] = i
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return sentences[ranked[a]].score > sentences[ranked[b]].score
	})
	if maxSentences < len(ranked) {
		ranked = ranked[:maxSentences]
	}
	sort.Ints(ranked)

	out := make([]string, 0, len(ranked))
	seen := map[string]struct{}{}
	for _, i := range ranked {
		s := sentences[i].text
		// overlapping chunks repeat sentences
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return strings.Join(out, " ")
}

func (d *Digest) terms(text string) []string {
	all := wordPattern.FindAllString(strings.ToLower(text), -1)
	out := all[:0]
	for _, w := range all {
		if _, stop := d.stopwords[w]; !stop {
			out = append(out, w)
		}
	}
	return out
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "its", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "not", "no", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
