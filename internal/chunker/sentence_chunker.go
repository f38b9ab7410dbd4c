package chunker

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"docrag/internal/domain"
)

// SentenceChunker splits text into sentence-based chunks with overlap.
type SentenceChunker struct {
	sentencesPerChunk int
	overlapSentences  int
	splitter          *regexp.Regexp
}

func NewSentenceChunker(sentencesPerChunk, overlapSentences int) (*SentenceChunker, error) {
	if sentencesPerChunk <= 0 {
		return nil, fmt.Errorf("%w: sentences per chunk must be positive, got %d", domain.ErrInvalidParameter, sentencesPerChunk)
	}
	if overlapSentences < 0 || overlapSentences >= sentencesPerChunk {
		return nil, fmt.Errorf("%w: overlap sentences must be in [0, %d), got %d", domain.ErrInvalidParameter, sentencesPerChunk, overlapSentences)
	}
	return &SentenceChunker{
		sentencesPerChunk: sentencesPerChunk,
		overlapSentences:  overlapSentences,
		splitter:          regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`),
	}, nil
}

func (c *SentenceChunker) Signature() string {
	return fmt.Sprintf("sentence:per_chunk=%d:overlap=%d", c.sentencesPerChunk, c.overlapSentences)
}

func (c *SentenceChunker) Chunk(text string) ([]domain.Chunk, error) {
	spans := c.sentenceSpans(text)
	var chunks []domain.Chunk
	i := 0
	for i < len(spans) {
		end := i + c.sentencesPerChunk
		if end > len(spans) {
			end = len(spans)
		}
		lo, hi := spans[i][0], spans[end-1][1]
		raw := text[lo:hi]
		trimmed := strings.TrimSpace(raw)
		if trimmed != "" {
			lo += strings.Index(raw, trimmed)
			chunks = append(chunks, domain.Chunk{
				Index:  len(chunks),
				Text:   trimmed,
				Offset: utf8.RuneCountInString(text[:lo]),
				Length: utf8.RuneCountInString(trimmed),
			})
		}
		if end == len(spans) {
			break
		}
		i = end - c.overlapSentences
	}
	return chunks, nil
}

// sentenceSpans returns byte ranges of sentences, including a trailing
// fragment that lacks terminal punctuation.
func (c *SentenceChunker) sentenceSpans(text string) [][]int {
	spans := c.splitter.FindAllStringIndex(text, -1)
	tail := 0
	if len(spans) > 0 {
		tail = spans[len(spans)-1][1]
	}
	if strings.TrimSpace(text[tail:]) != "" {
		spans = append(spans, []int{tail, len(text)})
	}
	return spans
}
