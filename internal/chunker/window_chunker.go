package chunker

import (
	"fmt"
	"strings"

	"docrag/internal/domain"
)

// WindowChunker splits text into fixed-length, overlapping rune windows.
type WindowChunker struct {
	size    int
	overlap int
}

func NewWindowChunker(size, overlap int) (*WindowChunker, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}
	return &WindowChunker{size: size, overlap: overlap}, nil
}

func (c *WindowChunker) Chunk(text string) ([]domain.Chunk, error) {
	return Window(text, c.size, c.overlap)
}

func (c *WindowChunker) Signature() string {
	return fmt.Sprintf("window:size=%d:overlap=%d", c.size, c.overlap)
}

// Window walks a window of size runes across text, advancing by
// size-overlap each step. Whitespace-only windows are dropped; the walk ends
// with the first window that reaches the end of the text.
func Window(text string, size, overlap int) ([]domain.Chunk, error) {
	if err := validateWindow(size, overlap); err != nil {
		return nil, err
	}
	runes := []rune(text)
	n := len(runes)
	step := size - overlap
	var chunks []domain.Chunk
	for start := 0; start < n; start += step {
		end := start + size
		if end > n {
			end = n
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, domain.Chunk{
				Index:  len(chunks),
				Text:   window,
				Offset: start,
				Length: end - start,
			})
		}
		if end == n {
			break
		}
	}
	return chunks, nil
}

func validateWindow(size, overlap int) error {
	if size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", domain.ErrInvalidParameter, size)
	}
	if overlap < 0 || overlap >= size {
		return fmt.Errorf("%w: overlap must be in [0, %d), got %d", domain.ErrInvalidParameter, size, overlap)
	}
	return nil
}
