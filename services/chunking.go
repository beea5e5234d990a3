package services

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thedemonsid/quiz-app/models"
)

// DefaultChunkSize is the number of words per chunk when none is configured.
const DefaultChunkSize = 1000

// ChunkingService splits text into fixed-size, non-overlapping word windows.
type ChunkingService struct {
	maxChunkSize int
}

// NewChunkingService creates a chunking service; non-positive sizes use DefaultChunkSize.
func NewChunkingService(maxChunkSize int) *ChunkingService {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultChunkSize
	}
	return &ChunkingService{maxChunkSize: maxChunkSize}
}

// WindowSize returns the configured words per chunk.
func (cs *ChunkingService) WindowSize() int {
	return cs.maxChunkSize
}

// ChunkText tokenizes on whitespace runs and emits ceil(N/W) chunks labeled "start-end".
// Empty or whitespace-only text yields an empty, non-nil slice.
func (cs *ChunkingService) ChunkText(text string) []models.TextChunk {
	words := strings.Fields(text)
	n := len(words)
	w := cs.maxChunkSize

	chunks := make([]models.TextChunk, 0, (n+w-1)/w)
	for i := 0; i < n; i += w {
		end := i + w
		if end > n {
			end = n
		}
		chunks = append(chunks, models.TextChunk{
			Range:   FormatRange(i, end),
			Content: strings.Join(words[i:end], " "),
		})
	}

	return chunks
}

// FormatRange renders a half-open word interval.
func FormatRange(start, end int) string {
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}

// ParseRange reads back a label produced by FormatRange.
func ParseRange(r string) (start, end int, err error) {
	left, right, ok := strings.Cut(r, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}
	start, err = strconv.Atoi(left)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}
	end, err = strconv.Atoi(right)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}
	if start < 0 || end < start {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidRange, r)
	}
	return start, end, nil
}
