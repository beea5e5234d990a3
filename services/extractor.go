package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

var pdfMagic = []byte("%PDF-")

// PDFExtractor turns a stored PDF into plain text.
type PDFExtractor struct {
	maxSize int64
	logger  *slog.Logger
}

// NewPDFExtractor creates a new PDF extractor. maxSize caps the bytes read into memory.
func NewPDFExtractor(maxSize int64, logger *slog.Logger) *PDFExtractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &PDFExtractor{maxSize: maxSize, logger: logger}
}

// ExtractionResult contains the result of PDF text extraction
type ExtractionResult struct {
	Text           string
	Pages          int
	WordCount      int
	CharacterCount int
	ProcessingTime time.Duration
}

// Extract reads the whole file at path and returns its text.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*ExtractionResult, error) {
	// Cap extremely large files to avoid OOM
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat document: %v", ErrExtraction, err)
	}
	if e.maxSize > 0 && stat.Size() > e.maxSize {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, ErrFileTooLarge)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read document: %v", ErrExtraction, err)
	}

	return e.ExtractBytes(ctx, content)
}

// ExtractBytes extracts text from an in-memory PDF. A valid PDF without text
// yields an empty Text and no error.
func (e *PDFExtractor) ExtractBytes(ctx context.Context, content []byte) (result *ExtractionResult, err error) {
	start := time.Now()

	if !bytes.HasPrefix(content, pdfMagic) {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, ErrNotPDF)
	}

	// The pdf package panics on some malformed structures.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("%w: malformed PDF structure: %v", ErrExtraction, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create PDF reader: %v", ErrExtraction, err)
	}

	pages := reader.NumPage()
	e.logger.Debug("Starting PDF text extraction", slog.Int("total_pages", pages), slog.Int("data_size", len(content)))

	fonts := make(map[string]*pdf.Font)
	texts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			e.logger.Warn("Null page encountered", slog.Int("page_number", i))
			continue
		}

		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}

		text, err := page.GetPlainText(fonts)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to extract text from page %d: %v", ErrExtraction, i, err)
		}
		texts = append(texts, text)
	}

	result = &ExtractionResult{
		Text:  strings.Join(texts, "\n"),
		Pages: pages,
	}
	result.WordCount = len(strings.Fields(result.Text))
	result.CharacterCount = len(result.Text)
	result.ProcessingTime = time.Since(start)

	e.logger.Debug("Extracted text from PDF",
		slog.Int("total_pages", pages),
		slog.Int("word_count", result.WordCount),
		slog.Duration("processing_time", result.ProcessingTime))

	return result, nil
}
