package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"runtime"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/thedemonsid/quiz-app/internal/telemetry"
	"github.com/thedemonsid/quiz-app/models"
	"github.com/thedemonsid/quiz-app/utils"
)

const (
	defaultMaxFileSize = 20 << 20
	defaultMaxMemory   = 8 << 20
)

// DocumentStore materializes an upload so it can be read back by path.
type DocumentStore interface {
	Store(ctx context.Context, requestID string, doc models.RawDocument) (*StoredFile, error)
	Cleanup(path string)
}

// TextExtractor reads the text of a stored document.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (*ExtractionResult, error)
}

// IngestionService turns one uploaded document into text chunks.
type IngestionService struct {
	storage     DocumentStore
	extractor   TextExtractor
	chunker     *ChunkingService
	pool        *ants.Pool
	maxFileSize int64
	maxMemory   int64
	metrics     *telemetry.Metrics
	tracer      trace.Tracer
	logger      *slog.Logger
}

// IngestionOption configures an IngestionService.
type IngestionOption func(*IngestionService) error

// WithPoolSize sets how many extractions may run at once.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) IngestionOption {
	return func(s *IngestionService) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithUploadLimits sets the request body cap and the in-memory multipart threshold.
func WithUploadLimits(maxFileSize, maxMemory int64) IngestionOption {
	return func(s *IngestionService) error {
		if maxFileSize <= 0 || maxMemory <= 0 {
			return fmt.Errorf("upload limits must be positive")
		}
		s.maxFileSize = maxFileSize
		s.maxMemory = maxMemory
		return nil
	}
}

// WithMetrics records ingestion outcomes.
func WithMetrics(m *telemetry.Metrics) IngestionOption {
	return func(s *IngestionService) error {
		s.metrics = m
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) IngestionOption {
	return func(s *IngestionService) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewIngestionService wires the store, extractor and chunker together.
func NewIngestionService(storage DocumentStore, extractor TextExtractor, chunker *ChunkingService, opts ...IngestionOption) (*IngestionService, error) {
	if storage == nil {
		return nil, errors.New("document store is required")
	}
	if extractor == nil {
		return nil, errors.New("text extractor is required")
	}
	if chunker == nil {
		chunker = NewChunkingService(DefaultChunkSize)
	}

	pool, err := ants.NewPool(runtime.NumCPU())
	if err != nil {
		return nil, err
	}

	s := &IngestionService{
		storage:     storage,
		extractor:   extractor,
		chunker:     chunker,
		pool:        pool,
		maxFileSize: defaultMaxFileSize,
		maxMemory:   defaultMaxMemory,
		tracer:      otel.Tracer(telemetry.TracerName),
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}

	return s, nil
}

// Release stops the extraction pool. Ingest calls made afterwards fail with Canceled.
func (s *IngestionService) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

type extractOutcome struct {
	result *ExtractionResult
	err    error
}

// Ingest runs one upload through store, extract and chunk. It never panics;
// every outcome is either chunks or a typed failure.
func (s *IngestionService) Ingest(ctx context.Context, r *http.Request) (result models.IngestionResult) {
	start := time.Now()
	requestID := utils.RequestIDFromContext(ctx)
	logger := s.logger.With(slog.String("request_id", requestID))

	ctx, span := s.tracer.Start(ctx, "ingest.request")
	defer span.End()

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Ingestion panicked", slog.Any("panic", rec))
			result = models.Fail(models.FailureExtraction, fmt.Errorf("%w: panic: %v", ErrExtraction, rec))
		}

		outcome := "success"
		if !result.OK() {
			outcome = string(result.Failure.Kind)
			span.SetStatus(codes.Error, outcome)
			if result.Failure.Err != nil {
				span.RecordError(result.Failure.Err)
			}
		}
		span.SetAttributes(attribute.String("ingest.outcome", outcome), attribute.Int("ingest.chunks", len(result.Chunks)))
		s.metrics.RecordIngestion(ctx, outcome, time.Since(start).Seconds(), len(result.Chunks))
	}()

	form, failure := s.parseForm(ctx, r)
	if failure != nil {
		logger.Info("Upload rejected", slog.String("kind", string(failure.Kind)), slog.Any("error", failure.Err))
		return models.IngestionResult{Failure: failure}
	}
	defer form.RemoveAll()

	fh, dropped := selectAttachment(form)
	if fh == nil {
		logger.Info("Upload rejected, no file attached")
		return models.Fail(models.FailureNoFile, nil)
	}
	if dropped > 0 {
		logger.Debug("Ignoring extra attachments", slog.Int("dropped", dropped))
	}
	if fh.Size == 0 {
		logger.Info("Upload rejected, attachment is empty", slog.String("filename", fh.Filename))
		return models.Fail(models.FailureNoFile, nil)
	}

	doc := models.NewRawDocument(fh)
	span.SetAttributes(attribute.Int64("ingest.file_size", doc.Size))

	stored, err := s.store(ctx, requestID, doc)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Warn("Upload canceled while storing", slog.String("error", err.Error()))
			return models.Fail(models.FailureCanceled, ctxErr)
		}
		s.metrics.RecordStorageFailure(ctx)
		logger.Error("Failed to store upload", slog.String("error", err.Error()))
		return models.Fail(models.FailureStorage, err)
	}

	extracted, err := s.extract(ctx, stored.Path)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ants.ErrPoolClosed) {
			logger.Warn("Upload canceled during extraction", slog.String("error", err.Error()))
			return models.Fail(models.FailureCanceled, err)
		}
		logger.Warn("Failed to extract text", slog.String("filename", doc.Name), slog.String("error", err.Error()))
		return models.Fail(models.FailureExtraction, err)
	}

	_, chunkSpan := s.tracer.Start(ctx, "ingest.chunk")
	chunks := s.chunker.ChunkText(extracted.Text)
	chunkSpan.SetAttributes(attribute.Int("chunk.count", len(chunks)), attribute.Int("chunk.window", s.chunker.WindowSize()))
	chunkSpan.End()

	meta := models.DocumentMetadata{
		Filename:       doc.Name,
		Size:           stored.Size,
		Pages:          extracted.Pages,
		WordCount:      extracted.WordCount,
		CharacterCount: extracted.CharacterCount,
		ChunkCount:     len(chunks),
		ProcessingTime: time.Since(start),
	}
	logger.Info("Document ingested", slog.Any("document", meta))

	return models.Success(chunks)
}

func (s *IngestionService) parseForm(ctx context.Context, r *http.Request) (*multipart.Form, *models.Failure) {
	if r == nil || r.Body == nil {
		return nil, models.Fail(models.FailureParse, errors.New("request has no body")).Failure
	}

	if r.ContentLength > s.maxFileSize {
		return nil, models.Fail(models.FailureTooLarge, fmt.Errorf("content length %d exceeds %d", r.ContentLength, s.maxFileSize)).Failure
	}

	r.Body = http.MaxBytesReader(nil, r.Body, s.maxFileSize)
	if err := r.ParseMultipartForm(s.maxMemory); err != nil {
		if r.MultipartForm != nil {
			r.MultipartForm.RemoveAll()
		}
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return nil, models.Fail(models.FailureTooLarge, err).Failure
		case ctx.Err() != nil:
			return nil, models.Fail(models.FailureCanceled, ctx.Err()).Failure
		default:
			return nil, models.Fail(models.FailureParse, err).Failure
		}
	}

	return r.MultipartForm, nil
}

// selectAttachment picks the first attachment of the first document field
// present and reports how many others were ignored.
func selectAttachment(form *multipart.Form) (*multipart.FileHeader, int) {
	if form == nil {
		return nil, 0
	}
	for _, field := range []string{models.FieldFilepond, models.FieldFile} {
		if files := form.File[field]; len(files) > 0 {
			return files[0], len(files) - 1
		}
	}
	return nil, 0
}

func (s *IngestionService) store(ctx context.Context, requestID string, doc models.RawDocument) (*StoredFile, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.store")
	defer span.End()

	stored, err := s.storage.Store(ctx, requestID, doc)
	if err != nil {
		span.SetStatus(codes.Error, "store failed")
		return nil, err
	}
	span.SetAttributes(attribute.Int64("storage.bytes", stored.Size))
	return stored, nil
}

// extract runs the extractor on the pool and waits for it. The stored
// artifact is removed by the worker once extraction returns.
func (s *IngestionService) extract(ctx context.Context, path string) (*ExtractionResult, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.extract")
	defer span.End()

	done := make(chan extractOutcome, 1)
	err := s.pool.Submit(func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- extractOutcome{err: fmt.Errorf("%w: panic: %v", ErrExtraction, rec)}
			}
		}()
		defer s.storage.Cleanup(path)

		res, err := s.extractor.Extract(ctx, path)
		done <- extractOutcome{result: res, err: err}
	})
	if err != nil {
		s.storage.Cleanup(path)
		span.SetStatus(codes.Error, "submit failed")
		return nil, err
	}

	select {
	case out := <-done:
		if out.err != nil {
			span.SetStatus(codes.Error, "extract failed")
			return nil, out.err
		}
		if out.result == nil {
			return nil, fmt.Errorf("%w: extractor returned no result", ErrExtraction)
		}
		span.SetAttributes(attribute.Int("pdf.pages", out.result.Pages), attribute.Int("pdf.words", out.result.WordCount))
		return out.result, nil
	case <-ctx.Done():
		span.SetStatus(codes.Error, "canceled")
		return nil, ctx.Err()
	}
}
