package main

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedemonsid/quiz-app/internal/config"
	"github.com/thedemonsid/quiz-app/internal/logger"
	"github.com/thedemonsid/quiz-app/internal/pdftest"
	"github.com/thedemonsid/quiz-app/middleware"
	"github.com/thedemonsid/quiz-app/services"
)

func testServer(t *testing.T, cfg *config.Config) (*gin.Engine, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := services.NewFileStorageManager(cfg.UploadDir(), nil)
	ingestion, err := services.NewIngestionService(
		storage,
		services.NewPDFExtractor(cfg.MaxExtractSize, nil),
		services.NewChunkingService(cfg.MaxChunkSize),
		services.WithPoolSize(2),
		services.WithUploadLimits(cfg.MaxFileSize, cfg.MaxMemory),
	)
	require.NoError(t, err)
	t.Cleanup(ingestion.Release)

	return setupRouter(cfg, ingestion, storage, nil, nil, logger.New(io.Discard, "release")), cfg.UploadDir()
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		ServiceName:     "quiz-app-test",
		CORSOrigins:     []string{"http://localhost:3000"},
		MaxFileSize:     1 << 20,
		MaxMemory:       1 << 16,
		MaxChunkSize:    2,
		FileStorageDir:  t.TempDir(),
		MaxExtractSize:  1 << 20,
		RateLimitReqs:   100,
		RateLimitWindow: 60,
	}
}

func uploadRequest(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/upload", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func TestUploadEndToEnd(t *testing.T) {
	router, uploadDir := testServer(t, testConfig(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "filepond", "quiz.pdf", pdftest.Build([]string{"a b c d e"})))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
	assert.JSONEq(t, `{"chunks":[{"range":"0-2","content":"a b"},{"range":"2-4","content":"c d"},{"range":"4-5","content":"e"}]}`, w.Body.String())

	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(uploadDir)
		return err == nil && len(entries) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestUploadEndToEnd_Brotli(t *testing.T) {
	router, _ := testServer(t, testConfig(t))

	req := uploadRequest(t, "file", "quiz.pdf", pdftest.Build([]string{"a b c"}))
	req.Header.Set("Accept-Encoding", "br")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "br", w.Header().Get("Content-Encoding"))
	body, err := io.ReadAll(brotli.NewReader(w.Body))
	require.NoError(t, err)
	assert.JSONEq(t, `{"chunks":[{"range":"0-2","content":"a b"},{"range":"2-3","content":"c"}]}`, string(body))
}

func TestUploadEndToEnd_Errors(t *testing.T) {
	cfg := testConfig(t)
	router, _ := testServer(t, cfg)

	t.Run("no file", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, "other", "quiz.pdf", []byte("%PDF-")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"No file uploaded.","error_code":"no_file"}`, w.Body.String())
	})

	t.Run("not a pdf", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, "filepond", "notes.txt", []byte("plain text is not accepted")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), `"error_code":"extraction_error"`)
	})

	t.Run("too large", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, "filepond", "big.pdf", bytes.Repeat([]byte("x"), int(cfg.MaxFileSize)+1)))
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), `"error_code":"file_too_large"`)
	})
}

func TestReadyEndToEnd(t *testing.T) {
	cfg := testConfig(t)
	router, _ := testServer(t, cfg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ready", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	_, err := os.Stat(filepath.Join(cfg.FileStorageDir, "uploads"))
	assert.NoError(t, err)
}
