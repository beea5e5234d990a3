package models

import "net/http"

// FailureKind classifies why an ingestion did not produce chunks.
type FailureKind string

const (
	FailureNoFile     FailureKind = "NoFile"
	FailureParse      FailureKind = "ParseError"
	FailureExtraction FailureKind = "ExtractionError"
	FailureStorage    FailureKind = "StorageError"
	FailureTooLarge   FailureKind = "TooLarge"
	FailureCanceled   FailureKind = "Canceled"
)

// Caller-visible messages. They never carry paths or library error text.
var failureMessages = map[FailureKind]string{
	FailureNoFile:     "No file uploaded.",
	FailureParse:      "Error parsing the upload.",
	FailureExtraction: "Error reading the document. Upload a valid PDF file.",
	FailureStorage:    "An error occurred while processing the upload.",
	FailureTooLarge:   "File size exceeds maximum limit.",
	FailureCanceled:   "The request was canceled before processing finished.",
}

// Message returns the fixed caller-visible message for the kind.
func (k FailureKind) Message() string {
	if msg, ok := failureMessages[k]; ok {
		return msg
	}
	return "An error occurred during processing."
}

// Code is the snake_case error_code sent alongside the message.
func (k FailureKind) Code() string {
	switch k {
	case FailureNoFile:
		return "no_file"
	case FailureParse:
		return "parse_error"
	case FailureExtraction:
		return "extraction_error"
	case FailureStorage:
		return "storage_error"
	case FailureTooLarge:
		return "file_too_large"
	case FailureCanceled:
		return "canceled"
	default:
		return "internal_error"
	}
}

// HTTPStatus maps a kind to the status the upload endpoint answers with.
// ExtractionError is a client error: the cause is almost always the uploaded file.
func (k FailureKind) HTTPStatus() int {
	switch k {
	case FailureNoFile, FailureParse, FailureExtraction:
		return http.StatusBadRequest
	case FailureTooLarge:
		return http.StatusRequestEntityTooLarge
	case FailureCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Failure is the error side of an IngestionResult. Err is for logs only.
type Failure struct {
	Kind    FailureKind
	Message string
	Err     error
}

// IngestionResult is either a chunk list or a failure, never both.
type IngestionResult struct {
	Chunks  []TextChunk
	Failure *Failure
}

func Success(chunks []TextChunk) IngestionResult {
	if chunks == nil {
		chunks = []TextChunk{}
	}
	return IngestionResult{Chunks: chunks}
}

func Fail(kind FailureKind, err error) IngestionResult {
	return IngestionResult{Failure: &Failure{Kind: kind, Message: kind.Message(), Err: err}}
}

func (r IngestionResult) OK() bool {
	return r.Failure == nil
}

// Response is the success body for the result's chunks.
func (r IngestionResult) Response() UploadResponse {
	chunks := r.Chunks
	if chunks == nil {
		chunks = []TextChunk{}
	}
	return UploadResponse{Chunks: chunks}
}
