package models

import (
	"io"
	"mime/multipart"
	"time"
)

// Document form fields, in lookup order. "file" is the older upload form.
const (
	FieldFilepond = "filepond"
	FieldFile     = "file"
)

// RawDocument is an uploaded file as received, owned by a single request.
type RawDocument struct {
	Name        string
	Size        int64
	ContentType string
	open        func() (io.ReadCloser, error)
}

// NewRawDocument wraps a multipart attachment.
func NewRawDocument(fh *multipart.FileHeader) RawDocument {
	return RawDocument{
		Name:        fh.Filename,
		Size:        fh.Size,
		ContentType: fh.Header.Get("Content-Type"),
		open: func() (io.ReadCloser, error) {
			return fh.Open()
		},
	}
}

// NewRawDocumentFromReader is used by callers that do not go through multipart (CLI, tests).
func NewRawDocumentFromReader(name string, size int64, open func() (io.ReadCloser, error)) RawDocument {
	return RawDocument{Name: name, Size: size, open: open}
}

// Open returns a fresh reader over the document bytes.
func (d RawDocument) Open() (io.ReadCloser, error) {
	return d.open()
}

// TextChunk is a contiguous window of the document's words.
// Range is the half-open word interval "start-end".
type TextChunk struct {
	Range   string `json:"range"`
	Content string `json:"content"`
}

// DocumentMetadata describes what was extracted; it is logged, not returned.
type DocumentMetadata struct {
	Filename       string        `json:"filename"`
	Size           int64         `json:"size"`
	Pages          int           `json:"pages"`
	WordCount      int           `json:"word_count"`
	CharacterCount int           `json:"character_count"`
	ChunkCount     int           `json:"chunk_count"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// UploadResponse is the single success body of the upload endpoint.
type UploadResponse struct {
	Chunks []TextChunk `json:"chunks"`
}
