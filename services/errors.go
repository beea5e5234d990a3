package services

import "errors"

var (
	// ErrStorage wraps any failure to make an upload durable in the transient store.
	ErrStorage = errors.New("storage failed")

	// ErrExtraction wraps any failure to read text out of a stored document.
	ErrExtraction = errors.New("extraction failed")

	// ErrNotPDF is returned when the payload does not start with the PDF magic bytes.
	ErrNotPDF = errors.New("not a PDF document")

	// ErrFileTooLarge is returned when a stored document exceeds the extraction cap.
	ErrFileTooLarge = errors.New("file too large")

	// ErrInvalidRange is returned by ParseRange for malformed chunk labels.
	ErrInvalidRange = errors.New("invalid chunk range")
)
