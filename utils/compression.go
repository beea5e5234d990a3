package utils

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"strings"

	"github.com/andybalholm/brotli"
)

// CompressionAlgorithm defines supported content encodings
type CompressionAlgorithm string

const (
	CompressionNone   CompressionAlgorithm = ""
	CompressionGzip   CompressionAlgorithm = "gzip"
	CompressionBrotli CompressionAlgorithm = "br" // Best ratio for chunked text
)

// NewCompressWriter wraps w in an encoder for algorithm. The caller must Close it.
func NewCompressWriter(w io.Writer, algorithm CompressionAlgorithm) (io.WriteCloser, error) {
	switch algorithm {
	case CompressionBrotli:
		return brotli.NewWriterLevel(w, brotli.DefaultCompression), nil
	case CompressionGzip:
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %q", algorithm)
	}
}

// DecompressData decompresses data using the specified algorithm
func DecompressData(compressed []byte, algorithm CompressionAlgorithm) ([]byte, error) {
	if len(compressed) == 0 {
		return compressed, nil
	}

	switch algorithm {
	case CompressionNone:
		return compressed, nil

	case CompressionBrotli:
		data, err := io.ReadAll(brotli.NewReader(bytes.NewReader(compressed)))
		if err != nil {
			return nil, fmt.Errorf("failed to read from brotli reader: %w", err)
		}
		return data, nil

	case CompressionGzip:
		reader, err := gzip.NewReader(bytes.NewReader(compressed))
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer reader.Close()

		data, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("failed to read from gzip reader: %w", err)
		}
		return data, nil

	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %q", algorithm)
	}
}

// NegotiateEncoding picks brotli, then gzip, from an Accept-Encoding header.
// Codings listed with q=0 are treated as refused.
func NegotiateEncoding(acceptEncoding string) CompressionAlgorithm {
	accepted := make(map[string]bool)
	for _, part := range strings.Split(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := strings.ReplaceAll(strings.TrimSpace(params), " ", "")
		accepted[name] = q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}

	switch {
	case accepted[string(CompressionBrotli)]:
		return CompressionBrotli
	case accepted[string(CompressionGzip)]:
		return CompressionGzip
	default:
		return CompressionNone
	}
}
