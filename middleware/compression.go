package middleware

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thedemonsid/quiz-app/utils"
)

type compressWriter struct {
	gin.ResponseWriter
	encoder io.WriteCloser
}

func (w *compressWriter) WriteHeader(code int) {
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(code)
}

func (w *compressWriter) Write(b []byte) (int, error) {
	w.Header().Del("Content-Length")
	return w.encoder.Write(b)
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// Compression encodes response bodies with brotli or gzip when the client accepts it.
func Compression() gin.HandlerFunc {
	return func(c *gin.Context) {
		algorithm := utils.NegotiateEncoding(c.GetHeader("Accept-Encoding"))
		if algorithm == utils.CompressionNone || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		encoder, err := utils.NewCompressWriter(c.Writer, algorithm)
		if err != nil {
			c.Next()
			return
		}

		c.Header("Content-Encoding", string(algorithm))
		c.Header("Vary", "Accept-Encoding")
		c.Writer = &compressWriter{ResponseWriter: c.Writer, encoder: encoder}
		defer encoder.Close()

		c.Next()
	}
}
