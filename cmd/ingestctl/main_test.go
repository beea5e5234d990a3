package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thedemonsid/quiz-app/internal/pdftest"
	"github.com/thedemonsid/quiz-app/models"
)

func TestChunkCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "quiz.pdf")
	require.NoError(t, os.WriteFile(path, pdftest.Build([]string{"a b c d e"}), 0o600))

	var out bytes.Buffer
	require.NoError(t, newApp(&out).Run([]string{"ingestctl", "chunk", "--window", "2", path}))

	var resp models.UploadResponse
	require.NoError(t, json.Unmarshal(out.Bytes(), &resp))
	assert.Equal(t, []models.TextChunk{
		{Range: "0-2", Content: "a b"},
		{Range: "2-4", Content: "c d"},
		{Range: "4-5", Content: "e"},
	}, resp.Chunks)
}

func TestChunkCommand_Errors(t *testing.T) {
	dir := t.TempDir()
	notPDF := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notPDF, []byte("hello"), 0o600))

	tests := []struct {
		name string
		args []string
	}{
		{"missing argument", []string{"ingestctl", "chunk"}},
		{"bad window", []string{"ingestctl", "chunk", "--window", "0", notPDF}},
		{"not a pdf", []string{"ingestctl", "chunk", notPDF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			assert.Error(t, newApp(&out).Run(tt.args))
			assert.Empty(t, out.String())
		})
	}
}

func TestSweepCommand(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "stale.pdf")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0o600))
	old := time.Now().Add(-3 * time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fresh.pdf"), []byte("x"), 0o600))

	var out bytes.Buffer
	require.NoError(t, newApp(&out).Run([]string{"ingestctl", "sweep", "--dir", dir, "--older-than", "1h"}))

	assert.True(t, strings.HasPrefix(out.String(), "removed 1 stale artifact(s)"))
	_, err := os.Stat(stale)
	assert.True(t, os.IsNotExist(err))
}
