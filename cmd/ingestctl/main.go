package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/thedemonsid/quiz-app/internal/logger"
	"github.com/thedemonsid/quiz-app/models"
	"github.com/thedemonsid/quiz-app/services"
)

func main() {
	if err := newApp(os.Stdout).Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(out io.Writer) *cli.App {
	return &cli.App{
		Name:      "ingestctl",
		Usage:     "Chunk documents and maintain upload storage without the HTTP server",
		Writer:    out,
		ErrWriter: os.Stderr,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log debug output to stderr",
			},
		},
		Before: func(c *cli.Context) error {
			mode := "release"
			if c.Bool("verbose") {
				mode = "debug"
			}
			logger.Logger = logger.New(os.Stderr, mode)
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:      "chunk",
				Usage:     "Extract a local PDF and print its chunks as JSON",
				ArgsUsage: "<file.pdf>",
				Action:    chunkCommand,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:    "window",
						Aliases: []string{"w"},
						Usage:   "Words per chunk",
						Value:   services.DefaultChunkSize,
					},
					&cli.Int64Flag{
						Name:  "max-size",
						Usage: "Refuse files larger than this many bytes",
						Value: 200 << 20,
					},
				},
			},
			{
				Name:   "sweep",
				Usage:  "Remove stale upload artifacts once",
				Action: sweepCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "dir",
						Usage: "Upload directory",
						Value: "./storage/uploads",
					},
					&cli.DurationFlag{
						Name:  "older-than",
						Usage: "Remove artifacts last modified before this age",
						Value: time.Hour,
					},
				},
			},
		},
	}
}

func chunkCommand(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	path := c.Args().First()

	if c.Int("window") <= 0 {
		return fmt.Errorf("window must be greater than 0")
	}

	extractor := services.NewPDFExtractor(c.Int64("max-size"), logger.Logger)
	result, err := extractor.Extract(context.Background(), path)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", path, err)
	}

	chunks := services.NewChunkingService(c.Int("window")).ChunkText(result.Text)
	logger.Logger.Debug("Chunked document",
		slog.String("path", path),
		slog.Int("pages", result.Pages),
		slog.Int("words", result.WordCount),
		slog.Int("chunks", len(chunks)))

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(models.Success(chunks).Response())
}

func sweepCommand(c *cli.Context) error {
	if c.Duration("older-than") < 0 {
		return fmt.Errorf("older-than must not be negative")
	}

	storage := services.NewFileStorageManager(c.String("dir"), logger.Logger)
	removed, err := storage.SweepStale(c.Duration("older-than"))
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "removed %d stale artifact(s) from %s\n", removed, storage.Dir())
	return nil
}
