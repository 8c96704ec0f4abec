// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/poiesic/ragpipe"
	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/chunking"
	"github.com/poiesic/ragpipe/indexing"
	"github.com/poiesic/ragpipe/news"
	"github.com/urfave/cli/v2"
	"gopkg.in/natefinch/lumberjack.v2"
)

const defaultEnvFile = ".env"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ragpipe",
		Usage: "Retrieval-augmented question answering and financial news search",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Write logs to this file (rotated) instead of stderr",
			},
			&cli.StringFlag{
				Name:  "env-file",
				Usage: "Load environment variables from this file",
				Value: defaultEnvFile,
			},
		},
		Before: setup,
		Commands: []*cli.Command{
			{
				Name:   "index",
				Usage:  "Load, chunk and index documents from files or URLs",
				Action: indexCommand,
				Flags: withCommonFlags(
					&cli.StringSliceFlag{
						Name:     "source",
						Aliases:  []string{"s"},
						Usage:    "File path or http(s) URL to index (repeatable)",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "chunk-size",
						Usage: "Maximum chunk size in characters",
						Value: chunking.DefaultChunkSize,
					},
					&cli.IntFlag{
						Name:  "chunk-overlap",
						Usage: "Characters shared by consecutive chunks",
						Value: chunking.DefaultChunkOverlap,
					},
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of chunks embedded per request",
						Value: indexing.DefaultBatchSize,
					},
				),
			},
			{
				Name:      "ask",
				Usage:     "Answer a question from the indexed documents",
				ArgsUsage: "QUESTION",
				Action:    askCommand,
				Flags: withCommonFlags(
					&cli.BoolFlag{
						Name:  "filtered",
						Usage: "Analyze the question into a section-filtered search first",
					},
					&cli.BoolFlag{
						Name:  "stream",
						Usage: "Print each pipeline step as it completes",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of chunks to retrieve (0 uses the graph default)",
					},
					&cli.StringFlag{
						Name:  "prompt-file",
						Usage: "Answer prompt template with {{.question}} and {{.context}}",
					},
				),
			},
			{
				Name:   "news",
				Usage:  "Ingest financial news from RSS feeds and search it",
				Action: newsCommand,
				Flags: withCommonFlags(
					&cli.StringSliceFlag{
						Name:  "feed",
						Usage: "RSS or Atom feed URL (repeatable)",
						Value: cli.NewStringSlice(news.DefaultFeeds...),
					},
					&cli.StringFlag{
						Name:  "classifier",
						Usage: "Financial news classifier (keyword, llm)",
						Value: ragpipe.ClassifierKeyword,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of fetched articles to classify",
						Value: news.DefaultLimit,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Attempts per feed before it is skipped",
						Value: 3,
					},
					&cli.StringFlag{
						Name:  "query",
						Usage: "Search query (read from stdin when omitted)",
					},
					&cli.IntFlag{
						Name:  "k",
						Usage: "Number of search results",
						Value: news.DefaultSearchK,
					},
				),
			},
			{
				Name:   "serve",
				Usage:  "Serve the question answering and news search HTTP API",
				Action: serveCommand,
				Flags: withCommonFlags(
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address",
						Value: ":8080",
					},
					&cli.StringFlag{
						Name:  "prompt-file",
						Usage: "Answer prompt template with {{.question}} and {{.context}}",
					},
				),
			},
		},
	}
}

// withCommonFlags prepends the database and AI service flags every command
// takes. They live on the commands rather than the app so that values
// loaded from the env file are visible when they are parsed.
func withCommonFlags(flags ...cli.Flag) []cli.Flag {
	common := []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "./ragpipe_db",
			EnvVars: []string{"RAGPIPE_DB"},
		},
		&cli.StringFlag{
			Name:    "embedding-host",
			Usage:   "Embedding service host URL",
			Value:   ai.DefaultHost,
			EnvVars: []string{"RAGPIPE_EMBEDDING_HOST"},
		},
		&cli.StringFlag{
			Name:    "embedding-model",
			Usage:   "Embedding model name",
			Value:   ai.DefaultEmbeddingModel,
			EnvVars: []string{"RAGPIPE_EMBEDDING_MODEL"},
		},
		&cli.StringFlag{
			Name:    "generator-host",
			Usage:   "Generation service host URL",
			Value:   ai.DefaultHost,
			EnvVars: []string{"RAGPIPE_GENERATOR_HOST"},
		},
		&cli.StringFlag{
			Name:    "generator-model",
			Usage:   "Generation model name",
			Value:   ai.DefaultGeneratorModel,
			EnvVars: []string{"RAGPIPE_GENERATOR_MODEL"},
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "API key for the AI services",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
	}
	return append(common, flags...)
}

func setup(c *cli.Context) error {
	if err := loadEnvFile(c.String("env-file"), c.IsSet("env-file")); err != nil {
		return err
	}
	return setupLogger(c)
}

// loadEnvFile loads path into the environment. A missing file is only an
// error when it was asked for explicitly.
func loadEnvFile(path string, explicit bool) error {
	if path == "" {
		return nil
	}
	err := godotenv.Load(path)
	if err == nil {
		return nil
	}
	if !explicit && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load env file %s: %w", path, err)
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
	}
}

func setupLogger(c *cli.Context) error {
	level, err := parseLevel(c.String("log-level"))
	if err != nil {
		return err
	}

	var out io.Writer = os.Stderr
	if path := c.String("log-file"); path != "" {
		out = &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		}
	}

	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return nil
}

func aiConfig(c *cli.Context) *ai.Config {
	return ai.NewConfig(
		ai.WithEmbeddingHost(c.String("embedding-host")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithGeneratorHost(c.String("generator-host")),
		ai.WithGeneratorModel(c.String("generator-model")),
		ai.WithAPIKey(c.String("api-key")),
	)
}

func openEngine(c *cli.Context) (*ragpipe.Engine, error) {
	cfg := aiConfig(c)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}
	engine, err := ragpipe.Open(c.String("db"), ragpipe.WithAIConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return engine, nil
}
