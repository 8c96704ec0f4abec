package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/ragpipe"
	"github.com/poiesic/ragpipe/chunking"
	"github.com/poiesic/ragpipe/indexing"
	"github.com/poiesic/ragpipe/news"
	"github.com/poiesic/ragpipe/pipeline"
	"github.com/poiesic/ragpipe/qa"
	"github.com/urfave/cli/v2"
)

const shutdownTimeout = 10 * time.Second

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func indexCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	chunker, err := chunking.New(
		chunking.WithChunkSize(c.Int("chunk-size")),
		chunking.WithChunkOverlap(c.Int("chunk-overlap")),
	)
	if err != nil {
		return fmt.Errorf("invalid chunking options: %w", err)
	}

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	ld, err := engine.NewLoader()
	if err != nil {
		return err
	}
	docs, err := ld.LoadAll(ctx, c.StringSlice("source")...)
	if err != nil {
		return fmt.Errorf("failed to load sources: %w", err)
	}

	indexer, err := engine.NewIndexer(chunker,
		indexing.WithBatchSize(c.Int("batch-size")),
		indexing.WithProgress(os.Stderr),
	)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stderr, "Database: %s\n", c.String("db"))
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", c.String("embedding-model"))
	fmt.Fprintf(os.Stderr, "Documents: %d\n", len(docs))
	fmt.Fprintln(os.Stderr)

	n, err := indexer.Index(ctx, docs...)
	if err != nil {
		return fmt.Errorf("indexing failed after %d chunks: %w", n, err)
	}
	fmt.Printf("Indexed %d chunks from %d documents\n", n, len(docs))
	return nil
}

func qaOptions(c *cli.Context) ([]qa.Option, error) {
	var opts []qa.Option
	if path := c.String("prompt-file"); path != "" {
		tmpl, err := qa.LoadTemplate(path)
		if err != nil {
			return nil, err
		}
		opts = append(opts, qa.WithTemplate(tmpl))
	}
	if c.IsSet("k") {
		opts = append(opts, qa.WithK(c.Int("k")))
	}
	return opts, nil
}

func askCommand(c *cli.Context) error {
	question := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if question == "" {
		return errors.New("a question is required")
	}

	opts, err := qaOptions(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	var graph *pipeline.Runnable
	if c.Bool("filtered") {
		graph, err = engine.NewFilteredQA(opts...)
	} else {
		graph, err = engine.NewSimpleQA(opts...)
	}
	if err != nil {
		return err
	}

	input := pipeline.State{Question: question}
	if !c.Bool("stream") {
		final, err := graph.Invoke(ctx, input)
		if err != nil {
			return err
		}
		fmt.Println(final.Answer)
		return nil
	}

	return printStream(ctx, os.Stdout, graph, input)
}

// printStream prints a line per completed node followed by the answer.
func printStream(ctx context.Context, w io.Writer, graph *pipeline.Runnable, input pipeline.State) error {
	var final pipeline.State
	for u, err := range graph.Stream(ctx, input) {
		if err != nil {
			return err
		}
		final = u.State
		switch {
		case u.Update.Search != nil:
			fmt.Fprintf(w, "[%s] query=%q section=%s\n", u.Node, u.Update.Search.Query, u.Update.Search.Section)
		case u.Update.Context != nil:
			fmt.Fprintf(w, "[%s] %d chunks\n", u.Node, len(u.Update.Context))
		default:
			fmt.Fprintf(w, "[%s] done\n", u.Node)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, final.Answer)
	return nil
}

func newsCommand(c *cli.Context) error {
	ctx, cancel := signalContext()
	defer cancel()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	np, err := newNewsPipeline(c, engine)
	if err != nil {
		return err
	}
	defer np.Release()

	report, err := np.Run(ctx, c.StringSlice("feed"))
	if err != nil {
		return fmt.Errorf("news ingestion failed: %w", err)
	}
	for feed, ferr := range report.Failed {
		fmt.Fprintf(os.Stderr, "skipped %s: %v\n", feed, ferr)
	}
	fmt.Printf("Fetched %d articles, %d financial, %d stored, %d duplicates\n",
		report.Fetched, len(report.Financial), report.Stored, report.Duplicates)
	for _, a := range report.Financial {
		fmt.Printf("  - %s [%s]\n", a.Title, strings.Join(a.Tickers, ", "))
	}

	query := c.String("query")
	if query == "" {
		fmt.Fprint(os.Stderr, "\nSearch query: ")
		if query, err = readLine(os.Stdin); err != nil {
			return err
		}
	}
	if strings.TrimSpace(query) == "" {
		return nil
	}

	hits, err := np.Search(ctx, query, c.Int("k"))
	if err != nil {
		return err
	}
	printHits(os.Stdout, hits)
	return nil
}

func newNewsPipeline(c *cli.Context, engine *ragpipe.Engine) (*news.Pipeline, error) {
	classifier, err := engine.NewClassifier(c.String("classifier"))
	if err != nil {
		return nil, err
	}

	fetcher, err := news.NewFetcher(
		news.WithRetries(max(c.Int("max-retries"), 1), time.Second),
		news.WithFetcherLogger(slog.Default().With("component", "news-fetcher")),
	)
	if err != nil {
		return nil, err
	}

	opts := []news.Option{news.WithLimit(c.Int("limit"))}
	return engine.NewNewsPipeline(fetcher, classifier, opts...)
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func printHits(w io.Writer, hits []news.Hit) {
	fmt.Fprintf(w, "Found %d hits\n", len(hits))
	for i, h := range hits {
		fmt.Fprintf(w, "%d: %s [%0.3f]\n", i+1, h.Title, h.Score)
		if h.Link != "" {
			fmt.Fprintf(w, "   %s\n", h.Link)
		}
		if len(h.Tickers) > 0 {
			fmt.Fprintf(w, "   tickers: %s\n", strings.Join(h.Tickers, ", "))
		}
		fmt.Fprintf(w, "   %s\n", h.Snippet)
	}
}

func serveCommand(c *cli.Context) error {
	opts, err := qaOptions(c)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	engine, err := openEngine(c)
	if err != nil {
		return err
	}
	defer engine.Close()

	classifier, err := engine.NewClassifier(ragpipe.ClassifierKeyword)
	if err != nil {
		return err
	}
	np, err := engine.NewNewsPipeline(nil, classifier)
	if err != nil {
		return err
	}
	defer np.Release()

	handler, err := engine.NewServer(np, opts...)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              c.String("addr"),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, done := context.WithTimeout(context.Background(), shutdownTimeout)
	defer done()
	return srv.Shutdown(shutdownCtx)
}
