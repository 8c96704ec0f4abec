// Package classify decides whether a news article is about financial
// markets.
package classify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/ragpipe/ai"
	"github.com/poiesic/ragpipe/core"
)

// ErrGeneratorRequired is returned when the LLM classifier has no generator.
var ErrGeneratorRequired = errors.New("generator required")

// Classifier reports whether an article is financial news.
// Implementations must be safe for concurrent use.
type Classifier interface {
	IsFinancial(ctx context.Context, article core.Article) (bool, error)
}

// DefaultKeywords is the keyword list used by Keyword when none is given.
var DefaultKeywords = []string{
	"nasdaq", "stock", "market", "earnings", "ipo", "shares", "index",
	"equity", "finance", "trading", "investor", "s&p", "dow", "wall street",
	"sec", "etf", "dividend", "futures", "bond", "analyst", "portfolio",
	"bull", "bear", "volatility", "ticker", "exchange", "quarter", "profit",
	"loss", "guidance", "revenue", "capital", "valuation", "merger",
	"acquisition", "buyback", "split", "regulation", "listing", "delisting",
}

// Keyword classifies by case-insensitive substring match against a
// keyword list over the title and content.
type Keyword struct {
	keywords []string
}

var _ Classifier = (*Keyword)(nil)

// NewKeyword creates a keyword classifier. With no keywords it uses
// DefaultKeywords.
func NewKeyword(keywords ...string) *Keyword {
	if len(keywords) == 0 {
		keywords = DefaultKeywords
	}
	lowered := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if k = strings.ToLower(strings.TrimSpace(k)); k != "" {
			lowered = append(lowered, k)
		}
	}
	return &Keyword{keywords: lowered}
}

// IsFinancial never fails.
func (k *Keyword) IsFinancial(ctx context.Context, article core.Article) (bool, error) {
	text := strings.ToLower(article.Title + " " + article.Content)
	for _, kw := range k.keywords {
		if strings.Contains(text, kw) {
			return true, nil
		}
	}
	return false, nil
}

// LLM asks a generator a yes/no question per article. Any reply containing
// "yes" (case-insensitive) counts as financial.
type LLM struct {
	generator ai.Generator
	logger    *slog.Logger
}

var _ Classifier = (*LLM)(nil)

// NewLLM creates an LLM classifier. The generator should be configured with
// temperature 0.
func NewLLM(generator ai.Generator, logger *slog.Logger) (*LLM, error) {
	if generator == nil {
		return nil, ErrGeneratorRequired
	}
	if logger == nil {
		logger = slog.Default().With("component", "classifier")
	}
	return &LLM{generator: generator, logger: logger}, nil
}

// IsFinancial sends one prompt per article.
func (l *LLM) IsFinancial(ctx context.Context, article core.Article) (bool, error) {
	reply, err := l.generator.Generate(ctx, Prompt(article))
	if err != nil {
		return false, fmt.Errorf("classify %q: %w", article.Title, ai.GenerationError(err))
	}
	financial := strings.Contains(strings.ToLower(reply), "yes")
	l.logger.Debug("article classified", "title", article.Title, "financial", financial)
	return financial, nil
}

// Prompt returns the classification prompt for an article.
func Prompt(article core.Article) string {
	return "Is the following news article related to financial markets, stocks, or Nasdaq? " +
		"Answer only \"yes\" or \"no\".\n\n" +
		"Title: " + article.Title + "\n" +
		"Content: " + article.Content
}
