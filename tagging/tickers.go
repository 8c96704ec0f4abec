package tagging

import (
	"regexp"

	"github.com/poiesic/ragpipe/core"
)

// tickerPattern matches runs of two to five capital letters.
// It is deliberately loose: acronyms such as CEO or USA match too.
var tickerPattern = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

// ExtractTickers returns the unique ticker-like tokens in text in the order
// they first appear.
func ExtractTickers(text string) []string {
	matches := tickerPattern.FindAllString(text, -1)
	seen := make(map[string]struct{}, len(matches))
	tickers := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		tickers = append(tickers, m)
	}
	return tickers
}

// TagTickers returns a copy of the article with Tickers filled from its
// title and content.
func TagTickers(a core.Article) core.Article {
	a.Tickers = ExtractTickers(a.Title + " " + a.Content)
	return a
}
