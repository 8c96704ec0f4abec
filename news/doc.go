// Package news ingests financial news from RSS feeds into a searchable
// index.
//
// A run fetches every feed, normalizes the items into articles, keeps the
// ones a classifier marks as financial, tags them with ticker symbols and
// stores them through the langchaingo vector store adapter. Feeds that fail
// to download are reported and skipped; the rest of the run continues.
package news
