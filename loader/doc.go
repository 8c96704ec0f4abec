// Package loader turns sources into documents ready for chunking.
//
// A source is either an http(s) URL or a local file path. Web pages keep
// only the text of the configured selector tags (paragraphs by default).
// Local files are dispatched on their extension: HTML, Markdown, PDF and
// plain text are supported; unknown extensions are read as text.
package loader
