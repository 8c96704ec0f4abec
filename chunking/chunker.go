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

package chunking

import (
	"maps"
	"strconv"
	"strings"
	"unicode"

	"github.com/poiesic/ragpipe/core"
	"github.com/tmc/langchaingo/textsplitter"
)

const (
	// DefaultChunkSize is the maximum chunk length in characters.
	DefaultChunkSize = 1000
	// DefaultChunkOverlap is the number of characters shared by consecutive chunks.
	DefaultChunkOverlap = 200
)

// DefaultSeparators are tried in order: paragraph, line, sentence, word.
var DefaultSeparators = []string{"\n\n", "\n", ". ", " "}

var _ textsplitter.TextSplitter = (*Chunker)(nil)

// Span is a half-open range of rune offsets [Start, End) into the source text.
type Span struct {
	Start int
	End   int
}

// Len returns the span length in runes.
func (s Span) Len() int {
	return s.End - s.Start
}

// Chunker splits text into overlapping chunks no longer than the configured
// size. Cuts prefer the strongest natural boundary available in the back
// half of the window and fall back to a hard cut at the size limit.
// A Chunker is immutable after construction and safe for concurrent use.
type Chunker struct {
	size       int
	overlap    int
	separators [][]rune
}

// Option configures a Chunker.
type Option func(*Chunker) error

// WithChunkSize sets the maximum chunk length in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) error {
		if size <= 0 {
			return ErrInvalidSize
		}
		c.size = size
		return nil
	}
}

// WithChunkOverlap sets how many characters consecutive chunks share.
func WithChunkOverlap(overlap int) Option {
	return func(c *Chunker) error {
		if overlap < 0 {
			return ErrInvalidOverlap
		}
		c.overlap = overlap
		return nil
	}
}

// WithSeparators replaces the boundary preference list. Earlier entries win.
func WithSeparators(separators ...string) Option {
	return func(c *Chunker) error {
		c.separators = c.separators[:0]
		for _, sep := range separators {
			if sep != "" {
				c.separators = append(c.separators, []rune(sep))
			}
		}
		return nil
	}
}

// New creates a chunker. Size defaults to 1000 and overlap to 200.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		size:    DefaultChunkSize,
		overlap: DefaultChunkOverlap,
	}
	for _, sep := range DefaultSeparators {
		c.separators = append(c.separators, []rune(sep))
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	if c.overlap >= c.size {
		return nil, ErrInvalidOverlap
	}
	return c, nil
}

// Size returns the configured maximum chunk length.
func (c *Chunker) Size() int {
	return c.size
}

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int {
	return c.overlap
}

// Spans computes chunk boundaries for text. Consecutive spans overlap by at
// most the configured overlap, every span is no longer than the chunk size
// and holds at least one non-space rune, and the spans cover the whole text
// except for whitespace runs that would have formed a chunk of their own.
func (c *Chunker) Spans(text string) []Span {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return nil
	}

	var spans []Span
	start, prevEnd := 0, 0
	for {
		end := start + c.size
		if end >= n {
			if !isBlank(runes[start:n]) {
				spans = append(spans, Span{Start: start, End: n})
			}
			return spans
		}

		// A cut must make progress past the previous chunk and, when a
		// separator is used, keep the chunk at least half full.
		floor := max(prevEnd, start+c.size/2)
		cut := c.findCut(runes, floor, end)
		if isBlank(runes[start:cut]) {
			start = skipSpace(runes, cut)
			if start == n {
				return spans
			}
			continue
		}
		spans = append(spans, Span{Start: start, End: cut})

		next := max(cut-c.overlap, start+1)
		start = snapToWord(runes, next, cut)
		prevEnd = cut
	}
}

func isBlank(runes []rune) bool {
	for _, r := range runes {
		if !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// skipSpace returns the index of the first non-space rune at or after pos,
// or len(runes).
func skipSpace(runes []rune, pos int) int {
	for pos < len(runes) && unicode.IsSpace(runes[pos]) {
		pos++
	}
	return pos
}

// findCut returns the right-most separator boundary in (floor, end] for the
// highest priority separator that has one, or end.
func (c *Chunker) findCut(runes []rune, floor, end int) int {
	for _, sep := range c.separators {
		for cut := end; cut > floor; cut-- {
			if cut >= len(sep) && hasSuffixAt(runes, cut, sep) {
				return cut
			}
		}
	}
	return end
}

func hasSuffixAt(runes []rune, at int, sep []rune) bool {
	for i := range sep {
		if runes[at-len(sep)+i] != sep[i] {
			return false
		}
	}
	return true
}

// snapToWord moves pos forward to the first word start before limit so that
// overlapping chunks do not begin mid-word. pos is returned unchanged when
// the window holds no word start.
func snapToWord(runes []rune, pos, limit int) int {
	if pos == 0 || unicode.IsSpace(runes[pos-1]) {
		return pos
	}
	for p := pos + 1; p < limit; p++ {
		if unicode.IsSpace(runes[p-1]) && !unicode.IsSpace(runes[p]) {
			return p
		}
	}
	return pos
}

// SplitText splits text into chunk strings.
func (c *Chunker) SplitText(text string) ([]string, error) {
	runes := []rune(text)
	spans := c.Spans(text)
	out := make([]string, len(spans))
	for i, s := range spans {
		out[i] = string(runes[s.Start:s.End])
	}
	return out, nil
}

// Split chunks a document. Every chunk inherits the document metadata and
// records its position in chunk_index and start_offset.
func (c *Chunker) Split(doc core.Document) []core.Chunk {
	runes := []rune(doc.Content)
	spans := c.Spans(doc.Content)
	chunks := make([]core.Chunk, len(spans))
	for i, s := range spans {
		meta := maps.Clone(doc.Metadata)
		if meta == nil {
			meta = make(map[string]string, 2)
		}
		meta[core.MetaChunkIndex] = strconv.Itoa(i)
		meta[core.MetaStartOffset] = strconv.Itoa(s.Start)
		chunks[i] = core.Chunk{
			Content:  string(runes[s.Start:s.End]),
			Metadata: meta,
		}
	}
	return chunks
}

// Reassemble rebuilds the source text from its spans by dropping the
// overlapping prefix of each chunk. Whitespace skipped between spans is
// copied from text.
func Reassemble(text string, spans []Span) string {
	runes := []rune(text)
	var b strings.Builder
	covered := 0
	for _, s := range spans {
		if s.End <= covered {
			continue
		}
		if s.Start > covered {
			b.WriteString(string(runes[covered:s.Start]))
			covered = s.Start
		}
		b.WriteString(string(runes[covered:s.End]))
		covered = s.End
	}
	b.WriteString(string(runes[covered:]))
	return b.String()
}
