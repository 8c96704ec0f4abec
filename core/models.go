package core

import (
	"encoding/binary"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for stored chunks.
// It is assigned from a database sequence, so ascending IDs follow insertion order.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// Identical content always produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Well-known chunk metadata keys.
const (
	MetaSource      = "source"
	MetaSection     = "section"
	MetaChunkIndex  = "chunk_index"
	MetaStartOffset = "start_offset"
)

// Section is a coarse positional label assigned to a chunk by its index
// within the owning document.
type Section string

const (
	SectionBeginning Section = "beginning"
	SectionMiddle    Section = "middle"
	SectionEnd       Section = "end"
)

// Sections returns the closed set of section labels in document order.
func Sections() []Section {
	return []Section{SectionBeginning, SectionMiddle, SectionEnd}
}

// ParseSection converts a raw label into a Section.
func ParseSection(s string) (Section, error) {
	sec := Section(s)
	if !slices.Contains(Sections(), sec) {
		return "", ErrInvalidSection
	}
	return sec, nil
}

// Document is a unit of source text before chunking.
type Document struct {
	Content  string
	Metadata map[string]string
}

// Chunk is a contiguous span of source text, the unit of embedding and retrieval.
type Chunk struct {
	Id         ID                `json:"id"`
	Content    string            `json:"content"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	Vector     []float32         `json:"vector,omitempty"` // populated by the index on insert
	InsertedAt time.Time         `json:"inserted_at"`
}

// Clone returns a deep copy of the chunk.
func (c Chunk) Clone() Chunk {
	out := c
	out.Metadata = maps.Clone(c.Metadata)
	out.Vector = slices.Clone(c.Vector)
	return out
}

// Section returns the section label stored in the chunk's metadata, if any.
func (c Chunk) Section() Section {
	return Section(c.Metadata[MetaSection])
}

// SearchQuery is the structured form of a user question produced by the
// query analyzer.
type SearchQuery struct {
	Query   string  `json:"query"`
	Section Section `json:"section"`
}

// Filter is an equality predicate over a single chunk metadata field.
// A nil *Filter matches every chunk.
type Filter struct {
	Field string
	Value string
}

// SectionFilter returns a filter selecting chunks tagged with the given section.
func SectionFilter(section Section) *Filter {
	return &Filter{Field: MetaSection, Value: string(section)}
}

// Matches reports whether metadata satisfies the filter.
func (f *Filter) Matches(metadata map[string]string) bool {
	if f == nil {
		return true
	}
	v, ok := metadata[f.Field]
	return ok && v == f.Value
}

func (f *Filter) String() string {
	if f == nil {
		return "<none>"
	}
	return f.Field + "=" + f.Value
}

// Article is a normalized news item.
type Article struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Link    string   `json:"link"`
	PubDate string   `json:"pubDate"`
	Source  string   `json:"source"`
	Tickers []string `json:"tickers,omitempty"`
}

// Text is the string embedded for an article.
func (a Article) Text() string {
	return a.Title + "\n" + a.Content
}

// TickerList renders the tickers as a comma separated list.
func (a Article) TickerList() string {
	return strings.Join(a.Tickers, ",")
}

// SearchResult pairs a chunk with its similarity score.
type SearchResult struct {
	Chunk *Chunk
	Score float32
}
