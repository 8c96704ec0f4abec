package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/ragpipe/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const blogPage = `<!doctype html>
<html>
<head><title>LLM Powered Autonomous Agents</title><script>var x = "<p>not me</p>";</script></head>
<body>
  <nav><a href="/">Home</a></nav>
  <h1>Agents</h1>
  <p>Task decomposition breaks a hard task into   smaller steps.</p>
  <div><p>Chain of thought is a <em>standard</em> prompting technique.</p></div>
  <ul><li>Not a paragraph</li></ul>
  <p>   </p>
  <p>Reflection lets agents<br>improve.</p>
</body>
</html>`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_URL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/post":
			assert.Equal(t, userAgent, r.Header.Get("User-Agent"))
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(blogPage))
		case "/plain":
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte("just text"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	l, err := New(WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	ctx := context.Background()

	t.Run("paragraphs only", func(t *testing.T) {
		doc, err := l.Load(ctx, srv.URL+"/post")
		require.NoError(t, err)
		assert.Equal(t,
			"Task decomposition breaks a hard task into smaller steps.\n\n"+
				"Chain of thought is a standard prompting technique.\n\n"+
				"Reflection lets agents improve.",
			doc.Content)
		assert.Equal(t, srv.URL+"/post", doc.Metadata[core.MetaSource])
	})

	t.Run("plain text", func(t *testing.T) {
		doc, err := l.Load(ctx, srv.URL+"/plain")
		require.NoError(t, err)
		assert.Equal(t, "just text", doc.Content)
	})

	t.Run("http error", func(t *testing.T) {
		_, err := l.Load(ctx, srv.URL+"/missing")
		assert.ErrorIs(t, err, core.ErrFetch)
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("unreachable", func(t *testing.T) {
		_, err := l.Load(ctx, "http://127.0.0.1:1/nothing")
		assert.ErrorIs(t, err, core.ErrFetch)
	})

	t.Run("oversized body", func(t *testing.T) {
		tests := []struct {
			name string
			path string
			max  int64
		}{
			{name: "html", path: "/post", max: 64},
			{name: "plain text", path: "/plain", max: 4},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				small, err := New(WithHTTPClient(srv.Client()), WithMaxBytes(tt.max))
				require.NoError(t, err)
				_, err = small.Load(ctx, srv.URL+tt.path)
				assert.ErrorIs(t, err, ErrTooLarge)
				assert.ErrorIs(t, err, core.ErrFetch)
			})
		}
	})

	t.Run("body at the cap", func(t *testing.T) {
		exact, err := New(WithHTTPClient(srv.Client()), WithMaxBytes(int64(len("just text"))))
		require.NoError(t, err)
		doc, err := exact.Load(ctx, srv.URL+"/plain")
		require.NoError(t, err)
		assert.Equal(t, "just text", doc.Content)
	})

	t.Run("custom selector", func(t *testing.T) {
		l, err := New(WithHTTPClient(srv.Client()), WithSelector("li", "h1"))
		require.NoError(t, err)
		doc, err := l.Load(ctx, srv.URL+"/post")
		require.NoError(t, err)
		assert.Equal(t, "Agents\n\nNot a paragraph", doc.Content)
	})
}

func TestLoad_Files(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{
			name:    "text",
			file:    "notes.txt",
			content: "line one\nline two\n",
			want:    "line one\nline two",
		},
		{
			name:    "unknown extension read as text",
			file:    "notes.log",
			content: "x=1",
			want:    "x=1",
		},
		{
			name:    "html",
			file:    "page.html",
			content: blogPage,
			want: "Task decomposition breaks a hard task into smaller steps.\n\n" +
				"Chain of thought is a standard prompting technique.\n\n" +
				"Reflection lets agents improve.",
		},
		{
			name:    "markdown",
			file:    "post.md",
			content: "# Title\n\nFirst *para*graph.\n\n- one\n- two\n",
			want:    "Title\n\nFirst paragraph.\n\none\ntwo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.file, tt.content)
			doc, err := l.Load(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, tt.want, doc.Content)
			assert.Equal(t, path, doc.Metadata[core.MetaSource])
		})
	}
}

func TestLoad_Errors(t *testing.T) {
	l, err := New()
	require.NoError(t, err)
	ctx := context.Background()

	_, err = l.Load(ctx, "  ")
	assert.ErrorIs(t, err, ErrNoSource)

	_, err = l.Load(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, core.ErrFetch)

	_, err = l.Load(ctx, writeFile(t, "empty.txt", "  \n"))
	assert.ErrorIs(t, err, core.ErrEmptyContent)

	_, err = l.Load(ctx, writeFile(t, "broken.pdf", "not a pdf"))
	assert.ErrorIs(t, err, core.ErrFetch)

	_, err = New(WithSelector())
	assert.ErrorIs(t, err, ErrNoSelector)
}

func TestLoadAll(t *testing.T) {
	l, err := New(WithLogger(nil))
	require.NoError(t, err)

	a := writeFile(t, "a.txt", "alpha")
	b := writeFile(t, "b.txt", "beta")
	docs, err := l.LoadAll(context.Background(), a, b)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "alpha", docs[0].Content)
	assert.Equal(t, "beta", docs[1].Content)
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "plain   text\n", want: "plain text"},
		{in: "<p>Apple &amp; Nvidia <b>rally</b></p>", want: "Apple & Nvidia rally"},
		{in: `<img src="x.png"/>Shares rose<br/>3%`, want: "Shares rose 3%"},
		{in: "<script>alert(1)</script>clean", want: "clean"},
		{in: "", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, StripHTML(tt.in))
		})
	}
}

func TestMarkdownText_CodeBlock(t *testing.T) {
	got := MarkdownText([]byte("Intro\n\n```\ncode line\n```\n"))
	assert.True(t, strings.HasPrefix(got, "Intro\n\n"))
	assert.Contains(t, got, "code line")
}
