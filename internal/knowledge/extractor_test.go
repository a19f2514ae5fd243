package knowledge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gipl/gipl-assistant/internal"
)

// fakePDF serves page texts from memory and counts reads per path.
type fakePDF struct {
	mu    sync.Mutex
	pages map[string][]string
	reads map[string]int
}

func newFakePDF(pages map[string][]string) *fakePDF {
	return &fakePDF{pages: pages, reads: make(map[string]int)}
}

func (f *fakePDF) Pages(ctx context.Context, path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads[path]++
	p, ok := f.pages[path]
	if !ok {
		return nil, fmt.Errorf("opening %s: %w", path, os.ErrNotExist)
	}
	return p, nil
}

func htmlServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := pages[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestExtractor_BuildOrderedConcatenation(t *testing.T) {
	pdf := newFakePDF(map[string][]string{
		"a.pdf": {"Board of", "Directors"},
		"b.pdf": {"  CSR policy \n"},
	})
	server := htmlServer(t, map[string]string{
		"/":      `<html><body><p>Welcome to GIPL</p><div>nav</div><p>Ports</p></body></html>`,
		"/award": `<html><body><h1>Awards</h1><p>Best port 2023</p></body></html>`,
	})

	e := NewExtractor(pdf, NewWebFetcher())
	blob, err := e.Build(context.Background(), []internal.Source{
		internal.LocalSource("a.pdf"),
		internal.LocalSource("b.pdf"),
		internal.RemoteSource(server.URL + "/"),
		internal.RemoteSource(server.URL + "/award"),
	})

	require.NoError(t, err)
	assert.Equal(t, "Board of Directors CSR policy Welcome to GIPL Ports Best port 2023", blob.Text)
	require.Len(t, blob.Extractions, 4)
	assert.Empty(t, blob.Degraded())
	assert.Equal(t, internal.SourceLocal, blob.Extractions[0].Source.Kind)
	assert.Equal(t, "CSR policy", blob.Extractions[1].Text)
}

func TestExtractor_RemoteServerErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	pdf := newFakePDF(map[string][]string{"a.pdf": {"doc"}})
	e := NewExtractor(pdf, NewWebFetcher())

	blob, err := e.Build(context.Background(), []internal.Source{
		internal.LocalSource("a.pdf"),
		internal.RemoteSource(server.URL),
	})

	require.NoError(t, err)
	want := "doc " + FetchErrorPrefix + "500 Internal Server Error for url: " + server.URL
	assert.Equal(t, want, blob.Text)

	degraded := blob.Degraded()
	require.Len(t, degraded, 1)
	assert.Equal(t, server.URL, degraded[0].Source.Location)
	assert.True(t, blob.Statuses()[1].Degraded)
	assert.NotEmpty(t, blob.Statuses()[1].Error)
}

func TestExtractor_RemoteNetworkErrorDegrades(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	e := NewExtractor(newFakePDF(nil), NewWebFetcher())
	x := e.FetchPage(context.Background(), url)

	assert.True(t, x.Degraded())
	assert.True(t, strings.HasPrefix(x.Text, FetchErrorPrefix), x.Text)
}

func TestExtractor_MissingDocumentIsFatal(t *testing.T) {
	e := NewExtractor(newFakePDF(map[string][]string{}), NewWebFetcher())

	blob, err := e.Build(context.Background(), []internal.Source{
		internal.LocalSource("missing.pdf"),
	})

	assert.Nil(t, blob)
	var se *StartupError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "missing.pdf", se.Source.Location)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestExtractor_LocalFailureSkipsRemoteFetches(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	e := NewExtractor(newFakePDF(nil), NewWebFetcher())
	_, err := e.Build(context.Background(), []internal.Source{
		internal.RemoteSource(server.URL),
		internal.LocalSource("missing.pdf"),
	})

	require.Error(t, err)
	assert.Zero(t, hits)
}

func TestExtractor_ConcurrentFetchKeepsOrder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// later pages answer faster
		n := strings.TrimPrefix(r.URL.Path, "/")
		delay := map[string]time.Duration{"1": 60, "2": 40, "3": 20, "4": 0}[n]
		time.Sleep(delay * time.Millisecond)
		fmt.Fprintf(w, "<p>page %s</p>", n)
	}))
	defer server.Close()

	var sources []internal.Source
	for i := 1; i <= 4; i++ {
		sources = append(sources, internal.RemoteSource(fmt.Sprintf("%s/%d", server.URL, i)))
	}

	e := NewExtractor(newFakePDF(nil), NewWebFetcher(), WithConcurrency(4))
	blob, err := e.Build(context.Background(), sources)

	require.NoError(t, err)
	assert.Equal(t, "page 1 page 2 page 3 page 4", blob.Text)
}

func TestExtractor_CancelledBuild(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<p>late</p>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := NewExtractor(newFakePDF(nil), NewWebFetcher())
	_, err := e.Build(ctx, []internal.Source{internal.RemoteSource(server.URL)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExtractor_UnknownKind(t *testing.T) {
	e := NewExtractor(newFakePDF(nil), nil)
	_, err := e.Build(context.Background(), []internal.Source{{Kind: "ftp", Location: "x"}})

	var se *StartupError
	assert.True(t, errors.As(err, &se))
}

func TestExtractor_ExtractDocument(t *testing.T) {
	e := NewExtractor(newFakePDF(map[string][]string{
		"ceo.pdf": {"\nShri Mahesh Gohel", "Chairman ", ""},
	}), nil)

	text, err := e.ExtractDocument(context.Background(), "ceo.pdf")
	require.NoError(t, err)
	assert.Equal(t, "Shri Mahesh Gohel Chairman", text)
}

func TestPolicyFor(t *testing.T) {
	assert.Equal(t, PolicyFatal, PolicyFor(internal.SourceLocal))
	assert.Equal(t, PolicyDegrade, PolicyFor(internal.SourceRemote))
}

func TestJoin(t *testing.T) {
	assert.Equal(t, "", Join(nil))
	assert.Equal(t, "a b", Join([]string{" a", "b "}))
	assert.Equal(t, "a  b", Join([]string{"a", "", "b"}))
}
