// Package knowledge builds the knowledge blob: the text of every configured
// PDF document and web page, concatenated in source order.
package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/gipl/gipl-assistant/internal"
	"github.com/gipl/gipl-assistant/internal/metrics"
)

// FetchErrorPrefix starts the text that replaces a remote page which could
// not be fetched or parsed.
const FetchErrorPrefix = "Error fetching content: "

// FailurePolicy says what a failed extraction does to a blob build.
type FailurePolicy int

const (
	// PolicyFatal aborts the build with a StartupError.
	PolicyFatal FailurePolicy = iota
	// PolicyDegrade embeds an error text in place of the content.
	PolicyDegrade
)

// PolicyFor returns the failure policy of a source kind. Local documents
// are part of the deployment and must be present; remote pages may be down.
func PolicyFor(kind internal.SourceKind) FailurePolicy {
	if kind == internal.SourceRemote {
		return PolicyDegrade
	}
	return PolicyFatal
}

// Extraction is the outcome of reading one source. Err is set when the
// source failed and Text holds the degraded replacement.
type Extraction struct {
	Source internal.Source
	Text   string
	Err    error
}

func (x Extraction) Degraded() bool { return x.Err != nil }

func (x Extraction) Status() internal.SourceStatus {
	st := internal.SourceStatus{Source: x.Source, Bytes: len(x.Text), Degraded: x.Degraded()}
	if x.Err != nil {
		st.Error = x.Err.Error()
	}
	return st
}

// StartupError reports a source whose failure policy is fatal.
type StartupError struct {
	Source internal.Source
	Err    error
}

func (e *StartupError) Error() string {
	return fmt.Sprintf("extracting %s source %s: %v", e.Source.Kind, e.Source.Location, e.Err)
}

func (e *StartupError) Unwrap() error { return e.Err }

type Extractor struct {
	pdf         PDFReader
	web         *WebFetcher
	concurrency int
	log         zerolog.Logger
	metrics     *metrics.Metrics
}

type Option func(*Extractor)

// WithConcurrency bounds the number of pages fetched at once. Values below
// one mean sequential fetching.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Extractor) { e.metrics = m }
}

func NewExtractor(pdf PDFReader, web *WebFetcher, opts ...Option) *Extractor {
	if web == nil {
		web = NewWebFetcher()
	}
	e := &Extractor{
		pdf:         pdf,
		web:         web,
		concurrency: 1,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExtractDocument returns the text of a local PDF: pages joined by single
// spaces, trimmed.
func (e *Extractor) ExtractDocument(ctx context.Context, path string) (string, error) {
	pages, err := e.pdf.Pages(ctx, path)
	if err != nil {
		return "", err
	}
	return Join(pages), nil
}

// FetchPage never fails: a page that cannot be read becomes a degraded
// Extraction whose text starts with FetchErrorPrefix.
func (e *Extractor) FetchPage(ctx context.Context, url string) Extraction {
	src := internal.RemoteSource(url)
	text, err := e.web.Fetch(ctx, url)
	if err != nil {
		e.log.Warn().Err(err).Str("url", url).Msg("remote source degraded")
		e.metrics.Extraction(string(src.Kind), "degraded")
		return Extraction{Source: src, Text: FetchErrorPrefix + err.Error(), Err: err}
	}
	e.metrics.Extraction(string(src.Kind), "ok")
	return Extraction{Source: src, Text: text}
}

// Build extracts every source and returns the blob. Local documents are
// read first and any failure among them is returned as a *StartupError.
// Remote pages are fetched with the configured concurrency; the blob keeps
// the order of sources regardless.
func (e *Extractor) Build(ctx context.Context, sources []internal.Source) (*Blob, error) {
	results := make([]Extraction, len(sources))

	for i, src := range sources {
		switch src.Kind {
		case internal.SourceLocal:
			text, err := e.ExtractDocument(ctx, src.Location)
			if err != nil {
				e.metrics.Extraction(string(src.Kind), "failed")
				return nil, &StartupError{Source: src, Err: err}
			}
			e.metrics.Extraction(string(src.Kind), "ok")
			e.log.Debug().Str("path", src.Location).Int("bytes", len(text)).Msg("document extracted")
			results[i] = Extraction{Source: src, Text: text}
		case internal.SourceRemote:
		default:
			return nil, &StartupError{Source: src, Err: fmt.Errorf("unknown source kind %q", src.Kind)}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)
	for i, src := range sources {
		if src.Kind != internal.SourceRemote {
			continue
		}
		g.Go(func() error {
			results[i] = e.FetchPage(gctx, src.Location)
			return nil
		})
	}
	_ = g.Wait()

	// a cancelled build must not hand out "context canceled" as content
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	blob := NewBlob(results)
	e.log.Info().
		Int("sources", len(sources)).
		Int("degraded", len(blob.Degraded())).
		Int("bytes", len(blob.Text)).
		Msg("knowledge blob built")
	return blob, nil
}

// Join concatenates parts with single spaces and trims the result.
func Join(parts []string) string {
	return strings.TrimSpace(strings.Join(parts, " "))
}
