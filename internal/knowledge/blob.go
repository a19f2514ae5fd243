package knowledge

import (
	"sync/atomic"
	"time"

	"github.com/gipl/gipl-assistant/internal"
)

// Blob is the knowledge text handed to the model plus the per-source
// results it was built from.
type Blob struct {
	Text        string
	Extractions []Extraction
	BuiltAt     time.Time

	// statuses is set when the blob comes from a snapshot, which keeps
	// sizes but not source texts.
	statuses []internal.SourceStatus
}

func NewBlob(extractions []Extraction) *Blob {
	texts := make([]string, len(extractions))
	for i, x := range extractions {
		texts[i] = x.Text
	}
	return &Blob{
		Text:        Join(texts),
		Extractions: extractions,
		BuiltAt:     time.Now(),
	}
}

// Degraded returns the extractions that failed and were replaced by an
// error text.
func (b *Blob) Degraded() []Extraction {
	var out []Extraction
	for _, x := range b.Extractions {
		if x.Degraded() {
			out = append(out, x)
		}
	}
	return out
}

func (b *Blob) Statuses() []internal.SourceStatus {
	if b.statuses != nil {
		out := make([]internal.SourceStatus, len(b.statuses))
		copy(out, b.statuses)
		return out
	}
	out := make([]internal.SourceStatus, len(b.Extractions))
	for i, x := range b.Extractions {
		out[i] = x.Status()
	}
	return out
}

// Base holds the current blob. It is only ever replaced whole.
type Base struct {
	current atomic.Pointer[Blob]
}

func NewBase(b *Blob) *Base {
	if b == nil {
		b = NewBlob(nil)
	}
	k := &Base{}
	k.current.Store(b)
	return k
}

func (k *Base) Current() *Blob { return k.current.Load() }

func (k *Base) Text() string { return k.current.Load().Text }

func (k *Base) Replace(b *Blob) {
	if b != nil {
		k.current.Store(b)
	}
}
