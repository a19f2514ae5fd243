package knowledge

import (
	"bytes"
	"compress/zlib"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/gipl/gipl-assistant/internal"
)

// Compress deflates s into the zlib format.
func Compress(s string) ([]byte, error) {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := io.WriteString(zw, s); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decompress reverses Compress.
func Decompress(data []byte) (string, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer zr.Close()

	out, err := io.ReadAll(zr)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

type snapshot struct {
	Text    string                  `json:"text"`
	BuiltAt time.Time               `json:"built_at"`
	Sources []internal.SourceStatus `json:"sources"`
}

// SaveSnapshot writes b to path as zlib-compressed JSON.
func SaveSnapshot(path string, b *Blob) error {
	data, err := json.Marshal(snapshot{Text: b.Text, BuiltAt: b.BuiltAt, Sources: b.Statuses()})
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	z, err := Compress(string(data))
	if err != nil {
		return fmt.Errorf("compressing snapshot: %w", err)
	}
	if err := os.WriteFile(path, z, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a blob written by SaveSnapshot. Source texts are not
// stored, so the extractions carry only source, size and error.
func LoadSnapshot(path string) (*Blob, error) {
	z, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot: %w", err)
	}
	data, err := Decompress(z)
	if err != nil {
		return nil, fmt.Errorf("decompressing snapshot: %w", err)
	}
	var s snapshot
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}

	extractions := make([]Extraction, len(s.Sources))
	for i, st := range s.Sources {
		extractions[i] = Extraction{Source: st.Source}
		if st.Error != "" {
			extractions[i].Err = errors.New(st.Error)
		}
	}
	statuses := s.Sources
	if statuses == nil {
		statuses = []internal.SourceStatus{}
	}
	return &Blob{Text: s.Text, Extractions: extractions, BuiltAt: s.BuiltAt, statuses: statuses}, nil
}
