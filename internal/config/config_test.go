package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gipl/gipl-assistant/internal"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "GIPL Assistant", cfg.Assistant.Name)
	assert.Equal(t, "llama3-8b-8192", cfg.LLM.Model)
	assert.Equal(t, "groq", cfg.LLM.Provider)
	assert.Equal(t, "gsk-test", cfg.LLM.APIKey)
	assert.Equal(t, 30*time.Second, cfg.Knowledge.FetchTimeout)
	assert.Equal(t, 1, cfg.Knowledge.FetchConcurrency)
	assert.Len(t, cfg.Assistant.Greetings, 7)
	require.Len(t, cfg.Knowledge.Overrides, 1)
	assert.Equal(t, "ShriMaheshGohel.pdf", cfg.Knowledge.Overrides[0].Document)
	assert.Equal(t, []string{"ceo", "mahesh gohel"}, cfg.Knowledge.Overrides[0].Keywords)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Setenv("TEST_KEY", "k")
	path := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(path, []byte(`
assistant:
  name: Test Bot
knowledge:
  documents: [a.pdf]
  urls: []
  fetch_timeout: 5s
  overrides:
    - keywords: [board]
      document: a.pdf
llm:
  provider: openai
  model: gpt-4o-mini
  api_key_env: TEST_KEY
`), 0644)
	require.NoError(t, err)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Test Bot", cfg.Assistant.Name)
	assert.Equal(t, []string{"a.pdf"}, cfg.Knowledge.Documents)
	assert.Empty(t, cfg.Knowledge.URLs)
	assert.Equal(t, 5*time.Second, cfg.Knowledge.FetchTimeout)
	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "k", cfg.LLM.APIKey)
	require.Len(t, cfg.Knowledge.Overrides, 1)
	assert.Equal(t, []string{"board"}, cfg.Knowledge.Overrides[0].Keywords)
	// untouched sections keep their defaults
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 10000, cfg.Server.MaxSessions)
	assert.Equal(t, 24*time.Hour, cfg.Server.SessionTTL)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "x")
	t.Setenv("GIPL_LLM_MODEL", "llama-3.1-8b-instant")
	t.Setenv("GIPL_SERVER_ADDR", ":9090")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "llama-3.1-8b-instant", cfg.LLM.Model)
	assert.Equal(t, ":9090", cfg.Server.Addr)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate_MissingCredential(t *testing.T) {
	cfg := Default()
	cfg.LLM.APIKey = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingCredential)
	assert.Contains(t, err.Error(), "GROQ_API_KEY")
}

func TestValidate_MockNeedsNoCredential(t *testing.T) {
	cfg := Default()
	cfg.LLM.Provider = "mock"
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown provider", func(c *Config) { c.LLM.Provider = "acme" }},
		{"unknown pdf engine", func(c *Config) { c.Knowledge.PDFEngine = "ocr" }},
		{"no sources", func(c *Config) { c.Knowledge.Documents = nil; c.Knowledge.URLs = nil }},
		{"override without document", func(c *Config) { c.Knowledge.Overrides = []Override{{Keywords: []string{"x"}}} }},
		{"empty name", func(c *Config) { c.Assistant.Name = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.LLM.APIKey = "k"
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestSources_Order(t *testing.T) {
	cfg := Default()
	cfg.Knowledge.Documents = []string{"a.pdf", "b.pdf"}
	cfg.Knowledge.URLs = []string{"https://x", "https://y"}

	assert.Equal(t, []internal.Source{
		internal.LocalSource("a.pdf"),
		internal.LocalSource("b.pdf"),
		internal.RemoteSource("https://x"),
		internal.RemoteSource("https://y"),
	}, cfg.Sources())
}

func TestWriteExample_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "example.yaml")
	require.NoError(t, Default().WriteExample(path))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Knowledge.Documents, cfg.Knowledge.Documents)
	assert.Equal(t, Default().LLM.Model, cfg.LLM.Model)
}

func TestLoad_RefreshSchedule(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Empty(t, cfg.Knowledge.Refresh)

	t.Setenv("GIPL_KNOWLEDGE_REFRESH", "@every 6h")
	cfg, err = Load("")
	require.NoError(t, err)
	assert.Equal(t, "@every 6h", cfg.Knowledge.Refresh)
}
