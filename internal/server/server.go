// Package server exposes the chat service over HTTP with gin.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/gipl/gipl-assistant/internal"
	"github.com/gipl/gipl-assistant/internal/chat"
	"github.com/gipl/gipl-assistant/internal/metrics"
	"github.com/gipl/gipl-assistant/internal/store"
)

const (
	SessionCookie = "gipl_session"
	SessionHeader = "X-Session-ID"
)

type Server struct {
	chat      *chat.Service
	metrics   *metrics.Metrics
	log       zerolog.Logger
	origins   map[string]struct{}
	startedAt time.Time
	engine    *gin.Engine
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithAllowedOrigins sets the origins that get CORS headers with credentials.
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		for _, o := range origins {
			s.origins[o] = struct{}{}
		}
	}
}

func New(svc *chat.Service, opts ...Option) *Server {
	s := &Server{
		chat:      svc,
		log:       zerolog.Nop(),
		origins:   make(map[string]struct{}),
		startedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.log), s.cors())
	s.routes(r)
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 180 * time.Second, // completions can be slow
		IdleTimeout:  120 * time.Second,
	}

	s.log.Info().Str("addr", addr).Str("model", s.chat.Model()).Msg("http server starting")

	errChan := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.log.Info().Msg("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true, "uptime": time.Since(s.startedAt).Round(time.Second).String()})
	})

	r.GET("/api/model", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"model": s.chat.Model()})
	})

	r.GET("/api/messages", func(c *gin.Context) {
		hist := internal.ChatHistory{Messages: []internal.Message{}}
		if conv, ok := s.chat.Lookup(sessionID(c)); ok {
			hist.SessionID = conv.ID()
			hist.Messages = conv.All()
		}
		c.JSON(http.StatusOK, hist)
	})

	r.POST("/api/messages", func(c *gin.Context) {
		var req internal.SendMessageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
			return
		}
		if err := chat.Validate(req.Content); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		conv := s.chat.Session(sessionID(c))
		setSession(c, conv.ID())
		res, err := s.chat.Send(c.Request.Context(), conv.ID(), req.Content)
		if err != nil {
			zerolog.Ctx(c.Request.Context()).Error().Err(err).Str("session", conv.ID()).Msg("chat turn failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "session_id": conv.ID()})
			return
		}
		c.JSON(http.StatusOK, internal.SendMessageResponse{
			SessionID: res.SessionID,
			Reply:     res.Reply,
			Model:     s.chat.Model(),
			Kind:      string(res.Kind),
			Override:  res.Override,
		})
	})

	r.POST("/api/reset", func(c *gin.Context) {
		conv := s.chat.Reset(sessionID(c))
		setSession(c, conv.ID())
		c.JSON(http.StatusOK, gin.H{"ok": true, "session_id": conv.ID()})
	})

	r.GET("/api/sources", func(c *gin.Context) {
		blob := s.chat.Knowledge().Current()
		c.JSON(http.StatusOK, internal.SourcesResponse{
			Sources: blob.Statuses(),
			Total:   len(blob.Text),
			BuiltAt: blob.BuiltAt,
		})
	})

	r.GET("/api/transcript", func(c *gin.Context) {
		var msgs []internal.Message
		if conv, ok := s.chat.Lookup(sessionID(c)); ok {
			msgs = conv.All()
		}
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		if err := store.WriteTranscript(c.Writer, s.chat.AssistantName(), msgs); err != nil {
			_ = c.Error(err)
		}
	})

	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}
}

func sessionID(c *gin.Context) string {
	if id := c.GetHeader(SessionHeader); id != "" {
		return id
	}
	if id, err := c.Cookie(SessionCookie); err == nil {
		return id
	}
	return ""
}

// setSession pins id on the response so the next request finds the same
// session again.
func setSession(c *gin.Context, id string) {
	c.Header(SessionHeader, id)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, 0, "/", "", false, true)
}
