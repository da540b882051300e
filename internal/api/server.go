// Package api exposes read-only maintenance data over HTTP for dashboards
// and health checks.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"forklift-assistant/internal/analytics"
	"forklift-assistant/internal/logging"
	"forklift-assistant/internal/records"
	"forklift-assistant/internal/retrieval"
)

const dateLayout = "2006-01-02"

type RecordLister interface {
	ListSince(ctx context.Context, since time.Time) ([]records.Record, error)
}

type HistoryFinder interface {
	Relevant(ctx context.Context, equipment, problem string) ([]retrieval.ScoredRecord, error)
}

type StatsProvider interface {
	Stats(ctx context.Context) (*analytics.DailyStats, error)
}

type Server struct {
	engine  *gin.Engine
	records RecordLister
	history HistoryFinder
	stats   StatsProvider
	logger  *zap.Logger
}

func New(recs RecordLister, history HistoryFinder, stats StatsProvider, logger *zap.Logger) *Server {
	s := &Server{
		engine:  gin.New(),
		records: recs,
		history: history,
		stats:   stats,
		logger:  logging.OrNop(logger).Named("api"),
	}
	s.engine.Use(gin.Recovery(), s.accessLog())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	v1 := s.engine.Group("/api/v1")
	v1.GET("/records", s.listRecords)
	v1.GET("/history", s.findHistory)
	v1.GET("/report/today", s.todayReport)
}

func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is cancelled.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *Server) listRecords(c *gin.Context) {
	raw := c.Query("since")
	if raw == "" {
		fail(c, http.StatusBadRequest, codeBadRequest, "since is required (YYYY-MM-DD)")
		return
	}
	since, err := time.ParseInLocation(dateLayout, raw, time.UTC)
	if err != nil {
		fail(c, http.StatusBadRequest, codeBadRequest, "since must be a date in YYYY-MM-DD format")
		return
	}
	recs, err := s.records.ListSince(c.Request.Context(), since)
	if err != nil {
		s.logger.Error("list records failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, codeStoreError, "failed to load records")
		return
	}
	if recs == nil {
		recs = []records.Record{}
	}
	success(c, recs)
}

type historyItem struct {
	Relevance float64   `json:"relevance"`
	Equipment string    `json:"equipment"`
	Problem   string    `json:"problem"`
	Solution  string    `json:"solution"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) findHistory(c *gin.Context) {
	equipment, problem := c.Query("equipment"), c.Query("problem")
	if equipment == "" || problem == "" {
		fail(c, http.StatusBadRequest, codeBadRequest, "equipment and problem are required")
		return
	}
	scored, err := s.history.Relevant(c.Request.Context(), equipment, problem)
	if err != nil {
		s.logger.Error("history lookup failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, codeStoreError, "failed to load history")
		return
	}
	items := make([]historyItem, 0, len(scored))
	for _, sr := range scored {
		items = append(items, historyItem{
			Relevance: sr.Relevance,
			Equipment: sr.Equipment,
			Problem:   sr.Problem,
			Solution:  sr.Solution,
			Timestamp: sr.Timestamp,
		})
	}
	success(c, items)
}

func (s *Server) todayReport(c *gin.Context) {
	stats, err := s.stats.Stats(c.Request.Context())
	if err != nil {
		s.logger.Error("report failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, codeStoreError, "failed to build report")
		return
	}
	success(c, stats)
}
