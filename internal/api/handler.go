package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shanehull/cryptobriefs/internal/store"
	"github.com/shanehull/cryptobriefs/internal/types"
)

// NewsLister is the read side of the store used by the API.
type NewsLister interface {
	List(ctx context.Context, q store.Query) ([]types.NewsRecord, error)
}

type NewsHandler struct {
	lister  NewsLister
	timeout time.Duration
	logger  *slog.Logger
}

func NewNewsHandler(lister NewsLister, timeout time.Duration, logger *slog.Logger) *NewsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &NewsHandler{lister: lister, timeout: timeout, logger: logger}
}

type NewsResponse struct {
	Count int                `json:"count"`
	News  []types.NewsRecord `json:"news"`
}

func (h *NewsHandler) GetNews(c *gin.Context) {
	q, err := parseNewsQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	news, err := h.lister.List(ctx, q)
	if err != nil {
		h.logger.Error("failed to list news", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if news == nil {
		news = []types.NewsRecord{}
	}

	c.JSON(http.StatusOK, NewsResponse{Count: len(news), News: news})
}

func (h *NewsHandler) GetHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	if _, err := h.lister.List(ctx, store.Query{Limit: 1}); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"database": "disconnected",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"database": "connected",
	})
}

type queryError string

func (e queryError) Error() string { return string(e) }

func parseNewsQuery(c *gin.Context) (store.Query, error) {
	var q store.Query

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return q, queryError("limit must be a positive integer")
		}
		q.Limit = min(limit, store.MaxListLimit)
	}

	q.Coin = strings.ToUpper(strings.TrimSpace(c.Query("coin")))

	if raw := c.Query("sentiment"); raw != "" {
		s := types.Sentiment(strings.ToLower(strings.TrimSpace(raw)))
		if !s.Valid() {
			return q, queryError("sentiment must be one of: bullish, bearish, neutral")
		}
		q.Sentiment = s
	}

	return q, nil
}
