package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/contributions?from=2024-01-01&to=2024-12-31
// Returns day-bucketed contributions for the window. The aggregator is
// fail-open, so this endpoint degrades to empty buckets instead of 500.
func (s *Server) getContributions(c *gin.Context) {
	var from, to time.Time
	if v := c.Query("from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "from must be YYYY-MM-DD"})
			return
		}
		from = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "to must be YYYY-MM-DD"})
			return
		}
		to = t
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
		return
	}

	buckets := s.aggregator.Aggregate(c.Request.Context(), currentUser(c), from, to)
	c.JSON(http.StatusOK, gin.H{"days": buckets})
}

// GET /api/v1/stats
// Per-field fail-open: a failed sub-query zeroes its field only.
func (s *Server) getStats(c *gin.Context) {
	stats := s.aggregator.UserStats(c.Request.Context(), currentUser(c))
	c.JSON(http.StatusOK, stats)
}

// POST /api/v1/app-open
// Records the daily app_opened event, at most once per calendar day.
func (s *Server) appOpen(c *gin.Context) {
	userID := currentUser(c)
	recorded, err := s.recorder.RecordAppOpen(c.Request.Context(), userID)
	if err != nil {
		s.log.Warn("app open not recorded", "user_id", userID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not record app open"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recorded": recorded})
}
