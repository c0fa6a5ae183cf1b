package app

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/metromate/metromate-linebot-go/internal/buildinfo"
	"github.com/metromate/metromate-linebot-go/internal/dataset"
)

const readinessCheckTimeout = 2 * time.Second

func (a *Application) serviceInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": serviceName,
		"version": buildinfo.String(),
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"llm":        a.answerer != nil,
		"backup":     a.backup != nil,
		"data_watch": a.watcher != nil,
	}
}

// readinessCheck reports ready once the dataset has been loaded and the
// journal answers.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessCheckTimeout)
	defer cancel()

	if a.store == nil || !a.store.Loaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "dataset not loaded",
		})
		return
	}

	if err := a.journal.Ping(ctx); err != nil {
		a.logger.WithError(err).Warn("Readiness check failed: journal unavailable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "journal unavailable",
		})
		return
	}

	snap := a.store.Snapshot()
	counts := make(map[string]int, len(dataset.Documents))
	for _, doc := range dataset.Documents {
		counts[string(doc)] = snap.Count(doc)
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"journal":  "connected",
		"dataset":  counts,
		"features": a.getFeatures(),
	})
}
