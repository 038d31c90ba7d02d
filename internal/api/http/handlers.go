package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/danwiki/internal/domain/fetch"
	"github.com/GriffinCanCode/danwiki/internal/domain/suggest"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/logging"
	"github.com/GriffinCanCode/danwiki/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/danwiki/internal/providers/scraper"
)

// Version is reported by the root endpoint.
const Version = "0.3.0"

// Handlers contains all HTTP handlers
type Handlers struct {
	store   *tags.Store
	index   *suggest.Index
	fetcher *fetch.Fetcher
	metrics *monitoring.Metrics
	log     *logging.Logger

	// plain reduces client-supplied text to plain text
	plain *scraper.Normalizer
}

// NewHandlers creates a new handler set
func NewHandlers(
	store *tags.Store,
	index *suggest.Index,
	fetcher *fetch.Fetcher,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Handlers {
	return &Handlers{
		store:   store,
		index:   index,
		fetcher: fetcher,
		metrics: metrics,
		log:     log.Named("api"),
		plain:   scraper.NewNormalizer(),
	}
}

// Register mounts every route on r.
func (h *Handlers) Register(r gin.IRouter) {
	r.GET("/", h.Root)
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/stats", h.Stats)
	api.GET("/tags", h.Search)
	api.GET("/tags/:tag", h.GetTag)
	api.PUT("/tags/:tag/translation", h.UpdateTranslation)
	api.POST("/fetch", h.Fetch)
	api.GET("/site", h.GetSite)
	api.PUT("/site", h.SetSite)
	api.GET("/suggest/:tag", h.Suggest)
	api.GET("/complete", h.Complete)
	api.GET("/export", h.Export)
}

// Root handles the liveness probe
func (h *Handlers) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "online",
		"service": "danwiki",
		"version": Version,
	})
}

// Health reports cache and fetcher state
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"records": h.store.Len(),
		"tokens":  h.index.Len(),
		"busy":    h.fetcher.Busy(),
		"site":    h.fetcher.Site(),
	})
}

// Stats returns a metrics summary
func (h *Handlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics": h.metrics.Snapshot(),
		"store":   gin.H{"path": h.store.Path(), "records": h.store.Len()},
		"index":   gin.H{"tokens": h.index.Len()},
	})
}

type siteRequest struct {
	Site string `json:"site" binding:"required"`
}

// GetSite returns the active wiki site and the known shortcuts
func (h *Handlers) GetSite(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"site":  h.fetcher.Site(),
		"sites": fetch.Sites,
	})
}

// SetSite switches the wiki site
func (h *Handlers) SetSite(c *gin.Context) {
	var req siteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "site is required"})
		return
	}

	if err := h.fetcher.SetSite(req.Site); err != nil {
		h.log.Warn("rejected site change", zap.String("site", req.Site), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"site": h.fetcher.Site()})
}
