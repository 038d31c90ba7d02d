package http

import (
	"bytes"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/danwiki/internal/domain/fetch"
	"github.com/GriffinCanCode/danwiki/internal/domain/tags"
)

const defaultCompleteLimit = 10

// Search runs a local substring search. An empty query lists every record.
func (h *Handlers) Search(c *gin.Context) {
	query := c.Query("q")
	h.metrics.IncSearches()

	res := h.store.Lookup(query)
	results := res.Matches
	if results == nil {
		results = []tags.Record{}
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
		"exact":   res.Exact,
	})
}

// GetTag returns one cached record
func (h *Handlers) GetTag(c *gin.Context) {
	tag := c.Param("tag")

	rec, err := h.store.Get(tag)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error(), "tag": tags.NormalizeTag(tag)})
		return
	}
	c.JSON(http.StatusOK, rec)
}

type fetchRequest struct {
	Tag string `json:"tag" binding:"required"`
}

// Fetch resolves a tag. Cached tags return 200 with the record; new fetches
// return 202 and report progress over the event stream.
func (h *Handlers) Fetch(c *gin.Context) {
	var req fetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tag is required"})
		return
	}

	res, err := h.fetcher.Fetch(c.Request.Context(), req.Tag)
	switch {
	case err == nil:
	case errors.Is(err, fetch.ErrInvalidTag):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, fetch.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, fetch.ErrClosed):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	default:
		h.log.Error("fetch failed to start", zap.String("tag", req.Tag), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if res.Cached {
		c.JSON(http.StatusOK, res)
		return
	}
	c.JSON(http.StatusAccepted, res)
}

type translationRequest struct {
	TagTranslation     *string `json:"tag_translation"`
	MeaningTranslation *string `json:"meaning_translation"`
}

// UpdateTranslation sets the translation fields of a cached record. Omitted
// fields keep their current value; markup in supplied ones is reduced to text.
func (h *Handlers) UpdateTranslation(c *gin.Context) {
	tag := c.Param("tag")

	var req translationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid translation request"})
		return
	}

	rec, err := h.store.Get(tag)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	tagTranslation, meaningTranslation := rec.TagTranslation, rec.MeaningTranslation
	if req.TagTranslation != nil {
		tagTranslation = h.plain.NormalizeHTML(*req.TagTranslation)
	}
	if req.MeaningTranslation != nil {
		meaningTranslation = h.plain.NormalizeHTML(*req.MeaningTranslation)
	}

	if err := h.store.UpdateTranslation(rec.Tag, tagTranslation, meaningTranslation); err != nil {
		if errors.Is(err, tags.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.log.Error("failed to save translation", zap.String("tag", rec.Tag), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	updated, _ := h.store.Get(rec.Tag)
	c.JSON(http.StatusOK, updated)
}

// Suggest returns a best-effort alternate tag page
func (h *Handlers) Suggest(c *gin.Context) {
	c.JSON(http.StatusOK, h.fetcher.Suggest(c.Param("tag")))
}

// Complete returns indexed words starting with prefix
func (h *Handlers) Complete(c *gin.Context) {
	prefix := strings.TrimSpace(c.Query("prefix"))
	if prefix == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "prefix is required"})
		return
	}

	limit := defaultCompleteLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	c.JSON(http.StatusOK, gin.H{
		"prefix":      prefix,
		"completions": h.index.Complete(prefix, limit),
	})
}

var exportContentTypes = map[string]string{
	tags.FormatJSON: "application/json; charset=utf-8",
	tags.FormatYAML: "application/yaml; charset=utf-8",
	tags.FormatTOML: "application/toml; charset=utf-8",
}

// Export downloads every record in the requested format
func (h *Handlers) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", tags.FormatJSON))
	contentType, ok := exportContentTypes[format]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported format", "formats": tags.Formats})
		return
	}

	var buf bytes.Buffer
	if err := h.store.Export(&buf, format); err != nil {
		h.log.Error("export failed", zap.String("format", format), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition", "attachment; filename=tag_data."+format)
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
