package api

import (
	"errors"
	"net/http"

	"newsbot/storage"

	"github.com/gin-gonic/gin"
)

// RegisterArticleRoutes registers article-related routes.
func RegisterArticleRoutes(r *gin.Engine, articles ArticleReader) {
	h := &articleHandlers{articles: articles}
	g := r.Group("/api/articles")
	g.GET("/count", h.handleCount)
	g.GET("/:key", h.handleGet)
}

type articleHandlers struct {
	articles ArticleReader
}

func (h *articleHandlers) handleCount(c *gin.Context) {
	count, err := h.articles.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get count: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

func (h *articleHandlers) handleGet(c *gin.Context) {
	article, err := h.articles.Get(c.Request.Context(), c.Param("key"))
	if errors.Is(err, storage.ErrArticleNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get article: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, article)
}
