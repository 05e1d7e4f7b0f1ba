package chapter

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Repo *Repo
}

func NewHandler(repo *Repo) *Handler {
	return &Handler{Repo: repo}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/unread", h.listUnread)
	rg.GET("", h.listByMapping) // GET /chapters?mapping_id=1
	rg.PUT("/:id/mark-read", h.markRead)
	rg.PUT("/:id/mark-unread", h.markUnread)
}

func (h *Handler) listUnread(c *gin.Context) {
	limit := parseInt(c.Query("limit"), 100)
	offset := parseInt(c.Query("offset"), 0)

	items, err := h.Repo.ListUnread(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) listByMapping(c *gin.Context) {
	mappingID, err := strconv.ParseInt(c.Query("mapping_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mapping_id required"})
		return
	}

	items, err := h.Repo.ListByMapping(c.Request.Context(), mappingID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (h *Handler) markRead(c *gin.Context) {
	h.setRead(c, true)
}

func (h *Handler) markUnread(c *gin.Context) {
	h.setRead(c, false)
}

func (h *Handler) setRead(c *gin.Context, read bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	ok, err := h.Repo.SetRead(c.Request.Context(), id, read)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "chapter not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "read": read})
}

func parseInt(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
