package tracker

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"mangatrack/internal/notify"
)

type Handler struct {
	Service *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Service: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/trigger", h.trigger)
	rg.GET("/jobs", h.listJobs)
	rg.GET("/jobs/:id", h.jobStatus)
	rg.GET("/search", h.search)
	rg.POST("/test-notification", h.testNotification)
}

// search proxies a title search to one plugin, so a manga can be located on
// a site before a mapping is created for it.
func (h *Handler) search(c *gin.Context) {
	impl := c.Query("impl_name")
	q := c.Query("q")
	if impl == "" || q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "impl_name and q required"})
		return
	}

	results, err := h.Service.Search(c.Request.Context(), impl, q)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": results})
}

type triggerRequest struct {
	MangaID  *int64 `json:"manga_id"`
	SourceID *int64 `json:"source_id"`
	Notify   *bool  `json:"notify"`
}

func (h *Handler) trigger(c *gin.Context) {
	var req triggerRequest
	if err := c.ShouldBindJSON(&req); err != nil && err.Error() != "EOF" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
		return
	}

	doNotify := true
	if req.Notify != nil {
		doNotify = *req.Notify
	}

	jobID := h.Service.Trigger(req.MangaID, req.SourceID, doNotify)

	c.JSON(http.StatusAccepted, gin.H{
		"job_id":             jobID,
		"status":             StatusPending,
		"started_at":         nil,
		"new_chapters_found": 0,
	})
}

func (h *Handler) jobStatus(c *gin.Context) {
	st, ok := h.Service.JobStatus(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) listJobs(c *gin.Context) {
	limit := 20
	if s := c.Query("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	c.JSON(http.StatusOK, gin.H{"items": h.Service.ListJobs(limit)})
}

// testNotification pushes a canned payload through the configured notifier
// so operators can verify webhook wiring.
func (h *Handler) testNotification(c *gin.Context) {
	if h.Service.notifier == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "notifier not configured"})
		return
	}

	err := h.Service.notifier.NotifyNewChapters(c.Request.Context(), []notify.NewChapter{{
		MangaTitle:    "Test Manga",
		ChapterNumber: "123",
		ChapterTitle:  "Test Chapter",
		URL:           "https://example.com/test",
		SourceName:    "Test Source",
		DetectedAt:    time.Now(),
	}})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send test notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "test notification sent"})
}
