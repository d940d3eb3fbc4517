package handlers

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus-rag/nexus/internal/common"
)

func (h *Handler) Ping(c *gin.Context) {
	common.OK(c, gin.H{"message": "Welcome to NEXUS API. Systems Online."})
}

func (h *Handler) Status(c *gin.Context) {
	count, err := h.Retriever.Count(c.Request.Context(), h.Cfg.DefaultCollection)
	if err != nil {
		log.Printf("[Status] count failed err=%v", err)
		common.OK(c, gin.H{"status": "degraded", "document_count": 0, "ready": false})
		return
	}
	common.OK(c, gin.H{
		"status":         "online",
		"document_count": count,
		"ready":          count > 0,
	})
}

// Ingest streams an uploaded document straight to the retrieval
// sidecar; nothing is kept on local disk.
func (h *Handler) Ingest(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		common.Fail(c, http.StatusBadRequest, 10005, "file required")
		return
	}
	collection := c.PostForm("collection_name")
	if collection == "" {
		collection = h.Cfg.DefaultCollection
	}

	f, err := fileHeader.Open()
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50009, "failed to read upload")
		return
	}
	defer f.Close()

	stats, err := h.Retriever.Index(c.Request.Context(), collection, fileHeader.Filename, f)
	if err != nil {
		log.Printf("[Ingest] index %q failed err=%v", fileHeader.Filename, err)
		common.Fail(c, http.StatusInternalServerError, 50010, "processing failed")
		return
	}

	common.OK(c, gin.H{
		"filename":       fileHeader.Filename,
		"indexing_stats": stats,
	})
}
