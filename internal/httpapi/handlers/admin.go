package handlers

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/nexus-rag/nexus/internal/auth"
	"github.com/nexus-rag/nexus/internal/common"
)

// Cleanup manually triggers the retention sweep and reports how many
// rows went, same shape as the timer job.
func (h *Handler) Cleanup(c *gin.Context) {
	res, err := h.Sweeper.Sweep(c.Request.Context())
	if err != nil {
		log.Printf("[Cleanup] sweep failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50005, "cleanup failed")
		return
	}
	common.OK(c, gin.H{"deleted_counts": res})
}

type resetReq struct {
	CollectionName string `json:"collection_name"`
}

func (h *Handler) ResetCollection(c *gin.Context) {
	var req resetReq
	_ = c.ShouldBindJSON(&req)
	if req.CollectionName == "" {
		req.CollectionName = h.Cfg.DefaultCollection
	}
	if strings.Contains(req.CollectionName, "..") || strings.ContainsAny(req.CollectionName, "/\\") {
		common.Fail(c, http.StatusBadRequest, 10004, "invalid collection name")
		return
	}

	if err := h.Retriever.Reset(c.Request.Context(), req.CollectionName); err != nil {
		log.Printf("[ResetCollection] reset %q failed err=%v", req.CollectionName, err)
		common.Fail(c, http.StatusInternalServerError, 50006, "failed to reset knowledge base")
		return
	}
	common.OK(c, gin.H{"collection": req.CollectionName})
}

func (h *Handler) ListLeads(c *gin.Context) {
	leads, err := h.Secure.Leads(c.Request.Context(), 100)
	if err != nil {
		log.Printf("[ListLeads] err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50007, "failed to list leads")
		return
	}
	common.OK(c, gin.H{"leads": leads})
}

// IssueToken exchanges the service API key for a short-lived bearer
// token, so operator tooling does not need to hold the long-lived key.
func (h *Handler) IssueToken(c *gin.Context) {
	if h.Cfg.APIKey == "" || c.GetHeader("X-NEXUS-KEY") != h.Cfg.APIKey {
		common.Fail(c, http.StatusForbidden, 40301, "could not validate credentials")
		return
	}
	token, err := auth.SignToken(h.Cfg.Secret, 24*time.Hour)
	if err != nil {
		common.Fail(c, http.StatusInternalServerError, 50008, "failed to sign token")
		return
	}
	common.OK(c, gin.H{"token": token, "expires_in": int((24 * time.Hour).Seconds())})
}
