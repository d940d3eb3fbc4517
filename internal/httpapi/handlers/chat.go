package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nexus-rag/nexus/internal/chat"
	"github.com/nexus-rag/nexus/internal/common"
	"github.com/nexus-rag/nexus/internal/secure"
	"github.com/nexus-rag/nexus/internal/store/rabbitmq"
)

// chatReq accepts both the current payload and the legacy field names.
// The current field wins when both are present.
type chatReq struct {
	Message         string `json:"message"`
	Query           string `json:"query"` // legacy alias of message
	BusinessContext string `json:"business_context"`
	SystemInstr     string `json:"system_instruction"` // legacy alias of business_context

	CollectionName string          `json:"collection_name"`
	History        []chat.Exchange `json:"history"`
	UserID         string          `json:"user_id"`
}

func (r *chatReq) normalize(defaultCollection string) {
	if r.Message == "" {
		r.Message = r.Query
	}
	if r.BusinessContext == "" {
		r.BusinessContext = r.SystemInstr
	}
	if r.CollectionName == "" {
		r.CollectionName = defaultCollection
	}
}

func (h *Handler) Chat(c *gin.Context) {
	var req chatReq
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, 10001, "invalid json")
		return
	}
	req.normalize(h.Cfg.DefaultCollection)
	if req.Message == "" {
		common.Fail(c, http.StatusBadRequest, 10002, "message required")
		return
	}

	ctx := c.Request.Context()

	// Rate limit fires before anything is persisted for this turn.
	var sessionKey string
	if req.UserID != "" {
		key, err := h.Secure.Admit(ctx, req.UserID)
		if err != nil {
			if errors.Is(err, secure.ErrRateLimited) {
				common.Fail(c, http.StatusTooManyRequests, 42900, "rate limit exceeded: daily limit reached")
				return
			}
			log.Printf("[Chat] admit failed user=%s err=%v", secure.HashUserID(req.UserID), err)
			common.Fail(c, http.StatusInternalServerError, 50001, "could not verify usage")
			return
		}
		sessionKey = key
		h.logTurn(ctx, sessionKey, "user", req.Message)
	}

	resp, err := h.ChatSvc.Answer(ctx, chat.Request{
		Message:         req.Message,
		BusinessContext: req.BusinessContext,
		Collection:      req.CollectionName,
		History:         req.History,
		UserID:          req.UserID,
	})
	if err != nil {
		log.Printf("[Chat] answer failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50002, "failed to generate answer")
		return
	}

	if resp.Lead != nil && resp.Lead.IsLead && resp.Lead.ContactInfo != "" {
		if _, err := h.Secure.SaveLead(ctx, resp.Lead.ContactInfo, resp.Lead.SummaryNote); err != nil {
			log.Printf("[Chat] save lead failed err=%v", err)
		}
	}

	var usage *secure.Snapshot
	if sessionKey != "" {
		h.logTurn(ctx, sessionKey, "assistant", resp.Answer)

		snap, err := h.Secure.UsageStats(ctx, req.UserID)
		if err != nil {
			log.Printf("[Chat] usage stats failed err=%v", err)
		} else {
			usage = &snap
		}
	}

	common.OK(c, gin.H{
		"answer":    resp.Answer,
		"sources":   resp.Sources,
		"lead_data": resp.Lead,
		"usage":     usage,
	})
}

// logTurn encrypts and stores one side of the conversation. Secondary
// path: failures are logged and swallowed so the chat response itself
// never depends on the log write. With a broker configured the append
// rides the queue and the worker does the insert.
func (h *Handler) logTurn(ctx context.Context, sessionKey, role, content string) {
	ciphertext, err := h.Secure.Cipher().Encrypt(content)
	if err != nil {
		log.Printf("[Chat] encrypt %s turn failed err=%v", role, err)
		return
	}

	if h.Rabbit != nil {
		id, err := common.NewULID()
		if err == nil {
			err = h.Rabbit.PublishAppend(ctx, rabbitmq.AppendJob{
				ID:         id,
				SessionKey: sessionKey,
				Role:       role,
				Ciphertext: ciphertext,
			})
		}
		if err == nil {
			return
		}
		log.Printf("[Chat] publish append failed, falling back to direct insert err=%v", err)
	}

	if err := h.Secure.AppendEncrypted(ctx, sessionKey, role, ciphertext); err != nil {
		log.Printf("[Chat] append %s turn failed err=%v", role, err)
	}
}

func (h *Handler) Usage(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		common.Fail(c, http.StatusBadRequest, 10003, "user_id required")
		return
	}

	snap, err := h.Secure.UsageStats(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[Usage] stats failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50003, "failed to compute usage")
		return
	}
	common.OK(c, snap)
}

func (h *Handler) History(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		common.Fail(c, http.StatusBadRequest, 10003, "user_id required")
		return
	}

	entries, err := h.Secure.History(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[History] list failed err=%v", err)
		common.Fail(c, http.StatusInternalServerError, 50004, "failed to load history")
		return
	}
	if entries == nil {
		entries = []secure.HistoryEntry{}
	}
	common.OK(c, gin.H{"history": entries})
}
