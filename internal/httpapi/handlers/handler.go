package handlers

import (
	"github.com/nexus-rag/nexus/internal/chat"
	"github.com/nexus-rag/nexus/internal/config"
	"github.com/nexus-rag/nexus/internal/rag"
	"github.com/nexus-rag/nexus/internal/retention"
	"github.com/nexus-rag/nexus/internal/secure"
	"github.com/nexus-rag/nexus/internal/store/rabbitmq"
)

type Handler struct {
	Cfg       config.Config
	Secure    *secure.Service
	Sweeper   *retention.Sweeper
	ChatSvc   *chat.Service
	Retriever rag.Retriever
	Rabbit    *rabbitmq.Publisher // nil means synchronous logging
}

func NewHandler(cfg config.Config, sec *secure.Service, sweeper *retention.Sweeper, chatSvc *chat.Service, retriever rag.Retriever, rabbit *rabbitmq.Publisher) *Handler {
	return &Handler{
		Cfg:       cfg,
		Secure:    sec,
		Sweeper:   sweeper,
		ChatSvc:   chatSvc,
		Retriever: retriever,
		Rabbit:    rabbit,
	}
}
