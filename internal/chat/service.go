package chat

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/nexus-rag/nexus/internal/ai"
	"github.com/nexus-rag/nexus/internal/rag"
)

// Exchange is one prior user/assistant turn supplied by the caller.
type Exchange struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

// Request is the unified chat payload. Legacy field aliases
// (query/system_instruction) are resolved at the gateway; by the time
// a Request reaches this service there is one field per concept.
type Request struct {
	Message         string
	BusinessContext string
	Collection      string
	History         []Exchange
	UserID          string
}

// ExtractedLead mirrors the structured output the extraction prompt
// asks the model for. Works for any vertical; the business context
// string tells the model what counts as intent.
type ExtractedLead struct {
	IsLead          bool   `json:"is_lead"`
	ContactName     string `json:"contact_name,omitempty"`
	ContactInfo     string `json:"contact_info,omitempty"`
	InterestKeyword string `json:"interest_keyword"`
	SummaryNote     string `json:"summary_note"`
	UrgencyLevel    string `json:"urgency_level"`
}

type Response struct {
	Answer  string
	Sources []rag.Chunk
	Lead    *ExtractedLead
}

// Service composes retrieval, generation and lead extraction. It holds
// no persistence: the gateway owns secure logging around each call.
type Service struct {
	registry  *ai.Registry
	retriever rag.Retriever

	provider string
	model    string
	topK     int
}

func NewService(registry *ai.Registry, retriever rag.Retriever, provider, model string) *Service {
	if provider == "" {
		provider = "ollama"
	}
	return &Service{
		registry:  registry,
		retriever: retriever,
		provider:  provider,
		model:     model,
		topK:      6,
	}
}

// Answer runs the full turn: retrieve supporting chunks, generate a
// grounded reply, then optionally extract a sales lead. Extraction
// failure never fails the chat itself.
func (s *Service) Answer(ctx context.Context, req Request) (Response, error) {
	provider, err := s.registry.Get(ctx, s.provider, s.model)
	if err != nil {
		return Response{}, err
	}

	chunks, err := s.retriever.Query(ctx, req.Collection, req.Message, s.topK)
	if err != nil {
		return Response{}, fmt.Errorf("retrieve: %w", err)
	}

	msgs := make([]ai.Message, 0, 2*len(req.History)+2)
	msgs = append(msgs, ai.Message{Role: "system", Content: answerPrompt(chunks)})
	for _, ex := range req.History {
		if ex.User == "" && ex.Assistant == "" {
			continue
		}
		msgs = append(msgs,
			ai.Message{Role: "user", Content: ex.User},
			ai.Message{Role: "assistant", Content: ex.Assistant},
		)
	}
	msgs = append(msgs, ai.Message{Role: "user", Content: req.Message})

	answer, err := provider.Chat(ctx, msgs)
	if err != nil {
		return Response{}, fmt.Errorf("generate: %w", err)
	}

	resp := Response{Answer: answer, Sources: chunks}

	if req.BusinessContext != "" {
		lead, err := s.extractLead(ctx, provider, req.BusinessContext, req.Message, answer)
		if err != nil {
			log.Printf("[chat] lead extraction failed: %v", err)
		} else {
			resp.Lead = lead
		}
	}

	return resp, nil
}

func (s *Service) extractLead(ctx context.Context, provider ai.Provider, businessContext, query, answer string) (*ExtractedLead, error) {
	system := fmt.Sprintf(`You are a lead extraction expert for a business.

BUSINESS CONTEXT INSTRUCTIONS:
%q

Analyze the user's latest message and the assistant's reply to determine if this is a lead.
Reply with ONLY a JSON object with the keys:
is_lead (bool), contact_name (string), contact_info (string),
interest_keyword (string), summary_note (string, one sentence, max 15 words),
urgency_level ("High" | "Medium" | "Low").
If the user is just asking for general info without clear intent, set is_lead to false.`, businessContext)

	user := fmt.Sprintf("User Query: %s\nAssistant Reply: %s", query, answer)

	var lead ExtractedLead
	if err := ai.ExtractJSON(ctx, provider, system, user, &lead); err != nil {
		return nil, err
	}
	return &lead, nil
}

func answerPrompt(chunks []rag.Chunk) string {
	var b strings.Builder
	b.WriteString("You are a helpful assistant. Answer using only the knowledge base excerpts below. ")
	b.WriteString("If the excerpts do not cover the question, say you don't know.\n")
	for i, ch := range chunks {
		fmt.Fprintf(&b, "\n[%d] %s\n", i+1, ch.Text)
	}
	return b.String()
}
