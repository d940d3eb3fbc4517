package chat

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/nexus-rag/nexus/internal/ai"
	"github.com/nexus-rag/nexus/internal/rag"
)

// scriptedProvider replays canned replies and records every request.
type scriptedProvider struct {
	replies []string
	calls   [][]ai.Message
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []ai.Message) (string, error) {
	_ = ctx
	p.calls = append(p.calls, append([]ai.Message(nil), messages...))
	if len(p.replies) == 0 {
		return "ok", nil
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

type fakeRetriever struct {
	chunks []rag.Chunk
	lastQ  string
	lastC  string
}

func (f *fakeRetriever) Query(ctx context.Context, collection, query string, k int) ([]rag.Chunk, error) {
	f.lastC = collection
	f.lastQ = query
	return f.chunks, nil
}

func (f *fakeRetriever) Count(ctx context.Context, collection string) (int, error) { return 0, nil }
func (f *fakeRetriever) Reset(ctx context.Context, collection string) error        { return nil }
func (f *fakeRetriever) Index(ctx context.Context, collection, filename string, r io.Reader) (rag.IndexStats, error) {
	return rag.IndexStats{}, nil
}

func newTestChatService(prov ai.Provider, retr rag.Retriever) *Service {
	reg := ai.NewRegistry()
	reg.Register("fake", func(ctx context.Context, model string) (ai.Provider, error) {
		return prov, nil
	})
	return NewService(reg, retr, "fake", "default")
}

func TestAnswer_GroundsPromptInChunks(t *testing.T) {
	prov := &scriptedProvider{replies: []string{"grounded answer"}}
	retr := &fakeRetriever{chunks: []rag.Chunk{{Text: "opening hours are 9-5"}}}
	svc := newTestChatService(prov, retr)

	resp, err := svc.Answer(context.Background(), Request{
		Message:    "when are you open?",
		Collection: "slot_1",
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.Answer != "grounded answer" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("expected 1 source, got %d", len(resp.Sources))
	}
	if retr.lastC != "slot_1" || retr.lastQ != "when are you open?" {
		t.Fatalf("retriever called with collection=%q query=%q", retr.lastC, retr.lastQ)
	}

	if len(prov.calls) != 1 {
		t.Fatalf("expected 1 provider call, got %d", len(prov.calls))
	}
	msgs := prov.calls[0]
	if msgs[0].Role != "system" || !strings.Contains(msgs[0].Content, "opening hours are 9-5") {
		t.Fatalf("system prompt missing retrieved chunk: %q", msgs[0].Content)
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "when are you open?" {
		t.Fatalf("last provider message should be the user query, got %+v", last)
	}
}

func TestAnswer_IncludesHistory(t *testing.T) {
	prov := &scriptedProvider{replies: []string{"ok"}}
	svc := newTestChatService(prov, &fakeRetriever{})

	_, err := svc.Answer(context.Background(), Request{
		Message: "and the price?",
		History: []Exchange{{User: "do you do implants?", Assistant: "yes we do"}},
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}

	msgs := prov.calls[0]
	// system + 2 history turns + current message
	if len(msgs) != 4 {
		t.Fatalf("expected 4 provider messages, got %d", len(msgs))
	}
	if msgs[1].Content != "do you do implants?" || msgs[2].Content != "yes we do" {
		t.Fatalf("history not replayed in order: %+v", msgs[1:3])
	}
}

func TestAnswer_ExtractsLead(t *testing.T) {
	prov := &scriptedProvider{replies: []string{
		"sure, call you tomorrow",
		`{"is_lead": true, "contact_info": "maria@example.com", "interest_keyword": "Implants", "summary_note": "Wants implant quote", "urgency_level": "High"}`,
	}}
	svc := newTestChatService(prov, &fakeRetriever{})

	resp, err := svc.Answer(context.Background(), Request{
		Message:         "I'm Maria, email maria@example.com, I want implants",
		BusinessContext: "Dental clinic, look for treatment interest",
	})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.Lead == nil {
		t.Fatalf("expected a lead")
	}
	if !resp.Lead.IsLead || resp.Lead.ContactInfo != "maria@example.com" || resp.Lead.UrgencyLevel != "High" {
		t.Fatalf("unexpected lead: %+v", resp.Lead)
	}
	if len(prov.calls) != 2 {
		t.Fatalf("expected chat + extraction calls, got %d", len(prov.calls))
	}
}

func TestAnswer_LeadExtractionFailureIsSwallowed(t *testing.T) {
	prov := &scriptedProvider{replies: []string{"the answer", "not json at all"}}
	svc := newTestChatService(prov, &fakeRetriever{})

	resp, err := svc.Answer(context.Background(), Request{
		Message:         "hello",
		BusinessContext: "some business",
	})
	if err != nil {
		t.Fatalf("extraction failure must not fail the chat: %v", err)
	}
	if resp.Answer != "the answer" {
		t.Fatalf("unexpected answer %q", resp.Answer)
	}
	if resp.Lead != nil {
		t.Fatalf("expected nil lead on extraction failure, got %+v", resp.Lead)
	}
}

func TestAnswer_NoBusinessContextSkipsExtraction(t *testing.T) {
	prov := &scriptedProvider{replies: []string{"plain answer"}}
	svc := newTestChatService(prov, &fakeRetriever{})

	resp, err := svc.Answer(context.Background(), Request{Message: "hi"})
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if resp.Lead != nil {
		t.Fatalf("no business context must mean no extraction")
	}
	if len(prov.calls) != 1 {
		t.Fatalf("expected a single provider call, got %d", len(prov.calls))
	}
}
