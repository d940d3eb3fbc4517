package secure

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// ErrRateLimited is the one failure the gateway must surface to the
// client as its own condition (HTTP 429), distinct from server errors.
var ErrRateLimited = errors.New("rate limit exceeded: daily limit reached")

// SnapshotCache is an optional read-through cache for usage snapshots.
// The database stays authoritative; cache errors are ignored.
type SnapshotCache interface {
	GetSnapshot(ctx context.Context, sessionID string) (*Snapshot, bool)
	SetSnapshot(ctx context.Context, sessionID string, s Snapshot)
	Invalidate(ctx context.Context, sessionID string)
}

type HistoryEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type LeadInfo struct {
	ID          string    `json:"id"`
	ContactInfo string    `json:"contact_info"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service ties the hasher, cipher and store together: per-user rate
// limiting over a trailing window plus encrypted chat/lead storage.
type Service struct {
	repo   *Repo
	cipher *Cipher
	cache  SnapshotCache

	limit  int
	window time.Duration

	newLeadID func() (string, error)
}

func NewService(repo *Repo, cipher *Cipher, limit int, window time.Duration, newLeadID func() (string, error)) *Service {
	if limit <= 0 {
		limit = 20
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	return &Service{repo: repo, cipher: cipher, limit: limit, window: window, newLeadID: newLeadID}
}

// WithCache attaches an optional snapshot cache.
func (s *Service) WithCache(cache SnapshotCache) *Service {
	s.cache = cache
	return s
}

func (s *Service) Cipher() *Cipher { return s.cipher }

// Admit hashes the identifier, counts admitted interactions inside the
// trailing window and either rejects with ErrRateLimited or records
// this interaction and returns the session key. The check-then-log
// pair is not atomic; concurrent requests from one user may slightly
// exceed the limit, which is accepted. A store error during the count
// propagates: usage that cannot be verified cannot be admitted.
func (s *Service) Admit(ctx context.Context, rawID string) (string, error) {
	key := HashUserID(rawID)
	if key == "" {
		// No identity: nothing to limit, nothing to persist.
		return "", nil
	}

	since := time.Now().UTC().Add(-s.window)
	count, err := s.repo.CountUsageSince(ctx, key, since)
	if err != nil {
		return "", fmt.Errorf("verify usage: %w", err)
	}
	if count >= s.limit {
		return "", ErrRateLimited
	}

	if err := s.repo.InsertUsage(ctx, &Usage{SessionID: key}); err != nil {
		return "", fmt.Errorf("log usage: %w", err)
	}
	if s.cache != nil {
		s.cache.Invalidate(ctx, key)
	}
	return key, nil
}

// UsageStats computes the quota snapshot without logging an interaction.
func (s *Service) UsageStats(ctx context.Context, rawID string) (Snapshot, error) {
	key := HashUserID(rawID)
	if key == "" {
		return Snapshot{DailyLimit: s.limit, Remaining: s.limit}, nil
	}

	if s.cache != nil {
		if snap, ok := s.cache.GetSnapshot(ctx, key); ok {
			return *snap, nil
		}
	}

	since := time.Now().UTC().Add(-s.window)
	count, err := s.repo.CountUsageSince(ctx, key, since)
	if err != nil {
		return Snapshot{}, fmt.Errorf("count usage: %w", err)
	}

	remaining := s.limit - count
	if remaining < 0 {
		remaining = 0
	}
	snap := Snapshot{
		DailyLimit:     s.limit,
		CurrentUsage:   count,
		Remaining:      remaining,
		IsLimitReached: remaining == 0,
	}
	if s.cache != nil {
		s.cache.SetSnapshot(ctx, key, snap)
	}
	return snap, nil
}

// SaveMessage encrypts and appends one chat turn. Called on the
// secondary logging path: callers log and swallow the error so a store
// hiccup never fails the chat response itself.
func (s *Service) SaveMessage(ctx context.Context, rawID, role, content string) error {
	key := HashUserID(rawID)
	if key == "" {
		return nil
	}
	return s.AppendEncrypted(ctx, key, role, mustEncrypt(s.cipher, content))
}

// AppendEncrypted stores an already-sealed payload under a session key.
// Used directly by the queue worker, which receives ciphertext.
func (s *Service) AppendEncrypted(ctx context.Context, sessionKey, role string, ciphertext []byte) error {
	return s.repo.InsertMessage(ctx, &Message{
		SessionID: sessionKey,
		Role:      role,
		Content:   ciphertext,
	})
}

// History returns the decrypted conversation in creation order.
// Undecryptable rows come back as the error marker in place.
func (s *Service) History(ctx context.Context, rawID string) ([]HistoryEntry, error) {
	key := HashUserID(rawID)
	if key == "" {
		return nil, nil
	}
	msgs, err := s.repo.ListMessages(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, HistoryEntry{Role: m.Role, Content: s.cipher.Decrypt(m.Content)})
	}
	return out, nil
}

// SaveLead stores an encrypted conversion record. Leads are permanent.
func (s *Service) SaveLead(ctx context.Context, contactInfo, summary string) (string, error) {
	if s.newLeadID == nil {
		return "", errors.New("lead id generator not configured")
	}
	id, err := s.newLeadID()
	if err != nil {
		return "", fmt.Errorf("lead id: %w", err)
	}
	lead := &Lead{
		ID:          id,
		ContactInfo: mustEncrypt(s.cipher, contactInfo),
		Summary:     mustEncrypt(s.cipher, summary),
	}
	if err := s.repo.InsertLead(ctx, lead); err != nil {
		return "", fmt.Errorf("insert lead: %w", err)
	}
	return id, nil
}

func (s *Service) Leads(ctx context.Context, limit int) ([]LeadInfo, error) {
	leads, err := s.repo.ListLeads(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list leads: %w", err)
	}
	out := make([]LeadInfo, 0, len(leads))
	for _, l := range leads {
		out = append(out, LeadInfo{
			ID:          l.ID,
			ContactInfo: s.cipher.Decrypt(l.ContactInfo),
			Summary:     s.cipher.Decrypt(l.Summary),
			CreatedAt:   l.CreatedAt,
		})
	}
	return out, nil
}

// mustEncrypt exists because Encrypt only errors when the OS entropy
// source fails; storing the marker-free nil is the sane degradation.
func mustEncrypt(c *Cipher, plaintext string) []byte {
	b, err := c.Encrypt(plaintext)
	if err != nil {
		log.Printf("[secure] encrypt failed, storing empty payload: %v", err)
		return nil
	}
	return b
}
