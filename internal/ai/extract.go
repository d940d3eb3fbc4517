package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON asks the provider for a structured reply and unmarshals
// it into out. Models often wrap JSON in a code fence; strip it before
// decoding.
func ExtractJSON(ctx context.Context, p Provider, system, user string, out any) error {
	reply, err := p.Chat(ctx, []Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	})
	if err != nil {
		return err
	}

	raw := strings.TrimSpace(reply)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSuffix(strings.TrimSpace(raw), "```")
		raw = strings.TrimSpace(raw)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("decode extraction reply: %w", err)
	}
	return nil
}
