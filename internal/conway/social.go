package conway

import (
	"context"
	"time"

	"github.com/pocketomega/automaton/internal/state"
)

func (g *HTTPGateway) PostUpdate(ctx context.Context, text string) error {
	return g.doJSON(ctx, "POST", "/v1/social/posts", map[string]any{"text": text}, nil)
}

func (g *HTTPGateway) FetchMentions(ctx context.Context) ([]state.InboxMessage, error) {
	var raw []struct {
		ID      string `json:"id"`
		Sender  string `json:"sender"`
		Content string `json:"content"`
	}
	if err := g.doJSON(ctx, "GET", "/v1/social/mentions", nil, &raw); err != nil {
		return nil, err
	}
	now := time.Now()
	out := make([]state.InboxMessage, len(raw))
	for i, m := range raw {
		out[i] = state.InboxMessage{ID: m.ID, Sender: m.Sender, Content: m.Content, ReceivedAt: now}
	}
	return out, nil
}
