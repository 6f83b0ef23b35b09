package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pocketomega/automaton/internal/state"
	"github.com/pocketomega/automaton/internal/tool"
)

// reputationFetcher is the narrow capability RegistryLookupTool needs to
// refresh a stale cache entry; satisfied by a peer-registry HTTP client
// not otherwise modeled in this package.
type reputationFetcher interface {
	FetchReputation(ctx context.Context, subject string) (state.ReputationSnapshot, error)
}

// RegistryLookupTool resolves another automaton's registry card — wallet,
// sandbox id, capabilities — and its cached reputation, refreshing the
// cache via reputationFetcher when the cached entry is stale.
type RegistryLookupTool struct {
	store   state.Store
	fetcher reputationFetcher
	maxAge  time.Duration
}

func NewRegistryLookupTool(store state.Store, fetcher reputationFetcher) *RegistryLookupTool {
	return &RegistryLookupTool{store: store, fetcher: fetcher, maxAge: time.Hour}
}

func (t *RegistryLookupTool) Name() string { return "registry_lookup" }
func (t *RegistryLookupTool) Description() string {
	return "查询另一个自治体在注册表中的信息及信誉评分（带本地缓存）。"
}
func (t *RegistryLookupTool) InputSchema() json.RawMessage {
	return tool.BuildSchema(
		tool.SchemaParam{Name: "subject", Type: "string", Description: "目标自治体标识", Required: true},
	)
}
func (t *RegistryLookupTool) Init(_ context.Context) error { return nil }
func (t *RegistryLookupTool) Close() error                 { return nil }

func (t *RegistryLookupTool) Execute(ctx context.Context, args json.RawMessage) (tool.ToolResult, error) {
	var a struct {
		Subject string `json:"subject"`
	}
	if err := json.Unmarshal(args, &a); err != nil {
		return tool.ToolResult{Error: fmt.Sprintf("参数解析失败: %v", err)}, nil
	}

	cached, err := t.store.GetReputation(ctx, a.Subject)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if cached != nil && time.Since(cached.FetchedAt) < t.maxAge {
		return tool.ToolResult{Output: formatReputation(*cached)}, nil
	}
	if t.fetcher == nil {
		if cached != nil {
			return tool.ToolResult{Output: formatReputation(*cached) + " (stale)"}, nil
		}
		return tool.ToolResult{Error: "no cached reputation and no fetcher configured"}, nil
	}

	fresh, err := t.fetcher.FetchReputation(ctx, a.Subject)
	if err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	if err := t.store.CacheReputation(ctx, fresh); err != nil {
		return tool.ToolResult{Error: err.Error()}, nil
	}
	return tool.ToolResult{Output: formatReputation(fresh)}, nil
}

func formatReputation(r state.ReputationSnapshot) string {
	return fmt.Sprintf("subject=%s score=%.2f attestations=%d fetched_at=%s",
		r.Subject, r.Score, r.AttestationCount, r.FetchedAt.Format(time.RFC3339))
}
