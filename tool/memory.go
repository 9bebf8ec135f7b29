package tool

import (
	"context"
	"errors"
	"fmt"

	"github.com/hupe1980/agenttask/core"
	"github.com/hupe1980/agenttask/internal/prompts"
	"github.com/hupe1980/agenttask/logging"
	"github.com/hupe1980/agenttask/memory"
	"github.com/hupe1980/agenttask/metrics"
)

// MemoryRequest is one of SearchRequest, MemorizeRequest, ForgetRequest or
// DeleteRequest.
type MemoryRequest interface {
	memoryRequest()
}

// SearchRequest looks up memories similar to Query.
type SearchRequest struct {
	Query     string
	Count     int
	Threshold float32
}

// MemorizeRequest stores Text as a new memory.
type MemorizeRequest struct {
	Text string
}

// ForgetRequest deletes every memory similar to Query.
type ForgetRequest struct {
	Query string
}

// DeleteRequest deletes memories by id.
type DeleteRequest struct {
	IDs []string
}

func (SearchRequest) memoryRequest()   {}
func (MemorizeRequest) memoryRequest() {}
func (ForgetRequest) memoryRequest()   {}
func (DeleteRequest) memoryRequest()   {}

// ParseMemoryRequest maps loose tool arguments onto a request. The first
// present key wins in the order query, memorize, forget, delete. For delete,
// ids are extracted from free text. It reports false when no key is present.
func ParseMemoryRequest(args map[string]any) (MemoryRequest, bool) {
	if q, ok := stringArg(args, "query"); ok {
		return SearchRequest{
			Query:     q,
			Count:     intArg(args, "count", memory.DefaultCount),
			Threshold: floatArg(args, "threshold", memory.DefaultThreshold),
		}, true
	}
	if text, ok := stringArg(args, "memorize"); ok {
		return MemorizeRequest{Text: text}, true
	}
	if q, ok := stringArg(args, "forget"); ok {
		return ForgetRequest{Query: q}, true
	}
	if raw, ok := stringArg(args, "delete"); ok {
		return DeleteRequest{IDs: memory.ExtractIDs(raw)}, true
	}
	return nil, false
}

// DispatchMemory executes req against store and returns the message for the
// model.
func DispatchMemory(ctx context.Context, store core.MemoryStore, req MemoryRequest) (string, error) {
	switch r := req.(type) {
	case SearchRequest:
		docs, err := store.SearchByThreshold(ctx, r.Query, r.Count, r.Threshold)
		if err != nil {
			return "", err
		}
		return memory.FormatSearchResult(r.Query, docs), nil
	case MemorizeRequest:
		id, err := store.Insert(ctx, r.Text)
		if err != nil {
			return "", err
		}
		return prompts.MustRender(prompts.MemorySaved, map[string]any{"MemoryID": id}), nil
	case ForgetRequest:
		n, err := store.DeleteByQuery(ctx, r.Query, memory.DefaultThreshold)
		if err != nil {
			return "", err
		}
		return prompts.MustRender(prompts.MemoriesDeleted, map[string]any{"MemoryCount": n}), nil
	case DeleteRequest:
		n, err := store.DeleteByIDs(ctx, r.IDs)
		if err != nil {
			return "", err
		}
		return prompts.MustRender(prompts.MemoriesDeleted, map[string]any{"MemoryCount": n}), nil
	default:
		return "", fmt.Errorf("unsupported memory request %T", req)
	}
}

func memoryOpName(req MemoryRequest) string {
	switch req.(type) {
	case SearchRequest:
		return "search"
	case MemorizeRequest:
		return "insert"
	case ForgetRequest:
		return "forget"
	case DeleteRequest:
		return "delete"
	default:
		return "unknown"
	}
}

// MemoryOptions configures NewMemory.
type MemoryOptions struct {
	Logger  logging.Logger
	Metrics *metrics.Metrics
}

// Memory is the long-term memory tool.
type Memory struct {
	open    core.MemoryStoreFunc
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewMemory creates the memory tool over the store resolved by open.
func NewMemory(open core.MemoryStoreFunc, optFns ...func(o *MemoryOptions)) *Memory {
	opts := MemoryOptions{}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Memory{open: open, logger: logging.OrNoOp(opts.Logger), metrics: opts.Metrics}
}

// Name implements Tool.
func (m *Memory) Name() string { return "memory" }

// Description implements Tool.
func (m *Memory) Description() string {
	return "Manage long-term memory. Provide exactly one of: query (search, with optional count and threshold), " +
		"memorize (text to save), forget (delete memories similar to a query) or delete (comma separated memory ids)."
}

// Parameters implements Tool.
func (m *Memory) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query":     map[string]any{"type": "string", "description": "Search memories similar to this text"},
			"count":     map[string]any{"type": "integer", "description": "Maximum number of results (default 5)"},
			"threshold": map[string]any{"type": "number", "description": "Minimum similarity 0..1 (default 0.1)"},
			"memorize":  map[string]any{"type": "string", "description": "Text to store"},
			"forget":    map[string]any{"type": "string", "description": "Delete memories similar to this text"},
			"delete":    map[string]any{"type": "string", "description": "Memory ids to delete"},
		},
	}
}

// Call implements Tool. A dimension mismatch is fatal for the task; any
// other failure is reported to the model as text.
func (m *Memory) Call(tc *core.ToolContext, args map[string]any) (Response, error) {
	req, ok := ParseMemoryRequest(args)
	if !ok {
		m.logger.Warn("No recognized memory operation", "agent", tc.AgentName())
		return Response{Message: prompts.MustRender(prompts.NoRecognizedOperation, nil)}, nil
	}

	ctx := tc.Context()
	msg, err := m.dispatch(ctx, req)
	m.metrics.IncMemoryOp(memoryOpName(req))
	if err != nil {
		if errors.Is(err, memory.ErrDimensionMismatch) {
			m.logger.Error("Memory embedding dimension mismatch", "error", err, "hint", memory.RemediationHint)
			return Response{}, err
		}
		m.logger.Error("Memory operation failed", "error", err)
		return Response{Message: fmt.Sprintf("An error occurred: %v", err)}, nil
	}
	return Response{Message: msg}, nil
}

func (m *Memory) dispatch(ctx context.Context, req MemoryRequest) (string, error) {
	if m.open == nil {
		return "", errors.New("memory is not configured")
	}
	store, err := m.open(ctx)
	if err != nil {
		return "", err
	}
	return DispatchMemory(ctx, store, req)
}
