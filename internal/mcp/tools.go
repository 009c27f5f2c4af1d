package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dhollis/twinrag/internal/pipeline"
	"github.com/dhollis/twinrag/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32004 // Query parameter is empty or unusable
)

// handleProfileSearch handles the profile_search tool invocation
func (s *Server) handleProfileSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", pipeline.DefaultTopK)
	if topK < 1 || topK > 50 {
		return nil, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 50", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	minSimilarity := getFloatDefault(args, "min_similarity", 0)
	if minSimilarity < 0 || minSimilarity > 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "min_similarity must be between 0.0 and 1.0", map[string]interface{}{
			"param": "min_similarity",
			"value": minSimilarity,
		})
	}

	result, err := s.pipeline.RetrieveAndRank(ctx, query,
		pipeline.WithTopK(topK),
		pipeline.WithMinSimilarity(minSimilarity))
	if errors.Is(err, types.ErrInvalidQuery) {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query has no searchable content", map[string]interface{}{
			"param":  "query",
			"reason": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, 0, len(result.Items))
	for _, item := range result.Items {
		items = append(items, map[string]interface{}{
			"id":          item.FragmentID,
			"kind":        string(item.Fragment.Kind),
			"title":       item.Fragment.Title,
			"body":        item.Fragment.Body,
			"tags":        item.Fragment.Tags,
			"date_range":  item.Fragment.DateRange,
			"fused_score": item.FusedScore,
			"signals": map[string]interface{}{
				"vector":     item.Signals.Vector,
				"keyword":    item.Signals.Keyword,
				"prior":      item.Signals.Prior,
				"importance": item.Signals.Importance,
			},
		})
	}

	response := map[string]interface{}{
		"fragments":     items,
		"count":         len(items),
		"confidence":    result.Confidence,
		"degraded":      result.Degraded,
		"dropped_stale": result.DroppedStale,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEngineStatus handles the engine_status tool invocation
func (s *Server) handleEngineStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fragments, fragErr := s.store.CountFragments(ctx)
	info, infoErr := s.index.Info(ctx)

	// A down index is a reportable state, not a failure of this tool.
	vectorCount, dimension := 0, 0
	if infoErr == nil && info != nil {
		vectorCount = info.VectorCount
		dimension = info.Dimension
	}

	response := map[string]interface{}{
		"statistics": map[string]interface{}{
			"fragments_count": fragments,
			"vectors_count":   vectorCount,
			"dimension":       dimension,
		},
		"embedder": map[string]interface{}{
			"provider":  s.embedder.Provider(),
			"dimension": s.embedder.Dimension(),
		},
		"health": map[string]interface{}{
			"store_accessible": fragErr == nil,
			"vector_index_up":  infoErr == nil,
			"degraded_capable": true,
		},
	}
	if s.recorder != nil {
		response["sessions_dropped"] = s.recorder.Dropped()
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getFloatDefault extracts a number parameter with a default value
func getFloatDefault(args map[string]interface{}, key string, defaultValue float64) float64 {
	if val, ok := args[key].(float64); ok {
		return val
	}
	if val, ok := args[key].(int); ok {
		return float64(val)
	}
	return defaultValue
}
