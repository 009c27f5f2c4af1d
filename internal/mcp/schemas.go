package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// profileSearchTool returns the tool definition for profile_search
func profileSearchTool() mcp.Tool {
	return mcp.Tool{
		Name:        "profile_search",
		Description: "Search the professional profile for fragments relevant to a natural-language query, ranked by fused relevance",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural-language query (e.g., 'experience with Kafka incident response')",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of fragments to return (1-50)",
					"default":     5,
					"minimum":     1,
					"maximum":     50,
				},
				"min_similarity": map[string]interface{}{
					"type":        "number",
					"description": "Minimum vector similarity for a hit to be considered (0.0-1.0)",
					"default":     0.0,
					"minimum":     0.0,
					"maximum":     1.0,
				},
			},
			Required: []string{"query"},
		},
	}
}

// engineStatusTool returns the tool definition for engine_status
func engineStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "engine_status",
		Description: "Report fragment and vector counts, the active embedding provider, and subsystem health",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
