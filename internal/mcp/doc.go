// Package mcp implements the Model Context Protocol (MCP) server for twinrag.
//
// The MCP server exposes two tools to AI assistants:
//   - profile_search: Query the professional profile for ranked, scored fragments
//   - engine_status: Check corpus statistics and subsystem health
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server communicates with MCP clients via standard input/output;
// all logging goes to stderr so stdout stays a clean protocol stream.
//
// # Tool: profile_search
//
// Retrieve and rank profile fragments for a natural-language query:
//
//	Request:
//	{
//	  "name": "profile_search",
//	  "arguments": {
//	    "query": "Kafka incident response",
//	    "top_k": 3,
//	    "min_similarity": 0.0
//	  }
//	}
//
//	Response:
//	{
//	  "fragments": [
//	    {
//	      "id": "exp-kafka",
//	      "kind": "experience",
//	      "title": "Kafka incident response automation",
//	      "tags": ["Kafka", "Automation"],
//	      "fused_score": 0.94,
//	      "signals": {"vector": 0.92, "keyword": 1.0, "prior": 0.9, "importance": 0.75}
//	    }
//	  ],
//	  "count": 1,
//	  "confidence": 0.31,
//	  "degraded": false,
//	  "dropped_stale": 0
//	}
//
// A degraded response (vector path unavailable, relational ranking only)
// carries "degraded": true, distinct from an empty non-degraded result.
//
// # Tool: engine_status
//
// Report corpus counts, the active embedding provider, and health:
//
//	Request:
//	{"name": "engine_status", "arguments": {}}
//
//	Response:
//	{
//	  "statistics": {"fragments_count": 42, "vectors_count": 42, "dimension": 1024},
//	  "embedder": {"provider": "mixedbread", "dimension": 1024},
//	  "health": {"store_accessible": true, "vector_index_up": true, "degraded_capable": true}
//	}
//
// # Error Codes
//
//	-32602  invalid method parameters (bad top_k, bad min_similarity)
//	-32603  internal error (retrieval failure)
//	-32004  empty or unusable query
package mcp
