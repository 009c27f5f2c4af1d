// Package types provides the shared domain types for the twinrag
// retrieval engine.
//
// The central type is Fragment, a discrete piece of knowledge about a
// person's professional history (an experience, a project, a skill
// cluster). Fragments live in the relational store; each retrievable
// fragment also has exactly one embedding in the vector index, joined
// by Fragment.ID. A fragment without an embedding is invisible to
// vector search but still reachable through relational keyword search.
//
// A query flows through the pipeline as a QueryContext, produces
// Candidates (hydrated fragments tagged with which path found them),
// and ends as a RetrievalResult: fragments ranked by fused score with
// one aggregate confidence. A SessionRecord summary of the whole
// exchange is written asynchronously for offline evaluation.
//
// Scores and signals are normalized to [0, 1] throughout; higher is
// more relevant.
package types
