package types

import "time"

// Timings captures per-stage latency for one query, in milliseconds.
type Timings struct {
	EmbedMS        int64
	VectorSearchMS int64
	HydrateMS      int64
	FuseMS         int64
	TotalMS        int64
}

// SessionRecord is the append-only summary of one retrieval, written
// asynchronously for offline evaluation. It is owned by the session
// recorder and never read back by the retrieval path.
type SessionRecord struct {
	ID         string
	QueryText  string
	KindFilter Kind
	Keywords   []string
	ResultIDs  []string
	Timings    Timings
	Degraded   bool
	CreatedAt  time.Time
}
