// Package telemetry records query patterns for corpus curation.
// All data is stored locally under the corpus data dir - no external
// reporting.
package telemetry

import (
	"strings"
	"time"
)

// QueryRecord captures one evaluated query for recording.
type QueryRecord struct {
	// Shape is the canonical clause-shape label, e.g. "tags+requires".
	Shape string

	// Terms are the searchable terms of the query: tags, requirement
	// kind names, and words from the text clauses.
	Terms []string

	// Text is the printable form of the query, kept verbatim for the
	// zero-result log.
	Text string

	ResultCount int
	Latency     time.Duration
	Timestamp   time.Time
}

// IsZeroResult returns true if this query matched nothing.
func (r QueryRecord) IsZeroResult() bool {
	return r.ResultCount == 0
}

// LatencyBucket represents a latency histogram bucket.
type LatencyBucket string

const (
	BucketP10   LatencyBucket = "p10"   // <10ms
	BucketP50   LatencyBucket = "p50"   // 10-50ms
	BucketP100  LatencyBucket = "p100"  // 50-100ms
	BucketP500  LatencyBucket = "p500"  // 100-500ms
	BucketP1000 LatencyBucket = "p1000" // >=500ms
)

// LatencyToBucket converts a duration to its histogram bucket.
func LatencyToBucket(d time.Duration) LatencyBucket {
	ms := d.Milliseconds()
	switch {
	case ms < 10:
		return BucketP10
	case ms < 50:
		return BucketP50
	case ms < 100:
		return BucketP100
	case ms < 500:
		return BucketP500
	default:
		return BucketP1000
	}
}

// TermCount represents a term and its frequency count.
type TermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// ExtractTerms extracts recordable terms from free text. Terms are
// lowercased and filtered to minimum length 3.
func ExtractTerms(text string) []string {
	text = strings.ToLower(strings.TrimSpace(text))
	if text == "" {
		return nil
	}

	words := strings.Fields(text)
	var terms []string
	for _, w := range words {
		if len(w) >= 3 {
			terms = append(terms, w)
		}
	}

	if len(terms) == 0 {
		return nil
	}
	return terms
}

// Summary is an aggregated view of recorded query telemetry. The
// zero-result list holds only the most recent entries; the cap is
// zeroResultCap.
type Summary struct {
	TotalQueries      int64                   `json:"total_queries"`
	ShapeCounts       map[string]int64        `json:"shape_counts"`
	TopTerms          []TermCount             `json:"top_terms"`
	ZeroResultQueries []string                `json:"zero_result_queries"`
	LatencyBuckets    map[LatencyBucket]int64 `json:"latency_buckets"`
}
