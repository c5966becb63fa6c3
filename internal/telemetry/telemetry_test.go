package telemetry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLatencyToBucket(t *testing.T) {
	tests := []struct {
		name    string
		latency time.Duration
		want    LatencyBucket
	}{
		{"sub 10ms", 5 * time.Millisecond, BucketP10},
		{"exactly 10ms", 10 * time.Millisecond, BucketP50},
		{"under 50ms", 49 * time.Millisecond, BucketP50},
		{"under 100ms", 75 * time.Millisecond, BucketP100},
		{"under 500ms", 300 * time.Millisecond, BucketP500},
		{"over 500ms", 2 * time.Second, BucketP1000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LatencyToBucket(tt.latency))
		})
	}
}

func TestExtractTerms(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"lowercases and splits", "Ocean Seascape", []string{"ocean", "seascape"}},
		{"drops short words", "an icy sea", []string{"icy", "sea"}},
		{"empty input", "   ", nil},
		{"all short", "a b c", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractTerms(tt.text))
		})
	}
}

func TestQueryRecord_IsZeroResult(t *testing.T) {
	assert.True(t, QueryRecord{ResultCount: 0}.IsZeroResult())
	assert.False(t, QueryRecord{ResultCount: 7}.IsZeroResult())
}
