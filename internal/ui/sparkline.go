package ui

import (
	"strings"
)

// Sparkline renders a text-based sparkline chart using Unicode block characters.
// Samples live in a ring buffer; rendering shows the most recent ones.
type Sparkline struct {
	samples  []float64 // Ring buffer of samples
	capacity int       // Ring buffer size
	head     int       // Next write position in ring buffer
	count    int       // Number of samples added
	max      float64   // Maximum value seen (for scaling)
}

// SparklineChars are the Unicode block characters for rendering sparklines.
// 8 levels of height from near-empty to full.
var SparklineChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// NewSparkline creates a new sparkline holding up to capacity samples.
func NewSparkline(capacity int) *Sparkline {
	if capacity <= 0 {
		capacity = 60
	}
	return &Sparkline{
		samples:  make([]float64, capacity),
		capacity: capacity,
	}
}

// Add adds a new sample to the sparkline.
func (s *Sparkline) Add(value float64) {
	s.samples[s.head] = value
	s.head = (s.head + 1) % s.capacity
	s.count++

	if value > s.max {
		s.max = value
	}

	// Recalculate max periodically so old peaks age out
	if s.count%s.capacity == 0 {
		s.recalculateMax()
	}
}

// recalculateMax finds the current maximum in the buffer.
func (s *Sparkline) recalculateMax() {
	s.max = 0
	for _, v := range s.samples {
		if v > s.max {
			s.max = v
		}
	}
	if s.max < 1 {
		s.max = 1
	}
}

// Render returns the most recent samples as a string of block characters,
// oldest on the left. Slots without samples yet render as spaces. A width
// of zero or beyond capacity renders at full capacity.
func (s *Sparkline) Render(width int) string {
	if width <= 0 || width > s.capacity {
		width = s.capacity
	}

	if s.count == 0 {
		return strings.Repeat(string(SparklineChars[0]), width)
	}

	if s.max <= 0 {
		s.recalculateMax()
	}

	have := min(s.count, s.capacity)
	if have > width {
		have = width
	}
	start := (s.head - have + s.capacity) % s.capacity

	var sb strings.Builder
	sb.Grow(width * 3) // block runes are 3 bytes in UTF-8

	for i := 0; i < have; i++ {
		value := s.samples[(start+i)%s.capacity]
		sb.WriteRune(SparklineChars[s.level(value)])
	}
	for i := have; i < width; i++ {
		sb.WriteRune(' ')
	}

	return sb.String()
}

// level scales a value to an index into SparklineChars.
func (s *Sparkline) level(value float64) int {
	if s.max <= 0 {
		return 0
	}
	idx := int(value / s.max * float64(len(SparklineChars)-1))
	if idx < 0 {
		return 0
	}
	if idx >= len(SparklineChars) {
		return len(SparklineChars) - 1
	}
	return idx
}

// Clear resets the sparkline.
func (s *Sparkline) Clear() {
	for i := range s.samples {
		s.samples[i] = 0
	}
	s.head = 0
	s.count = 0
	s.max = 0
}

// Count returns the number of samples added.
func (s *Sparkline) Count() int {
	return s.count
}

// Max returns the current maximum value.
func (s *Sparkline) Max() float64 {
	return s.max
}
