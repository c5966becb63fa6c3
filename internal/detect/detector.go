// Package detect infers a shader's resource requirements from its
// declared metadata, render-pass structure, and source text.
//
// Detection is a pure function over the record: no I/O, no state, same
// input always yields the same KindSet. It only ever widens the declared
// set — a kind stated in metadata is never removed, and text scanning is
// substring matching against fixed token tables, not GLSL parsing.
// False negatives are acceptable; false positives are damped by
// requiring ambiguous tokens to appear on channel-binding lines.
package detect

import (
	"strings"

	"github.com/shaderdex/shaderdex/internal/shader"
)

// Detector applies a detection Policy to shader records.
type Detector struct {
	policy Policy
}

// New returns a Detector using the default policy.
func New() *Detector {
	return NewWithPolicy(DefaultPolicy())
}

// NewWithPolicy returns a Detector using a custom rule set.
func NewWithPolicy(p Policy) *Detector {
	return &Detector{policy: p}
}

// Detect returns the record's full requirement set: declared kinds plus
// every kind evidenced by pass structure or source text. A record with
// no passes yields exactly its declared set.
func (d *Detector) Detect(rec *shader.Record) shader.KindSet {
	out := rec.DeclaredRequires

	for i := range rec.Passes {
		pass := &rec.Passes[i]

		if k, ok := d.policy.PassTypes[pass.Type]; ok {
			out = out.Add(k)
		}

		for _, in := range pass.Inputs {
			if k, ok := d.policy.InputTypes[in.Type]; ok {
				out = out.Add(k)
			}
			if in.FilePath != "" && d.pathImpliesTexture(in.FilePath) {
				out = out.Add(shader.KindTexture)
			}
		}

		out = out.Union(d.scanSource(pass.Code))
	}

	return out
}

func (d *Detector) pathImpliesTexture(path string) bool {
	lower := strings.ToLower(path)
	for _, frag := range d.policy.MediaPathFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// scanSource applies the token tables to one pass's source text.
func (d *Detector) scanSource(code string) shader.KindSet {
	var out shader.KindSet
	if code == "" {
		return out
	}

	for _, rule := range d.policy.BareTokens {
		if strings.Contains(code, rule.Token) {
			out = out.Add(rule.Kind)
		}
	}

	for _, line := range strings.Split(code, "\n") {
		if !d.isChannelLine(line) {
			continue
		}
		for _, rule := range d.policy.ChannelTokens {
			if strings.Contains(line, rule.Token) {
				out = out.Add(rule.Kind)
			}
		}
		for _, rule := range d.policy.ChannelWordTokens {
			if containsWord(line, rule.Token) {
				out = out.Add(rule.Kind)
			}
		}
	}

	return out
}

func (d *Detector) isChannelLine(line string) bool {
	for _, m := range d.policy.ChannelMarkers {
		if strings.Contains(line, m) {
			return true
		}
	}
	return false
}

// containsWord reports whether word occurs in line bounded by
// non-identifier characters on both sides.
func containsWord(line, word string) bool {
	for start := 0; ; {
		i := strings.Index(line[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !isIdentChar(line[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(line) || !isIdentChar(line[afterIdx])
		if before && after {
			return true
		}
		start = i + 1
	}
}

func isIdentChar(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') ||
		(c >= 'A' && c <= 'Z') ||
		(c >= '0' && c <= '9')
}
