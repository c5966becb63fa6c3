// Package shader defines the domain types shared across the engine: the
// shader record, its render passes, and the closed resource-kind
// enumeration used by the detector, the index, and the query engine.
package shader

import (
	"math/bits"
	"sort"
	"strings"
)

// Kind is one category of runtime resource a shader may depend on.
//
// The enumeration is closed: the detector, the inverted index, the query
// flags, and the HTTP API all operate on exactly this set. Adding a kind
// means adding a constant here plus one row in the detector's rule tables.
type Kind uint8

const (
	// KindUnknown is the zero value and is never stored in a KindSet.
	KindUnknown Kind = iota
	// KindBuffer marks a dependency on an offscreen render buffer pass.
	KindBuffer
	// KindCubemap marks a dependency on a cubemap texture or pass.
	KindCubemap
	// KindImage marks the presence of a final image pass.
	KindImage
	// KindKeyboard marks sampling of the keyboard input channel.
	KindKeyboard
	// KindLibrary marks shared library code (a "common" pass or include).
	KindLibrary
	// KindMic marks microphone input.
	KindMic
	// KindMusic marks a music track input.
	KindMusic
	// KindMusicStream marks a streamed music input.
	KindMusicStream
	// KindSound marks a sound-generating pass or sound input.
	KindSound
	// KindTexture marks a bound texture asset.
	KindTexture
	// KindVideo marks a video input channel.
	KindVideo
	// KindVolume marks a 3D (volume) texture input.
	KindVolume
	// KindWebcam marks a webcam input channel.
	KindWebcam

	kindSentinel
)

var kindNames = [...]string{
	KindUnknown:     "unknown",
	KindBuffer:      "buffer",
	KindCubemap:     "cubemap",
	KindImage:       "image",
	KindKeyboard:    "keyboard",
	KindLibrary:     "library",
	KindMic:         "mic",
	KindMusic:       "music",
	KindMusicStream: "musicstream",
	KindSound:       "sound",
	KindTexture:     "texture",
	KindVideo:       "video",
	KindVolume:      "volume",
	KindWebcam:      "webcam",
}

// legacyAliases maps metadata spellings written by older enrichment runs to
// their canonical kind. The generic "<kind>buf" suffix is handled in
// ParseKind; only the irregular cases live here.
var legacyAliases = map[string]Kind{
	"imagebuf": KindBuffer,
	"common":   KindLibrary,
}

// Kinds returns every valid kind in ascending order.
func Kinds() []Kind {
	ks := make([]Kind, 0, kindSentinel-1)
	for k := KindBuffer; k < kindSentinel; k++ {
		ks = append(ks, k)
	}
	return ks
}

// String returns the canonical lowercase name of the kind.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Valid reports whether k is one of the enumerated kinds.
func (k Kind) Valid() bool {
	return k > KindUnknown && k < kindSentinel
}

// ParseKind maps a metadata token to a Kind. It accepts canonical names
// ("buffer", "musicstream"), the irregular legacy aliases ("imagebuf",
// "common"), and the regular legacy "<kind>buf" forms ("soundbuf",
// "keyboardbuf"). Matching is case-insensitive. ok is false for anything
// outside the enumeration.
func ParseKind(s string) (Kind, bool) {
	name := strings.ToLower(strings.TrimSpace(s))
	if name == "" {
		return KindUnknown, false
	}
	for k := KindBuffer; k < kindSentinel; k++ {
		if kindNames[k] == name {
			return k, true
		}
	}
	if k, ok := legacyAliases[name]; ok {
		return k, true
	}
	if base, ok := strings.CutSuffix(name, "buf"); ok {
		for k := KindBuffer; k < kindSentinel; k++ {
			if kindNames[k] == base {
				return k, true
			}
		}
	}
	return KindUnknown, false
}

// KindSet is a bitmask over Kind. The zero value is the empty set; all
// methods use value semantics so sets can be shared without copying
// hazards.
type KindSet uint16

// NewKindSet builds a set from the given kinds, ignoring invalid ones.
func NewKindSet(kinds ...Kind) KindSet {
	var s KindSet
	for _, k := range kinds {
		s = s.Add(k)
	}
	return s
}

// KindSetFromStrings parses metadata tokens into a set. Unrecognized
// tokens are skipped; the caller sees only kinds inside the enumeration.
func KindSetFromStrings(tokens []string) KindSet {
	var s KindSet
	for _, t := range tokens {
		if k, ok := ParseKind(t); ok {
			s = s.Add(k)
		}
	}
	return s
}

// Add returns the set with k included. Invalid kinds are a no-op.
func (s KindSet) Add(k Kind) KindSet {
	if !k.Valid() {
		return s
	}
	return s | 1<<k
}

// Has reports whether k is in the set.
func (s KindSet) Has(k Kind) bool {
	return k.Valid() && s&(1<<k) != 0
}

// Union returns the elements present in either set.
func (s KindSet) Union(o KindSet) KindSet {
	return s | o
}

// ContainsAll reports whether every element of o is also in s.
func (s KindSet) ContainsAll(o KindSet) bool {
	return s&o == o
}

// Empty reports whether the set has no elements.
func (s KindSet) Empty() bool {
	return s == 0
}

// Len returns the number of kinds in the set.
func (s KindSet) Len() int {
	return bits.OnesCount16(uint16(s))
}

// Kinds returns the members in ascending kind order.
func (s KindSet) Kinds() []Kind {
	ks := make([]Kind, 0, s.Len())
	for k := KindBuffer; k < kindSentinel; k++ {
		if s.Has(k) {
			ks = append(ks, k)
		}
	}
	return ks
}

// Names returns the canonical names of the members, sorted.
func (s KindSet) Names() []string {
	names := make([]string, 0, s.Len())
	for _, k := range s.Kinds() {
		names = append(names, k.String())
	}
	sort.Strings(names)
	return names
}

// String renders the set as a comma-separated list of canonical names.
func (s KindSet) String() string {
	return strings.Join(s.Names(), ",")
}
