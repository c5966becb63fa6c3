package detect

import "github.com/shaderdex/shaderdex/internal/shader"

// Policy is the detection rule set: which structural tags and source
// tokens evidence which resource kinds. It is data, not logic — tuning
// detection means editing these tables, and tests exercise them through
// the same Detector entry point the index builder uses.
type Policy struct {
	// PassTypes maps a render-pass type tag to the kind it evidences.
	PassTypes map[string]shader.Kind

	// InputTypes maps a pass-input type tag to the kind it evidences.
	InputTypes map[string]shader.Kind

	// MediaPathFragments flag Texture when found in an input filepath.
	// Matching is case-insensitive.
	MediaPathFragments []string

	// BareTokens count anywhere in pass source text.
	BareTokens []TokenRule

	// ChannelTokens count only on a source line that also carries one
	// of ChannelMarkers. This keeps prose mentions ("press space", a
	// comment about music) from flagging kinds unless the line actually
	// touches a channel or sampler.
	ChannelTokens []TokenRule

	// ChannelWordTokens are like ChannelTokens but match whole words
	// only ("mic" must not fire inside "dynamic").
	ChannelWordTokens []TokenRule

	// ChannelMarkers identify lines that bind or sample a channel.
	ChannelMarkers []string
}

// TokenRule pairs one source token with the kind it evidences. All
// token matching is case-sensitive; add explicit case variants where
// they occur in real shader text.
type TokenRule struct {
	Token string
	Kind  shader.Kind
}

// DefaultPolicy returns the standard detection rules.
func DefaultPolicy() Policy {
	return Policy{
		PassTypes: map[string]shader.Kind{
			"image":   shader.KindImage,
			"buffer":  shader.KindBuffer,
			"cubemap": shader.KindCubemap,
			"sound":   shader.KindSound,
			"common":  shader.KindLibrary,
		},
		InputTypes: map[string]shader.Kind{
			"buffer":      shader.KindBuffer,
			"cubemap":     shader.KindCubemap,
			"image":       shader.KindImage,
			"keyboard":    shader.KindKeyboard,
			"mic":         shader.KindMic,
			"music":       shader.KindMusic,
			"musicstream": shader.KindMusicStream,
			"sound":       shader.KindSound,
			"texture":     shader.KindTexture,
			"video":       shader.KindVideo,
			"volume":      shader.KindVolume,
			"webcam":      shader.KindWebcam,
		},
		MediaPathFragments: []string{"/media/", "cubemap"},
		BareTokens: []TokenRule{
			{"mainSound(", shader.KindSound},
			{"iSampleRate", shader.KindSound},
			{"mainCubemap(", shader.KindCubemap},
			{"samplerCube", shader.KindCubemap},
			{"textureCube(", shader.KindCubemap},
			{"sampler3D", shader.KindVolume},
			{"#include", shader.KindLibrary},
			// A shader reaching past channel 0 is binding extra textures.
			{"iChannel1", shader.KindTexture},
			{"iChannel2", shader.KindTexture},
			{"iChannel3", shader.KindTexture},
		},
		ChannelTokens: []TokenRule{
			{"keyboard", shader.KindKeyboard},
			{"Keyboard", shader.KindKeyboard},
			{"KEY_", shader.KindKeyboard},
			{"webcam", shader.KindWebcam},
			{"Webcam", shader.KindWebcam},
			{"video", shader.KindVideo},
			{"Video", shader.KindVideo},
			{"music", shader.KindMusic},
			{"Music", shader.KindMusic},
			{"microphone", shader.KindMic},
			{"Microphone", shader.KindMic},
			{"volume", shader.KindVolume},
			{"Volume", shader.KindVolume},
			{"sound", shader.KindSound},
			{"Sound", shader.KindSound},
		},
		ChannelWordTokens: []TokenRule{
			{"mic", shader.KindMic},
		},
		ChannelMarkers: []string{"iChannel", "sampler", "texture(", "texelFetch("},
	}
}
