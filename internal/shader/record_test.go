package shader

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecord_FullDocument(t *testing.T) {
	doc := []byte(`{
		"info": {
			"id": "4dcGW2",
			"name": "Seascape",
			"username": "TDM",
			"description": "Raymarched ocean.",
			"tags": ["Ocean", "raymarching"],
			"requires": ["imagebuf", "keyboard", "bogus"],
			"viewed": 12345
		},
		"renderpass": [
			{
				"type": "Buffer",
				"name": "Buf A",
				"code": "void mainImage(){}",
				"inputs": [
					{"type": "Texture", "channel": 1, "filepath": "/media/a/x.jpg"},
					{"type": "keyboard", "channel": 3}
				]
			},
			{"type": "image", "name": "Image", "code": "void mainImage(){}"}
		]
	}`)

	rec, err := ParseRecord(doc, "json/4dcGW2.json")
	require.NoError(t, err)

	assert.Equal(t, "4dcGW2", rec.ID)
	assert.Equal(t, "Seascape", rec.Name)
	assert.Equal(t, "TDM", rec.Author)
	assert.Equal(t, "Raymarched ocean.", rec.Description)
	assert.Equal(t, []string{"Ocean", "raymarching"}, rec.Tags)
	assert.Equal(t, "json/4dcGW2.json", rec.SourcePath)

	// Unknown requires tokens are dropped, legacy aliases normalized.
	assert.Equal(t, NewKindSet(KindBuffer, KindKeyboard), rec.DeclaredRequires)

	require.Len(t, rec.Passes, 2)
	assert.Equal(t, "buffer", rec.Passes[0].Type)
	require.Len(t, rec.Passes[0].Inputs, 2)
	assert.Equal(t, "texture", rec.Passes[0].Inputs[0].Type)
	assert.Equal(t, 1, rec.Passes[0].Inputs[0].Channel)
	assert.Equal(t, "/media/a/x.jpg", rec.Passes[0].Inputs[0].FilePath)
	assert.Equal(t, "image", rec.Passes[1].Type)
}

func TestParseRecord_MinimalDocument(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"info": {"id": "abc123"}}`), "json/abc123.json")
	require.NoError(t, err)

	assert.Equal(t, "abc123", rec.ID)
	assert.Empty(t, rec.Tags)
	assert.True(t, rec.DeclaredRequires.Empty())
	assert.Empty(t, rec.Passes)
}

func TestParseRecord_DataWrappedDocument(t *testing.T) {
	doc := []byte(`{
		"data": {
			"info": {"id": "wrap01", "name": "Wrapped", "username": "dev"},
			"renderpass": [{"type": "sound", "code": "vec2 mainSound(){}"}]
		}
	}`)

	rec, err := ParseRecord(doc, "json/wrap01.json")
	require.NoError(t, err)

	assert.Equal(t, "wrap01", rec.ID)
	assert.Equal(t, "Wrapped", rec.Name)
	require.Len(t, rec.Passes, 1)
	assert.Equal(t, "sound", rec.Passes[0].Type)
}

func TestParseRecord_MissingID(t *testing.T) {
	cases := map[string]string{
		"no info":  `{"renderpass": []}`,
		"empty id": `{"info": {"id": "  "}}`,
		"no id":    `{"info": {"name": "x"}}`,
	}
	for name, doc := range cases {
		_, err := ParseRecord([]byte(doc), "json/broken.json")
		assert.Error(t, err, name)
	}
}

func TestParseRecord_MalformedJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{"info": {`), "json/truncated.json")
	require.Error(t, err)
}

func TestParseRecord_NonObjectDocument(t *testing.T) {
	_, err := ParseRecord([]byte(`["not", "a", "shader"]`), "json/weird.json")
	require.Error(t, err)
}
