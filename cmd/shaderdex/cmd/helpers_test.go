package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeTestCorpus lays out a three-document corpus:
//
//	aaa111  Ocean Deep   by iq      tags [ocean 3d]  declares texture
//	bbb222  Seascape     by TDM     tags [ocean]     image pass + music input
//	ccc333  Plasma Storm by nimitz  tags [2d]        nothing detectable
func writeTestCorpus(t *testing.T) string {
	t.Helper()

	dir := filepath.Join(t.TempDir(), "json")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	docs := map[string]string{
		"aaa111": `{
			"info": {
				"id": "aaa111",
				"name": "Ocean Deep",
				"username": "iq",
				"description": "Deep ocean waves with foam",
				"tags": ["ocean", "3d"],
				"requires": ["texture"]
			}
		}`,
		"bbb222": `{
			"info": {
				"id": "bbb222",
				"name": "Seascape",
				"username": "TDM",
				"description": "Raymarched seascape",
				"tags": ["ocean"]
			},
			"renderpass": [{
				"type": "image",
				"name": "Image",
				"code": "void mainImage() {}",
				"inputs": [{"type": "music", "channel": 0}]
			}]
		}`,
		"ccc333": `{
			"info": {
				"id": "ccc333",
				"name": "Plasma Storm",
				"username": "nimitz",
				"description": "Classic plasma effect",
				"tags": ["2d"]
			}
		}`,
	}
	for id, doc := range docs {
		require.NoError(t, os.WriteFile(filepath.Join(dir, id+".json"), []byte(doc), 0o644))
	}
	return dir
}

// execute runs the root command with args, capturing stdout and stderr
// separately.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := NewRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// syncBuffer is a bytes.Buffer safe to read while another goroutine
// writes, for tests that watch a running command's output.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
