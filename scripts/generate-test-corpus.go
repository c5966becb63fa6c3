//go:build ignore

// Generates a synthetic shader corpus for benchmarking and manual
// testing. Documents follow the per-shader JSON layout the indexer
// reads; -tag-sources also emits search_results tag files for the
// enrich command.
//
// Usage: go run scripts/generate-test-corpus.go -files 10000 -output testdata/bench
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	numFiles   = flag.Int("files", 1000, "Number of shader documents to generate")
	outputDir  = flag.String("output", "testdata/bench", "Output directory for the corpus")
	seed       = flag.Int64("seed", 42, "Random seed for reproducibility")
	tagSources = flag.Bool("tag-sources", false, "Also emit search_results tag files beside the corpus")
)

// Wire shapes, matching what the loader parses.
type document struct {
	Info   docInfo   `json:"info"`
	Passes []docPass `json:"renderpass,omitempty"`
}

type envelope struct {
	Data document `json:"data"`
}

type docInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Requires    []string `json:"requires,omitempty"`
}

type docPass struct {
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Code   string     `json:"code"`
	Inputs []docInput `json:"inputs,omitempty"`
}

type docInput struct {
	Type     string `json:"type"`
	Channel  int    `json:"channel"`
	FilePath string `json:"filepath,omitempty"`
}

// Word pools for plausible-looking metadata.
var (
	nameFirst = []string{
		"Infinite", "Protean", "Silent", "Molten", "Fractured",
		"Drifting", "Hollow", "Radiant", "Sunken", "Frozen",
		"Electric", "Ancient", "Verdant", "Spectral", "Burning",
	}
	nameSecond = []string{
		"Ocean", "Canyon", "Nebula", "Tunnel", "City",
		"Forest", "Reef", "Aurora", "Cavern", "Monolith",
		"Storm", "Dunes", "Glacier", "Vortex", "Lagoon",
	}
	authors = []string{
		"iq", "shane", "nimitz", "TDM", "Dave_Hoskins",
		"BigWIngs", "FabriceNeyret2", "Shau", "klems", "mrange",
		"kali", "guil", "mu6k", "huwb", "flockaroo",
	}
	tags = []string{
		"raymarching", "procedural", "2d", "3d", "fractal",
		"noise", "clouds", "terrain", "water", "ocean",
		"fire", "smoke", "audio", "retro", "tunnel",
		"voronoi", "sdf", "lighting", "shadow", "reflection",
		"pathtracing", "galaxy", "plasma", "waves", "volumetric",
	}
	inputTypes = []string{
		"texture", "cubemap", "music", "keyboard", "video",
		"buffer", "volume", "webcam",
	}
	mediaPaths = []string{
		"/media/a/tex00.jpg", "/media/a/tex12.png", "/presets/tex16.png",
		"/media/a/noise256.png", "/media/previz/buffer00.png",
	}
)

// Code bodies for each pass flavor. Channel reads vary per document
// so the detector's token scan sees realistic text, not one shared
// constant.
const imageCodeTemplate = `float map(vec3 p) {
    return length(p) - 1.0 + 0.1 * sin(%d.0 + p.x * 4.0);
}

void mainImage(out vec4 fragColor, in vec2 fragCoord) {
    vec2 uv = fragCoord / iResolution.xy;
    vec3 col = vec3(uv, 0.5 + 0.5 * sin(iTime));
%s    fragColor = vec4(col, 1.0);
}
`

const soundCode = `vec2 mainSound(int samp, float time) {
    float f = 440.0 * pow(2.0, floor(mod(time, 8.0)) / 12.0);
    return vec2(sin(6.2831 * f * time) * exp(-3.0 * fract(time)));
}
`

const cubemapCode = `void mainCubemap(out vec4 fragColor, in vec2 fragCoord, in vec3 rayOri, in vec3 rayDir) {
    fragColor = vec4(0.5 + 0.5 * rayDir, 1.0);
}
`

const commonCode = `#define PI 3.14159265
float hash(vec2 p) {
    return fract(sin(dot(p, vec2(127.1, 311.7))) * 43758.5453);
}
`

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	if err := os.MkdirAll(*outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "create output directory: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generating %d shader documents in %s...\n", *numFiles, *outputDir)

	idsByTag := make(map[string][]string)
	for i := 0; i < *numFiles; i++ {
		doc := generateDocument(rng, i)
		for _, tag := range doc.Info.Tags {
			idsByTag[tag] = append(idsByTag[tag], doc.Info.ID)
		}
		if err := writeDocument(rng, doc); err != nil {
			fmt.Fprintf(os.Stderr, "write document %d: %v\n", i, err)
			os.Exit(1)
		}
	}

	if *tagSources {
		if err := writeTagSources(idsByTag); err != nil {
			fmt.Fprintf(os.Stderr, "write tag sources: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("Generated %d documents.\n", *numFiles)
}

// generateDocument builds one shader document. Pass structure is
// drawn from a rough distribution of real corpora: mostly single
// image shaders, some multipass, a few sound and cubemap shaders.
func generateDocument(rng *rand.Rand, index int) document {
	id := shaderID(rng, index)

	tagCount := 2 + rng.Intn(3)
	docTags := make([]string, tagCount)
	for i := range docTags {
		docTags[i] = tags[rng.Intn(len(tags))]
	}

	info := docInfo{
		ID:       id,
		Name:     fmt.Sprintf("%s %s", nameFirst[rng.Intn(len(nameFirst))], nameSecond[rng.Intn(len(nameSecond))]),
		Username: authors[rng.Intn(len(authors))],
		Description: fmt.Sprintf("A %s experiment with %s",
			docTags[0], docTags[rng.Intn(len(docTags))]),
		Tags: docTags,
	}

	var passes []docPass
	switch roll := rng.Intn(100); {
	case roll < 70:
		passes = []docPass{imagePass(rng, index)}
	case roll < 85:
		passes = multiPass(rng, index)
	case roll < 95:
		passes = []docPass{
			imagePass(rng, index),
			{Type: "sound", Name: "Sound", Code: soundCode},
		}
	default:
		passes = []docPass{
			{Type: "cubemap", Name: "Cube A", Code: cubemapCode},
			imagePass(rng, index),
		}
	}

	// A third of documents also declare requirements up front, the
	// way curated corpora do.
	if rng.Intn(3) == 0 {
		info.Requires = []string{"image"}
	}

	return document{Info: info, Passes: passes}
}

func imagePass(rng *rand.Rand, index int) docPass {
	var inputs []docInput
	var reads strings.Builder
	for ch := 0; ch < rng.Intn(3); ch++ {
		typ := inputTypes[rng.Intn(len(inputTypes))]
		in := docInput{Type: typ, Channel: ch}
		if typ == "texture" {
			in.FilePath = mediaPaths[rng.Intn(len(mediaPaths))]
		}
		inputs = append(inputs, in)
		fmt.Fprintf(&reads, "    col *= texture(iChannel%d, uv).rgb;\n", ch)
	}

	return docPass{
		Type:   "image",
		Name:   "Image",
		Code:   fmt.Sprintf(imageCodeTemplate, index, reads.String()),
		Inputs: inputs,
	}
}

func multiPass(rng *rand.Rand, index int) []docPass {
	passes := []docPass{
		{Type: "common", Name: "Common", Code: commonCode},
	}
	for i := 0; i < 1+rng.Intn(2); i++ {
		passes = append(passes, docPass{
			Type: "buffer",
			Name: fmt.Sprintf("Buf %c", 'A'+i),
			Code: fmt.Sprintf(imageCodeTemplate, index+i, "    col += texture(iChannel0, uv).rgb;\n"),
			Inputs: []docInput{
				{Type: "buffer", Channel: 0},
			},
		})
	}
	return append(passes, imagePass(rng, index))
}

// shaderID yields a unique six-character id in the style of real
// shader sites: two random letters plus the index in base 36.
func shaderID(rng *rand.Rand, index int) string {
	const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	prefix := string([]byte{
		letters[rng.Intn(len(letters))],
		letters[rng.Intn(len(letters))],
	})
	suffix := strconv.FormatInt(int64(index), 36)
	for len(suffix) < 4 {
		suffix = "0" + suffix
	}
	return prefix + suffix
}

// writeDocument marshals the document, wrapping one in ten in the
// data envelope some exports use.
func writeDocument(rng *rand.Rand, doc document) error {
	var payload any = doc
	if rng.Intn(10) == 0 {
		payload = envelope{Data: doc}
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}

	path := filepath.Join(*outputDir, doc.Info.ID+".json")
	return os.WriteFile(path, data, 0o644)
}

// writeTagSources emits one search_results file per tag, listing the
// ids carrying it, so the generated corpus also exercises enrichment.
func writeTagSources(idsByTag map[string][]string) error {
	dir := filepath.Join(filepath.Dir(*outputDir), "search_results")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for tag, ids := range idsByTag {
		body := strings.Join(ids, "\n") + "\n"
		if err := os.WriteFile(filepath.Join(dir, tag), []byte(body), 0o644); err != nil {
			return err
		}
	}

	fmt.Printf("Wrote %d tag source files to %s.\n", len(idsByTag), dir)
	return nil
}
