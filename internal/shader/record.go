package shader

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Record is one shader document, immutable once loaded. Identity is ID.
type Record struct {
	// ID is the unique shader identifier (also the JSON file stem).
	ID string

	// Name is the shader's display title.
	Name string

	// Author is the uploader's username.
	Author string

	// Description is free text, possibly empty.
	Description string

	// Tags are the record's declared tags, original casing preserved.
	Tags []string

	// DeclaredRequires holds the resource kinds stated in metadata.
	// Detection may add kinds on top of these but never removes one.
	DeclaredRequires KindSet

	// Passes are the render passes in document order.
	Passes []RenderPass

	// SourcePath is the JSON file this record was loaded from.
	SourcePath string
}

// RenderPass is one unit of shader source plus its structural type tag.
type RenderPass struct {
	// Type is the pass type tag, lowercased ("image", "buffer", "sound",
	// "cubemap", "common").
	Type string

	// Name is the pass's display name ("Image", "Buf A").
	Name string

	// Code is the pass's source text.
	Code string

	// Inputs are the channels bound to this pass.
	Inputs []PassInput
}

// PassInput is one bound input channel of a render pass.
type PassInput struct {
	// Type is the input's type tag, lowercased ("texture", "keyboard",
	// "buffer", "music", ...).
	Type string

	// Channel is the channel slot the input is bound to.
	Channel int

	// FilePath is the asset path for media-backed inputs, if any.
	FilePath string
}

// rawDocument mirrors the on-disk JSON layout: a top-level "info" object
// plus an ordered "renderpass" array. Some exports wrap the same pair in
// a "data" object; ParseRecord accepts both. Unknown fields are ignored
// here; the enrichment pass re-decodes generically when it needs to
// preserve them on write-back.
type rawDocument struct {
	Info       *rawInfo  `json:"info"`
	RenderPass []rawPass `json:"renderpass"`
}

type rawEnvelope struct {
	Data *rawDocument `json:"data"`
}

type rawInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Username    string   `json:"username"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Requires    []string `json:"requires"`
}

type rawPass struct {
	Type   string     `json:"type"`
	Name   string     `json:"name"`
	Code   string     `json:"code"`
	Inputs []rawInput `json:"inputs"`
}

type rawInput struct {
	Type     string `json:"type"`
	Channel  int    `json:"channel"`
	FilePath string `json:"filepath"`
}

// ParseRecord decodes one shader JSON document into a Record. A document
// without a non-empty info.id is rejected; everything else is tolerated
// (missing tags, requires, description, or renderpass).
func ParseRecord(data []byte, sourcePath string) (*Record, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode shader document: %w", err)
	}
	if doc.Info == nil {
		var env rawEnvelope
		if err := json.Unmarshal(data, &env); err == nil && env.Data != nil && env.Data.Info != nil {
			doc = *env.Data
		}
	}
	if doc.Info == nil {
		return nil, fmt.Errorf("shader document has no info object")
	}
	if strings.TrimSpace(doc.Info.ID) == "" {
		return nil, fmt.Errorf("shader document has no info.id")
	}

	rec := &Record{
		ID:               strings.TrimSpace(doc.Info.ID),
		Name:             doc.Info.Name,
		Author:           doc.Info.Username,
		Description:      doc.Info.Description,
		Tags:             doc.Info.Tags,
		DeclaredRequires: KindSetFromStrings(doc.Info.Requires),
		SourcePath:       sourcePath,
	}

	for _, rp := range doc.RenderPass {
		pass := RenderPass{
			Type: strings.ToLower(strings.TrimSpace(rp.Type)),
			Name: rp.Name,
			Code: rp.Code,
		}
		for _, in := range rp.Inputs {
			pass.Inputs = append(pass.Inputs, PassInput{
				Type:     strings.ToLower(strings.TrimSpace(in.Type)),
				Channel:  in.Channel,
				FilePath: in.FilePath,
			})
		}
		rec.Passes = append(rec.Passes, pass)
	}

	return rec, nil
}
