// Package configs provides embedded configuration templates for
// shaderdex.
//
// Templates are embedded at build time with go:embed so they ship in
// every distribution, source builds included. `shaderdex config init`
// writes them out; internal/config reads the results back through its
// usual discovery order (defaults, user config, project config,
// SHADERDEX_* environment variables).
package configs

import _ "embed"

// ProjectConfigTemplate is the starter .shaderdex.yaml written into a
// project root by `shaderdex config init`. It carries the settings a
// corpus checkout wants under version control: where the documents
// live, which tag sources feed enrichment, and how the server pages.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is the starter machine-level config written by
// `shaderdex config init --user`. It carries settings that follow the
// machine rather than the checkout, like log level and worker count.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
