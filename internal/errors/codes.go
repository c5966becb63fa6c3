// Package errors provides structured error handling for shaderdex.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration and corpus-location errors
//   - 2XX: IO errors (record files, cache blob)
//   - 3XX: Server errors
//   - 4XX: Validation and usage errors
//   - 5XX: Internal errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryIO indicates file and cache I/O errors.
	CategoryIO Category = "IO"
	// CategoryServer indicates HTTP serving errors.
	CategoryServer Category = "SERVER"
	// CategoryValidation indicates query and input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates an unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates the operation failed but the process can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeDirNotFound   = "ERR_101_DIR_NOT_FOUND"
	ErrCodeConfigInvalid = "ERR_102_CONFIG_INVALID"
	ErrCodeConfigRead    = "ERR_103_CONFIG_READ"

	// IO errors (200-299)
	ErrCodeRecordParse = "ERR_201_RECORD_PARSE"
	ErrCodeDuplicateID = "ERR_202_DUPLICATE_ID"
	ErrCodeCacheRead   = "ERR_203_CACHE_READ"
	ErrCodeCacheWrite  = "ERR_204_CACHE_WRITE"
	ErrCodeEnrichWrite = "ERR_205_ENRICH_WRITE"

	// Server errors (300-399)
	ErrCodeServerStart = "ERR_301_SERVER_START"

	// Validation errors (400-499)
	ErrCodeEmptyQuery  = "ERR_401_EMPTY_QUERY"
	ErrCodeUnknownKind = "ERR_402_UNKNOWN_KIND"
	ErrCodeBadPage     = "ERR_403_BAD_PAGE"

	// Internal errors (500-599)
	ErrCodeInternal  = "ERR_501_INTERNAL"
	ErrCodeTelemetry = "ERR_502_TELEMETRY"
)

// categoryFromCode extracts the category from an error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "101" from "ERR_101_DIR_NOT_FOUND".
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryIO
	case '3':
		return CategoryServer
	case '4':
		return CategoryValidation
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on the error code.
// Per-record and per-cache failures are warnings: the pipeline isolates
// them and continues. Corpus-location, usage, and server-start failures
// are fatal.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeDirNotFound, ErrCodeConfigInvalid, ErrCodeConfigRead,
		ErrCodeServerStart, ErrCodeEmptyQuery, ErrCodeUnknownKind:
		return SeverityFatal
	case ErrCodeRecordParse, ErrCodeDuplicateID, ErrCodeCacheRead,
		ErrCodeCacheWrite, ErrCodeEnrichWrite, ErrCodeTelemetry:
		return SeverityWarning
	default:
		return SeverityError
	}
}
