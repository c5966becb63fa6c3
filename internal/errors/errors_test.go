package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryAndSeverity(t *testing.T) {
	tests := []struct {
		code     string
		category Category
		severity Severity
	}{
		{ErrCodeDirNotFound, CategoryConfig, SeverityFatal},
		{ErrCodeRecordParse, CategoryIO, SeverityWarning},
		{ErrCodeCacheWrite, CategoryIO, SeverityWarning},
		{ErrCodeServerStart, CategoryServer, SeverityFatal},
		{ErrCodeEmptyQuery, CategoryValidation, SeverityFatal},
		{ErrCodeInternal, CategoryInternal, SeverityError},
	}

	for _, tt := range tests {
		err := New(tt.code, "boom", nil)
		assert.Equal(t, tt.category, err.Category, tt.code)
		assert.Equal(t, tt.severity, err.Severity, tt.code)
	}
}

func TestDexError_ErrorIncludesCode(t *testing.T) {
	err := New(ErrCodeCacheRead, "cache unreadable", nil)
	assert.Equal(t, "[ERR_203_CACHE_READ] cache unreadable", err.Error())
}

func TestDexError_UnwrapChain(t *testing.T) {
	cause := fmt.Errorf("disk exploded")
	err := New(ErrCodeCacheWrite, "persist failed", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestDexError_IsMatchesByCode(t *testing.T) {
	a := New(ErrCodeEmptyQuery, "no clauses", nil)
	b := New(ErrCodeEmptyQuery, "different message", nil)
	c := New(ErrCodeUnknownKind, "no clauses", nil)

	assert.True(t, stderrors.Is(a, b))
	assert.False(t, stderrors.Is(a, c))
}

func TestIsCode_WalksWrappedChain(t *testing.T) {
	inner := New(ErrCodeRecordParse, "bad json", nil)
	outer := fmt.Errorf("loading corpus: %w", inner)

	assert.True(t, IsCode(outer, ErrCodeRecordParse))
	assert.False(t, IsCode(outer, ErrCodeCacheRead))
	assert.False(t, IsCode(nil, ErrCodeRecordParse))
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestWithDetailAndSuggestion_Chain(t *testing.T) {
	err := New(ErrCodeDirNotFound, "no corpus", nil).
		WithDetail("path", "/data/json").
		WithSuggestion("pass --json-dir or set corpus.json_dir")

	require.NotNil(t, err.Details)
	assert.Equal(t, "/data/json", err.Details["path"])
	assert.Contains(t, err.Suggestion, "--json-dir")
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(New(ErrCodeEmptyQuery, "empty", nil)))
	assert.False(t, IsFatal(New(ErrCodeDuplicateID, "dup", nil)))
	assert.False(t, IsFatal(fmt.Errorf("plain")))
	assert.False(t, IsFatal(nil))
}

func TestFormatForCLI_IncludesHintAndCode(t *testing.T) {
	err := New(ErrCodeDirNotFound, "corpus directory missing", nil).
		WithSuggestion("check the --json-dir flag")

	out := FormatForCLI(err)
	assert.Contains(t, out, "Error: corpus directory missing")
	assert.Contains(t, out, "Hint: check the --json-dir flag")
	assert.Contains(t, out, "Code: ERR_101_DIR_NOT_FOUND")
}

func TestFormatJSON_RoundTripFields(t *testing.T) {
	err := New(ErrCodeUnknownKind, "no such kind", nil).WithDetail("kind", "plasma")

	data, jerr := FormatJSON(err)
	require.NoError(t, jerr)
	assert.Contains(t, string(data), `"code":"ERR_402_UNKNOWN_KIND"`)
	assert.Contains(t, string(data), `"kind":"plasma"`)
}

func TestFormatForLog_PlainError(t *testing.T) {
	attrs := FormatForLog(fmt.Errorf("plain failure"))
	assert.Equal(t, "plain failure", attrs["error"])
}
