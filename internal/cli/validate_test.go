package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_Valid(t *testing.T) {
	out, err := executeCommand(t, "validate", "testdata/pipelines")
	require.NoError(t, err)
	assert.Contains(t, out, "7 pipeline(s) valid")
}

func TestValidate_ValidJSON(t *testing.T) {
	out, err := executeCommand(t, "validate", "testdata/pipelines/orders.cue", "--format", "json")
	require.NoError(t, err)

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)

	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.True(t, result.Valid)
	assert.Contains(t, result.Pipelines, "topBig")
}

func TestValidate_Invalid(t *testing.T) {
	out, err := executeCommand(t, "validate", "testdata/invalid", "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, data := decodeResponse(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E101", resp.Error.Code)

	var result ValidationResult
	require.NoError(t, json.Unmarshal(data, &result))
	assert.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "recent", result.Errors[0].Pipeline)
}

func TestValidate_InvalidText(t *testing.T) {
	out, err := executeCommand(t, "validate", "testdata/invalid")
	require.Error(t, err)
	assert.Contains(t, out, "Validation failed")
	assert.Contains(t, out, "E101: recent.")
}

func TestValidate_MissingPath(t *testing.T) {
	out, err := executeCommand(t, "validate", "testdata/nope")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, out, "Error [E005]")
}
