package output_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/custodian/internal/output"
	custerr "github.com/mrz1836/custodian/pkg/errors"
)

var errPlain = errors.New("disk on fire")

func TestFormatError_Nil(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	require.NoError(t, output.FormatError(&buf, nil, output.FormatJSON))
	assert.Empty(t, buf.String())
}

func TestFormatError_JSON(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := custerr.WithSuggestion(
		custerr.WithDetails(custerr.ErrKeyNotFound, map[string]string{"address": "ABC"}),
		"run 'custodian key list'",
	)

	require.NoError(t, output.FormatError(&buf, err, output.FormatJSON))

	var out output.ErrorOutput
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "NOT_FOUND", out.Error.Kind)
	assert.Equal(t, "KEY_NOT_FOUND", out.Error.Code)
	assert.Equal(t, "ABC", out.Error.Details["address"])
	assert.Equal(t, "run 'custodian key list'", out.Error.Suggestion)
	assert.Equal(t, custerr.ExitNotFound, out.Error.ExitCode)
}

func TestFormatError_Text(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	err := custerr.WithDetails(custerr.ErrInvalidThreshold, map[string]string{"threshold": "3", "keys": "2"})

	require.NoError(t, output.FormatError(&buf, err, output.FormatText))
	assert.Equal(t,
		"Error: threshold must be between 1 and the number of public keys\n\nDetails:\n  keys: 2\n  threshold: 3\n",
		buf.String())
}

func TestFormatError_Generic(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	require.NoError(t, output.FormatError(&text, errPlain, output.FormatText))
	assert.Equal(t, "Error: disk on fire\n", text.String())

	var js bytes.Buffer
	require.NoError(t, output.FormatError(&js, errPlain, output.FormatJSON))
	var out output.ErrorOutput
	require.NoError(t, json.Unmarshal(js.Bytes(), &out))
	assert.Equal(t, "GENERAL_ERROR", out.Error.Code)
	assert.Equal(t, custerr.ExitGeneral, out.Error.ExitCode)
}

func TestFormatSuccess(t *testing.T) {
	t.Parallel()

	var text bytes.Buffer
	require.NoError(t, output.FormatSuccess(&text, "handle released", output.FormatText))
	assert.Equal(t, "handle released\n", text.String())

	var js bytes.Buffer
	require.NoError(t, output.FormatSuccess(&js, "handle released", output.FormatJSON))
	var out map[string]string
	require.NoError(t, json.Unmarshal(js.Bytes(), &out))
	assert.Equal(t, "success", out["status"])
}

func TestWarn(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	output.Warn(&buf, "handle expires in %ds", 5)
	assert.Equal(t, "warning: handle expires in 5s\n", buf.String())
}
