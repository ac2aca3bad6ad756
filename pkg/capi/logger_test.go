package capi_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/cfops/pkg/capi"
)

func TestZerologLogger(t *testing.T) {
	var buf bytes.Buffer

	logger := capi.NewZerologLogger(zerolog.New(&buf))
	logger.Warn("malformed timestamp", map[string]interface{}{"value": "yesterday"})

	var line map[string]interface{}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "malformed timestamp", line["message"])
	assert.Equal(t, "yesterday", line["value"])
}

func TestOrNop(t *testing.T) {
	assert.IsType(t, capi.NopLogger{}, capi.OrNop(nil))

	l := capi.NewZerologLogger(zerolog.Nop())
	assert.Same(t, l, capi.OrNop(l))
}
