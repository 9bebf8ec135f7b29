package util

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleArgs struct {
	Query string   `json:"query" description:"search text"`
	Count int      `json:"count,omitempty"`
	Ratio *float64 `json:"ratio"`
}

func TestCreateSchemaAndValidate(t *testing.T) {
	schema := CreateSchema(sampleArgs{})
	assert.Equal(t, []string{"query"}, schema["required"])

	err := ValidateParameters(map[string]any{"count": 1}, schema)
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "query", ve.Field)

	require.NoError(t, ValidateParameters(map[string]any{"query": "x", "count": float64(3)}, schema))
	require.Error(t, ValidateParameters(map[string]any{"query": 1}, schema))
}

func TestCreateSchema_Enum(t *testing.T) {
	type modeArgs struct {
		Mode string `json:"mode" enum:"fast,slow"`
		skip string
		Auto bool `json:"-"`
	}
	schema := CreateSchema(&modeArgs{})
	props := schema["properties"].(map[string]any)
	require.Len(t, props, 1)
	assert.Equal(t, []string{"fast", "slow"}, props["mode"].(map[string]any)["enum"])

	require.NoError(t, ValidateParameters(map[string]any{"mode": "fast"}, schema))
	err := ValidateParameters(map[string]any{"mode": "medium"}, schema)
	assert.ErrorContains(t, err, "must be one of fast, slow")
}

func TestValidateParameters_IntegerRejectsFraction(t *testing.T) {
	schema := CreateSchema(sampleArgs{})
	assert.Error(t, ValidateParameters(map[string]any{"query": "x", "count": 2.5}, schema))
}

func TestValidateParameters_DecodedSchema(t *testing.T) {
	var schema map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"type":"object","properties":{"code":{"type":"string"}},"required":["code"]}`), &schema))

	require.Error(t, ValidateParameters(map[string]any{}, schema))
	require.NoError(t, ValidateParameters(map[string]any{"code": "ls"}, schema))
}

func TestTruncateText(t *testing.T) {
	assert.Equal(t, "short", TruncateText("short", 10))
	assert.Equal(t, "unbounded", TruncateText("unbounded", 0))

	long := strings.Repeat("a", 10) + strings.Repeat("b", 10)
	out := TruncateText(long, 6)
	assert.Equal(t, "aaa... [14 characters removed] ...bbb", out)
}
