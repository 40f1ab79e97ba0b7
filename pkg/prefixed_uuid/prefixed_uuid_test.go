package prefixed_uuid

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAndString(t *testing.T) {
	id := New("session")
	assert.Equal(t, "session", id.Prefix)
	assert.False(t, id.IsZero())
	assert.Contains(t, id.String(), "session-")
}

func TestFromString(t *testing.T) {
	original := New("session")

	parsed, err := FromString(original.String())
	require.NoError(t, err)
	assert.Equal(t, original, parsed)

	_, err = FromString("noprefix")
	assert.Error(t, err)

	_, err = FromString("session-not-a-uuid")
	assert.Error(t, err)
}

func TestJSONRoundTrip(t *testing.T) {
	original := New("session")

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded PrefixedUUID
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)

	assert.Error(t, json.Unmarshal([]byte(`42`), &decoded))
}
