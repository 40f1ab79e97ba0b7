package logger

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
		wantErr  bool
	}{
		{input: "debug", expected: DebugLevel},
		{input: "info", expected: InfoLevel},
		{input: "warn", expected: WarnLevel},
		{input: "warning", expected: WarnLevel},
		{input: "error", expected: ErrorLevel},
		{input: "garbage", expected: InfoLevel, wantErr: true},
		{input: "", expected: InfoLevel, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level, err := ParseLevel(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, level)
		})
	}
}

func TestJSONOutputIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{
		Level:   InfoLevel,
		Format:  "json",
		Service: "agentdash",
		Output:  &buf,
	})

	log.Info("token refreshed",
		StringField("store_id", "store-42"),
		IntField("expires_in", 900),
	)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "token refreshed", entry["msg"])
	assert.Equal(t, "agentdash", entry["service"])
	assert.Equal(t, "store-42", entry["store_id"])
	assert.Equal(t, "900", entry["expires_in"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: WarnLevel, Format: "json", Output: &buf})

	log.Debug("should be dropped")
	log.Info("should be dropped")
	assert.Zero(t, buf.Len())

	log.Warn("kept")
	assert.NotZero(t, buf.Len())
}

func TestWithFieldsIsImmutable(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Level: InfoLevel, Format: "json", Output: &buf})

	child := base.WithFields(StringField("agent_id", "agent-1"))

	base.Info("base entry")
	require.NotContains(t, buf.String(), "agent_id")

	buf.Reset()
	child.Info("child entry")
	assert.Contains(t, buf.String(), "agent_id")
}

func TestErrorField(t *testing.T) {
	assert.Equal(t, "<nil>", ErrorField(nil).Value)
	assert.Equal(t, "error", ErrorField(assert.AnError).Key)
	assert.Equal(t, assert.AnError.Error(), ErrorField(assert.AnError).Value)
}

func TestHTTPMiddleware(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger(Config{Level: InfoLevel, Format: "json", Output: &buf})

	handler := log.HTTPMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	last := lines[len(lines)-1]
	assert.Contains(t, last, `"http_status":"418"`)
	assert.Contains(t, last, `"http_path":"/api/session"`)
	assert.Contains(t, last, "request_id")
}
