package security

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `{
  "type": "object",
  "additionalProperties": false,
  "required": ["username"],
  "properties": {
    "username": {"type": "string", "minLength": 3}
  }
}`

func TestJSONSchemaValidator(t *testing.T) {
	v, err := NewJSONSchemaValidator(testSchema)
	require.NoError(t, err)

	var sawBody string
	handler := v.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		buf := make([]byte, 1024)
		n, _ := r.Body.Read(buf)
		sawBody = string(buf[:n])
		w.WriteHeader(http.StatusOK)
	}))

	cases := []struct {
		name   string
		body   string
		status int
	}{
		{"valid", `{"username":"alice"}`, http.StatusOK},
		{"missing field", `{}`, http.StatusBadRequest},
		{"wrong type", `{"username":42}`, http.StatusBadRequest},
		{"extra field", `{"username":"alice","x":1}`, http.StatusBadRequest},
		{"not json", `{"username"`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	// The handler must see the original body after validation.
	assert.Equal(t, `{"username":"alice"}`, sawBody)
}

func TestCorrelationIDRoundTrip(t *testing.T) {
	var cid string
	handler := CorrelationID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cid = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(CorrelationIDHeader, "cid-123")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "cid-123", cid)
	assert.Equal(t, "cid-123", rec.Header().Get(CorrelationIDHeader))

	// Generated when absent.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.NotEmpty(t, rec.Header().Get(CorrelationIDHeader))
}
