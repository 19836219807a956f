package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Envelope mirrors the API response body
type Envelope[T any] struct {
	Success bool `json:"success"`
	Data    T    `json:"data"`
	Error   *struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"request_id"`
	} `json:"error"`
	Meta *struct {
		Total    int64 `json:"total"`
		Page     int   `json:"page"`
		PageSize int   `json:"page_size"`
	} `json:"meta"`
}

// APIClient sends JSON requests to an http.Handler in-process
type APIClient struct {
	Handler http.Handler
	Actor   string
}

// Do sends a request with an optional JSON body
func (c *APIClient) Do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err, "Failed to marshal request body")
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Actor != "" {
		req.Header.Set("X-Actor", c.Actor)
	}

	w := httptest.NewRecorder()
	c.Handler.ServeHTTP(w, req)
	return w
}

// Decode parses the response envelope
func Decode[T any](t *testing.T, w *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()

	var env Envelope[T]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), "Failed to parse JSON response: %s", w.Body.String())
	return env
}

// RequireOK asserts a 2xx success envelope and returns its data
func RequireOK[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	require.Less(t, w.Code, 300, "Unexpected status: %s", w.Body.String())
	env := Decode[T](t, w)
	require.True(t, env.Success)
	return env.Data
}

// AssertErrorCode asserts the status and domain error code of a failed request
func AssertErrorCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()

	assert.Equal(t, status, w.Code, "Unexpected status: %s", w.Body.String())
	env := Decode[json.RawMessage](t, w)
	assert.False(t, env.Success)
	if assert.NotNil(t, env.Error, "Expected error object in response") {
		assert.Equal(t, code, env.Error.Code)
	}
}
