package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"Gin_postgres_redis_tool_tracker/app"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var errTest = errors.New("connection reset by peer")

const testAdminID = "7d1c3f2e-5a4b-4c3d-8e9f-0a1b2c3d4e5f"

type envelope struct {
	Success bool   `json:"success"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func jsonBody(v any) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

// serve routes one request through a fresh engine. Admin identity is set
// the way app.AuthRequired would.
func serve(method, pattern, target string, body io.Reader, h gin.HandlerFunc) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, pattern, func(c *gin.Context) {
		c.Set(app.CtxAdminID, testAdminID)
		c.Set(app.CtxAdminEmail, "admin@example.com")
	}, h)
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) (envelope, map[string]json.RawMessage) {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	var fields map[string]json.RawMessage
	_ = json.Unmarshal(w.Body.Bytes(), &fields)
	return env, fields
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, want, w.Body.String())
	}
}
