package server_test

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wgram/wgram/internal/provider"
	"github.com/wgram/wgram/internal/server"
)

func newTestServer(t *testing.T, gw server.Gateway) *httptest.Server {
	t.Helper()
	srv := server.New("127.0.0.1:0", gw, zap.NewNop())
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", data, err)
	}
	return resp, out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "OK" {
		t.Errorf("health = %d %q, want 200 OK", resp.StatusCode, body)
	}
}

func TestRequestCode_Success(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{})

	resp, body := postJSON(t, ts.URL+"/auth/request-code", `{"phone":"+100"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if _, ok := body["session_id"]; ok {
		t.Error("request-code must not return a session_id")
	}
}

func TestRequestCode_Failure(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{codeErr: errors.New("provider down")})

	resp, body := postJSON(t, ts.URL+"/auth/request-code", `{"phone":"+100"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
	if body["message"] == "" {
		t.Error("failure should carry a message")
	}
}

func TestVerifyCode_Success(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{sessionID: "sess-123"})

	resp, body := postJSON(t, ts.URL+"/auth/verify-code", `{"phone":"+100","code":"12345"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body["session_id"] != "sess-123" {
		t.Errorf("session_id = %v, want sess-123", body["session_id"])
	}
}

// The 2FA-needed case surfaces as an error payload, not a distinct
// status; the client follows up on /auth/verify-password.
func TestVerifyCode_PasswordRequired(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{verifyErr: provider.ErrPasswordRequired})

	resp, body := postJSON(t, ts.URL+"/auth/verify-code", `{"phone":"+100","code":"12345"}`)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", resp.StatusCode)
	}
	if body["success"] != false {
		t.Errorf("success = %v, want false", body["success"])
	}
}

func TestVerifyPassword_Success(t *testing.T) {
	ts := newTestServer(t, &fakeGateway{sessionID: "sess-456"})

	resp, body := postJSON(t, ts.URL+"/auth/verify-password", `{"phone":"+100","password":"hunter2"}`)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if body["session_id"] != "sess-456" {
		t.Errorf("session_id = %v, want sess-456", body["session_id"])
	}
}
