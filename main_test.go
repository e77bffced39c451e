package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rkechols/bulk-sms/internal/config"
)

const testRecipients = `{
	"groups": {
		"friends": {"A": "5555550001", "B": "5555550002"},
		"family": "5555550003"
	}
}`

func writeTestFile(t *testing.T, dir, name, content string) string {
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testServerConfig(url string) *config.Config {
	return &config.Config{
		APIKey:   "key123",
		DeviceID: "device123",
		BaseURL:  url,
		Timeout:  time.Second,
	}
}

func TestRunMissingConfig(t *testing.T) {
	cfg := &config.Config{BaseURL: config.DefaultBaseURL, Timeout: time.Second}

	code := run(cfg, "unused.json", "unused.txt", true)

	assert.Equal(t, exitConfig, code)
}

func TestRunMalformedRecipients(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	dir := t.TempDir()
	recipientsPath := writeTestFile(t, dir, "recipients.json", "{broken")
	messagePath := writeTestFile(t, dir, "message.txt", "Hello world")

	code := run(testServerConfig(server.URL), recipientsPath, messagePath, true)

	assert.Equal(t, exitParse, code)
	assert.Equal(t, int64(0), calls.Load(), "nothing may be sent when the recipients file is bad")
}

func TestRunMissingMessageFile(t *testing.T) {
	dir := t.TempDir()
	recipientsPath := writeTestFile(t, dir, "recipients.json", testRecipients)

	code := run(testServerConfig("http://127.0.0.1:0"), recipientsPath, filepath.Join(dir, "nope.txt"), true)

	assert.Equal(t, exitParse, code)
}

func TestRunSendsAll(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/create-text", r.URL.Path)
		assert.Equal(t, "Bearer key123", r.Header.Get("Authorization"))
		calls.Add(1)
		json.NewEncoder(w).Encode(map[string]string{"iden": "msg-1"})
	}))
	defer server.Close()

	dir := t.TempDir()
	recipientsPath := writeTestFile(t, dir, "recipients.json", testRecipients)
	messagePath := writeTestFile(t, dir, "message.txt", "Hello world")

	code := run(testServerConfig(server.URL), recipientsPath, messagePath, true)

	assert.Equal(t, exitOK, code)
	assert.Equal(t, int64(3), calls.Load(), "one call per recipient")
}

func TestRunPartialFailure(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)

		var req struct {
			Data struct {
				Addresses []string `json:"addresses"`
			} `json:"data"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		for _, address := range req.Data.Addresses {
			if address == "5555550002" {
				http.Error(w, `{"error": "no such number"}`, http.StatusBadRequest)
				return
			}
		}
		json.NewEncoder(w).Encode(map[string]string{"iden": "msg-1"})
	}))
	defer server.Close()

	dir := t.TempDir()
	recipientsPath := writeTestFile(t, dir, "recipients.json", testRecipients)
	messagePath := writeTestFile(t, dir, "message.txt", "Hello world")

	code := run(testServerConfig(server.URL), recipientsPath, messagePath, true)

	assert.Equal(t, exitSendFailed, code)
	assert.Equal(t, int64(3), calls.Load(), "every recipient is still attempted")
}
