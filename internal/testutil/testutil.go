// Package testutil provides shared helpers for tests across the training
// data core.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/digiteinfotech/kairon/internal/api"
	"github.com/digiteinfotech/kairon/internal/dataset"
	"github.com/digiteinfotech/kairon/internal/store"
)

// TestTenant is the tenant used by helper-seeded fixtures.
const TestTenant = "test_bot"

// TestUser is the actor used by helper-seeded fixtures.
const TestUser = "test_user"

// NewTestProcessor creates a processor over an in-memory store with the test
// tenant seeded.
func NewTestProcessor(t *testing.T) *dataset.Processor {
	t.Helper()
	p := dataset.NewProcessor(store.NewInMemoryStore())
	if err := p.SeedTenant(TestTenant, TestUser); err != nil {
		t.Fatalf("failed to seed test tenant: %v", err)
	}
	return p
}

// NewTestServer creates an API server over an in-memory store with the test
// tenant seeded.
func NewTestServer(t *testing.T) (*api.Server, *dataset.Processor) {
	t.Helper()
	p := NewTestProcessor(t)
	return api.NewServer(p), p
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it
// doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONSuccess decodes the response envelope and validates the success
// flag, returning the decoded envelope for further checks.
func AssertJSONSuccess(t *testing.T, rr *httptest.ResponseRecorder, expectSuccess bool) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	success, ok := response["success"].(bool)
	if !ok {
		t.Fatal("response missing or invalid 'success' field")
	}
	if success != expectSuccess {
		t.Errorf("expected success=%v, got %v (message: %v)", expectSuccess, success, response["message"])
	}
	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body.
func CreateHTTPRequest(t *testing.T, method, url string, body any) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	} else {
		reqBody = bytes.NewBuffer(nil)
	}
	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// MustMarshalJSON marshals a value and fails the test on error.
func MustMarshalJSON(t *testing.T, v any) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals data into target and fails the test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target any) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
