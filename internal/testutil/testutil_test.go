package testutil

import (
	"net/http/httptest"
	"testing"
)

func TestNewTestProcessor(t *testing.T) {
	p := NewTestProcessor(t)
	intents, err := p.ListIntents(TestTenant)
	if err != nil {
		t.Fatalf("ListIntents: %v", err)
	}
	if len(intents) == 0 {
		t.Error("test tenant has no seeded intents")
	}
}

func TestNewTestServer(t *testing.T) {
	server, p := NewTestServer(t)
	if server == nil || p == nil {
		t.Fatal("NewTestServer returned nil")
	}
	req := CreateHTTPRequest(t, "GET", "/bots/"+TestTenant+"/intents", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)
	AssertHTTPStatus(t, 200, rr.Code, "list intents")
	AssertJSONSuccess(t, rr, true)
}

func TestMustMarshalRoundTrip(t *testing.T) {
	data := MustMarshalJSON(t, map[string]int{"a": 1})
	var out map[string]int
	MustUnmarshalJSON(t, data, &out)
	if out["a"] != 1 {
		t.Errorf("round trip lost value: %v", out)
	}
}
