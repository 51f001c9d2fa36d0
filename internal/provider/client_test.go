package provider

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testMessages() []Message {
	return []Message{
		{Role: RoleSystem, Content: "You are Noddy."},
		{Role: RoleUser, Content: "Hello!"},
	}
}

func TestChatParsesReplyAndUsage(t *testing.T) {
	var gotAuth, gotTitle string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotTitle = r.Header.Get("X-Title")

		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req.Model != "test-model" || len(req.Messages) != 2 {
			t.Errorf("unexpected payload: %+v", req)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi there!"}}],"usage":{"prompt_tokens":12,"completion_tokens":3}}`))
	}))
	defer srv.Close()

	desc := Descriptor{
		Name:         "openrouter",
		Endpoint:     srv.URL,
		APIKey:       "or-key",
		ExtraHeaders: map[string]string{"X-Title": "Noddy AI"},
	}

	c := NewClient(5 * time.Second)
	reply, usage, err := c.Chat(context.Background(), desc, "test-model", testMessages())
	if err != nil {
		t.Fatal(err)
	}
	if reply != "Hi there!" {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if usage.InputTokens != 12 || usage.OutputTokens != 3 {
		t.Fatalf("unexpected usage: %+v", usage)
	}
	if gotAuth != "Bearer or-key" {
		t.Fatalf("missing bearer auth, got %q", gotAuth)
	}
	if gotTitle != "Noddy AI" {
		t.Fatalf("provider-required header not sent, got %q", gotTitle)
	}
}

func TestChatEstimatesUsageWhenOmitted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hello, lovely human!"}}]}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	_, usage, err := c.Chat(context.Background(), Descriptor{Name: "nvidia", Endpoint: srv.URL, APIKey: "k"}, "m", testMessages())
	if err != nil {
		t.Fatal(err)
	}
	if usage.InputTokens < 1 || usage.OutputTokens < 1 {
		t.Fatalf("usage should be estimated when the provider omits it: %+v", usage)
	}
}

func TestChatNon2xxIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error":"insufficient credits"}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	_, _, err := c.Chat(context.Background(), Descriptor{Name: "openrouter", Endpoint: srv.URL, APIKey: "k"}, "m", testMessages())

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.Status != http.StatusPaymentRequired {
		t.Fatalf("error should carry the provider status, got %d", upstream.Status)
	}
	if upstream.Body == "" {
		t.Fatal("error should carry the provider body")
	}
}

func TestChatMalformedPayloadIsUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": []}`))
	}))
	defer srv.Close()

	c := NewClient(5 * time.Second)
	_, _, err := c.Chat(context.Background(), Descriptor{Name: "nvidia", Endpoint: srv.URL, APIKey: "k"}, "m", testMessages())

	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError for empty choices, got %v", err)
	}
}
