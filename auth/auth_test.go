package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestFormGrantAndSetAuthHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"token123","token_type":"bearer","expires_in":3600}`))
	}))
	defer server.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: server.URL, Style: StyleForm})

	token, err := client.GetToken(context.Background())
	if err != nil {
		t.Fatalf("GetToken returned error: %v", err)
	}
	if token != "token123" {
		t.Fatalf("unexpected token %s", token)
	}

	req, _ := http.NewRequest("GET", "http://example.com", nil)
	if err := client.SetAuthHeader(req); err != nil {
		t.Fatalf("SetAuthHeader returned error: %v", err)
	}
	if auth := req.Header.Get("Authorization"); auth != "Bearer token123" {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
}

func TestJSONGrantCachesToken(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body["grantType"] != "client_credentials" || body["clientId"] != "id" || body["clientSecret"] != "secret" {
			t.Errorf("unexpected grant body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":"86399"}`))
	}))
	defer server.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: server.URL})
	for i := 0; i < 3; i++ {
		tok, err := client.GetToken(context.Background())
		if err != nil {
			t.Fatalf("GetToken: %v", err)
		}
		if tok != "abc" {
			t.Fatalf("unexpected token %s", tok)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 1 {
		t.Fatalf("expected one token request, got %d", n)
	}
	if _, err := client.ForceRefresh(context.Background()); err != nil {
		t.Fatalf("ForceRefresh: %v", err)
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected refresh to hit the endpoint, got %d calls", n)
	}
}

func TestJSONGrantExpiredTokenIsRenewed(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Header().Set("Content-Type", "application/json")
		// Shorter than the renewal margin, so every call renews.
		w.Write([]byte(`{"access_token":"short","expires_in":1}`))
	}))
	defer server.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "secret", AuthURL: server.URL})
	for i := 0; i < 2; i++ {
		if _, err := client.GetToken(context.Background()); err != nil {
			t.Fatalf("GetToken: %v", err)
		}
	}
	if n := atomic.LoadInt32(&calls); n != 2 {
		t.Fatalf("expected 2 token requests, got %d", n)
	}
}

func TestJSONGrantError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClientCred(Conf{ClientID: "id", ClientSecret: "bad", AuthURL: server.URL})
	if _, err := client.GetToken(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestConfValidate(t *testing.T) {
	if err := (Conf{}).Validate(); err == nil {
		t.Fatalf("expected error for empty conf")
	}
	if err := (Conf{ClientID: "a", ClientSecret: "b", AuthURL: "u", Style: "basic"}).Validate(); err == nil {
		t.Fatalf("expected error for unknown style")
	}
	if err := (Conf{ClientID: "a", ClientSecret: "b", AuthURL: "u"}).Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}
