package twitter

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func testCred() Credential {
	return Credential{
		AppKey:        "key",
		AppSecret:     "secret",
		AccessToken:   "token",
		AccessSecret:  "tokensecret",
		AccountNumber: 1,
	}
}

func TestPublishSuccess(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if !strings.HasPrefix(r.Header.Get("Authorization"), "OAuth ") {
			t.Errorf("missing OAuth authorization header")
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		if got := r.PostForm.Get("status"); got != "hello world" {
			t.Errorf("status = %q, want %q", got, "hello world")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id_str":"12345","user":{"screen_name":"tester"}}`))
	}))
	defer srv.Close()

	c := NewClient(testCred(), Options{BaseURL: srv.URL})
	res, err := c.Publish(context.Background(), "hello world")
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if res.ID != "12345" {
		t.Fatalf("ID = %q, want 12345", res.ID)
	}
	if res.URL != "https://twitter.com/tester/status/12345" {
		t.Fatalf("URL = %q", res.URL)
	}
}

func TestPublishProviderErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		status    int
		body      string
		wantCode  int
		rateLimit bool
		duplicate bool
	}{
		{name: "duplicate", status: 403, body: `{"errors":[{"code":187,"message":"Status is a duplicate."}]}`, wantCode: 187, duplicate: true},
		{name: "body rate limit", status: 403, body: `{"errors":[{"code":88,"message":"Rate limit exceeded"}]}`, wantCode: 88, rateLimit: true},
		{name: "http 429 no body code", status: 429, body: `slow down`, wantCode: 429, rateLimit: true},
		{name: "forbidden", status: 401, body: `{"errors":[{"code":32,"message":"Could not authenticate you."}]}`, wantCode: 32},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(testCred(), Options{BaseURL: srv.URL})
			_, err := c.Publish(context.Background(), "hi")
			if err == nil {
				t.Fatal("expected error")
			}
			pe, ok := AsProviderError(err)
			if !ok {
				t.Fatalf("expected *ProviderError, got %T: %v", err, err)
			}
			if pe.Code != tt.wantCode {
				t.Fatalf("Code = %d, want %d", pe.Code, tt.wantCode)
			}
			if IsRateLimit(err) != tt.rateLimit {
				t.Fatalf("IsRateLimit = %v, want %v", IsRateLimit(err), tt.rateLimit)
			}
			if IsDuplicate(err) != tt.duplicate {
				t.Fatalf("IsDuplicate = %v, want %v", IsDuplicate(err), tt.duplicate)
			}
		})
	}
}

func TestStatusURLFallback(t *testing.T) {
	t.Parallel()
	if got := StatusURL("", "99"); got != "https://twitter.com/i/web/status/99" {
		t.Fatalf("StatusURL = %q", got)
	}
}

func TestPercentEncode(t *testing.T) {
	t.Parallel()
	if got := percentEncode("a b+c~"); got != "a%20b%2Bc~" {
		t.Fatalf("percentEncode = %q", got)
	}
}
