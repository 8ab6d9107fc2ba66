package transport

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestNewHTTPClient tests the HTTP client constructor.
func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	t.Run("direct client is created without proxy", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil {
			t.Fatal("expected non-nil client")
		}
	})

	t.Run("valid proxy address creates client", func(t *testing.T) {
		t.Parallel()

		client, err := NewHTTPClient(WithProxy("127.0.0.1:1080"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if client == nil {
			t.Fatal("expected non-nil client")
		}
	})

	t.Run("invalid proxy address returns error", func(t *testing.T) {
		t.Parallel()

		_, err := NewHTTPClient(WithProxy("127.0.0.1"))
		if !errors.Is(err, ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", err)
		}
	})
}

// TestIsValidProxyAddress tests proxy address validation.
func TestIsValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		address string
		want    bool
	}{
		{"127.0.0.1:9050", true},
		{"localhost:1080", true},
		{"[::1]:1080", true},
		{"", false},
		{"127.0.0.1", false},
		{":9050", false},
		{"127.0.0.1:0", false},
		{"127.0.0.1:65536", false},
		{"127.0.0.1:abc", false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			t.Parallel()
			if got := isValidProxyAddress(tt.address); got != tt.want {
				t.Errorf("isValidProxyAddress(%q) = %v, want %v", tt.address, got, tt.want)
			}
		})
	}
}

// TestHeaderInjection tests that configured headers reach the server.
func TestHeaderInjection(t *testing.T) {
	t.Parallel()

	headerCh := make(chan http.Header, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headerCh <- r.Header.Clone()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewHTTPClient(
		WithUserAgent("test-agent/1.0"),
		WithHeaders(map[string]string{"API-Key": "k"}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	got := <-headerCh
	gotUA, gotKey, gotAccept := got.Get("User-Agent"), got.Get("API-Key"), got.Get("Accept")
	if gotUA != "test-agent/1.0" {
		t.Errorf("expected user agent test-agent/1.0, got %q", gotUA)
	}
	if gotKey != "k" {
		t.Errorf("expected API-Key header, got %q", gotKey)
	}
	if gotAccept != "application/json" {
		t.Errorf("expected Accept application/json, got %q", gotAccept)
	}
}
