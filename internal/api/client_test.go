package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/mobiorder/mobiorder/internal/model"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, zap.NewNop())
}

// TestFetchDomain_NoContent tests that 204 maps to ErrNoChanges
func TestFetchDomain_NoContent(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	_, err := c.FetchDomain(context.Background(), "app/products", model.Credential{}, "nl-BE", "sha")
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("FetchDomain() error = %v, want ErrNoChanges", err)
	}
}

// TestFetchDomain_EmptyBody tests that an empty 200 body also means unchanged
func TestFetchDomain_EmptyBody(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := c.FetchDomain(context.Background(), "app/products", model.Credential{}, "nl-BE", "")
	if !errors.Is(err, ErrNoChanges) {
		t.Errorf("FetchDomain() error = %v, want ErrNoChanges", err)
	}
}

// TestFetchDomain_SendsChecksum tests the request envelope
func TestFetchDomain_SendsChecksum(t *testing.T) {
	var gotAuth, gotType string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{"checksumSha": "x"}`))
	})
	c.SetToken("a-long-enough-token")

	body, err := c.FetchDomain(context.Background(), "app/products",
		model.Credential{Username: "agent"}, "nl-BE", "old-sha")
	if err != nil {
		t.Fatalf("FetchDomain() failed: %v", err)
	}
	if len(body) == 0 {
		t.Error("FetchDomain() returned empty body")
	}
	if gotAuth != "Bearer a-long-enough-token" {
		t.Errorf("Authorization = %q, want bearer token", gotAuth)
	}
	if gotType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotType)
	}
}

// TestSetToken_IgnoresShort tests that junk tokens are never installed
func TestSetToken_IgnoresShort(t *testing.T) {
	var gotAuth string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{}`))
	})
	c.SetToken("short")

	_, _ = c.FetchDomain(context.Background(), "app/products", model.Credential{}, "nl-BE", "")
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty for a short token", gotAuth)
	}
}

// TestCompleteCart_Result tests result decoding
func TestCompleteCart_Result(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result": true}`))
	})

	ok, err := c.CompleteCart(context.Background(), model.Credential{}, model.Cart{ID: 1})
	if err != nil {
		t.Fatalf("CompleteCart() failed: %v", err)
	}
	if !ok {
		t.Error("CompleteCart() = false, want true")
	}
}

// TestPost_ErrorStatus tests non-200 handling
func TestPost_ErrorStatus(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})

	_, err := c.FetchDomain(context.Background(), "app/products", model.Credential{}, "nl-BE", "")
	if err == nil || errors.Is(err, ErrNoChanges) {
		t.Errorf("FetchDomain() error = %v, want a status error", err)
	}
}
