package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/marshub/authgate/flow"
)

func TestPasswordLoginSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PasswordLoginPath {
			t.Errorf("path = %s", r.URL.Path)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["email"] != "a@b.com" || body["password"] != "secret1" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"user":  map[string]string{"id": "u1", "email": "a@b.com"},
			"token": "t1",
		})
	}))
	defer srv.Close()

	sess, err := NewClient(srv.URL).PasswordLogin(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("PasswordLogin: %v", err)
	}
	if sess.Token != "t1" {
		t.Errorf("token = %q, want t1", sess.Token)
	}
	if len(sess.User) == 0 {
		t.Error("user record missing")
	}
}

func TestCredentialLoginForwardsPayloadVerbatim(t *testing.T) {
	var got map[string]map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]string{}, "token": "t2"})
	}))
	defer srv.Close()

	cred := flow.Credential{"id": "123", "hash": "abc", "username": "john"}
	_, err := NewClient(srv.URL).CredentialLogin(context.Background(), "", cred)
	if err != nil {
		t.Fatalf("CredentialLogin: %v", err)
	}
	for k, v := range cred {
		if got["telegramData"][k] != v {
			t.Errorf("telegramData[%q] = %q, want %q", k, got["telegramData"][k], v)
		}
	}
}

func TestExchangeBackendRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]string{"message": "expired"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).CredentialLogin(context.Background(), "", flow.Credential{"id": "123"})

	var berr *flow.BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if berr.StatusCode != http.StatusUnauthorized || berr.Message != "expired" {
		t.Errorf("got %d %q", berr.StatusCode, berr.Message)
	}
}

func TestExchangeRejectionWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).PasswordLogin(context.Background(), "a@b.com", "secret1")

	var berr *flow.BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if berr.Message != "" {
		t.Errorf("message = %q, want empty for bodyless rejection", berr.Message)
	}
}

func TestExchangeNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	_, err := NewClient(srv.URL).PasswordLogin(context.Background(), "a@b.com", "secret1")

	var nerr *flow.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}
