package flow

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/marshub/authgate/session"
)

type fakeExchanger struct {
	passwordCalls   int
	credentialCalls int
	lastEmail       string
	lastPath        string
	lastCred        Credential
	sess            *session.Session
	err             error
}

func (f *fakeExchanger) PasswordLogin(ctx context.Context, email, password string) (*session.Session, error) {
	f.passwordCalls++
	f.lastEmail = email
	return f.sess, f.err
}

func (f *fakeExchanger) CredentialLogin(ctx context.Context, path string, cred Credential) (*session.Session, error) {
	f.credentialCalls++
	f.lastPath = path
	f.lastCred = cred
	return f.sess, f.err
}

func TestPasswordValidation(t *testing.T) {
	s := NewPasswordStrategy(nil)

	cases := []struct {
		name     string
		email    string
		password string
		field    string
		message  string
	}{
		{"empty email", "", "secret1", "email", "Email is required"},
		{"bad email", "not-an-email", "secret1", "email", "Email is invalid"},
		{"empty password", "a@b.com", "", "password", "Password is required"},
		{"short password", "a@b.com", "abc", "password", "Min 6 characters"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			verr := s.Validate(tc.email, tc.password)
			if verr == nil {
				t.Fatal("expected validation error, got nil")
			}
			if verr[tc.field] != tc.message {
				t.Errorf("verr[%q] = %q, want %q", tc.field, verr[tc.field], tc.message)
			}
		})
	}

	if verr := s.Validate("a@b.com", "secret1"); verr != nil {
		t.Errorf("expected valid input, got %v", verr)
	}
}

func TestPasswordValidationFailureNeverReachesNetwork(t *testing.T) {
	ex := &fakeExchanger{}
	s := NewPasswordStrategy(ex)

	_, err := s.Submit(context.Background(), "a@b.com", "abc")

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr["password"] != "Min 6 characters" {
		t.Errorf("password message = %q", verr["password"])
	}
	if ex.passwordCalls != 0 {
		t.Errorf("exchange called %d times, want 0", ex.passwordCalls)
	}
}

func TestPasswordSubmitSuccess(t *testing.T) {
	want := &session.Session{User: json.RawMessage(`{"id":"u1"}`), Token: "t1"}
	ex := &fakeExchanger{sess: want}
	s := NewPasswordStrategy(ex)

	got, err := s.Submit(context.Background(), "a@b.com", "secret1")
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if got.Token != "t1" {
		t.Errorf("token = %q, want t1", got.Token)
	}
	if ex.passwordCalls != 1 {
		t.Errorf("exchange called %d times, want exactly 1", ex.passwordCalls)
	}
	if ex.lastEmail != "a@b.com" {
		t.Errorf("email forwarded as %q", ex.lastEmail)
	}
}

func TestPasswordSubmitBackendRejected(t *testing.T) {
	ex := &fakeExchanger{err: &BackendError{StatusCode: 401, Message: "Invalid email or password"}}
	s := NewPasswordStrategy(ex)

	_, err := s.Submit(context.Background(), "a@b.com", "secret1")

	var berr *BackendError
	if !errors.As(err, &berr) {
		t.Fatalf("expected BackendError, got %v", err)
	}
	if berr.Message != "Invalid email or password" {
		t.Errorf("message = %q", berr.Message)
	}
}
