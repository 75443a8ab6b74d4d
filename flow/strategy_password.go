package flow

import (
	"context"
	"regexp"
	"strings"

	"github.com/marshub/authgate/session"
)

var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

const minPasswordLen = 6

// PasswordStrategy authenticates with a local email/password pair. Unlike
// the external strategies it produces no intermediate credential: a valid
// submission goes straight to the backend exchange.
type PasswordStrategy struct {
	exchanger Exchanger
}

func NewPasswordStrategy(exchanger Exchanger) *PasswordStrategy {
	return &PasswordStrategy{exchanger: exchanger}
}

func (s *PasswordStrategy) ID() string { return "password" }

// Validate checks the pair locally. A non-nil result is field-keyed and
// must be surfaced without any network call.
func (s *PasswordStrategy) Validate(email, password string) ValidationError {
	errs := ValidationError{}
	switch {
	case strings.TrimSpace(email) == "":
		errs["email"] = "Email is required"
	case !emailShape.MatchString(email):
		errs["email"] = "Email is invalid"
	}
	switch {
	case password == "":
		errs["password"] = "Password is required"
	case len(password) < minPasswordLen:
		errs["password"] = "Min 6 characters"
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Submit validates and, on success, performs exactly one exchange with the
// password login endpoint. No retry is attempted.
func (s *PasswordStrategy) Submit(ctx context.Context, email, password string) (*session.Session, error) {
	if verr := s.Validate(email, password); verr != nil {
		return nil, verr
	}
	return s.exchanger.PasswordLogin(ctx, email, password)
}
