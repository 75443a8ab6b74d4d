package flow

import (
	"context"

	"github.com/marshub/authgate/session"
)

// Credential is the opaque payload obtained from a third party, a flat
// string mapping forwarded verbatim to the backend. The orchestrator never
// interprets its fields beyond checking non-emptiness.
type Credential map[string]string

func (c Credential) Empty() bool { return len(c) == 0 }

// CredentialStrategy starts one asynchronous credential acquisition.
// Exactly one of deliver or fail is eventually invoked unless Start itself
// returns an error, in which case neither fires.
type CredentialStrategy interface {
	ID() string
	Start(ctx context.Context, deliver func(Credential), fail func(error)) error
}

// Exchanger performs the single backend call that converts a credential
// into a session. Implemented by the backend package.
type Exchanger interface {
	PasswordLogin(ctx context.Context, email, password string) (*session.Session, error)
	CredentialLogin(ctx context.Context, path string, cred Credential) (*session.Session, error)
}

// WidgetChannel is the externally-hosted widget surface owned by the
// bridge.
type WidgetChannel interface {
	OpenWidget(deliver func(Credential), fail func(error)) error
}

// PopupChannel is the externally-hosted popup surface owned by the bridge.
type PopupChannel interface {
	OpenPopup(ctx context.Context, authURL string, deliver func(Credential), fail func(error)) error
}

// SurfaceCloser releases whatever external surface is currently open.
// Teardown is idempotent and safe to call when nothing is open.
type SurfaceCloser interface {
	Teardown()
}
