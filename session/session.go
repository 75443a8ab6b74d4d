// Package session defines the terminal result of a successful handshake
// and the collaborator interface that consumes it.
package session

import "encoding/json"

// Session is the backend's answer to a successful credential exchange.
// The user record is opaque to the orchestrator and forwarded verbatim.
type Session struct {
	User  json.RawMessage `json:"user"`
	Token string          `json:"token"`
}

// Sink receives the terminal successful result, exactly once per attempt.
// It is owned by the surrounding application.
type Sink interface {
	// OnAuthenticated hands over the accepted session.
	OnAuthenticated(s Session)
	// NavigateTo is invoked after OnAuthenticated with the post-login path.
	NavigateTo(path string)
}

// SinkFuncs adapts plain functions to the Sink interface. Nil fields are
// skipped.
type SinkFuncs struct {
	Authenticated func(Session)
	Navigate      func(string)
}

func (s SinkFuncs) OnAuthenticated(sess Session) {
	if s.Authenticated != nil {
		s.Authenticated(sess)
	}
}

func (s SinkFuncs) NavigateTo(path string) {
	if s.Navigate != nil {
		s.Navigate(path)
	}
}
