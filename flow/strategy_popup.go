package flow

import (
	"context"
	"net/url"
)

const telegramAuthURL = "https://oauth.telegram.org/auth"

// PopupStrategy obtains a credential through a separate browser window
// pointed at the third-party authorization address. Completion detection
// (return-channel message, closed poll, hard timeout) is owned by the
// bridge.
type PopupStrategy struct {
	channel PopupChannel
	botID   string
	// origin is the trusted callback origin; the third party redirects the
	// popup back to origin + CallbackPath on success.
	origin string
}

// CallbackPath is where the cross-context bridge page is served.
const CallbackPath = "/telegram/callback"

func NewPopupStrategy(channel PopupChannel, botID, origin string) *PopupStrategy {
	return &PopupStrategy{channel: channel, botID: botID, origin: origin}
}

func (s *PopupStrategy) ID() string { return "popup" }

// AuthURL builds the third-party authorization address carrying the bot
// id, the trusted origin, and the return address.
func (s *PopupStrategy) AuthURL() string {
	q := url.Values{}
	q.Set("bot_id", s.botID)
	q.Set("origin", s.origin)
	q.Set("return_to", s.origin+CallbackPath)
	q.Set("request_access", "write")
	return telegramAuthURL + "?" + q.Encode()
}

func (s *PopupStrategy) Start(ctx context.Context, deliver func(Credential), fail func(error)) error {
	return s.channel.OpenPopup(ctx, s.AuthURL(), deliver, fail)
}
