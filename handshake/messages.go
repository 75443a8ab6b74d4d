package handshake

import (
	"errors"

	"github.com/marshub/authgate/flow"
	"github.com/marshub/authgate/hostenv"
)

// UI slots the surrounding application renders error messages into.
const (
	SlotSubmit   = "submit"
	SlotTelegram = "telegram"
)

// statusFor maps a terminal failure to its attempt status.
func statusFor(err error) Status {
	switch {
	case errors.Is(err, flow.ErrCancelled):
		return StatusCancelled
	case errors.Is(err, flow.ErrTimedOut):
		return StatusTimedOut
	default:
		return StatusFailed
	}
}

// userMessage converts a terminal failure into the slot-keyed, user-facing
// message the caller renders. A cancelled popup is silent: the user closed
// it on purpose.
func userMessage(strategy hostenv.Strategy, err error) (slot, msg string) {
	var berr *flow.BackendError
	var nerr *flow.NetworkError

	switch {
	case errors.Is(err, flow.ErrCancelled):
		return "", ""
	case errors.Is(err, flow.ErrTimedOut):
		return SlotSubmit, "Telegram login timed out. Please try again."
	case errors.Is(err, flow.ErrWidgetLoadFailed):
		return SlotTelegram, "Failed to load Telegram service"
	case errors.Is(err, flow.ErrPopupBlocked):
		return SlotSubmit, "Popup blocked. Allow popups and try again."
	case errors.Is(err, flow.ErrEnvironmentNotSupported):
		return SlotSubmit, "Telegram login only works on the production domain"
	case errors.As(err, &berr):
		if berr.Message != "" {
			return SlotSubmit, berr.Message
		}
		if strategy == hostenv.StrategyPassword {
			return SlotSubmit, "Login failed"
		}
		return SlotSubmit, "Telegram login failed"
	case errors.As(err, &nerr):
		if strategy == hostenv.StrategyPassword {
			return SlotSubmit, "Network error. Please try again."
		}
		return SlotSubmit, "Network error: " + nerr.Err.Error()
	default:
		if strategy == hostenv.StrategyPassword {
			return SlotSubmit, "Login failed"
		}
		return SlotSubmit, "Telegram login failed"
	}
}
