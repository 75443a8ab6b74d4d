// Package devbackend is the offline development backend: the three
// exchange endpoints the orchestrator talks to, plus the cross-context
// callback bridge page served at the popup return address. It exists so
// the whole handshake can run end to end without the real deployment.
package devbackend

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/marshub/authgate/flow"
	"github.com/marshub/authgate/logger"
)

var emailShape = regexp.MustCompile(`^\S+@\S+\.\S+$`)

type Handler struct {
	store   *Store
	tokens  *TokenIssuer
	hasher  *BcryptHasher
	lockout LockoutStore

	// botToken enables real telegram signature checks; allowMock accepts
	// mock_ hashes from the simulated strategy.
	botToken  string
	allowMock bool

	log *zap.Logger
}

func NewHandler(store *Store, tokens *TokenIssuer, lockout LockoutStore, botToken string, allowMock bool) *Handler {
	return &Handler{
		store:     store,
		tokens:    tokens,
		hasher:    NewBcryptHasher(0),
		lockout:   lockout,
		botToken:  botToken,
		allowMock: allowMock,
		log:       logger.Log,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1/auth")
	g.POST("/login", h.HandleLogin)
	g.POST("/register", h.HandleRegister)
	g.POST("/telegram-login", h.HandleTelegramLogin)
	g.POST("/telegram-register", h.HandleTelegramLogin)

	e.GET(flow.CallbackPath, h.HandleTelegramCallback)
}

func (h *Handler) fail(c echo.Context, status int, message string, err error) error {
	if err != nil {
		h.log.Debug("request rejected",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return c.JSON(status, map[string]string{"message": message})
}

func (h *Handler) sessionResponse(c echo.Context, status int, u *User) error {
	token, err := h.tokens.Issue(u.ID)
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return c.JSON(status, map[string]any{
		"user":  u,
		"token": token,
	})
}

func (h *Handler) HandleLogin(c echo.Context) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return h.fail(c, http.StatusBadRequest, "Invalid request body", err)
	}

	ctx := c.Request().Context()
	identifier := strings.ToLower(strings.TrimSpace(body.Email))

	locked, err := h.lockout.IsLocked(ctx, identifier)
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
	}
	if locked {
		return h.fail(c, http.StatusTooManyRequests, "Too many failed attempts. Try again later.", nil)
	}

	u, err := h.store.GetUserByEmail(identifier)
	if err != nil || !h.hasher.Compare(body.Password, u.PasswordHash) {
		count, rerr := h.lockout.RecordFailure(ctx, identifier)
		if rerr == nil && count >= lockoutMaxFailures {
			_ = h.lockout.Lock(ctx, identifier, lockoutDuration)
		}
		return h.fail(c, http.StatusUnauthorized, "Invalid email or password", err)
	}

	_ = h.lockout.ClearFailures(ctx, identifier)
	return h.sessionResponse(c, http.StatusOK, u)
}

func (h *Handler) HandleRegister(c echo.Context) error {
	var body struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind(&body); err != nil {
		return h.fail(c, http.StatusBadRequest, "Invalid request body", err)
	}

	switch {
	case len(strings.TrimSpace(body.Username)) < 3:
		return h.fail(c, http.StatusBadRequest, "Username must be at least 3 characters", nil)
	case !emailShape.MatchString(body.Email):
		return h.fail(c, http.StatusBadRequest, "Email is invalid", nil)
	case len(body.Password) < 6:
		return h.fail(c, http.StatusBadRequest, "Password must be at least 6 characters", nil)
	}

	email := strings.ToLower(strings.TrimSpace(body.Email))
	if _, err := h.store.GetUserByEmail(email); err == nil {
		return h.fail(c, http.StatusConflict, "Email already registered", nil)
	}

	hash, err := h.hasher.Hash(body.Password)
	if err != nil {
		return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
	}

	u := &User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(body.Username),
		Email:        email,
		PasswordHash: hash,
	}
	if err := h.store.CreateUser(u); err != nil {
		return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
	}
	return h.sessionResponse(c, http.StatusCreated, u)
}

// HandleTelegramLogin verifies the widget/popup payload and upserts the
// account keyed by the telegram id. Login and register share this path:
// the first handshake creates the account.
func (h *Handler) HandleTelegramLogin(c echo.Context) error {
	var body struct {
		TelegramData map[string]string `json:"telegramData"`
	}
	if err := c.Bind(&body); err != nil {
		return h.fail(c, http.StatusBadRequest, "Invalid request body", err)
	}
	if len(body.TelegramData) == 0 {
		return h.fail(c, http.StatusBadRequest, "Telegram login failed", nil)
	}

	if err := verifyTelegramPayload(body.TelegramData, h.botToken, h.allowMock); err != nil {
		return h.fail(c, http.StatusUnauthorized, "Telegram login failed", err)
	}

	tgID, err := strconv.ParseInt(body.TelegramData["id"], 10, 64)
	if err != nil {
		return h.fail(c, http.StatusBadRequest, "Telegram login failed", err)
	}

	u, err := h.store.GetUserByTelegramID(tgID)
	switch {
	case err == nil:
		u.FirstName = body.TelegramData["first_name"]
		if username := body.TelegramData["username"]; username != "" {
			u.Username = username
		}
		u.PhotoURL = body.TelegramData["photo_url"]
		if err := h.store.SaveUser(u); err != nil {
			return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return h.sessionResponse(c, http.StatusOK, u)
	case err == ErrNotFound:
		username := body.TelegramData["username"]
		if username == "" {
			username = "user_" + body.TelegramData["id"]
		}
		u = &User{
			ID:         uuid.New().String(),
			Username:   username,
			TelegramID: tgID,
			FirstName:  body.TelegramData["first_name"],
			PhotoURL:   body.TelegramData["photo_url"],
		}
		if err := h.store.CreateUser(u); err != nil {
			return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
		}
		return h.sessionResponse(c, http.StatusCreated, u)
	default:
		return h.fail(c, http.StatusInternalServerError, "Internal server error", err)
	}
}

// callbackPage is the cross-context bridge: it reads its own query
// parameters, forwards them to the opener as a tagged message, and closes
// itself.
const callbackPage = `<!DOCTYPE html>
<html>
<head><title>Processing Telegram login</title></head>
<body>
<p>Processing Telegram… You can close this tab.</p>
<script>
(function () {
  try {
    var params = new URLSearchParams(window.location.search);
    var payload = {};
    params.forEach(function (v, k) { payload[k] = v; });
    if (window.opener) {
      window.opener.postMessage({ type: 'tg_oauth', payload: payload }, '*');
      window.close();
    }
  } catch (_) {}
})();
</script>
</body>
</html>
`

func (h *Handler) HandleTelegramCallback(c echo.Context) error {
	return c.HTML(http.StatusOK, callbackPage)
}
