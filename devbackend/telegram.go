package devbackend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"strings"
)

// Telegram signs the widget payload with HMAC-SHA256 over the sorted
// data-check string, keyed with SHA256(bot token). The dev backend accepts
// mock_ hashes instead when running without a real bot.
var errBadTelegramHash = errors.New("devbackend: telegram hash mismatch")

func verifyTelegramPayload(payload map[string]string, botToken string, allowMock bool) error {
	hash := payload["hash"]
	if hash == "" {
		return errBadTelegramHash
	}
	if allowMock && strings.HasPrefix(hash, "mock_") {
		return nil
	}
	if botToken == "" {
		return errBadTelegramHash
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		if k == "hash" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+payload[k])
	}
	checkString := strings.Join(pairs, "\n")

	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return errBadTelegramHash
	}
	return nil
}
