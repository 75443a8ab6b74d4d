package devbackend

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

// signPayload reproduces the telegram widget's signature so the verifier
// can be tested against the published contract.
func signPayload(payload map[string]string, botToken string) string {
	checkString := "auth_date=" + payload["auth_date"] +
		"\nfirst_name=" + payload["first_name"] +
		"\nid=" + payload["id"] +
		"\nusername=" + payload["username"]
	secret := sha256.Sum256([]byte(botToken))
	mac := hmac.New(sha256.New, secret[:])
	mac.Write([]byte(checkString))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestVerifyTelegramPayload(t *testing.T) {
	payload := map[string]string{
		"id":         "42",
		"first_name": "John",
		"username":   "john_tg",
		"auth_date":  "1700000000",
	}
	payload["hash"] = signPayload(payload, "bot-token")

	if err := verifyTelegramPayload(payload, "bot-token", false); err != nil {
		t.Errorf("valid signature rejected: %v", err)
	}
	if err := verifyTelegramPayload(payload, "other-token", false); err == nil {
		t.Error("signature accepted with wrong bot token")
	}

	tampered := map[string]string{}
	for k, v := range payload {
		tampered[k] = v
	}
	tampered["id"] = "43"
	if err := verifyTelegramPayload(tampered, "bot-token", false); err == nil {
		t.Error("tampered payload accepted")
	}
}

func TestVerifyTelegramPayloadMockHash(t *testing.T) {
	payload := map[string]string{"id": "42", "hash": "mock_1700000000"}

	if err := verifyTelegramPayload(payload, "", true); err != nil {
		t.Errorf("mock hash rejected in development: %v", err)
	}
	if err := verifyTelegramPayload(payload, "", false); err == nil {
		t.Error("mock hash accepted outside development")
	}
}

func TestVerifyTelegramPayloadMissingHash(t *testing.T) {
	if err := verifyTelegramPayload(map[string]string{"id": "42"}, "bot-token", true); err == nil {
		t.Error("payload without hash accepted")
	}
}
