// Package notification delivers pipeline events to webhook endpoints.
package notification

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer signs webhook payloads so receivers can verify origin.
type Signer struct{}

// NewSigner creates a payload signer.
func NewSigner() *Signer {
	return &Signer{}
}

// SignPayload returns "sha256=<hex>" over the payload.
func (s *Signer) SignPayload(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

// VerifySignature verifies that the signature matches the payload.
func (s *Signer) VerifySignature(payload []byte, secret, signature string) bool {
	expected := s.SignPayload(payload, secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// SignedHeaders returns the headers to attach to a signed webhook request.
// The timestamped variant protects against replay.
func (s *Signer) SignedHeaders(payload []byte, secret string, timestamp time.Time) map[string]string {
	timestamped := s.SignPayload([]byte(fmt.Sprintf("%d.%s", timestamp.Unix(), payload)), secret)
	return map[string]string{
		"X-Webhook-Signature": s.SignPayload(payload, secret),
		"X-Webhook-Timestamp": fmt.Sprintf("%d", timestamp.Unix()),
		"X-Webhook-Signature-Ts": timestamped,
	}
}

// VerifyTimestampedSignature checks the timestamp window and the signature.
func (s *Signer) VerifyTimestampedSignature(payload []byte, secret, signature string, timestamp int64, tolerance time.Duration) bool {
	now := time.Now().Unix()
	if timestamp < now-int64(tolerance.Seconds()) || timestamp > now+int64(tolerance.Seconds()) {
		return false
	}
	expected := s.SignPayload([]byte(fmt.Sprintf("%d.%s", timestamp, payload)), secret)
	return hmac.Equal([]byte(expected), []byte(signature))
}
