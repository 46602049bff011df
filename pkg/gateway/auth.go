package gateway

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
)

// challengeBytes is the size of the random challenge sent at connect time.
const challengeBytes = 32

// maxAuthAttempts is how many bad signatures a dashboard client may send
// before the hub drops the connection.
const maxAuthAttempts = 3

// AuthHandler runs the handshake dashboard clients must complete before
// the hub streams upload and session events to them: the hub sends a
// random challenge and the client answers with its HMAC-SHA256 signature
// under the shared secret.
type AuthHandler struct {
	sharedSecret string
}

// NewAuthHandler creates a handler bound to the given shared secret.
func NewAuthHandler(sharedSecret string) *AuthHandler {
	return &AuthHandler{
		sharedSecret: sharedSecret,
	}
}

// GenerateChallenge returns a fresh hex-encoded random challenge for one
// connection.
func (a *AuthHandler) GenerateChallenge() (string, error) {
	challenge := make([]byte, challengeBytes)
	if _, err := rand.Read(challenge); err != nil {
		return "", fmt.Errorf("failed to generate challenge: %w", err)
	}
	return hex.EncodeToString(challenge), nil
}

// VerifySignature reports whether signature is the hex HMAC-SHA256 of the
// challenge under the shared secret. Comparison is constant time.
func (a *AuthHandler) VerifySignature(challenge, signature string) bool {
	h := hmac.New(sha256.New, []byte(a.sharedSecret))
	h.Write([]byte(challenge))
	expected := hex.EncodeToString(h.Sum(nil))

	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}

// HandleAuthResponse checks a client's signature against its pending
// challenge and returns the result frame to send back. A valid signature
// marks the client authenticated and consumes the challenge; after
// maxAuthAttempts failures the caller is expected to close the connection.
func (a *AuthHandler) HandleAuthResponse(client *Client, signature string) AuthResult {
	if client.Challenge == "" {
		return authFailure("No challenge found")
	}

	if !a.VerifySignature(client.Challenge, signature) {
		client.AuthAttempts++
		if client.AuthAttempts >= maxAuthAttempts {
			return authFailure("Too many failed attempts")
		}
		return authFailure("Invalid signature")
	}

	client.Authenticated = true
	client.State = StateAuthenticated
	client.AuthAttempts = 0
	client.Challenge = ""

	return AuthResult{
		Event:   "auth.success",
		Success: true,
	}
}

func authFailure(message string) AuthResult {
	return AuthResult{
		Event:   "auth.failure",
		Success: false,
		Message: message,
	}
}
