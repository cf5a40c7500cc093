// Package identity decodes the trusted upstream identity header (spec §6).
// Signature verification is delegated to the upstream reverse proxy; this
// package only decodes the JWT payload segment and checks exp/email.
package identity

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/anton-mundy-ai/reddit-pain-finder-sub000/internal/types"
)

// ErrAbsent indicates the header was missing, malformed, or expired -- the
// caller should treat the request as unauthenticated rather than erroring.
var ErrAbsent = errors.New("identity absent")

type claims struct {
	Email string `json:"email"`
	Exp   int64  `json:"exp"`
}

// FromHeader decodes parts[1] of the JWT in headerValue and validates it.
// Returns ErrAbsent (never a parse error) on any failure, per spec §6:
// "On mismatch, the identity is treated as absent."
func FromHeader(headerValue string) (types.User, error) {
	headerValue = strings.TrimSpace(headerValue)
	headerValue = strings.TrimPrefix(headerValue, "Bearer ")
	if headerValue == "" {
		return types.User{}, ErrAbsent
	}

	parts := strings.Split(headerValue, ".")
	if len(parts) != 3 {
		return types.User{}, ErrAbsent
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return types.User{}, ErrAbsent
	}

	var c claims
	if err := json.Unmarshal(payload, &c); err != nil {
		return types.User{}, ErrAbsent
	}

	if c.Email == "" {
		return types.User{}, ErrAbsent
	}
	if c.Exp <= time.Now().Unix() {
		return types.User{}, ErrAbsent
	}

	return types.User{Email: c.Email, Exp: c.Exp}, nil
}
