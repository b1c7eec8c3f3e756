package core

import "errors"

var (
	ErrTokenExpired     = errors.New("token has expired")
	ErrTokenInvalidated = errors.New("token has been invalidated")
	ErrInvalidToken     = errors.New("invalid token")

	ErrInvalidNonce     = errors.New("invalid nonce")
	ErrInvalidSignature = errors.New("invalid signature")
	ErrExpiredMessage   = errors.New("message issued outside the accepted window")
	ErrInvalidDomain    = errors.New("message domain not accepted")
	ErrInvalidAddress   = errors.New("invalid ethereum address")
	ErrUnauthorized     = errors.New("unauthorized")

	ErrUnknownCommunity  = errors.New("unknown community")
	ErrInvalidRuleset    = errors.New("invalid ruleset")
	ErrInvalidInput      = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrCredentialInvalid = errors.New("credential invalid")
	ErrScoringFailure    = errors.New("scoring failed")
)

// IsAuthError reports whether err belongs to the sign-in failure family that
// surfaces as Unauthorized at the API boundary.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrUnauthorized) ||
		errors.Is(err, ErrInvalidNonce) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrExpiredMessage) ||
		errors.Is(err, ErrInvalidDomain)
}
