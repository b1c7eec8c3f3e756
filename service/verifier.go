package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/layer-3/scorer/ports"
)

// SubmissionMessage is the text a holder signs to submit their passport
func SubmissionMessage(nonce string) string {
	return fmt.Sprintf("I hereby agree to submit my address in order to score my associated Passport.\n\nNonce: %s\n", nonce)
}

// VerifierConfig bounds which sign-in messages are accepted
type VerifierConfig struct {
	// Domain the message must name. Empty accepts any domain.
	Domain string
	// ClockSkew tolerated for issuedAt values in the future
	ClockSkew time.Duration
	// MaxAge of a message measured from issuedAt
	MaxAge time.Duration
}

// Verifier checks signatures over nonce-bearing messages. A nonce is
// consumed only once the signature has been proven, so a forged attempt
// never burns the legitimate holder's nonce.
type Verifier struct {
	nonces ports.NonceStore
	cfg    VerifierConfig
	now    func() time.Time
}

func NewVerifier(nonces ports.NonceStore, cfg VerifierConfig) *Verifier {
	if cfg.ClockSkew == 0 {
		cfg.ClockSkew = time.Minute
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 10 * time.Minute
	}
	return &Verifier{nonces: nonces, cfg: cfg, now: time.Now}
}

// VerifySignIn checks an EIP-4361 message and its signature, consumes the
// nonce and returns the lower-cased signer address.
func (v *Verifier) VerifySignIn(ctx context.Context, msg eth.SignInMessage, signature string) (string, error) {
	// An incomplete message is a malformed request, not a failed sign-in
	if err := msg.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidInput, err)
	}
	address, err := eth.NormalizeAddress(msg.Address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}

	if err := v.checkWindow(msg); err != nil {
		return "", err
	}
	if v.cfg.Domain != "" && msg.Domain != v.cfg.Domain {
		return "", fmt.Errorf("%w: %s", core.ErrInvalidDomain, msg.Domain)
	}

	if err := v.verifyAndConsume(ctx, address, msg.Nonce, []byte(msg.String()), signature); err != nil {
		return "", err
	}
	return address, nil
}

// VerifySubmission checks a signature over SubmissionMessage(nonce),
// consumes the nonce and returns the lower-cased address.
func (v *Verifier) VerifySubmission(ctx context.Context, address, nonce, signature string) (string, error) {
	normalized, err := eth.NormalizeAddress(address)
	if err != nil {
		return "", fmt.Errorf("%w: %v", core.ErrInvalidAddress, err)
	}
	if err := v.verifyAndConsume(ctx, normalized, nonce, []byte(SubmissionMessage(nonce)), signature); err != nil {
		return "", err
	}
	return normalized, nil
}

func (v *Verifier) checkWindow(msg eth.SignInMessage) error {
	now := v.now()

	issuedAt, err := eth.ParseTimestamp(msg.IssuedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrExpiredMessage, err)
	}
	if issuedAt.After(now.Add(v.cfg.ClockSkew)) {
		return fmt.Errorf("%w: issued in the future", core.ErrExpiredMessage)
	}
	if now.Sub(issuedAt) > v.cfg.MaxAge {
		return fmt.Errorf("%w: issued too long ago", core.ErrExpiredMessage)
	}

	if msg.ExpirationTime != "" {
		expiresAt, err := eth.ParseTimestamp(msg.ExpirationTime)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrExpiredMessage, err)
		}
		if !now.Before(expiresAt) {
			return fmt.Errorf("%w: message expired", core.ErrExpiredMessage)
		}
	}
	if msg.NotBefore != "" {
		notBefore, err := eth.ParseTimestamp(msg.NotBefore)
		if err != nil {
			return fmt.Errorf("%w: %v", core.ErrExpiredMessage, err)
		}
		if notBefore.After(now.Add(v.cfg.ClockSkew)) {
			return fmt.Errorf("%w: message not yet valid", core.ErrExpiredMessage)
		}
	}
	return nil
}

func (v *Verifier) verifyAndConsume(ctx context.Context, address, nonce string, text []byte, signature string) error {
	valid, err := v.nonces.Valid(ctx, nonce)
	if err != nil {
		return fmt.Errorf("failed to check nonce: %w", err)
	}
	if !valid {
		return core.ErrInvalidNonce
	}

	sig, err := eth.DecodeSignature(signature)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	signer, err := eth.RecoverText(text, sig)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrInvalidSignature, err)
	}
	if signer != common.HexToAddress(address) {
		return core.ErrInvalidSignature
	}

	// Losing a consume race to a concurrent request surfaces as ErrInvalidNonce
	return v.nonces.Consume(ctx, nonce)
}
