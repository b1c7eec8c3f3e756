package scoring

import (
	"fmt"
	"strings"
	"time"

	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
)

// Validator checks credentials one at a time. A failing credential never
// affects its siblings.
type Validator struct {
	trustedIssuers []string
	now            func() time.Time
}

// NewValidator creates a validator that trusts trustedIssuers in addition
// to the issuers named by each community ruleset.
func NewValidator(trustedIssuers []string) *Validator {
	return &Validator{
		trustedIssuers: trustedIssuers,
		now:            time.Now,
	}
}

// ValidateAll returns one result per stamp, in input order
func (v *Validator) ValidateAll(holder string, stamps []core.Stamp, trustedIssuers []string) []core.ValidationResult {
	trusted := make(map[string]struct{}, len(v.trustedIssuers)+len(trustedIssuers))
	for _, issuer := range v.trustedIssuers {
		trusted[strings.ToLower(issuer)] = struct{}{}
	}
	for _, issuer := range trustedIssuers {
		trusted[strings.ToLower(issuer)] = struct{}{}
	}

	now := v.now()
	results := make([]core.ValidationResult, 0, len(stamps))
	for _, stamp := range stamps {
		errs := v.validate(holder, stamp, trusted, now)
		results = append(results, core.ValidationResult{
			Stamp:  stamp,
			Valid:  len(errs) == 0,
			Errors: errs,
		})
	}
	return results
}

func (v *Validator) validate(holder string, stamp core.Stamp, trusted map[string]struct{}, now time.Time) []string {
	var errs []string
	c := stamp.Credential

	if c.Issuer == "" {
		errs = append(errs, "missing issuer")
	}
	if c.CredentialSubject.ID == "" {
		errs = append(errs, "missing credentialSubject.id")
	}
	if c.CredentialSubject.Provider == "" {
		errs = append(errs, "missing credentialSubject.provider")
	} else if stamp.Provider != "" && stamp.Provider != c.CredentialSubject.Provider {
		errs = append(errs, fmt.Sprintf("stamp provider %q does not match credential provider %q", stamp.Provider, c.CredentialSubject.Provider))
	}
	if c.ExpirationDate.IsZero() {
		errs = append(errs, "missing expirationDate")
	} else if !now.Before(c.ExpirationDate) {
		errs = append(errs, "credential expired")
	}
	if !c.IssuanceDate.IsZero() && c.IssuanceDate.After(now) {
		errs = append(errs, "credential issued in the future")
	}

	if c.CredentialSubject.ID != "" {
		subject, err := eth.AddressFromDID(c.CredentialSubject.ID)
		if err != nil {
			errs = append(errs, err.Error())
		} else if !strings.EqualFold(subject.Hex(), holder) {
			errs = append(errs, "credential subject does not match passport holder")
		}
	}

	if c.Issuer != "" {
		if _, ok := trusted[strings.ToLower(c.Issuer)]; !ok {
			errs = append(errs, fmt.Sprintf("untrusted issuer %s", c.Issuer))
		}
		if err := verifyProof(c); err != nil {
			errs = append(errs, err.Error())
		}
	}

	return errs
}

func verifyProof(c core.Credential) error {
	if c.Proof == nil {
		return fmt.Errorf("missing proof")
	}
	if c.Proof.Type != ProofTypePersonalSign {
		return fmt.Errorf("unsupported proof type %q", c.Proof.Type)
	}
	issuer, err := eth.AddressFromDID(c.Issuer)
	if err != nil {
		return err
	}
	sig, err := eth.DecodeSignature(c.Proof.ProofValue)
	if err != nil {
		return fmt.Errorf("invalid proof value: %w", err)
	}
	payload, err := CredentialPayload(c)
	if err != nil {
		return err
	}
	signer, err := eth.RecoverText(payload, sig)
	if err != nil {
		return fmt.Errorf("invalid proof value: %w", err)
	}
	if signer != issuer {
		return fmt.Errorf("proof not signed by issuer")
	}
	return nil
}
