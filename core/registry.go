package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ScoreStatus is the lifecycle state of a Score
type ScoreStatus string

const (
	ScoreStatusProcessing ScoreStatus = "PROCESSING"
	ScoreStatusDone       ScoreStatus = "DONE"
	ScoreStatusError      ScoreStatus = "ERROR"
)

// Terminal reports whether the engine may no longer move the score
func (s ScoreStatus) Terminal() bool {
	return s == ScoreStatusDone || s == ScoreStatusError
}

// ScorerType selects how surviving credentials turn into a score
type ScorerType string

const (
	ScorerWeighted       ScorerType = "WEIGHTED"
	ScorerWeightedBinary ScorerType = "WEIGHTED_BINARY"
)

const (
	DedupFirstClaimWins = "first-claim-wins"
	DedupLastClaimWins  = "last-claim-wins"
)

// Ruleset holds a community's scoring and deduplication settings
type Ruleset struct {
	Scorer         ScorerType                 `json:"scorer"          yaml:"scorer"`
	Weights        map[string]decimal.Decimal `json:"weights"         yaml:"weights"`
	Threshold      decimal.Decimal            `json:"threshold"       yaml:"threshold"`
	TrustedIssuers []string                   `json:"trustedIssuers"  yaml:"trustedIssuers"`
	Dedup          string                     `json:"dedup"           yaml:"dedup"`
	DedupTTL       time.Duration              `json:"dedupTTL"        yaml:"dedupTTL"`
}

// Community is a scoring tenant owned by a developer account
type Community struct {
	ID          uint
	AccountID   uint
	Name        string
	Description string
	Ruleset     Ruleset
	CreatedAt   time.Time
}

// CredentialSubject carries the claim a credential makes about its holder
type CredentialSubject struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Hash     string `json:"hash,omitempty"`
}

// Proof is the issuer's signature over the credential
type Proof struct {
	Type               string `json:"type"`
	Created            string `json:"created,omitempty"`
	VerificationMethod string `json:"verificationMethod,omitempty"`
	ProofPurpose       string `json:"proofPurpose,omitempty"`
	ProofValue         string `json:"proofValue"`
}

// Credential is a verifiable credential ("stamp") held in a passport
type Credential struct {
	Context           []string          `json:"@context,omitempty"`
	Type              []string          `json:"type,omitempty"`
	Issuer            string            `json:"issuer"`
	IssuanceDate      time.Time         `json:"issuanceDate"`
	ExpirationDate    time.Time         `json:"expirationDate"`
	CredentialSubject CredentialSubject `json:"credentialSubject"`
	Proof             *Proof            `json:"proof,omitempty"`

	// Raw is the credential exactly as the issuer published it. When set it
	// is what MarshalJSON emits and what the proof is checked against.
	Raw json.RawMessage `json:"-"`
}

type credentialJSON Credential

// UnmarshalJSON decodes the modelled fields and keeps a copy of the input
func (c *Credential) UnmarshalJSON(data []byte) error {
	var decoded credentialJSON
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*c = Credential(decoded)
	c.Raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON writes Raw when present so stored credentials keep the issuer's bytes
func (c Credential) MarshalJSON() ([]byte, error) {
	if len(c.Raw) > 0 {
		return c.Raw, nil
	}
	return json.Marshal(credentialJSON(c))
}

// Stamp pairs a credential with the provider it was issued for
type Stamp struct {
	Provider   string     `json:"provider"`
	Credential Credential `json:"credential"`
}

// PassportData is what an upstream passport source returns for a holder
type PassportData struct {
	Address string  `json:"address"`
	Stamps  []Stamp `json:"stamps"`
}

// Passport is the stored submission for a (community, address) pair
type Passport struct {
	ID          uint
	CommunityID uint
	Address     string
	Stamps      []Stamp
	RequestedAt time.Time
}

// Score is the scoring outcome for a (community, address) pair
type Score struct {
	CommunityID        uint
	Address            string
	Value              decimal.NullDecimal
	Status             ScoreStatus
	LastScoreTimestamp *time.Time
	Evidence           json.RawMessage
	Error              *string
	SubmissionID       string
}

// ScoringJob is the queue message asking the engine to score a passport
type ScoringJob struct {
	CommunityID  uint   `json:"community_id"`
	Address      string `json:"address"`
	SubmissionID string `json:"submission_id"`
}

// ValidationResult is the per-credential outcome of validation
type ValidationResult struct {
	Stamp  Stamp
	Valid  bool
	Errors []string
}

// Err returns nil for a valid credential, otherwise an error wrapping
// ErrCredentialInvalid that lists every failed check.
func (r ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrCredentialInvalid, strings.Join(r.Errors, "; "))
}
