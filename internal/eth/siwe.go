package eth

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SIWEVersion is the only message version accepted
const SIWEVersion = "1"

// ChainID accepts both `1` and `"1"` on the wire
type ChainID int64

func (c *ChainID) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chain id %s", data)
	}
	*c = ChainID(v)
	return nil
}

func (c ChainID) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(c))
}

// SignInMessage is an EIP-4361 message
type SignInMessage struct {
	Domain         string   `json:"domain"`
	Address        string   `json:"address"`
	Statement      string   `json:"statement,omitempty"`
	URI            string   `json:"uri"`
	Version        string   `json:"version"`
	ChainID        ChainID  `json:"chainId"`
	Nonce          string   `json:"nonce"`
	IssuedAt       string   `json:"issuedAt"`
	ExpirationTime string   `json:"expirationTime,omitempty"`
	NotBefore      string   `json:"notBefore,omitempty"`
	RequestID      string   `json:"requestId,omitempty"`
	Resources      []string `json:"resources,omitempty"`
}

// Validate checks the fields required to serialize the message
func (m SignInMessage) Validate() error {
	switch {
	case m.Domain == "":
		return fmt.Errorf("domain is required")
	case m.Address == "":
		return fmt.Errorf("address is required")
	case m.URI == "":
		return fmt.Errorf("uri is required")
	case m.Version != SIWEVersion:
		return fmt.Errorf("unsupported version %q", m.Version)
	case m.ChainID <= 0:
		return fmt.Errorf("chainId is required")
	case len(m.Nonce) < 8:
		return fmt.Errorf("nonce must be at least 8 characters")
	case m.IssuedAt == "":
		return fmt.Errorf("issuedAt is required")
	}
	if _, err := ParseTimestamp(m.IssuedAt); err != nil {
		return fmt.Errorf("issuedAt: %w", err)
	}
	return nil
}

// String renders the canonical text that wallets sign
func (m SignInMessage) String() string {
	prefix := m.Domain + " wants you to sign in with your Ethereum account:\n" + m.Address
	if m.Statement != "" {
		prefix += "\n\n" + m.Statement
	} else {
		prefix += "\n"
	}

	suffix := []string{
		"URI: " + m.URI,
		"Version: " + m.Version,
		"Chain ID: " + strconv.FormatInt(int64(m.ChainID), 10),
		"Nonce: " + m.Nonce,
		"Issued At: " + m.IssuedAt,
	}
	if m.ExpirationTime != "" {
		suffix = append(suffix, "Expiration Time: "+m.ExpirationTime)
	}
	if m.NotBefore != "" {
		suffix = append(suffix, "Not Before: "+m.NotBefore)
	}
	if m.RequestID != "" {
		suffix = append(suffix, "Request ID: "+m.RequestID)
	}
	if len(m.Resources) > 0 {
		suffix = append(suffix, "Resources:")
		for _, r := range m.Resources {
			suffix = append(suffix, "- "+r)
		}
	}

	return prefix + "\n\n" + strings.Join(suffix, "\n")
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// ParseTimestamp parses RFC 3339 timestamps. Timestamps without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
