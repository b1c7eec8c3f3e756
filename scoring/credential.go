package scoring

import (
	"bytes"
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
)

// ProofTypePersonalSign marks a proof whose value is an EIP-191 signature
// by the issuer over the credential JSON without its proof.
const ProofTypePersonalSign = "EthereumPersonalSignature2021"

// CredentialPayload returns the bytes an issuer signs for c: the credential
// object with its proof member removed, in the issuer's member order, with
// insignificant whitespace dropped. Credentials decoded from JSON are read
// from their raw bytes, so fields and timestamp precision the struct does
// not model are preserved.
func CredentialPayload(c core.Credential) ([]byte, error) {
	if len(c.Raw) > 0 {
		return withoutProof(c.Raw)
	}
	c.Proof = nil
	payload, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential: %w", err)
	}
	return payload, nil
}

// withoutProof drops the top-level proof member from a JSON object and
// compacts the result. Member values are copied byte for byte.
func withoutProof(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, errors.New("credential is not a JSON object")
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	first := true
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to read credential: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, errors.New("credential is not a JSON object")
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to read credential member %q: %w", key, err)
		}
		if key == "proof" {
			continue
		}

		if !first {
			buf.WriteByte(',')
		}
		first = false
		if err := writeKey(&buf, key); err != nil {
			return nil, err
		}
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Compact(&out, buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to compact credential: %w", err)
	}
	return out.Bytes(), nil
}

func writeKey(buf *bytes.Buffer, key string) error {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(key); err != nil {
		return fmt.Errorf("failed to encode credential member %q: %w", key, err)
	}
	// Encode terminates with a newline
	buf.Truncate(buf.Len() - 1)
	return nil
}

// SignCredential attaches a personal_sign proof made with the issuer key.
// The issuer field is set to the key's did:pkh.
func SignCredential(c core.Credential, issuerKey *ecdsa.PrivateKey, created time.Time) (core.Credential, error) {
	issuerDID := eth.DIDForAddress(crypto.PubkeyToAddress(issuerKey.PublicKey))
	c.Issuer = issuerDID
	c.Raw = nil

	payload, err := CredentialPayload(c)
	if err != nil {
		return core.Credential{}, err
	}
	sig, err := eth.SignText(issuerKey, payload)
	if err != nil {
		return core.Credential{}, fmt.Errorf("failed to sign credential: %w", err)
	}

	c.Proof = &core.Proof{
		Type:               ProofTypePersonalSign,
		Created:            created.UTC().Format(time.RFC3339),
		VerificationMethod: issuerDID + "#blockchainAccountId",
		ProofPurpose:       "assertionMethod",
		ProofValue:         hexutil.Encode(sig),
	}
	return c, nil
}

// DedupKey identifies the claim a credential makes within a community:
// the same issuer vouching for the same underlying identity on the same provider.
func DedupKey(c core.Credential) string {
	return strings.ToLower(c.Issuer) + "|" + c.CredentialSubject.Provider + "|" + c.CredentialSubject.Hash
}

// stampProvider is the provider a stamp contributes to
func stampProvider(s core.Stamp) string {
	if s.Provider != "" {
		return s.Provider
	}
	return s.Credential.CredentialSubject.Provider
}
