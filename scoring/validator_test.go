package scoring

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/layer-3/scorer/core"
	"github.com/layer-3/scorer/internal/eth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAll(t *testing.T) {
	issuer := newTestIssuer(t)
	other := newTestIssuer(t)
	holder := newTestHolder(t)
	trusted := []string{issuer.did}

	tests := []struct {
		name    string
		stamp   func() core.Stamp
		trusted []string
		wantErr string
	}{
		{
			name:  "valid",
			stamp: func() core.Stamp { return issuer.stamp(t, holder, "Google", "h1") },
		},
		{
			name: "expired",
			stamp: func() core.Stamp {
				s := issuer.stamp(t, holder, "Google", "h1")
				s.Credential.ExpirationDate = time.Now().Add(-time.Minute)
				s.Credential, _ = SignCredential(s.Credential, issuer.key, time.Now())
				return s
			},
			wantErr: "credential expired",
		},
		{
			name:    "untrusted issuer",
			stamp:   func() core.Stamp { return other.stamp(t, holder, "Google", "h1") },
			wantErr: "untrusted issuer",
		},
		{
			name:    "empty trust list rejects everything",
			stamp:   func() core.Stamp { return issuer.stamp(t, holder, "Google", "h1") },
			trusted: []string{},
			wantErr: "untrusted issuer",
		},
		{
			name:    "subject is another address",
			stamp:   func() core.Stamp { return issuer.stamp(t, newTestHolder(t), "Google", "h1") },
			wantErr: "does not match passport holder",
		},
		{
			name: "tampered after signing",
			stamp: func() core.Stamp {
				s := issuer.stamp(t, holder, "Google", "h1")
				s.Credential.CredentialSubject.Hash = "h2"
				return s
			},
			wantErr: "proof not signed by issuer",
		},
		{
			name: "issuer swapped after signing",
			stamp: func() core.Stamp {
				s := other.stamp(t, holder, "Google", "h1")
				s.Credential.Issuer = issuer.did
				return s
			},
			wantErr: "proof not signed by issuer",
		},
		{
			name: "missing proof",
			stamp: func() core.Stamp {
				s := issuer.stamp(t, holder, "Google", "h1")
				s.Credential.Proof = nil
				return s
			},
			wantErr: "missing proof",
		},
		{
			name: "garbage proof value",
			stamp: func() core.Stamp {
				s := issuer.stamp(t, holder, "Google", "h1")
				s.Credential.Proof.ProofValue = "0x1234"
				return s
			},
			wantErr: "invalid proof value",
		},
		{
			name: "provider mismatch",
			stamp: func() core.Stamp {
				s := issuer.stamp(t, holder, "Google", "h1")
				s.Provider = "Ens"
				return s
			},
			wantErr: "does not match credential provider",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			list := trusted
			if tc.trusted != nil {
				list = tc.trusted
			}
			results := NewValidator(nil).ValidateAll(holder, []core.Stamp{tc.stamp()}, list)
			require.Len(t, results, 1)
			if tc.wantErr == "" {
				assert.True(t, results[0].Valid, results[0].Errors)
				assert.Empty(t, results[0].Errors)
				assert.NoError(t, results[0].Err())
				return
			}
			assert.False(t, results[0].Valid)
			assert.Contains(t, strings.Join(results[0].Errors, "; "), tc.wantErr)
			assert.ErrorIs(t, results[0].Err(), core.ErrCredentialInvalid)
		})
	}
}

func TestValidateAllKeepsOrderAndSiblings(t *testing.T) {
	issuer := newTestIssuer(t)
	holder := newTestHolder(t)

	bad := issuer.stamp(t, holder, "Ens", "h2")
	bad.Credential.Proof = nil
	stamps := []core.Stamp{
		issuer.stamp(t, holder, "Google", "h1"),
		bad,
		issuer.stamp(t, holder, "Github", "h3"),
	}

	results := NewValidator([]string{issuer.did}).ValidateAll(holder, stamps, nil)
	require.Len(t, results, 3)
	assert.True(t, results[0].Valid)
	assert.False(t, results[1].Valid)
	assert.True(t, results[2].Valid)
	for i := range stamps {
		assert.Equal(t, stamps[i].Provider, results[i].Stamp.Provider)
	}
}

func TestValidatorAcceptsMixedCaseHolder(t *testing.T) {
	issuer := newTestIssuer(t)
	holder := newTestHolder(t)

	results := NewValidator([]string{issuer.did}).ValidateAll(
		"0x"+strings.ToUpper(holder[2:]),
		[]core.Stamp{issuer.stamp(t, holder, "Google", "h1")},
		nil,
	)
	require.Len(t, results, 1)
	assert.True(t, results[0].Valid, results[0].Errors)
}

// issuerJSON signs a credential the way a non-Go issuer would publish it:
// millisecond timestamps, its own member order and fields the struct ignores
func issuerJSON(t *testing.T, issuer testIssuer, holder string) (unsigned, signed string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Millisecond)
	unsigned = fmt.Sprintf(`{"type":["VerifiableCredential"],"@context":["https://www.w3.org/2018/credentials/v1"],`+
		`"id":"urn:uuid:6f1c8f0e","issuer":%q,"issuanceDate":%q,"expirationDate":%q,`+
		`"credentialSubject":{"id":"did:pkh:eip155:1:%s","provider":"Google","hash":"v0.0.0:abc"},`+
		`"credentialStatus":{"type":"none"}}`,
		issuer.did,
		now.Add(-time.Hour).Format("2006-01-02T15:04:05.000Z"),
		now.Add(24*time.Hour).Format("2006-01-02T15:04:05.000Z"),
		holder,
	)
	sig, err := eth.SignText(issuer.key, []byte(unsigned))
	require.NoError(t, err)

	// the proof sits between other members and the document is indented
	proof := fmt.Sprintf(`"proof": {"type": %q, "proofValue": %q},`, ProofTypePersonalSign, hexutil.Encode(sig))
	signed = strings.Replace(unsigned, `"issuer":`, "\n  "+proof+"\n  \"issuer\": ", 1)
	return unsigned, signed
}

func TestValidateIssuerJSON(t *testing.T) {
	issuer := newTestIssuer(t)
	holder := newTestHolder(t)
	v := NewValidator(nil)
	unsigned, signed := issuerJSON(t, issuer, holder)

	decode := func(t *testing.T, doc string) core.Stamp {
		t.Helper()
		var stamp core.Stamp
		require.NoError(t, json.Unmarshal([]byte(`{"provider":"Google","credential":`+doc+`}`), &stamp))
		return stamp
	}

	t.Run("authentic", func(t *testing.T) {
		stamp := decode(t, signed)
		payload, err := CredentialPayload(stamp.Credential)
		require.NoError(t, err)
		assert.Equal(t, unsigned, string(payload))

		results := v.ValidateAll(holder, []core.Stamp{stamp}, []string{issuer.did})
		require.Len(t, results, 1)
		assert.True(t, results[0].Valid, results[0].Errors)
	})

	t.Run("survives storage", func(t *testing.T) {
		buf, err := json.Marshal(decode(t, signed))
		require.NoError(t, err)
		var stored core.Stamp
		require.NoError(t, json.Unmarshal(buf, &stored))

		results := v.ValidateAll(holder, []core.Stamp{stored}, []string{issuer.did})
		assert.True(t, results[0].Valid, results[0].Errors)
	})

	t.Run("precision is part of the signature", func(t *testing.T) {
		stamp := decode(t, strings.Replace(signed, ".000Z", "Z", 1))
		results := v.ValidateAll(holder, []core.Stamp{stamp}, []string{issuer.did})
		assert.False(t, results[0].Valid)
		assert.Contains(t, strings.Join(results[0].Errors, ";"), "proof not signed by issuer")
	})

	t.Run("unmodelled fields are signed", func(t *testing.T) {
		stamp := decode(t, strings.Replace(signed, "urn:uuid:6f1c8f0e", "urn:uuid:00000000", 1))
		results := v.ValidateAll(holder, []core.Stamp{stamp}, []string{issuer.did})
		assert.False(t, results[0].Valid)
	})
}
