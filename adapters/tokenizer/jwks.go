package tokenizer

import (
	"encoding/json"
	"fmt"

	"github.com/rakutentech/jwk-go/jwk"
)

// JWKS renders the verification key as a JSON Web Key Set so that
// integrators can validate session tokens offline.
func (j *JWTTokenizer) JWKS() ([]byte, error) {
	ks := jwk.NewSpec(j.PublicKey())
	rawJWK, err := ks.ToJWK()
	if err != nil {
		return nil, fmt.Errorf("creating JWK: %w", err)
	}

	rawJWK.Use = "sig"
	rawJWK.Alg = "ES256"
	rawJWK.Kid = j.keyID

	keyData, err := rawJWK.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("marshalling JWK: %w", err)
	}

	return json.Marshal(struct {
		Keys []json.RawMessage `json:"keys"`
	}{Keys: []json.RawMessage{keyData}})
}
