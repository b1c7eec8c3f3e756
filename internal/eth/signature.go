package eth

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// SignatureLength is the length of an [R || S || V] signature
const SignatureLength = 65

// DecodeSignature decodes a hex signature with or without 0x prefix
func DecodeSignature(s string) ([]byte, error) {
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decoding signature: %w", err)
	}
	if len(sig) != SignatureLength {
		return nil, fmt.Errorf("signature must be %d bytes, got %d", SignatureLength, len(sig))
	}
	return sig, nil
}

// RecoverText recovers the signer of an EIP-191 personal_sign signature over text
func RecoverText(text []byte, sig []byte) (common.Address, error) {
	if len(sig) != SignatureLength {
		return common.Address{}, fmt.Errorf("signature must be %d bytes", SignatureLength)
	}

	// Wallets produce V in {27, 28}; crypto expects {0, 1}
	normalized := make([]byte, SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return common.Address{}, fmt.Errorf("invalid recovery id %d", sig[64])
	}

	pub, err := crypto.SigToPub(accounts.TextHash(text), normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("recovering public key: %w", err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// SignText produces a personal_sign signature (V in {27, 28}) over text
func SignText(key *ecdsa.PrivateKey, text []byte) ([]byte, error) {
	sig, err := crypto.Sign(accounts.TextHash(text), key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}

// NormalizeAddress validates a hex address and returns its lower-cased form
func NormalizeAddress(s string) (string, error) {
	if !common.IsHexAddress(s) {
		return "", fmt.Errorf("%q is not a hex address", s)
	}
	return strings.ToLower(common.HexToAddress(s).Hex()), nil
}
