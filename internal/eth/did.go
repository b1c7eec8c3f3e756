package eth

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// DIDForAddress returns the did:pkh identifier of addr on mainnet
func DIDForAddress(addr common.Address) string {
	return "did:pkh:eip155:1:" + strings.ToLower(addr.Hex())
}

// AddressFromDID extracts the account address from did:pkh:eip155 and did:ethr identifiers
func AddressFromDID(did string) (common.Address, error) {
	parts := strings.Split(did, ":")
	var raw string
	switch {
	case len(parts) == 5 && parts[0] == "did" && parts[1] == "pkh" && parts[2] == "eip155":
		raw = parts[4]
	case len(parts) == 3 && parts[0] == "did" && parts[1] == "ethr":
		raw = parts[2]
	case len(parts) == 4 && parts[0] == "did" && parts[1] == "ethr":
		// did:ethr:<network>:<address>
		raw = parts[3]
	default:
		return common.Address{}, fmt.Errorf("unsupported did %q", did)
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("did %q does not hold an address", did)
	}
	return common.HexToAddress(raw), nil
}
