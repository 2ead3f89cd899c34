// Package stellar verifies ed25519 signatures made by Stellar accounts.
package stellar

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/stellar/go/strkey"

	"github.com/vaultline/warden/core"
)

// DecodeAddress converts a G... strkey address into its raw ed25519 public
// key. Malformed or non-account strkeys map to core.ErrBadAddress.
func DecodeAddress(address string) (ed25519.PublicKey, error) {
	raw, err := strkey.Decode(strkey.VersionByteAccountID, address)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", core.ErrBadAddress, address)
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("%w: unexpected key length %d", core.ErrBadAddress, len(raw))
	}
	return ed25519.PublicKey(raw), nil
}

// DecodeSignature accepts a hex or base64 encoded 64-byte ed25519 signature.
// Wallet SDKs differ on the encoding, so both are accepted; anything else is
// core.ErrBadSignature.
func DecodeSignature(signature string) ([]byte, error) {
	raw, err := hex.DecodeString(signature)
	if err != nil {
		raw, err = base64.StdEncoding.DecodeString(signature)
		if err != nil {
			return nil, fmt.Errorf("%w: not hex or base64", core.ErrBadSignature)
		}
	}
	if len(raw) != ed25519.SignatureSize {
		return nil, fmt.Errorf("%w: signature must be %d bytes", core.ErrBadSignature, ed25519.SignatureSize)
	}
	return raw, nil
}

// Verify checks signature over message under the key encoded in address.
// The message is exactly the nonce's opaque value, with no framing. A
// well-formed but wrong signature returns (false, nil); malformed inputs
// return a core.ErrBadAddress or core.ErrBadSignature wrapped error.
func Verify(address string, message, signature []byte) (bool, error) {
	pub, err := DecodeAddress(address)
	if err != nil {
		return false, err
	}
	return ed25519.Verify(pub, message, signature), nil
}
