package stellar

import (
	"encoding/hex"
	"testing"

	"github.com/stellar/go/keypair"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/warden/core"
)

func TestVerifyAcceptsValidSignature(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)

	message := []byte("8e2f0c9a41d7b3e6")
	sig, err := kp.Sign(message)
	require.NoError(t, err)

	ok, err := Verify(kp.Address(), message, sig)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsWrongSigner(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)
	other, err := keypair.Random()
	require.NoError(t, err)

	message := []byte("8e2f0c9a41d7b3e6")
	sig, err := other.Sign(message)
	require.NoError(t, err)

	ok, err := Verify(kp.Address(), message, sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyRejectsTamperedMessage(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)

	sig, err := kp.Sign([]byte("original nonce"))
	require.NoError(t, err)

	ok, err := Verify(kp.Address(), []byte("different nonce"), sig)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDecodeAddressRejectsMalformed(t *testing.T) {
	for _, address := range []string{
		"",
		"not-an-address",
		"GABC",          // truncated
		"0x8ba1f109551bD432803012645Ac136ddd64DBA72", // EVM, wrong encoding
		"SDJHRQF4GCMIIKAAAQ6IHY42X73FQFLHUULAPSKKD4DFDM7UXWWCRHBE", // seed version byte
	} {
		_, err := DecodeAddress(address)
		assert.ErrorIs(t, err, core.ErrBadAddress, "address %q", address)
	}
}

func TestDecodeSignatureEncodings(t *testing.T) {
	kp, err := keypair.Random()
	require.NoError(t, err)
	sig, err := kp.Sign([]byte("nonce"))
	require.NoError(t, err)

	decoded, err := DecodeSignature(hex.EncodeToString(sig))
	require.NoError(t, err)
	assert.Equal(t, sig, decoded)

	_, err = DecodeSignature("zz-not-an-encoding")
	assert.ErrorIs(t, err, core.ErrBadSignature)

	_, err = DecodeSignature(hex.EncodeToString(sig[:10]))
	assert.ErrorIs(t, err, core.ErrBadSignature)
}
