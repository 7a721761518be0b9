package types

import (
	"crypto/ed25519"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecretKey_TextRoundTrip(t *testing.T) {
	sk := SecretKeyFromPhrase("alice")

	encoded := sk.Encode()
	assert.True(t, strings.HasPrefix(encoded, "ed25519:"))

	parsed, err := ParseSecretKey(encoded)
	require.NoError(t, err)
	assert.Equal(t, encoded, parsed.Encode())
	assert.Equal(t, sk.PublicKey(), parsed.PublicKey())
}

func TestPublicKey_TextRoundTrip(t *testing.T) {
	pk := SecretKeyFromPhrase("alice").PublicKey()

	s := pk.String()
	assert.True(t, strings.HasPrefix(s, "ed25519:"))

	parsed, err := ParsePublicKey(s)
	require.NoError(t, err)
	assert.Equal(t, pk, parsed)

	bare, err := ParsePublicKey(strings.TrimPrefix(s, "ed25519:"))
	require.NoError(t, err)
	assert.Equal(t, pk, bare)

	data, err := json.Marshal(map[string]PublicKey{"key": pk})
	require.NoError(t, err)
	assert.JSONEq(t, `{"key":"`+s+`"}`, string(data))

	var decoded map[string]PublicKey
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, pk, decoded["key"])
}

func TestParseKey_Errors(t *testing.T) {
	pk := SecretKeyFromPhrase("alice").PublicKey()
	short := "ed25519:" + base58.Encode(make([]byte, 31))

	tests := []struct {
		name    string
		parse   func(string) error
		input   string
		wantErr error
	}{
		{name: "public unsupported curve", parse: parsePublic, input: "secp256k1:" + strings.TrimPrefix(pk.String(), "ed25519:"), wantErr: ErrUnsupportedKeyType},
		{name: "public wrong length", parse: parsePublic, input: short, wantErr: ErrInvalidKeyLength},
		{name: "public bad base58", parse: parsePublic, input: "ed25519:0OIl"},
		{name: "secret unsupported curve", parse: parseSecret, input: "secp256k1:abc", wantErr: ErrUnsupportedKeyType},
		{name: "secret wrong length", parse: parseSecret, input: short, wantErr: ErrInvalidKeyLength},
		{name: "secret bad base58", parse: parseSecret, input: "ed25519:0OIl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.parse(tt.input)
			require.Error(t, err)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func parsePublic(s string) error {
	_, err := ParsePublicKey(s)
	return err
}

func parseSecret(s string) error {
	_, err := ParseSecretKey(s)
	return err
}

func TestParseSecretKey_Seed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	seed[0] = 7
	fromSeed, err := SecretKeyFromSeed(seed)
	require.NoError(t, err)

	parsed, err := ParseSecretKey("ed25519:" + base58.Encode(seed))
	require.NoError(t, err)
	assert.Equal(t, fromSeed.PublicKey(), parsed.PublicKey())

	_, err = SecretKeyFromSeed(seed[:10])
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestSignVerify(t *testing.T) {
	sk := SecretKeyFromPhrase("alice")
	msg := []byte("payload")
	sig := sk.Sign(msg)

	assert.True(t, sk.PublicKey().Verify(msg, sig))
	assert.False(t, sk.PublicKey().Verify([]byte("other"), sig))
	assert.False(t, SecretKeyFromPhrase("bob").PublicKey().Verify(msg, sig))

	again, err := SignatureFromBytes(sig.Bytes())
	require.NoError(t, err)
	assert.Equal(t, sig, again)
	assert.True(t, strings.HasPrefix(sig.String(), "ed25519:"))

	_, err = SignatureFromBytes(make([]byte, 10))
	assert.ErrorIs(t, err, ErrInvalidKeyLength)
}

func TestSecretKey_StringHidesKey(t *testing.T) {
	sk := SecretKeyFromPhrase("alice")
	assert.NotContains(t, sk.String(), strings.TrimPrefix(sk.Encode(), "ed25519:"))
	assert.Contains(t, sk.String(), sk.PublicKey().String())
}

func TestKeys_Zero(t *testing.T) {
	assert.True(t, PublicKey{}.IsZero())
	assert.True(t, SecretKey{}.IsZero())

	sk, err := GenerateSecretKey()
	require.NoError(t, err)
	assert.False(t, sk.IsZero())
	assert.False(t, sk.PublicKey().IsZero())
	assert.Equal(t, KeyTypeED25519, sk.PublicKey().Type())
	assert.Len(t, sk.PublicKey().Bytes(), ed25519.PublicKeySize)
}
