package types

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

// KeyType is the curve tag carried in serialized keys and signatures.
type KeyType uint8

const (
	KeyTypeED25519 KeyType = 0
)

const ed25519Prefix = "ed25519:"

var (
	ErrUnsupportedKeyType = errors.New("unsupported key type")
	ErrInvalidKeyLength   = errors.New("invalid key length")
)

// PublicKey is an ed25519 public key.
type PublicKey struct {
	data [ed25519.PublicKeySize]byte
}

// PublicKeyFromBytes wraps a raw 32 byte ed25519 key.
func PublicKeyFromBytes(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != ed25519.PublicKeySize {
		return pk, fmt.Errorf("public key: %w: %d", ErrInvalidKeyLength, len(b))
	}
	copy(pk.data[:], b)
	return pk, nil
}

// ParsePublicKey parses the "ed25519:<base58>" text form.
// A missing curve prefix is read as ed25519.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := decodeKeyString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("public key: %w", err)
	}
	return PublicKeyFromBytes(raw)
}

// Type returns the key curve.
func (pk PublicKey) Type() KeyType {
	return KeyTypeED25519
}

// Bytes returns the raw key bytes.
func (pk PublicKey) Bytes() []byte {
	out := make([]byte, len(pk.data))
	copy(out, pk.data[:])
	return out
}

// IsZero reports whether pk is unset.
func (pk PublicKey) IsZero() bool {
	return pk.data == [ed25519.PublicKeySize]byte{}
}

// Verify checks sig over msg.
func (pk PublicKey) Verify(msg []byte, sig Signature) bool {
	return ed25519.Verify(pk.data[:], msg, sig.data[:])
}

func (pk PublicKey) String() string {
	return ed25519Prefix + base58.Encode(pk.data[:])
}

func (pk PublicKey) MarshalText() ([]byte, error) {
	return []byte(pk.String()), nil
}

func (pk *PublicKey) UnmarshalText(text []byte) error {
	parsed, err := ParsePublicKey(string(text))
	if err != nil {
		return err
	}
	*pk = parsed
	return nil
}

// SecretKey is an ed25519 private key. It is never logged or printed by
// String; use Encode to obtain the text form for credential storage.
type SecretKey struct {
	key ed25519.PrivateKey
}

// GenerateSecretKey creates a fresh random ed25519 key.
func GenerateSecretKey() (SecretKey, error) {
	_, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return SecretKey{}, fmt.Errorf("failed to generate key: %w", err)
	}
	return SecretKey{key: priv}, nil
}

// SecretKeyFromSeed derives a key from a 32 byte seed.
func SecretKeyFromSeed(seed []byte) (SecretKey, error) {
	if len(seed) != ed25519.SeedSize {
		return SecretKey{}, fmt.Errorf("seed: %w: %d", ErrInvalidKeyLength, len(seed))
	}
	return SecretKey{key: ed25519.NewKeyFromSeed(seed)}, nil
}

// SecretKeyFromPhrase derives a deterministic key from sha256(phrase).
// Intended for tests and reproducible sandbox fixtures.
func SecretKeyFromPhrase(phrase string) SecretKey {
	seed := sha256.Sum256([]byte(phrase))
	return SecretKey{key: ed25519.NewKeyFromSeed(seed[:])}
}

// ParseSecretKey parses the "ed25519:<base58>" text form of a 64 byte key.
func ParseSecretKey(s string) (SecretKey, error) {
	raw, err := decodeKeyString(s)
	if err != nil {
		return SecretKey{}, fmt.Errorf("secret key: %w", err)
	}
	switch len(raw) {
	case ed25519.PrivateKeySize:
		return SecretKey{key: ed25519.PrivateKey(raw)}, nil
	case ed25519.SeedSize:
		return SecretKeyFromSeed(raw)
	default:
		return SecretKey{}, fmt.Errorf("secret key: %w: %d", ErrInvalidKeyLength, len(raw))
	}
}

// IsZero reports whether sk is unset.
func (sk SecretKey) IsZero() bool {
	return len(sk.key) == 0
}

// PublicKey returns the matching public key.
func (sk SecretKey) PublicKey() PublicKey {
	var pk PublicKey
	copy(pk.data[:], sk.key.Public().(ed25519.PublicKey))
	return pk
}

// Sign signs msg.
func (sk SecretKey) Sign(msg []byte) Signature {
	var sig Signature
	copy(sig.data[:], ed25519.Sign(sk.key, msg))
	return sig
}

// Encode returns the "ed25519:<base58>" form including private material.
func (sk SecretKey) Encode() string {
	return ed25519Prefix + base58.Encode(sk.key)
}

// String hides the key material.
func (sk SecretKey) String() string {
	return "SecretKey(" + sk.PublicKey().String() + ")"
}

// Signature is an ed25519 signature.
type Signature struct {
	data [ed25519.SignatureSize]byte
}

// SignatureFromBytes wraps a raw 64 byte signature.
func SignatureFromBytes(b []byte) (Signature, error) {
	var sig Signature
	if len(b) != ed25519.SignatureSize {
		return sig, fmt.Errorf("signature: %w: %d", ErrInvalidKeyLength, len(b))
	}
	copy(sig.data[:], b)
	return sig, nil
}

// Type returns the signature curve.
func (s Signature) Type() KeyType {
	return KeyTypeED25519
}

// Bytes returns the raw signature bytes.
func (s Signature) Bytes() []byte {
	out := make([]byte, len(s.data))
	copy(out, s.data[:])
	return out
}

func (s Signature) String() string {
	return ed25519Prefix + base58.Encode(s.data[:])
}

func decodeKeyString(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if idx := strings.Index(s, ":"); idx >= 0 {
		if s[:idx] != "ed25519" {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedKeyType, s[:idx])
		}
		s = s[idx+1:]
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid base58: %w", err)
	}
	return raw, nil
}
