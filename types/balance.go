package types

import (
	"crypto/sha256"
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/mr-tron/base58"
)

// Balance is an amount of yoctoNEAR. On the wire it is a u128.
type Balance = sdkmath.Uint

// Gas is an amount of gas units.
type Gas = uint64

const (
	// TeraGas is 10^12 gas units.
	TeraGas Gas = 1_000_000_000_000

	// DefaultCallGas is attached to function calls when none is given.
	DefaultCallGas Gas = 300 * TeraGas
)

// yoctoPerNear is 10^24.
var yoctoPerNear = sdkmath.NewUintFromBigInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil))

var maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// NEAR returns n whole tokens expressed in yoctoNEAR.
func NEAR(n uint64) Balance {
	return sdkmath.NewUint(n).Mul(yoctoPerNear)
}

// Yocto returns a balance of n yoctoNEAR.
func Yocto(n uint64) Balance {
	return sdkmath.NewUint(n)
}

// ZeroBalance returns an empty balance.
func ZeroBalance() Balance {
	return sdkmath.ZeroUint()
}

// ParseBalance parses a decimal yoctoNEAR amount as returned by RPC views.
func ParseBalance(s string) (Balance, error) {
	b, err := sdkmath.ParseUint(s)
	if err != nil {
		return sdkmath.ZeroUint(), fmt.Errorf("invalid balance %q: %w", s, err)
	}
	if b.BigInt().Cmp(maxU128) > 0 {
		return sdkmath.ZeroUint(), fmt.Errorf("invalid balance %q: exceeds u128", s)
	}
	return b, nil
}

// BalanceU128 returns the 16 byte little-endian encoding of b.
func BalanceU128(b Balance) ([16]byte, error) {
	var out [16]byte
	if b.IsNil() {
		return out, nil
	}
	v := b.BigInt()
	if v.Cmp(maxU128) > 0 {
		return out, fmt.Errorf("balance %s exceeds u128", b)
	}
	be := v.FillBytes(make([]byte, 16))
	for i := range be {
		out[i] = be[15-i]
	}
	return out, nil
}

// BalanceFromU128 decodes a 16 byte little-endian amount.
func BalanceFromU128(le [16]byte) Balance {
	be := make([]byte, 16)
	for i := range le {
		be[i] = le[15-i]
	}
	return sdkmath.NewUintFromBigInt(new(big.Int).SetBytes(be))
}

// BalanceFromBigInt converts a decoded u128. Negative values read as zero.
func BalanceFromBigInt(v *big.Int) Balance {
	if v == nil || v.Sign() <= 0 {
		return sdkmath.ZeroUint()
	}
	return sdkmath.NewUintFromBigInt(v)
}

// CryptoHash is a sha256 digest rendered in base58.
type CryptoHash [32]byte

// HashBytes returns sha256(data).
func HashBytes(data []byte) CryptoHash {
	return CryptoHash(sha256.Sum256(data))
}

// ParseCryptoHash decodes a base58 hash.
func ParseCryptoHash(s string) (CryptoHash, error) {
	var h CryptoHash
	raw, err := base58.Decode(s)
	if err != nil {
		return h, fmt.Errorf("invalid hash %q: %w", s, err)
	}
	if len(raw) != len(h) {
		return h, fmt.Errorf("invalid hash %q: length %d", s, len(raw))
	}
	copy(h[:], raw)
	return h, nil
}

func (h CryptoHash) String() string {
	return base58.Encode(h[:])
}

func (h CryptoHash) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

func (h *CryptoHash) UnmarshalText(text []byte) error {
	parsed, err := ParseCryptoHash(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}
