package types

import (
	"encoding/json"
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAccountID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    AccountID
		wantErr string
	}{
		{name: "top level", input: "near", want: "near"},
		{name: "nested", input: "app.alice.near", want: "app.alice.near"},
		{name: "separators", input: "a_b-c.near", want: "a_b-c.near"},
		{name: "shortest", input: "0x", want: "0x"},
		{name: "longest", input: strings.Repeat("a", MaxAccountIDLen), want: AccountID(strings.Repeat("a", MaxAccountIDLen))},
		{name: "trims whitespace", input: "  alice.near\n", want: "alice.near"},
		{name: "folds upper case", input: "Alice.NEAR", want: "alice.near"},
		{name: "too short", input: "a", wantErr: "too short"},
		{name: "empty", input: "   ", wantErr: "too short"},
		{name: "too long", input: strings.Repeat("a", MaxAccountIDLen+1), wantErr: "too long"},
		{name: "double dot", input: "a..near", wantErr: "invalid characters"},
		{name: "leading dot", input: ".near", wantErr: "invalid characters"},
		{name: "trailing dot", input: "near.", wantErr: "invalid characters"},
		{name: "leading dash", input: "-near", wantErr: "invalid characters"},
		{name: "trailing underscore", input: "near_", wantErr: "invalid characters"},
		{name: "double separator", input: "a--b", wantErr: "invalid characters"},
		{name: "mixed separators", input: "a-_b", wantErr: "invalid characters"},
		{name: "separator before dot", input: "a-.near", wantErr: "invalid characters"},
		{name: "inner space", input: "al ice", wantErr: "invalid characters"},
		{name: "symbol", input: "alice@near", wantErr: "invalid characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAccountID(tt.input)
			if tt.wantErr != "" {
				var invalid *InvalidAccountIDError
				require.ErrorAs(t, err, &invalid)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMustParseAccountID(t *testing.T) {
	assert.Equal(t, AccountID("alice.near"), MustParseAccountID("ALICE.near"))
	assert.Panics(t, func() { MustParseAccountID("x") })
}

func TestAccountID_Hierarchy(t *testing.T) {
	alice := MustParseAccountID("alice")
	sub := MustParseAccountID("sub.alice")
	deep := MustParseAccountID("x.sub.alice")

	assert.True(t, alice.IsTopLevel())
	assert.False(t, sub.IsTopLevel())

	parent, ok := sub.Parent()
	require.True(t, ok)
	assert.Equal(t, alice, parent)
	_, ok = alice.Parent()
	assert.False(t, ok)

	assert.True(t, sub.IsSubAccountOf(alice))
	assert.False(t, deep.IsSubAccountOf(alice))
	assert.True(t, deep.IsSubAccountOf(sub))
	assert.False(t, alice.IsSubAccountOf(alice))
}

func TestAccountID_SubAccount(t *testing.T) {
	alice := MustParseAccountID("alice")

	tests := []struct {
		name    string
		input   string
		want    AccountID
		wantErr bool
	}{
		{name: "simple", input: "sub", want: "sub.alice"},
		{name: "canonicalized", input: " Sub ", want: "sub.alice"},
		{name: "contains dot", input: "a.b", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "invalid segment", input: "bad name", wantErr: true},
		{name: "result too long", input: strings.Repeat("s", MaxAccountIDLen), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := alice.SubAccount(tt.input)
			if tt.wantErr {
				var invalid *InvalidAccountIDError
				require.ErrorAs(t, err, &invalid)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.IsSubAccountOf(alice))
		})
	}
}

func TestAccountID_IsImplicit(t *testing.T) {
	assert.True(t, AccountID(strings.Repeat("ab", 32)).IsImplicit())
	assert.False(t, AccountID(strings.Repeat("ab", 31)).IsImplicit())
	assert.False(t, AccountID("alice.near").IsImplicit())
}

func TestAccountID_UnmarshalJSON(t *testing.T) {
	var v struct {
		ID AccountID `json:"id"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"id":"Alice.near"}`), &v))
	assert.Equal(t, AccountID("alice.near"), v.ID)

	require.Error(t, json.Unmarshal([]byte(`{"id":"a"}`), &v))
	require.Error(t, json.Unmarshal([]byte(`{"id":7}`), &v))
}

const maxU128Decimal = "340282366920938463463374607431768211455"

func TestParseBalance(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{name: "zero", input: "0"},
		{name: "one near", input: "1000000000000000000000000"},
		{name: "max u128", input: maxU128Decimal},
		{name: "u128 overflow", input: "340282366920938463463374607431768211456", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "not a number", input: "ten", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := ParseBalance(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.input, b.String())
		})
	}
}

func TestNEAR(t *testing.T) {
	assert.Equal(t, "1"+strings.Repeat("0", 24), NEAR(1).String())
	assert.True(t, NEAR(0).IsZero())
	assert.True(t, Yocto(5).Equal(mustParseBalance(t, "5")))
}

func TestBalanceU128(t *testing.T) {
	le, err := BalanceU128(Yocto(258))
	require.NoError(t, err)
	want := [16]byte{0x02, 0x01}
	assert.Equal(t, want, le)

	zero, err := BalanceU128(Balance{})
	require.NoError(t, err)
	assert.Equal(t, [16]byte{}, zero)

	tooWide := BalanceFromBigInt(new(big.Int).Lsh(big.NewInt(1), 128))
	_, err = BalanceU128(tooWide)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds u128")
}

func TestBalanceU128_RoundTrip(t *testing.T) {
	for _, b := range []Balance{ZeroBalance(), Yocto(1), NEAR(100), mustParseBalance(t, maxU128Decimal)} {
		le, err := BalanceU128(b)
		require.NoError(t, err)
		assert.True(t, BalanceFromU128(le).Equal(b), "round trip of %s", b)
	}

	var max [16]byte
	for i := range max {
		max[i] = 0xff
	}
	assert.Equal(t, maxU128Decimal, BalanceFromU128(max).String())
}

func TestBalanceFromBigInt(t *testing.T) {
	assert.True(t, BalanceFromBigInt(nil).IsZero())
	assert.True(t, BalanceFromBigInt(big.NewInt(-5)).IsZero())
	assert.True(t, BalanceFromBigInt(big.NewInt(42)).Equal(Yocto(42)))
}

func TestCryptoHash(t *testing.T) {
	h := HashBytes([]byte("block"))
	parsed, err := ParseCryptoHash(h.String())
	require.NoError(t, err)
	assert.Equal(t, h, parsed)

	text, err := h.MarshalText()
	require.NoError(t, err)
	var decoded CryptoHash
	require.NoError(t, decoded.UnmarshalText(text))
	assert.Equal(t, h, decoded)

	_, err = ParseCryptoHash("3yZe7d")
	require.Error(t, err)
	_, err = ParseCryptoHash("0OIl")
	require.Error(t, err)
}

func mustParseBalance(t *testing.T, s string) Balance {
	t.Helper()
	b, err := ParseBalance(s)
	require.NoError(t, err)
	return b
}
