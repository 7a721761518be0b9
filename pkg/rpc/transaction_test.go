package rpc

import (
	"encoding/base64"
	"testing"

	"github.com/near/borsh-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/workspaces-go/types"
)

func testTransaction(t *testing.T, sk types.SecretKey, actions ...Action) Transaction {
	t.Helper()
	return Transaction{
		SignerID:   types.MustParseAccountID("alice.test.near"),
		PublicKey:  sk.PublicKey(),
		Nonce:      7,
		ReceiverID: types.MustParseAccountID("bob.test.near"),
		BlockHash:  types.HashBytes([]byte("block")),
		Actions:    actions,
	}
}

func TestSignTransaction_RoundTrip(t *testing.T) {
	sk := types.SecretKeyFromPhrase("alice")
	allowance := types.NEAR(1)
	tx := testTransaction(t, sk,
		CreateAccountAction{},
		DeployContractAction{Code: []byte("\x00asm\x01")},
		FunctionCallAction{MethodName: "set", Args: []byte(`{"v":1}`), Gas: types.DefaultCallGas, Deposit: types.Yocto(5)},
		TransferAction{Deposit: types.NEAR(100)},
		StakeAction{Stake: types.NEAR(3), PublicKey: sk.PublicKey()},
		AddKeyAction{PublicKey: sk.PublicKey(), AccessKey: FullAccessKey()},
		AddKeyAction{PublicKey: sk.PublicKey(), AccessKey: AccessKey{
			Permission: AccessKeyPermission{FunctionCall: &FunctionCallPermission{
				Allowance:   &allowance,
				ReceiverID:  "bob.test.near",
				MethodNames: []string{"get", "set"},
			}},
		}},
		DeleteKeyAction{PublicKey: sk.PublicKey()},
		DeleteAccountAction{BeneficiaryID: "bob.test.near"},
	)

	st, err := SignTransaction(tx, sk)
	require.NoError(t, err)

	hash := st.Hash()
	assert.True(t, sk.PublicKey().Verify(hash[:], st.Signature))

	data, err := st.Encode()
	require.NoError(t, err)

	decoded, err := DecodeSignedTransaction(data)
	require.NoError(t, err)
	assert.Equal(t, st.Hash(), decoded.Hash())
	assert.Equal(t, st.Signature, decoded.Signature)
	assert.Equal(t, tx.SignerID, decoded.Transaction.SignerID)
	assert.Equal(t, tx.ReceiverID, decoded.Transaction.ReceiverID)
	assert.Equal(t, tx.Nonce, decoded.Transaction.Nonce)
	assert.Equal(t, tx.BlockHash, decoded.Transaction.BlockHash)
	require.Len(t, decoded.Transaction.Actions, len(tx.Actions))

	fc, ok := decoded.Transaction.Actions[2].(FunctionCallAction)
	require.True(t, ok)
	assert.Equal(t, "set", fc.MethodName)
	assert.Equal(t, types.DefaultCallGas, fc.Gas)
	assert.True(t, fc.Deposit.Equal(types.Yocto(5)))

	ak, ok := decoded.Transaction.Actions[6].(AddKeyAction)
	require.True(t, ok)
	require.NotNil(t, ak.AccessKey.Permission.FunctionCall)
	assert.Equal(t, []string{"get", "set"}, ak.AccessKey.Permission.FunctionCall.MethodNames)
	assert.True(t, ak.AccessKey.Permission.FunctionCall.Allowance.Equal(types.NEAR(1)))

	full, ok := decoded.Transaction.Actions[5].(AddKeyAction)
	require.True(t, ok)
	assert.Nil(t, full.AccessKey.Permission.FunctionCall)
}

func TestSignTransaction_NoActions(t *testing.T) {
	sk := types.SecretKeyFromPhrase("alice")
	_, err := SignTransaction(testTransaction(t, sk), sk)
	require.ErrorIs(t, err, ErrNoActions)
}

func encodeAction(t *testing.T, a Action) []byte {
	t.Helper()
	w, err := a.toWire()
	require.NoError(t, err)
	data, err := borsh.Serialize(w)
	require.NoError(t, err)
	return data
}

func TestTransferEncoding(t *testing.T) {
	data := encodeAction(t, TransferAction{Deposit: types.Yocto(258)})

	want := make([]byte, 17)
	want[0] = 3
	want[1] = 0x02
	want[2] = 0x01
	assert.Equal(t, want, data)
}

func TestFullAccessKeyEncoding(t *testing.T) {
	data := encodeAction(t, AddKeyAction{PublicKey: types.PublicKey{}, AccessKey: FullAccessKey()})

	// action tag + key type + 32 key bytes + u64 nonce + permission tag
	require.Len(t, data, 1+1+32+8+1)
	assert.Equal(t, byte(5), data[0])
	assert.Equal(t, byte(1), data[len(data)-1])
}

func TestFunctionCallPermissionEncoding(t *testing.T) {
	data := encodeAction(t, AddKeyAction{AccessKey: AccessKey{
		Permission: AccessKeyPermission{FunctionCall: &FunctionCallPermission{
			ReceiverID:  "bob.test.near",
			MethodNames: []string{"get"},
		}},
	}})

	// permission tag 0, then a None allowance
	offset := 1 + 1 + 32 + 8
	assert.Equal(t, []byte{0, 0}, data[offset:offset+2])
	assert.Equal(t, []byte{13, 0, 0, 0}, data[offset+2:offset+6])
	assert.Equal(t, "bob.test.near", string(data[offset+6:offset+19]))
}

func TestSignTransaction_NoAllowanceRoundTrip(t *testing.T) {
	sk := types.SecretKeyFromPhrase("alice")
	st, err := SignTransaction(testTransaction(t, sk, AddKeyAction{
		PublicKey: sk.PublicKey(),
		AccessKey: AccessKey{Permission: AccessKeyPermission{FunctionCall: &FunctionCallPermission{
			ReceiverID: "bob.test.near",
		}}},
	}), sk)
	require.NoError(t, err)
	data, err := st.Encode()
	require.NoError(t, err)

	decoded, err := DecodeSignedTransaction(data)
	require.NoError(t, err)
	ak, ok := decoded.Transaction.Actions[0].(AddKeyAction)
	require.True(t, ok)
	require.NotNil(t, ak.AccessKey.Permission.FunctionCall)
	assert.Nil(t, ak.AccessKey.Permission.FunctionCall.Allowance)
	assert.Empty(t, ak.AccessKey.Permission.FunctionCall.MethodNames)
	assert.Equal(t, st.Hash(), decoded.Hash())
}

func TestEncode_BalanceOverflow(t *testing.T) {
	sk := types.SecretKeyFromPhrase("alice")
	huge := types.NEAR(1).Mul(types.NEAR(1)).Mul(types.NEAR(1))
	_, err := SignTransaction(testTransaction(t, sk, TransferAction{Deposit: huge}), sk)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds u128")
}

func TestDecodeSignedTransaction_Malformed(t *testing.T) {
	sk := types.SecretKeyFromPhrase("alice")
	st, err := SignTransaction(testTransaction(t, sk, TransferAction{Deposit: types.NEAR(1)}), sk)
	require.NoError(t, err)
	data, err := st.Encode()
	require.NoError(t, err)

	_, err = DecodeSignedTransaction(data[:len(data)-10])
	require.Error(t, err)

	_, err = DecodeSignedTransaction(append(data, 0))
	require.ErrorIs(t, err, errNonCanonical)

	bad := append([]byte(nil), data...)
	bad[len(bad)-65] = 9
	_, err = DecodeSignedTransaction(bad)
	require.ErrorIs(t, err, types.ErrUnsupportedKeyType)
}

func TestEncodeBase64(t *testing.T) {
	sk := types.SecretKeyFromPhrase("alice")
	st, err := SignTransaction(testTransaction(t, sk, TransferAction{Deposit: types.NEAR(1)}), sk)
	require.NoError(t, err)

	encoded, err := st.EncodeBase64()
	require.NoError(t, err)
	raw, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)

	direct, err := st.Encode()
	require.NoError(t, err)
	assert.Equal(t, direct, raw)
}
