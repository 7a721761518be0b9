package rpc

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/near/borsh-go"

	"github.com/altuslabsxyz/workspaces-go/types"
)

// The wire* types are the borsh schema of a signed transaction. Enum
// variants are listed in the node's tag order and each variant is a struct,
// which is what borsh-go expects of complex enums.

type wireEmpty struct{}

type wireU128 struct {
	Value big.Int
}

// wireOptionU128 is Option<u128>. borsh-go decodes a None pointer as a
// non-nil zero value, so the option is spelled out as an enum.
type wireOptionU128 struct {
	Enum borsh.Enum `borsh_enum:"true"`
	None wireEmpty
	Some wireU128
}

type wirePublicKey struct {
	KeyType uint8
	Data    [32]byte
}

type wireSignature struct {
	KeyType uint8
	Data    [64]byte
}

type wireDeployContract struct {
	Code []byte
}

type wireFunctionCall struct {
	MethodName string
	Args       []byte
	Gas        uint64
	Deposit    big.Int
}

type wireTransfer struct {
	Deposit big.Int
}

type wireStake struct {
	Stake     big.Int
	PublicKey wirePublicKey
}

type wireFunctionCallPermission struct {
	Allowance   wireOptionU128
	ReceiverID  string
	MethodNames []string
}

type wirePermission struct {
	Enum         borsh.Enum `borsh_enum:"true"`
	FunctionCall wireFunctionCallPermission
	FullAccess   wireEmpty
}

type wireAccessKey struct {
	Nonce      uint64
	Permission wirePermission
}

type wireAddKey struct {
	PublicKey wirePublicKey
	AccessKey wireAccessKey
}

type wireDeleteKey struct {
	PublicKey wirePublicKey
}

type wireDeleteAccount struct {
	BeneficiaryID string
}

type wireAction struct {
	Enum           borsh.Enum `borsh_enum:"true"`
	CreateAccount  wireEmpty
	DeployContract wireDeployContract
	FunctionCall   wireFunctionCall
	Transfer       wireTransfer
	Stake          wireStake
	AddKey         wireAddKey
	DeleteKey      wireDeleteKey
	DeleteAccount  wireDeleteAccount
}

type wireTransaction struct {
	SignerID   string
	PublicKey  wirePublicKey
	Nonce      uint64
	ReceiverID string
	BlockHash  [32]byte
	Actions    []wireAction
}

type wireSignedTransaction struct {
	Transaction wireTransaction
	Signature   wireSignature
}

const (
	permissionFunctionCall borsh.Enum = iota
	permissionFullAccess
)

const (
	optionNone borsh.Enum = iota
	optionSome
)

var errNonCanonical = errors.New("borsh: trailing or non-canonical bytes")

func toU128(b types.Balance) (big.Int, error) {
	if b.IsNil() {
		return big.Int{}, nil
	}
	if _, err := types.BalanceU128(b); err != nil {
		return big.Int{}, err
	}
	return *b.BigInt(), nil
}

func fromU128(v big.Int) types.Balance {
	return types.BalanceFromBigInt(&v)
}

func toWirePublicKey(pk types.PublicKey) wirePublicKey {
	w := wirePublicKey{KeyType: uint8(pk.Type())}
	copy(w.Data[:], pk.Bytes())
	return w
}

func fromWirePublicKey(w wirePublicKey) (types.PublicKey, error) {
	if types.KeyType(w.KeyType) != types.KeyTypeED25519 {
		return types.PublicKey{}, fmt.Errorf("borsh: %w: %d", types.ErrUnsupportedKeyType, w.KeyType)
	}
	return types.PublicKeyFromBytes(w.Data[:])
}

func (tx *Transaction) toWire() (wireTransaction, error) {
	w := wireTransaction{
		SignerID:   tx.SignerID.String(),
		PublicKey:  toWirePublicKey(tx.PublicKey),
		Nonce:      tx.Nonce,
		ReceiverID: tx.ReceiverID.String(),
		BlockHash:  tx.BlockHash,
		Actions:    make([]wireAction, 0, len(tx.Actions)),
	}
	for i, a := range tx.Actions {
		wa, err := a.toWire()
		if err != nil {
			return wireTransaction{}, fmt.Errorf("action %d: %w", i, err)
		}
		w.Actions = append(w.Actions, wa)
	}
	return w, nil
}

func (w wireTransaction) toTransaction() (Transaction, error) {
	var (
		tx  Transaction
		err error
	)
	if tx.SignerID, err = types.ParseAccountID(w.SignerID); err != nil {
		return tx, err
	}
	if tx.ReceiverID, err = types.ParseAccountID(w.ReceiverID); err != nil {
		return tx, err
	}
	if tx.PublicKey, err = fromWirePublicKey(w.PublicKey); err != nil {
		return tx, err
	}
	tx.Nonce = w.Nonce
	tx.BlockHash = w.BlockHash
	for i, wa := range w.Actions {
		a, err := wa.toAction()
		if err != nil {
			return tx, fmt.Errorf("action %d: %w", i, err)
		}
		tx.Actions = append(tx.Actions, a)
	}
	return tx, nil
}

func (w wireAction) toAction() (Action, error) {
	switch uint8(w.Enum) {
	case tagCreateAccount:
		return CreateAccountAction{}, nil
	case tagDeployContract:
		return DeployContractAction{Code: w.DeployContract.Code}, nil
	case tagFunctionCall:
		return FunctionCallAction{
			MethodName: w.FunctionCall.MethodName,
			Args:       w.FunctionCall.Args,
			Gas:        w.FunctionCall.Gas,
			Deposit:    fromU128(w.FunctionCall.Deposit),
		}, nil
	case tagTransfer:
		return TransferAction{Deposit: fromU128(w.Transfer.Deposit)}, nil
	case tagStake:
		pk, err := fromWirePublicKey(w.Stake.PublicKey)
		if err != nil {
			return nil, err
		}
		return StakeAction{Stake: fromU128(w.Stake.Stake), PublicKey: pk}, nil
	case tagAddKey:
		pk, err := fromWirePublicKey(w.AddKey.PublicKey)
		if err != nil {
			return nil, err
		}
		a := AddKeyAction{PublicKey: pk, AccessKey: AccessKey{Nonce: w.AddKey.AccessKey.Nonce}}
		if perm := w.AddKey.AccessKey.Permission; perm.Enum == permissionFunctionCall {
			fc := perm.FunctionCall
			p := &FunctionCallPermission{
				ReceiverID:  types.AccountID(fc.ReceiverID),
				MethodNames: fc.MethodNames,
			}
			if fc.Allowance.Enum == optionSome {
				allowance := fromU128(fc.Allowance.Some.Value)
				p.Allowance = &allowance
			}
			a.AccessKey.Permission.FunctionCall = p
		}
		return a, nil
	case tagDeleteKey:
		pk, err := fromWirePublicKey(w.DeleteKey.PublicKey)
		if err != nil {
			return nil, err
		}
		return DeleteKeyAction{PublicKey: pk}, nil
	case tagDeleteAccount:
		return DeleteAccountAction{BeneficiaryID: types.AccountID(w.DeleteAccount.BeneficiaryID)}, nil
	default:
		return nil, fmt.Errorf("borsh: unknown action tag %d", w.Enum)
	}
}

// decodeSignedWire decodes a signed transaction and rejects input that does
// not re-encode to the same bytes, which covers trailing garbage.
func decodeSignedWire(data []byte) (wireSignedTransaction, error) {
	var w wireSignedTransaction
	if err := borsh.Deserialize(&w, data); err != nil {
		return w, fmt.Errorf("borsh: %w", err)
	}
	again, err := borsh.Serialize(w)
	if err != nil {
		return w, fmt.Errorf("borsh: %w", err)
	}
	if !bytes.Equal(again, data) {
		return w, errNonCanonical
	}
	return w, nil
}
