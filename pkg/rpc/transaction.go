package rpc

import (
	"encoding/base64"
	"fmt"

	"github.com/near/borsh-go"

	"github.com/altuslabsxyz/workspaces-go/types"
)

// Action is one step of a transaction. The set of actions is closed; the
// tag order matches the node's wire format.
type Action interface {
	toWire() (wireAction, error)
}

const (
	tagCreateAccount uint8 = iota
	tagDeployContract
	tagFunctionCall
	tagTransfer
	tagStake
	tagAddKey
	tagDeleteKey
	tagDeleteAccount
)

// CreateAccountAction creates the receiver account.
type CreateAccountAction struct{}

// DeployContractAction sets the receiver's contract code.
type DeployContractAction struct {
	Code []byte
}

// FunctionCallAction calls a method on the receiver's contract.
type FunctionCallAction struct {
	MethodName string
	Args       []byte
	Gas        types.Gas
	Deposit    types.Balance
}

// TransferAction moves Deposit from signer to receiver.
type TransferAction struct {
	Deposit types.Balance
}

// StakeAction stakes Stake tokens with the given validator key.
type StakeAction struct {
	Stake     types.Balance
	PublicKey types.PublicKey
}

// AddKeyAction authorizes a new key on the receiver account.
type AddKeyAction struct {
	PublicKey types.PublicKey
	AccessKey AccessKey
}

// DeleteKeyAction revokes a key on the receiver account.
type DeleteKeyAction struct {
	PublicKey types.PublicKey
}

// DeleteAccountAction deletes the receiver and sends its balance to Beneficiary.
type DeleteAccountAction struct {
	BeneficiaryID types.AccountID
}

// AccessKey describes what a key may do.
type AccessKey struct {
	Nonce      uint64
	Permission AccessKeyPermission
}

// AccessKeyPermission is either full access or a function-call allowance.
// A nil FunctionCall means full access.
type AccessKeyPermission struct {
	FunctionCall *FunctionCallPermission
}

// FunctionCallPermission restricts a key to calls on one receiver.
type FunctionCallPermission struct {
	Allowance   *types.Balance
	ReceiverID  types.AccountID
	MethodNames []string
}

// FullAccessKey returns an access key with full permissions.
func FullAccessKey() AccessKey {
	return AccessKey{}
}

func (CreateAccountAction) toWire() (wireAction, error) {
	return wireAction{Enum: borsh.Enum(tagCreateAccount)}, nil
}

func (a DeployContractAction) toWire() (wireAction, error) {
	return wireAction{
		Enum:           borsh.Enum(tagDeployContract),
		DeployContract: wireDeployContract{Code: a.Code},
	}, nil
}

func (a FunctionCallAction) toWire() (wireAction, error) {
	deposit, err := toU128(a.Deposit)
	if err != nil {
		return wireAction{}, err
	}
	return wireAction{
		Enum: borsh.Enum(tagFunctionCall),
		FunctionCall: wireFunctionCall{
			MethodName: a.MethodName,
			Args:       a.Args,
			Gas:        a.Gas,
			Deposit:    deposit,
		},
	}, nil
}

func (a TransferAction) toWire() (wireAction, error) {
	deposit, err := toU128(a.Deposit)
	if err != nil {
		return wireAction{}, err
	}
	return wireAction{Enum: borsh.Enum(tagTransfer), Transfer: wireTransfer{Deposit: deposit}}, nil
}

func (a StakeAction) toWire() (wireAction, error) {
	stake, err := toU128(a.Stake)
	if err != nil {
		return wireAction{}, err
	}
	return wireAction{
		Enum:  borsh.Enum(tagStake),
		Stake: wireStake{Stake: stake, PublicKey: toWirePublicKey(a.PublicKey)},
	}, nil
}

func (a AddKeyAction) toWire() (wireAction, error) {
	ak := wireAccessKey{Nonce: a.AccessKey.Nonce}
	if p := a.AccessKey.Permission.FunctionCall; p != nil {
		ak.Permission.Enum = permissionFunctionCall
		ak.Permission.FunctionCall = wireFunctionCallPermission{
			ReceiverID:  p.ReceiverID.String(),
			MethodNames: p.MethodNames,
		}
		if p.Allowance != nil {
			allowance, err := toU128(*p.Allowance)
			if err != nil {
				return wireAction{}, err
			}
			ak.Permission.FunctionCall.Allowance = wireOptionU128{Enum: optionSome, Some: wireU128{Value: allowance}}
		}
	} else {
		ak.Permission.Enum = permissionFullAccess
	}
	return wireAction{
		Enum:   borsh.Enum(tagAddKey),
		AddKey: wireAddKey{PublicKey: toWirePublicKey(a.PublicKey), AccessKey: ak},
	}, nil
}

func (a DeleteKeyAction) toWire() (wireAction, error) {
	return wireAction{
		Enum:      borsh.Enum(tagDeleteKey),
		DeleteKey: wireDeleteKey{PublicKey: toWirePublicKey(a.PublicKey)},
	}, nil
}

func (a DeleteAccountAction) toWire() (wireAction, error) {
	return wireAction{
		Enum:          borsh.Enum(tagDeleteAccount),
		DeleteAccount: wireDeleteAccount{BeneficiaryID: a.BeneficiaryID.String()},
	}, nil
}

// Transaction is the unsigned envelope.
type Transaction struct {
	SignerID   types.AccountID
	PublicKey  types.PublicKey
	Nonce      uint64
	ReceiverID types.AccountID
	BlockHash  types.CryptoHash
	Actions    []Action
}

// Encode returns the borsh encoding of tx.
func (tx *Transaction) Encode() ([]byte, error) {
	w, err := tx.toWire()
	if err != nil {
		return nil, err
	}
	return borsh.Serialize(w)
}

// Hash returns sha256 of the encoded transaction, which is both the signed
// payload and the transaction hash used to query status.
func (tx *Transaction) Hash() (types.CryptoHash, error) {
	data, err := tx.Encode()
	if err != nil {
		return types.CryptoHash{}, err
	}
	return types.HashBytes(data), nil
}

// SignedTransaction pairs a transaction with its signature.
type SignedTransaction struct {
	Transaction Transaction
	Signature   types.Signature
	hash        types.CryptoHash
}

// Hash returns the transaction hash.
func (st *SignedTransaction) Hash() types.CryptoHash {
	return st.hash
}

// Encode returns the borsh encoding of the signed transaction.
func (st *SignedTransaction) Encode() ([]byte, error) {
	tx, err := st.Transaction.toWire()
	if err != nil {
		return nil, err
	}
	sig := wireSignature{KeyType: uint8(st.Signature.Type())}
	copy(sig.Data[:], st.Signature.Bytes())
	return borsh.Serialize(wireSignedTransaction{Transaction: tx, Signature: sig})
}

// EncodeBase64 returns the payload expected by send_tx.
func (st *SignedTransaction) EncodeBase64() (string, error) {
	data, err := st.Encode()
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// SignTransaction hashes tx and signs the hash with sk.
func SignTransaction(tx Transaction, sk types.SecretKey) (*SignedTransaction, error) {
	if len(tx.Actions) == 0 {
		return nil, ErrNoActions
	}
	hash, err := tx.Hash()
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction: %w", err)
	}
	return &SignedTransaction{
		Transaction: tx,
		Signature:   sk.Sign(hash[:]),
		hash:        hash,
	}, nil
}

// DecodeSignedTransaction parses the borsh encoding produced by Encode.
func DecodeSignedTransaction(data []byte) (*SignedTransaction, error) {
	w, err := decodeSignedWire(data)
	if err != nil {
		return nil, err
	}
	if types.KeyType(w.Signature.KeyType) != types.KeyTypeED25519 {
		return nil, fmt.Errorf("borsh: %w: %d", types.ErrUnsupportedKeyType, w.Signature.KeyType)
	}
	body, err := borsh.Serialize(w.Transaction)
	if err != nil {
		return nil, err
	}
	tx, err := w.Transaction.toTransaction()
	if err != nil {
		return nil, err
	}
	sig, err := types.SignatureFromBytes(w.Signature.Data[:])
	if err != nil {
		return nil, err
	}
	return &SignedTransaction{
		Transaction: tx,
		Signature:   sig,
		hash:        types.HashBytes(body),
	}, nil
}
