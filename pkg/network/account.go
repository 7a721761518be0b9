package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// DefaultSubaccountBalance is transferred to new subaccounts when no initial
// balance is given. It stays well below a fresh top-level account's balance
// so the parent can still pay for gas and further subaccounts.
var DefaultSubaccountBalance = types.NEAR(1)

// Account is an account id paired with a signer for one of its keys. The key
// is assumed to be authorized on chain; calls fail remotely otherwise.
type Account struct {
	signer *rpc.InMemorySigner
	client *rpc.Client
}

// NewAccount returns an account handle that submits through client.
func NewAccount(client *rpc.Client, id types.AccountID, sk types.SecretKey) *Account {
	return &Account{signer: rpc.NewInMemorySigner(id, sk), client: client}
}

// ID returns the account id.
func (a *Account) ID() types.AccountID {
	return a.signer.AccountID
}

// Signer returns the account's signer.
func (a *Account) Signer() *rpc.InMemorySigner {
	return a.signer
}

// SecretKey returns the account's key for credential storage.
func (a *Account) SecretKey() types.SecretKey {
	return a.signer.SecretKey()
}

// Client returns the client the account submits through.
func (a *Account) Client() *rpc.Client {
	return a.client
}

func (a *Account) String() string {
	return a.ID().String()
}

// ViewAccount returns the account's on-chain state.
func (a *Account) ViewAccount(ctx context.Context) (*rpc.AccountView, error) {
	return a.client.ViewAccount(ctx, a.ID())
}

// Transfer sends amount to receiver.
func (a *Account) Transfer(ctx context.Context, receiver types.AccountID, amount types.Balance) (*rpc.CallExecutionDetails, error) {
	return a.client.Transfer(ctx, a.signer, receiver, amount)
}

// Deploy deploys wasm to this account and returns it as a Contract.
func (a *Account) Deploy(ctx context.Context, wasm []byte) (*CallExecution[*Contract], error) {
	details, err := a.client.Deploy(ctx, a.signer, wasm)
	if details == nil {
		return nil, err
	}
	return &CallExecution[*Contract]{Result: &Contract{account: a}, Details: details}, err
}

// DeleteAccount deletes this account and sends its balance to beneficiary.
func (a *Account) DeleteAccount(ctx context.Context, beneficiary types.AccountID) (*rpc.CallExecutionDetails, error) {
	return a.client.SubmitTransaction(ctx, a.signer, a.ID(), rpc.DeleteAccountAction{BeneficiaryID: beneficiary})
}

// Batch submits arbitrary actions to receiver as this account.
func (a *Account) Batch(ctx context.Context, receiver types.AccountID, actions ...rpc.Action) (*rpc.CallExecutionDetails, error) {
	return a.client.SubmitTransaction(ctx, a.signer, receiver, actions...)
}

// CreateSubaccount starts building the creation of "<name>.<account id>".
func (a *Account) CreateSubaccount(name string) *CreateAccountTransaction {
	return &CreateAccountTransaction{parent: a, name: name, balance: DefaultSubaccountBalance}
}

// Call starts building a function call on contract.
func (a *Account) Call(contract types.AccountID, method string) *CallTransaction {
	return &CallTransaction{
		signer:   a,
		contract: contract,
		method:   method,
		gas:      types.DefaultCallGas,
		deposit:  types.ZeroBalance(),
	}
}

// CreateAccountTransaction builds a subaccount creation.
type CreateAccountTransaction struct {
	parent  *Account
	name    string
	sk      *types.SecretKey
	balance types.Balance
}

// Keys sets the key of the new account. A fresh key is generated otherwise.
func (t *CreateAccountTransaction) Keys(sk types.SecretKey) *CreateAccountTransaction {
	t.sk = &sk
	return t
}

// InitialBalance sets the amount transferred from the parent.
func (t *CreateAccountTransaction) InitialBalance(b types.Balance) *CreateAccountTransaction {
	t.balance = b
	return t
}

// Transact submits the creation. The new account is created with a single
// full access key.
func (t *CreateAccountTransaction) Transact(ctx context.Context) (*CallExecution[*Account], error) {
	id, err := t.parent.ID().SubAccount(t.name)
	if err != nil {
		return nil, err
	}

	var sk types.SecretKey
	if t.sk != nil {
		sk = *t.sk
	} else if sk, err = types.GenerateSecretKey(); err != nil {
		return nil, err
	}

	details, err := t.parent.client.SubmitTransaction(ctx, t.parent.signer, id,
		rpc.CreateAccountAction{},
		rpc.AddKeyAction{PublicKey: sk.PublicKey(), AccessKey: rpc.FullAccessKey()},
		rpc.TransferAction{Deposit: t.balance},
	)
	if details == nil {
		return nil, err
	}
	return &CallExecution[*Account]{Result: NewAccount(t.parent.client, id, sk), Details: details}, err
}

// CallTransaction builds a function call.
type CallTransaction struct {
	signer   *Account
	contract types.AccountID
	method   string
	args     []byte
	gas      types.Gas
	deposit  types.Balance
	err      error
}

// Args sets raw call arguments.
func (t *CallTransaction) Args(args []byte) *CallTransaction {
	t.args = args
	return t
}

// ArgsJSON sets the call arguments to the JSON encoding of v.
func (t *CallTransaction) ArgsJSON(v interface{}) *CallTransaction {
	args, err := json.Marshal(v)
	if err != nil {
		t.err = fmt.Errorf("failed to encode args for %s: %w", t.method, err)
		return t
	}
	t.args = args
	return t
}

// Gas sets the attached gas.
func (t *CallTransaction) Gas(gas types.Gas) *CallTransaction {
	t.gas = gas
	return t
}

// Deposit sets the attached deposit.
func (t *CallTransaction) Deposit(amount types.Balance) *CallTransaction {
	t.deposit = amount
	return t
}

// Transact submits the call and waits for its outcome.
func (t *CallTransaction) Transact(ctx context.Context) (*rpc.CallExecutionDetails, error) {
	if t.err != nil {
		return nil, t.err
	}
	return t.signer.client.Call(ctx, t.signer.signer, t.contract, t.method, t.args, t.gas, t.deposit)
}

// Contract is an account with deployed code.
type Contract struct {
	account *Account
}

// NewContract wraps an account whose code is already deployed.
func NewContract(account *Account) *Contract {
	return &Contract{account: account}
}

// ID returns the contract's account id.
func (c *Contract) ID() types.AccountID {
	return c.account.ID()
}

// AsAccount returns the underlying account.
func (c *Contract) AsAccount() *Account {
	return c.account
}

// Call starts building a call of one of the contract's own methods, signed
// by the contract account.
func (c *Contract) Call(method string) *CallTransaction {
	return c.account.Call(c.ID(), method)
}

// View calls a read-only method.
func (c *Contract) View(ctx context.Context, method string, args []byte) (*rpc.ViewResult, error) {
	return c.account.client.ViewFunction(ctx, c.ID(), method, args)
}

// ViewCode returns the deployed code.
func (c *Contract) ViewCode(ctx context.Context) ([]byte, error) {
	return c.account.client.ViewCode(ctx, c.ID())
}
