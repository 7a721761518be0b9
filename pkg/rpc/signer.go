package rpc

import (
	"sync"

	"github.com/altuslabsxyz/workspaces-go/types"
)

// InMemorySigner signs transactions for one account with one key.
//
// The signer also serializes nonce assignment for its key: concurrent
// submissions through the same signer take turns between nonce discovery and
// submission, and a submission never reuses a nonce this signer already
// handed out even if the node has not yet reflected it. The chain nonce is
// still fetched on every submission. Two signers built from the same key do
// not coordinate and may race for the same nonce.
type InMemorySigner struct {
	AccountID types.AccountID
	secretKey types.SecretKey

	mu        sync.Mutex
	lastNonce uint64
}

// NewInMemorySigner returns a signer for id using sk.
func NewInMemorySigner(id types.AccountID, sk types.SecretKey) *InMemorySigner {
	return &InMemorySigner{AccountID: id, secretKey: sk}
}

// PublicKey returns the signer's public key.
func (s *InMemorySigner) PublicKey() types.PublicKey {
	return s.secretKey.PublicKey()
}

// SecretKey returns the signer's private key for credential storage.
func (s *InMemorySigner) SecretKey() types.SecretKey {
	return s.secretKey
}

// Sign signs an arbitrary payload.
func (s *InMemorySigner) Sign(msg []byte) types.Signature {
	return s.secretKey.Sign(msg)
}

// nextNonce must be called with s.mu held.
func (s *InMemorySigner) nextNonce(chainNonce uint64) uint64 {
	n := chainNonce
	if s.lastNonce > n {
		n = s.lastNonce
	}
	n++
	s.lastNonce = n
	return n
}
