// Package types holds the value types shared by the RPC client, the network
// backends and the worker: account identifiers, keys, balances and gas.
package types

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

const (
	// MinAccountIDLen is the shortest valid account identifier.
	MinAccountIDLen = 2

	// MaxAccountIDLen is the longest valid account identifier.
	MaxAccountIDLen = 64
)

// accountIDPattern matches dot-separated parts made of lower-case
// alphanumerics joined by single '-' or '_' separators.
var accountIDPattern = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

var implicitPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// AccountID identifies an account on the network.
// The zero value is not a valid identifier.
type AccountID string

// ParseAccountID validates id and returns its canonical form.
// Surrounding whitespace is trimmed and upper-case letters are folded.
func ParseAccountID(id string) (AccountID, error) {
	canonical := strings.ToLower(strings.TrimSpace(id))
	if err := validateAccountID(canonical); err != nil {
		return "", err
	}
	return AccountID(canonical), nil
}

// MustParseAccountID is like ParseAccountID but panics on invalid input.
func MustParseAccountID(id string) AccountID {
	aid, err := ParseAccountID(id)
	if err != nil {
		panic(err)
	}
	return aid
}

func validateAccountID(id string) error {
	if len(id) < MinAccountIDLen {
		return &InvalidAccountIDError{ID: id, Reason: "too short"}
	}
	if len(id) > MaxAccountIDLen {
		return &InvalidAccountIDError{ID: id, Reason: "too long"}
	}
	if !accountIDPattern.MatchString(id) {
		return &InvalidAccountIDError{ID: id, Reason: "invalid characters or separators"}
	}
	return nil
}

// String returns the canonical string form.
func (id AccountID) String() string {
	return string(id)
}

// IsTopLevel reports whether id has no parent namespace.
func (id AccountID) IsTopLevel() bool {
	return !strings.Contains(string(id), ".")
}

// IsImplicit reports whether id is a 64 character hex implicit account.
func (id AccountID) IsImplicit() bool {
	return implicitPattern.MatchString(string(id))
}

// Parent returns the parent namespace of id, or false for top-level ids.
func (id AccountID) Parent() (AccountID, bool) {
	idx := strings.Index(string(id), ".")
	if idx < 0 {
		return "", false
	}
	return id[idx+1:], true
}

// IsSubAccountOf reports whether id is a direct child of parent.
func (id AccountID) IsSubAccountOf(parent AccountID) bool {
	p, ok := id.Parent()
	return ok && p == parent
}

// SubAccount returns the id "<name>.<id>".
// name must be a single segment without dots.
func (id AccountID) SubAccount(name string) (AccountID, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || strings.Contains(name, ".") {
		return "", &InvalidAccountIDError{ID: name, Reason: "subaccount name must be a single segment"}
	}
	return ParseAccountID(name + "." + string(id))
}

// UnmarshalJSON validates the identifier while decoding.
func (id *AccountID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseAccountID(s)
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// InvalidAccountIDError is returned for identifiers that break naming rules.
type InvalidAccountIDError struct {
	ID     string
	Reason string
}

func (e *InvalidAccountIDError) Error() string {
	return fmt.Sprintf("invalid account ID %q: %s", e.ID, e.Reason)
}
