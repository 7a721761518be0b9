package main

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/workspaces-go/internal/testutil/fakenode"
	"github.com/altuslabsxyz/workspaces-go/types"
)

func TestFormatNEAR(t *testing.T) {
	tests := []struct {
		in   types.Balance
		want string
	}{
		{types.ZeroBalance(), "0.00000 NEAR"},
		{types.NEAR(100), "100.00000 NEAR"},
		{mustBalance(t, "1500000000000000000000"), "0.00150 NEAR"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, formatNEAR(tt.in))
	}
}

func mustBalance(t *testing.T, s string) types.Balance {
	t.Helper()
	b, err := types.ParseBalance(s)
	require.NoError(t, err)
	return b
}

func executeRoot(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	logger.SetOutput(&out, &errOut)
	t.Cleanup(func() { jsonMode, viewRPCURL = false, "" })

	root := NewRootCmd()
	root.SetArgs(append(args, "--home", t.TempDir(), "--no-color"))
	err := root.Execute()
	return out.String(), err
}

func TestViewAccountCmd(t *testing.T) {
	node := fakenode.New()
	node.AddAccount("alice.test", types.SecretKeyFromPhrase("alice").PublicKey(), types.NEAR(7))
	srv := httptest.NewServer(node)
	defer srv.Close()

	out, err := executeRoot(t, "view-account", "alice.test", "--rpc-url", srv.URL, "--json")
	require.NoError(t, err)

	var state accountState
	require.NoError(t, json.Unmarshal([]byte(out), &state))
	assert.Equal(t, "alice.test", state.AccountID)
	assert.Equal(t, types.NEAR(7).String(), state.Amount)

	_, err = executeRoot(t, "view-account", "nobody.test", "--rpc-url", srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestVersionCmd(t *testing.T) {
	Version = "v1.2.3"
	defer func() { Version = "" }()

	out, err := executeRoot(t, "version", "--json")
	require.NoError(t, err)
	assert.Contains(t, out, "v1.2.3")
}
