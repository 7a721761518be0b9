package fakenode

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/altuslabsxyz/workspaces-go/internal/fileio"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// EnvFakeSandbox switches a test binary into fake near-sandbox mode.
// Its value selects the behaviour of the run command:
//
//	serve        serve a fake node until SIGTERM
//	crash        exit with status 3 before listening
//	hang         never listen
//	ignore-term  serve but ignore SIGTERM
const EnvFakeSandbox = "WORKSPACES_FAKE_SANDBOX"

// RootAccountID is the funded account created by the fake sandbox.
const RootAccountID = "test.near"

type validatorKey struct {
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

// MaybeRunSandbox runs the fake sandbox and exits when EnvFakeSandbox is set.
// Call it first thing in TestMain so the test binary can stand in for the
// near-sandbox executable.
func MaybeRunSandbox() {
	mode := os.Getenv(EnvFakeSandbox)
	if mode == "" {
		return
	}
	os.Exit(runSandbox(mode, os.Args[1:]))
}

func runSandbox(mode string, args []string) int {
	fs := flag.NewFlagSet("near-sandbox", flag.ContinueOnError)
	home := fs.String("home", "", "home directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "missing command")
		return 2
	}

	switch fs.Arg(0) {
	case "init":
		return sandboxInit(*home)
	case "run":
		rfs := flag.NewFlagSet("run", flag.ContinueOnError)
		rpcAddr := rfs.String("rpc-addr", "", "rpc address")
		rfs.String("network-addr", "", "network address")
		if err := rfs.Parse(fs.Args()[1:]); err != nil {
			return 2
		}
		return sandboxRun(mode, *home, *rpcAddr)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", fs.Arg(0))
		return 2
	}
}

func sandboxInit(home string) int {
	sk, err := types.GenerateSecretKey()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	err = fileio.SaveJSON(filepath.Join(home, "validator_key.json"), validatorKey{
		AccountID: RootAccountID,
		PublicKey: sk.PublicKey().String(),
		SecretKey: sk.Encode(),
	}, 0o600, 0o755)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

func sandboxRun(mode, home, rpcAddr string) int {
	fmt.Println("fake sandbox starting")
	switch mode {
	case "crash":
		fmt.Fprintln(os.Stderr, "panic: genesis file is corrupt")
		return 3
	case "hang":
		time.Sleep(time.Hour)
		return 0
	}

	key, err := fileio.LoadJSON[validatorKey](filepath.Join(home, "validator_key.json"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	pk, err := types.ParsePublicKey(key.PublicKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	node := New()
	node.AddAccount(RootAccountID, pk, types.NEAR(1_000_000_000))

	sig := make(chan os.Signal, 1)
	if mode == "ignore-term" {
		signal.Ignore(syscall.SIGTERM)
	} else {
		signal.Notify(sig, syscall.SIGTERM, syscall.SIGINT)
	}

	srv, err := node.Serve(rpcAddr)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Println("fake sandbox listening on", rpcAddr)

	<-sig
	_ = srv.Close()
	return 0
}
