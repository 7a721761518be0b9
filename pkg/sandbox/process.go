// Package sandbox launches and supervises a local near-sandbox node.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/phayes/freeport"

	"github.com/altuslabsxyz/workspaces-go/internal/fileio"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

const (
	// EnvBinPath overrides the sandbox binary location.
	EnvBinPath = "NEAR_SANDBOX_BIN_PATH"

	// DefaultBinaryName is looked up on PATH when no binary is configured.
	DefaultBinaryName = "near-sandbox"

	// DefaultLivenessTimeout bounds the wait for the RPC endpoint.
	DefaultLivenessTimeout = 30 * time.Second

	// DefaultGracePeriod is how long Stop waits after SIGTERM before SIGKILL.
	DefaultGracePeriod = 5 * time.Second

	logFileName      = "sandbox.log"
	validatorKeyFile = "validator_key.json"
	logTailLines     = 20
)

// Config configures a sandbox process.
type Config struct {
	// BinaryPath is the near-sandbox executable. Empty means
	// $NEAR_SANDBOX_BIN_PATH, then near-sandbox on PATH.
	BinaryPath string

	// HomeDir is the node's data directory. Empty means a fresh temporary
	// directory that is removed on Stop.
	HomeDir string

	LivenessTimeout time.Duration
	GracePeriod     time.Duration

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.LivenessTimeout <= 0 {
		c.LivenessTimeout = DefaultLivenessTimeout
	}
	if c.GracePeriod <= 0 {
		c.GracePeriod = DefaultGracePeriod
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// exitState is shared with the goroutine that reaps the child. It must not
// reference the Process so that an abandoned Process can be collected.
type exitState struct {
	done chan struct{}
	err  error
}

// Process is a running sandbox node. It exclusively owns the OS process.
type Process struct {
	cfg      Config
	binary   string
	pid      int
	rpcPort  int
	netPort  int
	home     string
	ownsHome bool
	logPath  string
	rootID   types.AccountID
	rootKey  types.SecretKey
	exit     *exitState
	cleanup  runtime.Cleanup
	logger   *slog.Logger

	stopOnce sync.Once
	stopErr  error
}

// ResolveBinary returns the sandbox executable to launch.
func ResolveBinary(configured string) (string, error) {
	if configured == "" {
		configured = os.Getenv(EnvBinPath)
	}
	if configured != "" {
		if _, err := os.Stat(configured); err != nil {
			return "", fmt.Errorf("%w: %s", ErrBinaryNotFound, configured)
		}
		return configured, nil
	}
	path, err := exec.LookPath(DefaultBinaryName)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH and %s is not set", ErrBinaryNotFound, DefaultBinaryName, EnvBinPath)
	}
	return path, nil
}

// Start initializes a home directory, launches the node on ephemeral ports
// and waits until its RPC endpoint answers. Every failure after launch kills
// the process before returning.
//
// A Process that becomes unreachable without Stop has its process group
// killed by the garbage collector, but a temporary home directory is left
// behind in that case. Call Stop to remove it.
func Start(ctx context.Context, cfg Config) (*Process, error) {
	cfg = cfg.withDefaults()

	binary, err := ResolveBinary(cfg.BinaryPath)
	if err != nil {
		return nil, &LaunchError{Step: "resolve", Err: err}
	}

	p := &Process{
		cfg:    cfg,
		binary: binary,
		home:   cfg.HomeDir,
		logger: cfg.Logger,
	}
	if p.home == "" {
		p.home = filepath.Join(os.TempDir(), "sandbox-"+uuid.NewString())
		p.ownsHome = true
	}
	if err := os.MkdirAll(p.home, 0o755); err != nil {
		return nil, &LaunchError{Binary: binary, Step: "init", Err: err}
	}

	if err := p.init(ctx); err != nil {
		p.removeHome()
		return nil, err
	}

	ports, err := freeport.GetFreePorts(2)
	if err != nil {
		p.removeHome()
		return nil, &LaunchError{Binary: binary, Step: "launch", Err: fmt.Errorf("failed to allocate ports: %w", err)}
	}
	p.rpcPort, p.netPort = ports[0], ports[1]

	if err := p.launch(); err != nil {
		p.removeHome()
		return nil, err
	}

	if err := p.waitLive(ctx); err != nil {
		if stopErr := p.Stop(ctx); stopErr != nil {
			p.logger.Warn("failed to stop sandbox after launch failure", "pid", p.pid, "error", stopErr)
		}
		return nil, err
	}

	p.logger.Info("sandbox started",
		"pid", p.pid,
		"rpc", p.RPCAddr(),
		"home", p.home)
	return p, nil
}

func (p *Process) init(ctx context.Context) error {
	keyPath := filepath.Join(p.home, validatorKeyFile)
	if _, err := os.Stat(keyPath); err != nil {
		out, err := exec.CommandContext(ctx, p.binary, "--home", p.home, "init").CombinedOutput()
		if err != nil {
			return &LaunchError{Binary: p.binary, Step: "init", LogTail: lastLines(string(out), logTailLines), Err: err}
		}
	}

	id, key, err := readValidatorKey(keyPath)
	if err != nil {
		return &LaunchError{Binary: p.binary, Step: "init", Err: err}
	}
	p.rootID, p.rootKey = id, key
	return nil
}

func (p *Process) launch() error {
	p.logPath = filepath.Join(p.home, logFileName)
	logFile, err := os.OpenFile(p.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return &LaunchError{Binary: p.binary, Step: "launch", Err: fmt.Errorf("failed to open log file: %w", err)}
	}

	// Not bound to a context: the process lives until Stop.
	cmd := exec.Command(p.binary,
		"--home", p.home,
		"run",
		"--rpc-addr", "127.0.0.1:"+strconv.Itoa(p.rpcPort),
		"--network-addr", "127.0.0.1:"+strconv.Itoa(p.netPort),
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	setProcAttr(cmd)

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return &LaunchError{Binary: p.binary, Step: "launch", Err: err}
	}
	p.pid = cmd.Process.Pid

	exit := &exitState{done: make(chan struct{})}
	go func() {
		exit.err = cmd.Wait()
		logFile.Close()
		close(exit.done)
	}()
	p.exit = exit

	// Kill the group if the Process is dropped without Stop.
	p.cleanup = runtime.AddCleanup(p, func(pid int) {
		_ = signalGroup(pid, syscall.SIGKILL)
	}, p.pid)
	return nil
}

// waitLive probes the status method with backoff until it answers, the
// process exits or the liveness timeout expires.
func (p *Process) waitLive(ctx context.Context) error {
	// Refused connections are expected until the node binds; they are
	// reported at debug level below instead of by the HTTP client.
	client := rpc.NewClient(p.RPCURL(), rpc.Config{Timeout: time.Second, Logger: slog.New(slog.DiscardHandler)})

	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(50*time.Millisecond),
		backoff.WithMaxInterval(time.Second),
		backoff.WithMaxElapsedTime(p.cfg.LivenessTimeout),
	)

	var lastErr error
	for {
		select {
		case <-p.exit.done:
			return &LaunchError{Binary: p.binary, Step: "run", LogTail: p.LogTail(logTailLines), Err: exitErr(p.exit.err)}
		default:
		}

		_, err := client.Status(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		p.logger.DebugContext(ctx, "sandbox not reachable yet", "rpc", p.RPCAddr(), "error", err)

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return &LivenessTimeoutError{RPCAddr: p.RPCAddr(), Timeout: p.cfg.LivenessTimeout, Err: lastErr}
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return &LaunchError{Binary: p.binary, Step: "run", Err: ctx.Err()}
		case <-p.exit.done:
			timer.Stop()
		case <-timer.C:
		}
	}
}

func exitErr(err error) error {
	if err == nil {
		return errors.New("process exited before becoming reachable")
	}
	return fmt.Errorf("process exited before becoming reachable: %w", err)
}

// Stop terminates the process group: SIGTERM, then SIGKILL once the grace
// period has elapsed. Cancellation of ctx does not interrupt teardown.
// Stop is idempotent.
func (p *Process) Stop(ctx context.Context) error {
	p.stopOnce.Do(func() {
		p.stopErr = p.stop(context.WithoutCancel(ctx))
	})
	return p.stopErr
}

func (p *Process) stop(ctx context.Context) error {
	var result *multierror.Error

	if p.exit != nil {
		p.cleanup.Stop()

		select {
		case <-p.exit.done:
		default:
			if err := signalGroup(p.pid, syscall.SIGTERM); err != nil && !processGone(err) {
				result = multierror.Append(result, fmt.Errorf("failed to signal sandbox: %w", err))
			}
			select {
			case <-p.exit.done:
			case <-time.After(p.cfg.GracePeriod):
				p.logger.WarnContext(ctx, "sandbox did not exit after SIGTERM, killing", "pid", p.pid, "grace", p.cfg.GracePeriod)
				if err := signalGroup(p.pid, syscall.SIGKILL); err != nil && !processGone(err) {
					result = multierror.Append(result, fmt.Errorf("failed to kill sandbox: %w", err))
				}
				<-p.exit.done
			}
		}
		p.logger.InfoContext(ctx, "sandbox stopped", "pid", p.pid)
	}

	if err := p.removeHome(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

func (p *Process) removeHome() error {
	if !p.ownsHome {
		return nil
	}
	if err := os.RemoveAll(p.home); err != nil {
		return fmt.Errorf("failed to remove sandbox home: %w", err)
	}
	return nil
}

// PID returns the OS process id.
func (p *Process) PID() int {
	return p.pid
}

// RPCAddr returns host:port of the RPC endpoint.
func (p *Process) RPCAddr() string {
	return "127.0.0.1:" + strconv.Itoa(p.rpcPort)
}

// RPCURL returns the RPC endpoint URL.
func (p *Process) RPCURL() string {
	return "http://" + p.RPCAddr()
}

// HomeDir returns the node's data directory.
func (p *Process) HomeDir() string {
	return p.home
}

// RootAccount returns the pre-funded root account and its key.
func (p *Process) RootAccount() (types.AccountID, types.SecretKey) {
	return p.rootID, p.rootKey
}

// Exited is closed when the process has exited.
func (p *Process) Exited() <-chan struct{} {
	return p.exit.done
}

// LogTail returns the last n lines of the process log.
func (p *Process) LogTail(n int) []string {
	lines, err := fileio.ReadLastLines(p.logPath, n)
	if err != nil {
		return nil
	}
	return lines
}

type validatorKeyJSON struct {
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
}

func readValidatorKey(path string) (types.AccountID, types.SecretKey, error) {
	key, err := fileio.LoadJSON[validatorKeyJSON](path)
	if err != nil {
		return "", types.SecretKey{}, fmt.Errorf("failed to load validator key: %w", err)
	}
	id, err := types.ParseAccountID(key.AccountID)
	if err != nil {
		return "", types.SecretKey{}, err
	}
	sk, err := types.ParseSecretKey(key.SecretKey)
	if err != nil {
		return "", types.SecretKey{}, fmt.Errorf("failed to parse validator secret key: %w", err)
	}
	if key.PublicKey != "" && key.PublicKey != sk.PublicKey().String() {
		return "", types.SecretKey{}, fmt.Errorf("validator key %s does not match its secret key", key.PublicKey)
	}
	return id, sk, nil
}

func lastLines(s string, n int) []string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	if len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}
