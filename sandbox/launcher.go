package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Execution defaults
const (
	EnginePodman      = "podman"
	DefaultCPUs       = 1.0
	DefaultMemory     = "128m"
	DefaultMemorySwap = "512m"
	MinTimeoutSec     = 60
)

// ErrUnsupportedEngine is returned when the configured engine is not podman.
var ErrUnsupportedEngine = errors.New("unsupported engine")

// ExecCommandFunc creates the engine process. Tests replace it to intercept spawns.
type ExecCommandFunc func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Sink receives the captured text of one stream.
type Sink func(text string)

// ExecutionConfig describes a single run. Zero values select the defaults.
type ExecutionConfig struct {
	Cmd        string
	Runtime    RuntimeID
	Code       string
	CPUs       float64
	Memory     string
	MemorySwap string
	TimeoutSec int
}

// Outcome is the result of one run, immutable once returned.
type Outcome struct {
	Stdout   string
	Stderr   string
	Produced bool
	// ExitCode is -1 when the process never started or was killed by a signal.
	ExitCode int
	SpawnErr error

	sawStdout bool
	sawStderr bool
}

// Launcher runs snippets through the container engine. It holds no per-run
// state and is safe for concurrent use.
type Launcher struct {
	logger      *zap.Logger
	execCommand ExecCommandFunc
	images      map[RuntimeID]string
	extraFlags  []string
	metrics     *Metrics
}

// LauncherOption defines a functional option for Launcher
type LauncherOption func(*Launcher)

// WithExecCommand sets the function used to create the engine process
func WithExecCommand(fn ExecCommandFunc) LauncherOption {
	return func(l *Launcher) {
		l.execCommand = fn
	}
}

// WithImages overrides the image used for individual runtimes
func WithImages(images map[RuntimeID]string) LauncherOption {
	return func(l *Launcher) {
		l.images = images
	}
}

// WithExtraFlags adds trusted engine flags placed before the image
func WithExtraFlags(flags []string) LauncherOption {
	return func(l *Launcher) {
		l.extraFlags = flags
	}
}

// WithMetrics records run counts and durations
func WithMetrics(m *Metrics) LauncherOption {
	return func(l *Launcher) {
		l.metrics = m
	}
}

// NewLauncher creates a Launcher that spawns the real engine binary unless overridden
func NewLauncher(logger *zap.Logger, opts ...LauncherOption) *Launcher {
	l := &Launcher{
		logger:      logger,
		execCommand: exec.CommandContext,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Prepare normalizes cfg and resolves it into an engine invocation without
// spawning anything.
func (l *Launcher) Prepare(cfg ExecutionConfig) (Invocation, error) {
	engine := cfg.Cmd
	if engine == "" {
		engine = EnginePodman
	}
	if engine != EnginePodman {
		return Invocation{}, fmt.Errorf("%w: %q", ErrUnsupportedEngine, engine)
	}

	limits := Limits{
		CPUs:       cfg.CPUs,
		Memory:     cfg.Memory,
		MemorySwap: cfg.MemorySwap,
		TimeoutSec: max(cfg.TimeoutSec, MinTimeoutSec),
	}
	if limits.CPUs == 0 {
		limits.CPUs = DefaultCPUs
	}
	if limits.Memory == "" {
		limits.Memory = DefaultMemory
	}
	if limits.MemorySwap == "" {
		limits.MemorySwap = DefaultMemorySwap
	}

	resolved, err := Resolve(cfg.Runtime, cfg.Code, l.images)
	if err != nil {
		return Invocation{}, err
	}

	return Invocation{
		Engine:     engine,
		Limits:     limits,
		ExtraFlags: l.extraFlags,
		Command:    resolved,
	}, nil
}

// Run executes cfg and reports whether either stream produced any text.
//
// The result says nothing about success: the exit code is not consulted, and
// stderr from the snippet is indistinguishable from an engine failure.
// Configuration and runtime errors are returned before anything is spawned;
// spawn failures go to onError and Run still returns a nil error.
func (l *Launcher) Run(ctx context.Context, cfg ExecutionConfig, onOutput, onError Sink) (bool, error) {
	outcome, err := l.Execute(ctx, cfg, onOutput, onError)
	if err != nil {
		return false, err
	}
	return outcome.Produced, nil
}

// Execute is Run with the full outcome, including the exit code.
func (l *Launcher) Execute(ctx context.Context, cfg ExecutionConfig, onOutput, onError Sink) (Outcome, error) {
	inv, err := l.Prepare(cfg)
	if err != nil {
		return Outcome{}, err
	}

	log := l.logger.With(
		zap.String("invocation_id", ulid.Make().String()),
		zap.String("runtime", string(cfg.Runtime)),
		zap.String("image", inv.Command.Image),
	)
	log.Debug("launching container",
		zap.Float64("cpus", inv.Limits.CPUs),
		zap.String("memory", inv.Limits.Memory),
		zap.String("memory_swap", inv.Limits.MemorySwap),
		zap.Int("timeout_sec", inv.Limits.TimeoutSec))

	start := time.Now()
	outcome := l.spawn(ctx, log, inv)
	elapsed := time.Since(start)

	if outcome.SpawnErr != nil {
		log.Warn("failed to start container engine", zap.Error(outcome.SpawnErr))
		l.metrics.observe(cfg.Runtime, resultSpawnError, elapsed)
		if onError != nil {
			onError(outcome.SpawnErr.Error())
		}
		return outcome, nil
	}

	log.Info("container finished",
		zap.Int("exit_code", outcome.ExitCode),
		zap.Int("stdout_len", len(outcome.Stdout)),
		zap.Int("stderr_len", len(outcome.Stderr)),
		zap.Duration("elapsed", elapsed))

	result := resultSilent
	if outcome.Produced {
		result = resultOutput
	}
	l.metrics.observe(cfg.Runtime, result, elapsed)

	// a lone newline still counts as output and is delivered as ""
	if outcome.sawStdout && onOutput != nil {
		onOutput(outcome.Stdout)
	}
	if outcome.sawStderr && onError != nil {
		onError(outcome.Stderr)
	}

	return outcome, nil
}

// spawn starts the engine, drains both streams to completion and reaps the process.
func (l *Launcher) spawn(ctx context.Context, log *zap.Logger, inv Invocation) Outcome {
	cmd := l.execCommand(ctx, inv.Engine, inv.Args()...) //nolint:gosec // payload is a single argv element after the image

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return Outcome{ExitCode: -1, SpawnErr: err}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdout.Close()
		return Outcome{ExitCode: -1, SpawnErr: err}
	}

	if err := cmd.Start(); err != nil {
		stdout.Close()
		stderr.Close()
		return Outcome{ExitCode: -1, SpawnErr: err}
	}

	// the killed engine client may leave children holding the pipes open
	stopDrain := context.AfterFunc(ctx, func() {
		_ = stdout.Close()
		_ = stderr.Close()
	})
	defer stopDrain()

	var stdoutBuf, stderrBuf bytes.Buffer
	var g errgroup.Group
	g.Go(func() error {
		_, err := io.Copy(&stdoutBuf, stdout)
		return err
	})
	g.Go(func() error {
		_, err := io.Copy(&stderrBuf, stderr)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Warn("error while reading container output", zap.Error(err))
	}

	exitCode := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			log.Warn("error while waiting for container engine", zap.Error(err))
			exitCode = -1
		}
	}

	return Outcome{
		Stdout:   trimNewline(stdoutBuf.String()),
		Stderr:   trimNewline(stderrBuf.String()),
		Produced: stdoutBuf.Len() > 0 || stderrBuf.Len() > 0,
		ExitCode: exitCode,

		sawStdout: stdoutBuf.Len() > 0,
		sawStderr: stderrBuf.Len() > 0,
	}
}

// trimNewline removes exactly one trailing newline
func trimNewline(s string) string {
	return strings.TrimSuffix(s, "\n")
}
