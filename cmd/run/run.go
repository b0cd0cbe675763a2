package run

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/safedep/cage/config"
	"github.com/safedep/cage/internal/analytics"
	"github.com/safedep/cage/internal/eventlog"
	"github.com/safedep/cage/internal/ui"
	"github.com/safedep/cage/sandbox"
	"github.com/safedep/cage/sandbox/platform"
	"github.com/safedep/dry/log"
	"github.com/spf13/cobra"
)

type runFlags struct {
	preset     string
	presetFile string
	backend    string

	memory         string
	cpu            float64
	network        string
	readOnly       bool
	allowPaths     []string
	allowHosts     []string
	timeout        time.Duration
	maxOutputBytes int64
	workDir        string
	env            []string
}

func NewRunCommand() *cobra.Command {
	flags := runFlags{}

	cmd := &cobra.Command{
		Use:   "run [flags] -- command [args...]",
		Short: "Run a command inside an isolation sandbox",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			exitCode, err := executeRunFlow(cmd.Context(), cmd, &flags, args)
			if err != nil {
				ui.ErrorExit(err)
			}

			if exitCode != 0 {
				os.Exit(exitCode)
			}

			return nil
		},
	}

	cmd.Flags().SetInterspersed(false)
	flags.register(cmd)

	return cmd
}

func (f *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.preset, "preset", "", "Built-in policy preset to start from")
	cmd.Flags().StringVar(&f.presetFile, "preset-file", "", "Path to a custom policy preset file")
	cmd.Flags().StringVar(&f.backend, "backend", "", "Force a specific sandbox backend")

	cmd.Flags().StringVar(&f.memory, "memory", "", "Memory limit (e.g. 256Mi, 1Gi)")
	cmd.Flags().Float64Var(&f.cpu, "cpu", 0, "CPU core limit")
	cmd.Flags().StringVar(&f.network, "network", "", "Network mode: none, restricted or bridge")
	cmd.Flags().BoolVar(&f.readOnly, "read-only", true, "Mount the filesystem read-only outside the workspace")
	cmd.Flags().StringArrayVar(&f.allowPaths, "allow-path", nil,
		"Host path to expose inside the sandbox")
	cmd.Flags().StringArrayVar(&f.allowHosts, "allow-host", nil,
		"Host allowed in restricted network mode")
	cmd.Flags().DurationVar(&f.timeout, "timeout", 0, "Wall clock execution timeout")
	cmd.Flags().Int64Var(&f.maxOutputBytes, "max-output", 0, "Per-stream output cap in bytes")
	cmd.Flags().StringVar(&f.workDir, "workdir", "", "Working directory inside the sandbox")
	cmd.Flags().StringArrayVar(&f.env, "env", nil, "Environment variable for the command (KEY=VALUE)")
}

// executeRunFlow runs the command and returns the exit code the CLI
// should propagate. The deferred closers must run before the caller
// exits the process.
func executeRunFlow(ctx context.Context, cmd *cobra.Command, flags *runFlags, args []string) (int, error) {
	cfg := config.Get()

	policy, err := resolvePolicy(cmd, flags, cfg)
	if err != nil {
		return 0, err
	}

	backend := flags.backend
	if backend == "" {
		backend = cfg.Config.DefaultBackend
	}

	box, err := platform.SelectNamed(backend, policy)
	if err != nil {
		return 0, err
	}

	initEventLog(cfg)
	defer eventlog.CloseGlobal()

	analytics.TrackCommandRun(box.Name())
	defer analytics.Close()

	if err := box.Initialize(ctx); err != nil {
		_ = box.Cleanup()
		return 0, err
	}

	env, err := parseEnvPairs(flags.env)
	if err != nil {
		_ = box.Cleanup()
		return 0, err
	}

	result := box.Execute(ctx, sandbox.ExecutionRequest{
		Command: args[0],
		Args:    args[1:],
		Stdin:   readPipedStdin(),
		Env:     env,
		WorkDir: flags.workDir,
	})

	if err := box.Cleanup(); err != nil {
		return 0, err
	}

	logExecutionEvent(box.Name(), args[0], result)
	renderResult(result)

	if !result.Success {
		exitCode := result.ExitCode
		if exitCode <= 0 {
			exitCode = 1
		}
		return exitCode, nil
	}

	return 0, nil
}

// resolvePolicy builds the effective policy: preset first, then any
// explicitly set flag overrides the corresponding preset field.
func resolvePolicy(cmd *cobra.Command, flags *runFlags, cfg *config.RuntimeConfig) (sandbox.Policy, error) {
	registry, err := sandbox.NewPresetRegistry()
	if err != nil {
		return sandbox.Policy{}, err
	}

	policy := sandbox.DefaultPolicy()

	preset := flags.preset
	if preset == "" && flags.presetFile == "" {
		preset = cfg.Config.DefaultPreset
	}

	switch {
	case flags.presetFile != "":
		loaded, err := registry.LoadCustomPreset(flags.presetFile)
		if err != nil {
			return sandbox.Policy{}, err
		}
		policy = loaded.Policy
	case preset != "":
		loaded, err := registry.GetPreset(preset)
		if err != nil {
			return sandbox.Policy{}, err
		}
		policy = loaded.Policy
	}

	if cmd.Flags().Changed("memory") {
		policy.Memory = flags.memory
	}
	if cmd.Flags().Changed("cpu") {
		policy.CPU = flags.cpu
	}
	if cmd.Flags().Changed("network") {
		network, err := sandbox.ParseNetworkMode(flags.network)
		if err != nil {
			return sandbox.Policy{}, err
		}
		policy.Network = network
	}
	if cmd.Flags().Changed("read-only") {
		policy.ReadOnly = flags.readOnly
	}
	if cmd.Flags().Changed("allow-path") {
		policy.AllowedPaths = flags.allowPaths
	}
	if cmd.Flags().Changed("allow-host") {
		policy.AllowedHosts = flags.allowHosts
	}
	if cmd.Flags().Changed("timeout") {
		policy.Timeout = flags.timeout
	}
	if cmd.Flags().Changed("max-output") {
		policy.MaxOutputBytes = flags.maxOutputBytes
	}
	if cmd.Flags().Changed("workdir") {
		policy.WorkDir = flags.workDir
	}

	policy = policy.WithDefaults()
	if err := policy.Validate(); err != nil {
		return sandbox.Policy{}, err
	}

	return policy, nil
}

func parseEnvPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	env := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid env pair: %s, expected KEY=VALUE", pair)
		}
		env[key] = value
	}

	return env, nil
}

// initEventLog starts the local execution event log. Failures are logged
// and never fail the run being recorded.
func initEventLog(cfg *config.RuntimeConfig) {
	if cfg.Config.SkipEventLogging {
		return
	}

	err := eventlog.InitializeWithDir(cfg.EventLogDir(), cfg.Config.EventLogRetentionDays)
	if err != nil {
		log.Debugf("failed to initialize event log: %v", err)
	}
}

func logExecutionEvent(backend, command string, result *sandbox.ExecutionResult) {
	eventType := eventlog.EventTypeExecutionCompleted
	switch {
	case result.TimedOut:
		eventType = eventlog.EventTypeExecutionTimedOut
	case result.Killed:
		eventType = eventlog.EventTypeExecutionKilled
	case result.Error != "":
		eventType = eventlog.EventTypeSpawnFailed
	}

	err := eventlog.LogEvent(eventlog.Event{
		EventType:  eventType,
		Message:    result.Error,
		Backend:    backend,
		Command:    command,
		ExitCode:   result.ExitCode,
		DurationMs: result.Duration.Milliseconds(),
	})
	if err != nil {
		log.Debugf("failed to log execution event: %v", err)
	}
}

// readPipedStdin reads stdin only when it is piped or redirected so that
// interactive invocations do not block waiting for terminal input.
func readPipedStdin() []byte {
	info, err := os.Stdin.Stat()
	if err != nil {
		return nil
	}

	if info.Mode()&os.ModeCharDevice != 0 {
		return nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil
	}

	return data
}

func renderResult(result *sandbox.ExecutionResult) {
	if len(result.Stdout) > 0 {
		_, _ = os.Stdout.Write(result.Stdout)
	}
	if len(result.Stderr) > 0 {
		_, _ = os.Stderr.Write(result.Stderr)
	}

	if result.TimedOut {
		fmt.Fprintln(os.Stderr, ui.Colors.Yellow("Command timed out after %s", result.Duration.Round(time.Millisecond)))
	}

	if result.Error != "" {
		fmt.Fprintln(os.Stderr, ui.Colors.Red("Command failed to start: %s", result.Error))
	}
}
