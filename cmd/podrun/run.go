package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/isdmx/podrun/sandbox"
)

// runReport is the --format yaml rendering of a run
type runReport struct {
	Runtime  string `yaml:"runtime"`
	Image    string `yaml:"image"`
	Stdout   string `yaml:"stdout"`
	Stderr   string `yaml:"stderr"`
	Produced bool   `yaml:"produced"`
	ExitCode int    `yaml:"exit_code"`
}

func newRunCmd() *cobra.Command {
	var (
		runtime    string
		code       string
		file       string
		cpus       float64
		memory     string
		memorySwap string
		timeout    int
		dryRun     bool
		format     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a snippet and print its output",
		Example: `  podrun run --runtime node --code 'console.log(1+1)'
  podrun run --runtime node-eval --code '[1,2,3].map(x => x * 2)'
  echo 'echo hello' | podrun run --runtime bash --file -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !sandbox.IsKnownRuntime(runtime) {
				return fmt.Errorf("%w: %q", sandbox.ErrUnknownRuntime, runtime)
			}
			if format != "text" && format != "yaml" {
				return fmt.Errorf("invalid --format %q, must be 'text' or 'yaml'", format)
			}

			src, err := readCode(cmd.InOrStdin(), code, cmd.Flags().Changed("code"), file)
			if err != nil {
				return err
			}

			cfg, log, err := loadEnv(cmd)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			launcher, err := sandbox.NewLauncherFromConfig(log, cfg, nil)
			if err != nil {
				return err
			}

			execCfg := sandbox.Defaults(cfg)
			execCfg.Runtime = sandbox.RuntimeID(runtime)
			execCfg.Code = src
			flags := cmd.Flags()
			if flags.Changed("cpus") {
				execCfg.CPUs = cpus
			}
			if flags.Changed("memory") {
				execCfg.Memory = memory
			}
			if flags.Changed("memory-swap") {
				execCfg.MemorySwap = memorySwap
			}
			if flags.Changed("timeout") {
				execCfg.TimeoutSec = timeout
			}

			inv, err := launcher.Prepare(execCfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			errOut := cmd.ErrOrStderr()

			if dryRun {
				line, err := inv.String()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, line)
				return nil
			}

			if format == "yaml" {
				outcome, err := launcher.Execute(cmd.Context(), execCfg, nil, nil)
				if err != nil {
					return err
				}
				report := runReport{
					Runtime:  runtime,
					Image:    inv.Command.Image,
					Stdout:   outcome.Stdout,
					Stderr:   outcome.Stderr,
					Produced: outcome.Produced,
					ExitCode: outcome.ExitCode,
				}
				if outcome.SpawnErr != nil {
					report.Stderr = outcome.SpawnErr.Error()
				}
				enc := yaml.NewEncoder(out)
				enc.SetIndent(2)
				if err := enc.Encode(report); err != nil {
					return fmt.Errorf("failed to encode report: %w", err)
				}
				return enc.Close()
			}

			_, err = launcher.Run(cmd.Context(), execCfg,
				func(text string) { fmt.Fprintln(out, text) },
				func(text string) { fmt.Fprintln(errOut, text) },
			)
			return err
		},
	}

	cmd.Flags().StringVarP(&runtime, "runtime", "r", "", "Runtime to use (see 'podrun runtimes')")
	cmd.Flags().StringVarP(&code, "code", "c", "", "Code to run")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read code from a file, '-' for stdin")
	cmd.Flags().Float64Var(&cpus, "cpus", sandbox.DefaultCPUs, "CPU quota")
	cmd.Flags().StringVar(&memory, "memory", sandbox.DefaultMemory, "Memory limit")
	cmd.Flags().StringVar(&memorySwap, "memory-swap", sandbox.DefaultMemorySwap, "Memory plus swap limit")
	cmd.Flags().IntVar(&timeout, "timeout", sandbox.MinTimeoutSec, "Timeout in seconds, raised to at least 60")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the podman command line instead of running it")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or yaml")
	_ = cmd.MarkFlagRequired("runtime")
	cmd.MarkFlagsMutuallyExclusive("code", "file")

	return cmd
}

// readCode returns the snippet from --code or --file. An explicitly empty
// --code is a valid snippet.
func readCode(stdin io.Reader, code string, codeSet bool, file string) (string, error) {
	switch file {
	case "":
		if !codeSet {
			return "", fmt.Errorf("one of --code or --file is required")
		}
		return code, nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read code from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read code file: %w", err)
		}
		return string(data), nil
	}
}
