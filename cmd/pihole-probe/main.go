package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/punasusi/pihole-probe/pkg/dnsprobe"
	"github.com/punasusi/pihole-probe/pkg/ping"
	"github.com/punasusi/pihole-probe/pkg/probe"
	"github.com/punasusi/pihole-probe/pkg/probe/checks"
	"github.com/punasusi/pihole-probe/pkg/probe/cliflags"
	"github.com/punasusi/pihole-probe/pkg/probe/config"
	"github.com/punasusi/pihole-probe/pkg/probe/report"
	"github.com/punasusi/pihole-probe/pkg/probe/storage"
	"github.com/punasusi/pihole-probe/pkg/webprobe"
)

const (
	ExitOK          = 0
	ExitFailed      = 1
	ExitUsage       = 2
	ExitInternalErr = 3
)

func init() {
	klog.InitFlags(nil)
	flag.Set("logtostderr", "false")
	flag.Set("stderrthreshold", "FATAL")
}

type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func exitf(code int, format string, args ...any) error {
	return &exitError{code: code, err: fmt.Errorf(format, args...)}
}

// app holds what a single invocation needs from its environment.
type app struct {
	stdout  io.Writer
	stderr  io.Writer
	baseDir string
	newDeps func(rc *config.RunConfig) checks.Deps

	configPath   string
	outputFormat string
	quiet        int
	keepGoing    bool
	noHistory    bool
	initConfig   bool

	checkFlags *cliflags.Set
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{
		stdout:  stdout,
		stderr:  stderr,
		newDeps: defaultDeps,
	}
}

func defaultDeps(rc *config.RunConfig) checks.Deps {
	return checks.Deps{
		DNS:       dnsprobe.NewClient(rc.Timeouts.DNS),
		Web:       webprobe.NewClient(rc.Timeouts.HTTP),
		Pinger:    ping.NewPinger(time.Second, rc.Timeouts.Ping),
		PingCount: rc.PingCount,
	}
}

func main() {
	os.Exit(newApp(os.Stdout, os.Stderr).execute(os.Args[1:]))
}

func (a *app) execute(args []string) int {
	cmd, err := a.rootCmd()
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return ExitInternalErr
	}
	cmd.SetArgs(args)

	err = cmd.Execute()
	if err == nil {
		return ExitOK
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		if exitErr.err != nil {
			fmt.Fprintf(a.stderr, "Error: %v\n", exitErr.err)
		}
		return exitErr.code
	}
	// anything cobra rejects before RunE is a usage error
	fmt.Fprintf(a.stderr, "Error: %v\n", err)
	fmt.Fprintln(a.stderr, cmd.UsageString())
	return ExitUsage
}

func (a *app) rootCmd() (*cobra.Command, error) {
	cmd := &cobra.Command{
		Use:   "pihole-probe [flags] TARGET",
		Short: "Remote testing of a Pi-hole installation",
		Long: "Probes a Pi-hole appliance over ICMP, DNS and HTTP and reports pass/fail per check.\n" +
			"Checks run in a fixed order and the run stops at the first failure.",
		Args: func(cmd *cobra.Command, args []string) error {
			if a.initConfig {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE:          a.run,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)

	flags := cmd.Flags()
	flags.CountVarP(&a.quiet, "quiet", "q", "Only print the failing check; give twice to print only the verdict on failure")
	flags.StringVar(&a.configPath, "config", "", "Path to config file (default .probe/config.yaml)")
	flags.StringVarP(&a.outputFormat, "output", "o", "text", "Output format: text, json")
	flags.BoolVar(&a.keepGoing, "keep-going", false, "Run every enabled check instead of stopping at the first failure")
	flags.BoolVar(&a.noHistory, "no-history", false, "Skip comparison with and saving of the previous run")
	flags.BoolVar(&a.initConfig, "init-config", false, "Create example config file at .probe/config.yaml")
	if v := flag.CommandLine.Lookup("v"); v != nil {
		flags.AddGoFlag(v)
	}

	// Flags only need the schema of the checks; the checks that actually
	// run are built once the configuration is known.
	set, err := cliflags.Register(flags, checks.Default(checks.Deps{}))
	if err != nil {
		return nil, err
	}
	a.checkFlags = set

	return cmd, nil
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	if klog.V(1).Enabled() {
		flag.Set("stderrthreshold", "INFO")
	}

	store := storage.NewStorage(a.baseDir)

	if a.initConfig {
		return a.writeExampleConfig(store)
	}

	target, err := config.ParseTarget(args[0])
	if err != nil {
		return exitf(ExitUsage, "%v", err)
	}
	format, err := report.ParseFormat(a.outputFormat)
	if err != nil {
		return exitf(ExitUsage, "%v", err)
	}

	configPath := a.configPath
	if configPath == "" {
		configPath = store.ConfigPath()
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return exitf(ExitUsage, "%v", err)
	}

	overrides := config.Overrides{
		Verbosity: config.VerbosityFromCount(a.quiet),
		KeepGoing: a.keepGoing,
	}
	if err := a.checkFlags.Apply(&overrides); err != nil {
		return exitf(ExitUsage, "%v", err)
	}
	rc := cfg.RunConfig(target, overrides)

	registry := checks.Default(a.newDeps(rc))
	if err := probe.ValidateOverrides(registry, rc); err != nil {
		return exitf(ExitUsage, "invalid configuration: %v", err)
	}

	var previous *storage.RunRecord
	if !a.noHistory {
		previous, err = store.LoadLastRun()
		if err != nil {
			klog.InfoS("Ignoring previous run", "err", err)
		}
	}

	writer := report.NewWriter(a.stdout, format, rc.Verbosity)
	engine := probe.NewEngine(registry, writer)
	result := engine.Run(ctx, rc)

	if !a.noHistory {
		current := storage.NewRecord(result, time.Now())
		writer.SetDiff(storage.ComputeDiff(current, previous))
		if err := store.SaveRun(current); err != nil {
			klog.InfoS("Could not save run", "err", err)
		}
	}

	if err := writer.Finished(result); err != nil {
		return exitf(ExitInternalErr, "writing report: %v", err)
	}

	if !result.Passed() {
		return &exitError{code: ExitFailed}
	}
	return nil
}

func (a *app) writeExampleConfig(store *storage.Storage) error {
	configPath := store.ConfigPath()
	if err := store.EnsureProbeDir(); err != nil {
		return exitf(ExitInternalErr, "creating .probe directory: %v", err)
	}
	if err := config.SaveExample(configPath); err != nil {
		return exitf(ExitInternalErr, "creating config file: %v", err)
	}
	fmt.Fprintf(a.stdout, "Created example config at: %s\n", configPath)
	return nil
}
