package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/prometheus/common/log"
	"github.com/sema/keyirq/pkg/emulator"
	"github.com/sema/keyirq/pkg/keyirq"
	"github.com/sema/keyirq/pkg/operator"
	"github.com/sema/keyirq/pkg/tui"
)

type runCmd struct {
	Script   string        `help:"Replay keys from a YAML script instead of following the prompts" type:"path"`
	Reaction uint64        `help:"Frames between a prompt appearing and the operator reacting" default:"10"`
	Uncapped bool          `help:"Run frames as fast as possible instead of at 60Hz"`
	Timeout  time.Duration `help:"Give up after this long" default:"1m"`
	Snapshot string        `help:"Write the final screen to a PNG file" type:"path"`
	Quiet    bool          `help:"Do not copy console output to stdout"`
}

func (r *runCmd) Run() error {
	logger := log.Base()

	var op emulator.Operator = operator.NewFollower(keyirq.Steps(), r.Reaction)
	if r.Script != "" {
		script, err := operator.LoadScript(r.Script)
		if err != nil {
			return err
		}
		op = script
	}

	opts := []emulator.Option{emulator.WithOperator(op), emulator.WithLogger(logger)}
	if r.Uncapped {
		opts = append(opts, emulator.WithSpeedUncapped())
	}
	m := emulator.New(opts...)

	ctx, cancel := context.WithTimeout(context.Background(), r.Timeout)
	defer cancel()
	go func() {
		if err := m.Run(ctx); err != nil && err != context.Canceled {
			logger.Errorf("machine stopped: %v", err)
		}
	}()

	var out io.Writer = m.Console()
	if !r.Quiet {
		out = io.MultiWriter(out, os.Stdout)
	}

	s := keyirq.New(m, out, keyirq.WithLogger(logger))
	result, err := s.Run(ctx)
	if err != nil {
		return errors.Wrap(err, "test did not complete")
	}

	if r.Snapshot != "" {
		if err := m.WriteSnapshot(r.Snapshot); err != nil {
			return err
		}
		logger.Infof("wrote snapshot to %s", r.Snapshot)
	}

	if !result.Passed() {
		return errors.Errorf("%d of %d steps failed", result.Failures, result.Steps)
	}
	return nil
}

type stepsCmd struct{}

func (s *stepsCmd) Run() error {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "#\tPROMPT\tSETUP\tWAIT FOR\tIRQ")
	for i, step := range keyirq.Steps() {
		prompt := step.Prompt
		if prompt == "" {
			prompt = "-"
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%t\n", i, prompt, step.Setup, step.Keys, step.IRQ)
	}
	return w.Flush()
}

type playCmd struct{}

func (p *playCmd) Run() error {
	// logs would tear up the terminal UI
	logger := log.NewNopLogger()

	keys := tui.NewToggles()
	m := emulator.New(emulator.WithOperator(keys), emulator.WithLogger(logger))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	results := make(chan keyirq.Result, 1)
	go func() {
		s := keyirq.New(m, m.Console(), keyirq.WithLogger(logger))
		result, err := s.Run(ctx)
		if err != nil {
			return
		}
		results <- result
		s.Halt(ctx)
	}()

	program := tea.NewProgram(tui.New(m.FrameChan, results, keys), tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return errors.Wrap(err, "terminal UI")
	}
	return nil
}

var root struct {
	LogLevel string `help:"Log level (debug, info, warn, error)" default:"info"`

	Run   runCmd   `cmd:"" help:"Run the keypad interrupt test headless"`
	Steps stepsCmd `cmd:"" help:"List the test steps"`
	Play  playCmd  `cmd:"" help:"Run the test interactively in the terminal"`
}

func main() {
	cli := kong.Parse(&root,
		kong.Name("keyirq"),
		kong.Description("Keypad interrupt conformance test on a simulated handheld."))

	if err := log.Base().SetLevel(root.LogLevel); err != nil {
		cli.FatalIfErrorf(err)
	}

	err := cli.Run()
	cli.FatalIfErrorf(err)
}
