// Package cmd is the entry point of the tool.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/log"
	"github.com/ameshkov/goconnect/internal/client"
	"github.com/ameshkov/goconnect/internal/config"
	"github.com/ameshkov/goconnect/internal/output"
	"github.com/ameshkov/goconnect/internal/version"
	goFlags "github.com/jessevdk/go-flags"
)

// Main is the entry point for the command-line tool.
func Main() {
	if len(os.Args) == 2 && os.Args[1] == "--version" {
		fmt.Printf("goconnect version: %s\n", version.Version())

		os.Exit(0)
	}

	cfg, err := config.ParseConfig(os.Args[1:])
	var flagErr *goFlags.Error
	if errors.As(err, &flagErr) && flagErr.Type == goFlags.ErrHelp {
		// This is a special case when we exit process here as we received
		// --help.
		os.Exit(0)
	}

	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Failed to parse args: %v\n", err)

		os.Exit(1)
	}

	out, err := output.NewOutput(cfg.OutputPath, cfg.Verbose, cfg.OutputJSON)
	if err != nil {
		panic(err)
	}

	if err = Run(cfg, out); err != nil {
		out.Error("%v", err)
		os.Exit(1)
	}
}

// Run executes the main logic of the goconnect command with the provided
// config and output.  This function is extracted to make it testable.
func Run(cfg *config.Config, out *output.Output) (err error) {
	out.Debug("Starting goconnect %s with arguments:\n%s", version.Version(), cfg.RawOptions)

	if cfg.Listen {
		return runListen(cfg, out)
	}

	return runConnect(cfg, out)
}

// runConnect connects to the target and exchanges data with it if needed.
func runConnect(cfg *config.Config, out *output.Output) (err error) {
	conn, err := client.Connect(cfg, out)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer log.OnCloserError(conn, log.DEBUG)

	res, err := client.Exchange(conn, []byte(cfg.Data), cfg.MaxTime)
	if err != nil {
		return fmt.Errorf("failed to exchange data: %w", err)
	}

	out.Write(res)

	return nil
}

// runListen binds to a wildcard address and waits for incoming data.
func runListen(cfg *config.Config, out *output.Output) (err error) {
	l, err := client.Listen(cfg, out)
	if err != nil {
		return fmt.Errorf("failed to bind: %w", err)
	}
	defer log.OnCloserError(l, log.DEBUG)

	out.Info("Listening on %s", l.Addr())

	res, err := l.Receive(cfg.MaxTime)
	if err != nil {
		return fmt.Errorf("failed to receive data: %w", err)
	}

	out.Write(res)

	return nil
}
