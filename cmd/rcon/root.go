// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/schultz-is/rcon-go/v2"
	"github.com/schultz-is/rcon-go/v2/internal/console"
)

type flags struct {
	config   string
	terminal bool
	verbose  bool
}

var (
	global   flags
	settings = console.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "rcon [flags] [command ...]",
	Short: "Send commands to a game server over Source RCON",
	Long: `rcon connects to a Source RCON server, authenticates, and sends each command given on the
command line in order, printing the responses. Without commands it starts an interactive terminal.

Settings are read from the config file, then the RCON_HOST, RCON_PORT, RCON_PASS and RCON_TIMEOUT
environment variables, then the flags below. A later source overrides an earlier one.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

// Execute runs the root command, reporting any error on stderr.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&settings.Host, "host", "H", settings.Host, "server address")
	f.IntVarP(&settings.Port, "port", "P", settings.Port, "server port")
	f.StringVarP(&settings.Password, "password", "p", "", "rcon password")
	f.DurationVar(&settings.Timeout, "timeout", settings.Timeout, "connect and response timeout")
	f.DurationVarP(&settings.Wait, "wait", "w", 0, "pause between commands")
	f.BoolVarP(&settings.Silent, "silent", "s", false, "don't print command output")
	f.BoolVarP(&settings.NoColor, "no-color", "c", false, "strip color codes from output")
	f.BoolVarP(&settings.Raw, "raw", "r", false, "print output exactly as received")
	f.StringVar(&settings.LogFile, "log-file", "", "also write debug logs to this file")
	f.StringVar(&global.config, "config", "", "YAML config file")
	f.BoolVarP(&global.terminal, "terminal", "t", false, "start the interactive terminal after any commands")
	f.BoolVarP(&global.verbose, "verbose", "v", false, "log debug output to stderr")
}

func run(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	for _, command := range args {
		if len(command)+rcon.WrapperSize > rcon.MaximumPacketSize {
			return fmt.Errorf("command too long: %d bytes (max %d)",
				len(command), rcon.MaximumPacketSize-rcon.WrapperSize)
		}
	}
	if cfg.Password == "" && term.IsTerminal(int(os.Stdin.Fd())) {
		if cfg.Password, err = readPassword(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	logger, closer := console.NewLogger(cmd.ErrOrStderr(), global.verbose, cfg.LogFile)
	defer closer.Close()
	defer func() { _ = logger.Sync() }()

	c, err := rcon.NewClient(cfg.ClientConfig(logger))
	if err != nil {
		return err
	}
	defer c.Close()

	out := console.Printer{Out: cmd.OutOrStdout(), Mode: cfg.RenderMode(), Silent: cfg.Silent}
	interactive := global.terminal || len(args) == 0

	return c.Session(cmd.Context(), func(ctx context.Context) error {
		logger.Debug("connected", zap.String("addr", c.Addr()))
		if err := runCommands(ctx, c, out, args, cfg.Wait); err != nil {
			return err
		}
		if interactive {
			return runTerminal(ctx, c, out)
		}
		return nil
	})
}

// loadConfig layers the config file, the environment and any flags set on the command line over the
// defaults.
func loadConfig(cmd *cobra.Command) (console.Config, error) {
	cfg := console.DefaultConfig()
	if global.config != "" {
		if err := cfg.LoadFile(global.config); err != nil {
			return cfg, err
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	f := cmd.Flags()
	set := func(name string, apply func()) {
		if f.Changed(name) {
			apply()
		}
	}
	set("host", func() { cfg.Host = settings.Host })
	set("port", func() { cfg.Port = settings.Port })
	set("password", func() { cfg.Password = settings.Password })
	set("timeout", func() { cfg.Timeout = settings.Timeout })
	set("wait", func() { cfg.Wait = settings.Wait })
	set("silent", func() { cfg.Silent = settings.Silent })
	set("no-color", func() { cfg.NoColor = settings.NoColor })
	set("raw", func() { cfg.Raw = settings.Raw })
	set("log-file", func() { cfg.LogFile = settings.LogFile })

	return cfg, cfg.Validate()
}

func readPassword(w io.Writer) (string, error) {
	fmt.Fprint(w, "Password: ")
	pw, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

// runCommands sends each command in turn, printing its output. wait is slept between commands.
func runCommands(ctx context.Context, c *rcon.Client, out console.Printer, commands []string, wait time.Duration) error {
	for i, command := range commands {
		if i > 0 && wait > 0 {
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		resp, err := c.Send(ctx, command)
		if err != nil {
			return fmt.Errorf("%s: %w", command, err)
		}
		if err := out.Print(resp); err != nil {
			return err
		}
	}
	return nil
}

// fatal reports whether err leaves the client unable to send further commands.
func fatal(err error) bool {
	return errors.Is(err, rcon.ErrDisconnected) ||
		errors.Is(err, rcon.ErrNotConnected) ||
		errors.Is(err, context.Canceled)
}
