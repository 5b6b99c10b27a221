// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"

	"github.com/schultz-is/rcon-go/v2"
	"github.com/schultz-is/rcon-go/v2/internal/console"
)

const quitCommand = "Q"

// runTerminal reads commands from the terminal until the user quits. The server's "stop" command is
// sent and then ends the terminal, since the server goes away.
func runTerminal(ctx context.Context, c *rcon.Client, out console.Printer) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	out.Out = rl.Stdout()
	for {
		line, err := rl.Readline()
		switch {
		case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
			return nil
		case err != nil:
			return err
		}

		command := strings.TrimSpace(line)
		switch command {
		case "":
			continue
		case quitCommand:
			return nil
		}
		if len(command)+rcon.WrapperSize > rcon.MaximumPacketSize {
			fmt.Fprintf(rl.Stderr(), "command too long: %d bytes\n", len(command))
			continue
		}

		resp, err := c.Send(ctx, command)
		if err != nil {
			fmt.Fprintf(rl.Stderr(), "%v\n", err)
			if fatal(err) {
				return err
			}
			continue
		}
		if err := out.Print(resp); err != nil {
			return err
		}
		if strings.EqualFold(command, "stop") {
			return nil
		}
	}
}
