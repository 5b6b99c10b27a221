// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

// Command rcon runs commands on a game server over the Source RCON protocol.
//
// Usage:
//
//	rcon [flags] [command ...]
//
// Each command is sent in order and its output printed. With no commands, or with -t, rcon reads
// commands interactively until Q or end of input.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Execute(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
