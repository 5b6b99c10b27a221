// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schultz-is/rcon-go/v2"
	"github.com/schultz-is/rcon-go/v2/internal/console"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rcon.yml")
	require.NoError(t, os.WriteFile(path, []byte("host: file.example\nport: 1000\npassword: file\n"), 0o600))

	t.Setenv(console.EnvHost, "")
	t.Setenv(console.EnvPort, "2000")
	t.Setenv(console.EnvTimeout, "")
	t.Setenv(console.EnvPassword, "env")

	require.NoError(t, rootCmd.ParseFlags([]string{"--config", path, "-p", "flag", "-w", "2s", "-c"}))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "file.example", cfg.Host)
	assert.Equal(t, 2000, cfg.Port)
	assert.Equal(t, "flag", cfg.Password)
	assert.Equal(t, 2*time.Second, cfg.Wait)
	assert.Equal(t, rcon.DefaultClientTimeout, cfg.Timeout)
	assert.Equal(t, console.RenderPlain, cfg.RenderMode())
}

func TestFatal(t *testing.T) {
	assert.True(t, fatal(rcon.ErrDisconnected))
	assert.True(t, fatal(fmt.Errorf("list: %w", rcon.ErrNotConnected)))
	assert.True(t, fatal(context.Canceled))
	assert.False(t, fatal(rcon.ErrRequestTimedOut))
	assert.False(t, fatal(rcon.ErrEmptyResponsePacket))
}
