// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package console

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/schultz-is/rcon-go/v2"
)

func TestConfigLayers(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		assert.Equal(t, "localhost", cfg.Host)
		assert.Equal(t, rcon.DefaultPort, cfg.Port)
		assert.Equal(t, rcon.DefaultClientTimeout, cfg.Timeout)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("file then environment", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rcon.yml")
		require.NoError(t, os.WriteFile(path, []byte(
			"host: mc.example\nport: 25580\npassword: from-file\ntimeout: 2s\nwait: 1s\nno_color: true\n",
		), 0o600))

		cfg := DefaultConfig()
		require.NoError(t, cfg.LoadFile(path))
		assert.Equal(t, "mc.example", cfg.Host)
		assert.Equal(t, 25580, cfg.Port)
		assert.Equal(t, 2*time.Second, cfg.Timeout)
		assert.Equal(t, time.Second, cfg.Wait)
		assert.Equal(t, RenderPlain, cfg.RenderMode())

		env := map[string]string{EnvPassword: "from-env", EnvPort: "27015", EnvHost: ""}
		require.NoError(t, cfg.ApplyEnv(func(k string) (string, bool) {
			v, ok := env[k]
			return v, ok
		}))
		assert.Equal(t, "mc.example", cfg.Host)
		assert.Equal(t, 27015, cfg.Port)
		assert.Equal(t, "from-env", cfg.Password)

		cc := cfg.ClientConfig(zap.NewNop())
		assert.Equal(t, "from-env", cc.Password)
		assert.Equal(t, 27015, cc.Port)
		assert.Equal(t, 2*time.Second, cc.Timeout)
	})

	t.Run("unknown file key", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "rcon.yml")
		require.NoError(t, os.WriteFile(path, []byte("hots: typo\n"), 0o600))

		cfg := DefaultConfig()
		assert.Error(t, cfg.LoadFile(path))
	})

	t.Run("bad environment", func(t *testing.T) {
		cfg := DefaultConfig()
		err := cfg.ApplyEnv(func(k string) (string, bool) {
			if k == EnvTimeout {
				return "soon", true
			}
			return "", false
		})
		assert.ErrorContains(t, err, EnvTimeout)
	})

	t.Run("wait out of range", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Wait = MaxWait + time.Second
		assert.Error(t, cfg.Validate())
	})

	t.Run("raw wins over no color", func(t *testing.T) {
		cfg := Config{Raw: true, NoColor: true}
		assert.Equal(t, RenderRaw, cfg.RenderMode())
		assert.Equal(t, RenderANSI, Config{}.RenderMode())
	})
}

func TestRender(t *testing.T) {
	text := "§aOnline:§r 3\n§lSteve"

	assert.Equal(t, text, Render(text, RenderRaw))
	assert.Equal(t, "Online: 3\nSteve", Render(text, RenderPlain))
	assert.Equal(t,
		"\033[0;1;32mOnline:\033[0m 3\033[0m\n\033[1mSteve\033[0m",
		Render(text, RenderANSI),
	)

	// Without codes output is left alone, and a dangling sign is dropped.
	assert.Equal(t, "plain\n", Render("plain\n", RenderANSI))
	assert.Equal(t, "end", Render("end§", RenderPlain))
	assert.Equal(t, "\033[0;1;31mX\033[0m", Render("§CX", RenderANSI))
}

func TestPrinter(t *testing.T) {
	var buf bytes.Buffer

	p := Printer{Out: &buf, Mode: RenderPlain}
	require.NoError(t, p.Print("§6gold"))
	require.NoError(t, p.Print("done\n"))
	require.NoError(t, p.Print(""))
	assert.Equal(t, "gold\ndone\n", buf.String())

	buf.Reset()
	p = Printer{Out: &buf, Mode: RenderRaw}
	require.NoError(t, p.Print("§6gold"))
	assert.Equal(t, "§6gold", buf.String())

	buf.Reset()
	p = Printer{Out: &buf, Silent: true}
	require.NoError(t, p.Print("anything"))
	assert.Empty(t, buf.String())
}

func TestNewLogger(t *testing.T) {
	var stderr bytes.Buffer
	file := filepath.Join(t.TempDir(), "rcon.log")

	logger, closer := NewLogger(&stderr, false, file)
	logger.Debug("debug only in file")
	logger.Warn("warning everywhere")
	require.NoError(t, logger.Sync())
	require.NoError(t, closer.Close())

	assert.NotContains(t, stderr.String(), "debug only in file")
	assert.Contains(t, stderr.String(), "warning everywhere")

	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), "debug only in file")
	assert.Contains(t, string(data), "warning everywhere")
}
