// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon_test

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schultz-is/rcon-go/v2"
)

// echoServer accepts any password and answers every command with its own text.
func echoServer(conn net.Conn) {
	for p, err := range rcon.ReadPackets(conn) {
		if err != nil {
			return
		}
		if p.Type == rcon.PacketTypeAuth {
			reply(conn, rcon.Packet{ID: p.ID, Type: rcon.PacketTypeAuthResponse})
			continue
		}
		reply(conn, rcon.Packet{ID: p.ID, Type: rcon.PacketTypeResponseValue, Body: p.Body + "\n"})
	}
}

func TestSession(t *testing.T) {
	ctx := context.Background()

	t.Run("connects and disconnects", func(t *testing.T) {
		s := startServer(t, echoServer)
		c := newClient(t, s.config("abc"))

		var out string
		err := c.Session(ctx, func(ctx context.Context) error {
			var err error
			out, err = c.Send(ctx, "hello!")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, "hello!", out)
		assert.Equal(t, rcon.Disconnected, c.State())
	})

	t.Run("returns the work error", func(t *testing.T) {
		s := startServer(t, echoServer)
		c := newClient(t, s.config("abc"))

		boom := errors.New("boom")
		err := c.Session(ctx, func(context.Context) error { return boom })
		assert.Equal(t, boom, err)
		assert.Equal(t, rcon.Disconnected, c.State())
	})

	t.Run("connection failure skips work", func(t *testing.T) {
		s := startServer(t, sourceServer("abc", nil))
		c := newClient(t, s.config("wrong"))

		ran := false
		err := c.Session(ctx, func(context.Context) error {
			ran = true
			return nil
		})
		assert.ErrorIs(t, err, rcon.ErrAuthenticationFailed)
		assert.False(t, ran)
	})

	t.Run("concurrent sessions share a connection", func(t *testing.T) {
		s := startServer(t, echoServer)
		c := newClient(t, s.config("abc"))

		const n = 8
		var (
			inside  sync.WaitGroup
			done    sync.WaitGroup
			errs    = make([]error, n)
			release = make(chan struct{})
		)
		inside.Add(n)
		for i := range n {
			done.Add(1)
			go func() {
				defer done.Done()
				errs[i] = c.Session(ctx, func(ctx context.Context) error {
					inside.Done()
					<-release
					out, err := c.Send(ctx, fmt.Sprint(i))
					if err != nil {
						return err
					}
					if out != fmt.Sprint(i) {
						return fmt.Errorf("session %d got %q", i, out)
					}
					return nil
				})
			}()
		}

		inside.Wait()
		assert.Equal(t, rcon.Authorized, c.State())
		close(release)
		done.Wait()

		for _, err := range errs {
			assert.NoError(t, err)
		}
		assert.EqualValues(t, 1, s.accepts.Load())
		assert.Equal(t, rcon.Disconnected, c.State())
	})

	t.Run("nested sessions", func(t *testing.T) {
		s := startServer(t, echoServer)
		c := newClient(t, s.config("abc"))

		err := c.Session(ctx, func(ctx context.Context) error {
			err := c.Session(ctx, func(ctx context.Context) error {
				_, err := c.Send(ctx, "inner")
				return err
			})
			if err != nil {
				return err
			}

			// The inner session must not have closed the connection.
			if got := c.State(); got != rcon.Authorized {
				return fmt.Errorf("state after inner session is %s", got)
			}
			_, err = c.Send(ctx, "outer")
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, rcon.Disconnected, c.State())
		assert.EqualValues(t, 1, s.accepts.Load())
	})

	t.Run("sequential sessions reconnect", func(t *testing.T) {
		s := startServer(t, echoServer)
		c := newClient(t, s.config("abc"))

		for range 2 {
			err := c.Session(ctx, func(ctx context.Context) error {
				_, err := c.Send(ctx, "ping")
				return err
			})
			require.NoError(t, err)
		}
		assert.EqualValues(t, 2, s.accepts.Load())
	})
}
