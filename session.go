// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import (
	"context"

	"go.uber.org/zap"
)

// Session connects the client if needed, runs work, and disconnects once no other session is
// running. Sessions on one client may overlap or nest; they share a single connection, which stays
// open until the last of them returns.
//
// The error from connecting or, failing that, from work is returned.
func (c *Client) Session(ctx context.Context, work func(ctx context.Context) error) error {
	c.sessMu.Lock()
	c.sessions++
	c.sessMu.Unlock()
	defer c.endSession()

	if err := c.Connect(ctx); err != nil {
		return err
	}
	return work(ctx)
}

// endSession releases a session, disconnecting when it was the last. sessMu is held across the
// disconnect so a session starting concurrently either keeps the connection or opens a new one.
func (c *Client) endSession() {
	c.sessMu.Lock()
	defer c.sessMu.Unlock()

	c.sessions--
	if c.sessions > 0 {
		return
	}
	if err := c.Disconnect(); err != nil {
		c.logger.Debug("closing session connection", zap.Error(err))
	}
}
