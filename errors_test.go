// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon_test

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/schultz-is/rcon-go/v2"
)

func TestError(t *testing.T) {
	err := &rcon.Error{Kind: rcon.KindConnectionRefused, Msg: "192.0.2.1:25575", Err: io.EOF}

	assert.Equal(t, "rcon: connection refused: 192.0.2.1:25575: EOF", err.Error())
	assert.Equal(t, "rcon: not connected", rcon.ErrNotConnected.Error())

	assert.ErrorIs(t, err, rcon.ErrConnectionRefused)
	assert.ErrorIs(t, err, io.EOF)
	assert.NotErrorIs(t, err, rcon.ErrAuthenticationFailed)

	var rerr *rcon.Error
	wrapped := errors.Join(errors.New("context"), err)
	if assert.ErrorAs(t, wrapped, &rerr) {
		assert.Equal(t, rcon.KindConnectionRefused, rerr.Kind)
	}

	assert.Equal(t, "unknown error", rcon.ErrorKind(0).String())
}
