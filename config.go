// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultPort is the port used when a [ClientConfig] doesn't specify one.
	DefaultPort = 25575

	// DefaultClientTimeout is the default amount of time allowed for a client to make a request and
	// response round trip.
	DefaultClientTimeout = 5 * time.Second

	// DefaultStartingID is the first packet ID a client uses unless configured otherwise. Some server
	// implementations use low IDs internally, so client IDs start well above them.
	DefaultStartingID int32 = 0x0BADC0DE
)

// Dialer establishes the transport for a [Client]. [*net.Dialer] satisfies it. Supplying another
// implementation allows RCON over something other than plain TCP, such as a Unix socket, or lets the
// caller observe and modify traffic.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// ClientConfig contains settings to control [Client] instances.
type ClientConfig struct {
	// Host is the server's hostname or IP address. It is required.
	Host string

	// Port is the server's RCON port. A value of zero selects [DefaultPort].
	Port int

	// Password is the server's RCON password. It is required.
	Password string

	// Timeout limits the amount of time a client can spend establishing a connection and performing
	// each request and response round trip. A value of zero selects [DefaultClientTimeout].
	Timeout time.Duration

	// StartingID is the initial value for a client's packet ID sequence. Zero or negative values
	// select [DefaultStartingID].
	StartingID int32

	// Dialer establishes connections. A nil Dialer dials TCP with a [net.Dialer].
	Dialer Dialer

	// Logger receives log entries from a client. A nil Logger discards them.
	Logger *zap.Logger

	// LogOutboundAuthPackets is a flag that must be explicitly enabled when the client is created.
	// This field enables debug logging to include outbound authorization request packets, exposing
	// server passwords in plaintext. When this field is false (the default value,) outbound
	// authorization packets will be sanitized to hide both the password text and packet length.
	//
	// WARNING: Only enable this flag if you are aware of the implications and are willing to accept
	// the risks!
	LogOutboundAuthPackets bool
}

// withDefaults validates cfg and fills in defaults for unset fields.
func (cfg ClientConfig) withDefaults() (ClientConfig, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	if cfg.Host == "" {
		return cfg, newError(KindConfiguration, "host is required", nil)
	}
	if strings.TrimSpace(cfg.Password) == "" {
		return cfg, newError(KindConfiguration, "password is required", nil)
	}

	switch {
	case cfg.Port == 0:
		cfg.Port = DefaultPort
	case cfg.Port < 0 || cfg.Port > 65535:
		return cfg, newError(KindConfiguration, fmt.Sprintf("port %d is out of range", cfg.Port), nil)
	}

	switch {
	case cfg.Timeout == 0:
		cfg.Timeout = DefaultClientTimeout
	case cfg.Timeout < 0:
		return cfg, newError(KindConfiguration, fmt.Sprintf("timeout %s is negative", cfg.Timeout), nil)
	}

	if cfg.StartingID <= 0 {
		cfg.StartingID = DefaultStartingID
	}
	if cfg.Dialer == nil {
		cfg.Dialer = &net.Dialer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return cfg, nil
}
