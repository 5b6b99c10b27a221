// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import "strings"

// ErrorKind classifies the failures reported by this package.
type ErrorKind int

const (
	// KindConfiguration indicates an invalid [ClientConfig], reported by [NewClient].
	KindConfiguration ErrorKind = iota + 1

	// KindConnectionRefused indicates the transport could not be established.
	KindConnectionRefused

	// KindAuthenticationFailed indicates the server rejected the RCON password.
	KindAuthenticationFailed

	// KindNotConnected indicates a request was attempted without a completed connection.
	KindNotConnected

	// KindRequestTimedOut indicates no response arrived within the client timeout.
	KindRequestTimedOut

	// KindDisconnected indicates the connection closed while a request was awaiting its response.
	KindDisconnected

	// KindEmptyResponsePacket indicates the server sent a zero-length packet.
	KindEmptyResponsePacket

	// KindMalformedPacket indicates bytes that cannot be decoded as a packet.
	KindMalformedPacket

	// KindIncompleteStream indicates the transport ended partway through a packet.
	KindIncompleteStream
)

var kindNames = map[ErrorKind]string{
	KindConfiguration:        "configuration error",
	KindConnectionRefused:    "connection refused",
	KindAuthenticationFailed: "authentication failed",
	KindNotConnected:         "not connected",
	KindRequestTimedOut:      "request timed out",
	KindDisconnected:         "disconnected before response",
	KindEmptyResponsePacket:  "empty response packet",
	KindMalformedPacket:      "malformed packet",
	KindIncompleteStream:     "incomplete stream",
}

func (k ErrorKind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown error"
}

// Error is the error type returned by this package. Kind identifies the failure, Msg optionally adds
// detail, and Err holds the underlying cause, if any.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("rcon: ")
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an [*Error] of the same kind. This lets callers match failures against
// the sentinel values below regardless of message or cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Sentinels for use with [errors.Is].
var (
	ErrConfiguration        = &Error{Kind: KindConfiguration}
	ErrConnectionRefused    = &Error{Kind: KindConnectionRefused}
	ErrAuthenticationFailed = &Error{Kind: KindAuthenticationFailed}
	ErrNotConnected         = &Error{Kind: KindNotConnected}
	ErrRequestTimedOut      = &Error{Kind: KindRequestTimedOut}
	ErrDisconnected         = &Error{Kind: KindDisconnected}
	ErrEmptyResponsePacket  = &Error{Kind: KindEmptyResponsePacket}
	ErrMalformedPacket      = &Error{Kind: KindMalformedPacket}
	ErrIncompleteStream     = &Error{Kind: KindIncompleteStream}
)

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}
