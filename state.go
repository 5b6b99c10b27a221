// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

// State is the lifecycle state of a [Client] connection.
type State int

const (
	// Disconnected is the state of a client with no connection and no connection attempt underway.
	Disconnected State = iota

	// Connecting is the state while the transport is being established.
	Connecting

	// Connected is the state once the transport is up, while authorization is underway.
	Connected

	// Authorized is the state of a connection whose password the server accepted.
	Authorized

	// Refused is the state after the transport could not be established.
	Refused

	// Unauthorized is the state after the server rejected the password.
	Unauthorized
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Authorized:
		return "authorized"
	case Refused:
		return "refused"
	case Unauthorized:
		return "unauthorized"
	}
	return "unknown"
}

// event is something that happened to a connection.
type event int

const (
	eventConnect event = iota
	eventTransportUp
	eventDialFailed
	eventAuthAccepted
	eventAuthRejected
	eventClosed
	eventReset
)

func (e event) String() string {
	switch e {
	case eventConnect:
		return "connect"
	case eventTransportUp:
		return "transport up"
	case eventDialFailed:
		return "dial failed"
	case eventAuthAccepted:
		return "auth accepted"
	case eventAuthRejected:
		return "auth rejected"
	case eventClosed:
		return "closed"
	case eventReset:
		return "reset"
	}
	return "unknown"
}

// transition returns the state that follows s when e occurs, and false when e is not valid in s.
// Refused and Unauthorized end an attempt; they are reset to Disconnected before the next connect.
func transition(s State, e event) (State, bool) {
	switch e {
	case eventConnect:
		if s == Disconnected {
			return Connecting, true
		}
	case eventTransportUp:
		if s == Connecting {
			return Connected, true
		}
	case eventDialFailed:
		if s == Connecting {
			return Refused, true
		}
	case eventAuthAccepted:
		if s == Connected {
			return Authorized, true
		}
	case eventAuthRejected:
		if s == Connected {
			return Unauthorized, true
		}
	case eventClosed:
		switch s {
		case Connecting, Connected, Authorized:
			return Disconnected, true
		}
	case eventReset:
		switch s {
		case Refused, Unauthorized:
			return Disconnected, true
		}
	}
	return s, false
}
