// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// pendingRequest is a request awaiting its response. It completes exactly once, after which resp and
// err are fixed and done is closed.
type pendingRequest struct {
	id    int32
	auth  bool
	timer *time.Timer
	done  chan struct{}

	resp Packet
	err  error
}

// wait blocks until the request completes or ctx is done.
func (p *pendingRequest) wait(ctx context.Context) (Packet, error) {
	select {
	case <-p.done:
		return p.resp, p.err
	case <-ctx.Done():
		return Packet{}, ctx.Err()
	}
}

// resolution describes what an inbound packet did to the registry.
type resolution int

const (
	resolvedNothing resolution = iota
	resolvedResponse
	resolvedAuthFailure
)

// registry correlates inbound packets with pending requests by packet ID. All mutation goes through
// its methods, which hold mu only long enough to claim an entry; whoever removes an entry from the map
// is the only one allowed to complete it.
type registry struct {
	mu      sync.Mutex
	pending map[int32]*pendingRequest

	// authReq is the pending authorization request, if any. Servers reject a password by replying with
	// an ID of -1, so this request must be found without its ID.
	authReq *pendingRequest
}

func newRegistry() *registry {
	return &registry{pending: make(map[int32]*pendingRequest)}
}

// register adds a pending request under id that times out with [ErrRequestTimedOut] after timeout.
// An authorization request only accepts [PacketTypeAuthResponse] packets.
func (r *registry) register(id int32, timeout time.Duration, auth bool) (*pendingRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.pending[id]; ok {
		return nil, fmt.Errorf("rcon: request ID %d is already pending", id)
	}
	if auth && r.authReq != nil {
		return nil, fmt.Errorf("rcon: authorization request %d is already pending", r.authReq.id)
	}

	req := &pendingRequest{
		id:   id,
		auth: auth,
		done: make(chan struct{}),
	}
	r.pending[id] = req
	if auth {
		r.authReq = req
	}

	// The callback can't claim req before mu is released, by which point timer is set.
	req.timer = time.AfterFunc(timeout, func() {
		r.complete(req, Packet{}, newError(
			KindRequestTimedOut,
			fmt.Sprintf("no response to request %d within %s", id, timeout),
			nil,
		))
	})

	return req, nil
}

// resolve delivers p to the request it answers. Packets that answer nothing, including a second
// response to an already completed request, are ignored.
func (r *registry) resolve(p Packet) resolution {
	r.mu.Lock()
	if p.ID == authFailureID && p.Type == PacketTypeAuthResponse && r.authReq != nil {
		req := r.authReq
		r.mu.Unlock()
		if r.complete(req, p, newError(KindAuthenticationFailed, "server rejected the password", nil)) {
			return resolvedAuthFailure
		}
		return resolvedNothing
	}

	req, ok := r.pending[p.ID]
	r.mu.Unlock()

	// Source servers precede the auth response with an empty response value under the same ID.
	if !ok || (req.auth && p.Type != PacketTypeAuthResponse) {
		return resolvedNothing
	}
	if r.complete(req, p, nil) {
		return resolvedResponse
	}
	return resolvedNothing
}

// reject fails the request pending under id with err.
func (r *registry) reject(id int32, err error) bool {
	r.mu.Lock()
	req, ok := r.pending[id]
	r.mu.Unlock()
	if !ok {
		return false
	}
	return r.complete(req, Packet{}, err)
}

// rejectSole fails the pending non-authorization request with err if it is the only one in flight.
// It reports whether a request was rejected.
func (r *registry) rejectSole(err error) bool {
	r.mu.Lock()
	var sole *pendingRequest
	for _, req := range r.pending {
		if req.auth {
			continue
		}
		if sole != nil {
			r.mu.Unlock()
			return false
		}
		sole = req
	}
	r.mu.Unlock()
	if sole == nil {
		return false
	}
	return r.complete(sole, Packet{}, err)
}

// rejectAll fails every pending request with err.
func (r *registry) rejectAll(err error) int {
	r.mu.Lock()
	claimed := r.pending
	r.pending = make(map[int32]*pendingRequest)
	r.authReq = nil
	r.mu.Unlock()

	for _, req := range claimed {
		req.finish(Packet{}, err)
	}
	return len(claimed)
}

// len returns the number of pending requests.
func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending)
}

// complete removes req and finishes it, unless something else already has. It reports whether this
// call was the one to finish req.
func (r *registry) complete(req *pendingRequest, p Packet, err error) bool {
	r.mu.Lock()
	if cur, ok := r.pending[req.id]; !ok || cur != req {
		r.mu.Unlock()
		return false
	}
	delete(r.pending, req.id)
	if r.authReq == req {
		r.authReq = nil
	}
	r.mu.Unlock()

	req.finish(p, err)
	return true
}

// finish must only be called by whoever removed p from the registry.
func (p *pendingRequest) finish(resp Packet, err error) {
	p.timer.Stop()
	p.resp = resp
	p.err = err
	close(p.done)
}
