// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Client is an RCON client that manages a single connection to an RCON server. The connection is
// established and authorized by [Client.Connect] and released by [Client.Disconnect]; in between, any
// number of goroutines may call [Client.Send]. Requests are multiplexed over the one connection and
// each caller receives the response carrying its request's packet ID, so responses to concurrent
// requests may arrive in any order.
//
// A Client never reconnects on its own. Once a connection is lost, every request awaiting a response
// fails with [ErrDisconnected] and a later Connect starts over.
//
// RCON does not specify any keep alive functionality, so a server may drop a connection that is idle
// for an extended period.
type Client struct {
	cfg    ClientConfig
	addr   string
	logger *zap.Logger

	// seq tracks the monotonically increasing packet ID that a client sends to servers with each
	// request. This will be a positive value between zero and [math.MaxInt32] inclusive.
	seq atomic.Int32

	reqs *registry

	// mu guards the fields below. It is never held while waiting on the network.
	mu        sync.Mutex
	state     State
	transport *transport
	attempt   *connectAttempt

	errMu sync.Mutex
	errs  []error

	sessMu   sync.Mutex
	sessions int
}

// transport is one established connection. Only the client writes to conn, one packet at a time.
type transport struct {
	conn net.Conn
	wmu  sync.Mutex

	// done is closed when the connection's read loop has exited.
	done chan struct{}
}

// connectAttempt is a connection being established. Every Connect call made while it is underway
// shares its outcome. err is written under Client.mu before done is closed.
type connectAttempt struct {
	done   chan struct{}
	err    error
	cancel context.CancelFunc
}

// NewClient creates and returns a [Client] configured by the provided config. It fails with
// [ErrConfiguration] if the host or password is empty. No connection is made until
// [Client.Connect] is called.
func NewClient(config ClientConfig) (*Client, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:    cfg,
		addr:   net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		logger: cfg.Logger,
		reqs:   newRegistry(),
		state:  Disconnected,
	}
	c.seq.Store(cfg.StartingID)
	return c, nil
}

// Addr returns the host:port address the client connects to.
func (c *Client) Addr() string {
	return c.addr
}

// State returns the client's current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Errors returns the connection-level failures the client has encountered, oldest first. Failures of
// individual requests are only returned to their callers and are not included.
func (c *Client) Errors() []error {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	return append([]error(nil), c.errs...)
}

// Connect establishes and authorizes a connection to the server. It returns immediately if the
// client is already connected, and joins the attempt underway if another goroutine is connecting.
//
// A transport failure is reported as [ErrConnectionRefused] and a rejected password as
// [ErrAuthenticationFailed]. Both are also recorded in [Client.Errors]. If ctx is done first, Connect
// returns its error but the shared attempt carries on.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	a := c.attempt
	if a == nil {
		a = c.startAttemptLocked()
	}
	c.mu.Unlock()

	select {
	case <-a.done:
		return a.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Disconnect closes the connection, failing any requests still awaiting a response with
// [ErrDisconnected]. It also aborts a connection attempt that hasn't yet reached the server.
// Disconnecting a client without a connection does nothing.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	tr := c.transport
	if tr == nil {
		if a := c.attempt; a != nil {
			c.attempt = nil
			a.cancel()
			c.transitionLocked(eventClosed)
		}
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()

	err := c.teardown(tr, eventClosed, newError(KindDisconnected, "client disconnected", nil))
	<-tr.done
	return err
}

// Close is an alias of [Client.Disconnect] that satisfies [io.Closer].
func (c *Client) Close() error {
	return c.Disconnect()
}

// Send executes command on the server and returns its output with a single trailing newline
// removed. The client must be connected.
//
// Send fails with [ErrNotConnected] without a completed connection, [ErrRequestTimedOut] when the
// server doesn't answer within the client timeout, and [ErrDisconnected] if the connection is lost
// first. If ctx is done first its error is returned and any late response is discarded.
func (c *Client) Send(ctx context.Context, command string) (string, error) {
	tr, err := c.connected()
	if err != nil {
		return "", err
	}

	resp, err := c.roundTrip(ctx, tr, Packet{Type: PacketTypeExecCommand, Body: command}, false)
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(resp.Body, "\n"), nil
}

// connected returns the transport of a completed, successful connection.
func (c *Client) connected() (*transport, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	a := c.attempt
	ready := c.transport != nil && a != nil && a.err == nil && (c.state == Connected || c.state == Authorized)
	if ready {
		select {
		case <-a.done:
		default:
			ready = false
		}
	}
	if !ready {
		return nil, newError(KindNotConnected, "client is "+c.state.String(), nil)
	}
	return c.transport, nil
}

// roundTrip assigns req a fresh packet ID, writes it, and waits for the matching response.
func (c *Client) roundTrip(ctx context.Context, tr *transport, req Packet, auth bool) (Packet, error) {
	req.ID = c.loadAndIncrementSeq()
	pending, err := c.reqs.register(req.ID, c.cfg.Timeout, auth)
	if err != nil {
		return Packet{}, err
	}

	if err := c.write(tr, req); err != nil {
		err = fmt.Errorf("rcon: sending request %d: %w", req.ID, err)
		c.reqs.reject(req.ID, err)
		return Packet{}, err
	}

	resp, err := pending.wait(ctx)
	if err != nil && ctx.Err() != nil && !c.reqs.reject(req.ID, err) {
		// The request completed while ctx was being cancelled.
		<-pending.done
		return pending.resp, pending.err
	}
	return resp, err
}

// write sends p over tr.
func (c *Client) write(tr *transport, p Packet) error {
	tr.wmu.Lock()
	defer tr.wmu.Unlock()

	c.logPacket("sending packet", p)
	if err := tr.conn.SetWriteDeadline(time.Now().Add(c.cfg.Timeout)); err != nil {
		return err
	}
	_, err := p.WriteTo(tr.conn)
	return err
}

// startAttemptLocked begins a connection attempt. c.mu must be held.
func (c *Client) startAttemptLocked() *connectAttempt {
	ctx, cancel := context.WithCancel(context.Background())
	a := &connectAttempt{
		done:   make(chan struct{}),
		cancel: cancel,
	}
	c.attempt = a
	if c.state == Refused || c.state == Unauthorized {
		c.transitionLocked(eventReset)
	}
	c.transitionLocked(eventConnect)

	go func() {
		err := c.establish(ctx, a)
		cancel()

		c.mu.Lock()
		if err != nil && c.attempt == a {
			c.attempt = nil
		}
		a.err = err
		close(a.done)
		c.mu.Unlock()
	}()

	return a
}

// establish dials the server and authorizes the resulting connection.
func (c *Client) establish(ctx context.Context, a *connectAttempt) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	conn, err := c.cfg.Dialer.DialContext(dialCtx, "tcp", c.addr)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return newError(KindDisconnected, "disconnected while connecting", err)
		}

		c.mu.Lock()
		if c.attempt == a {
			c.transitionLocked(eventDialFailed)
		}
		c.mu.Unlock()

		cerr := newError(KindConnectionRefused, c.addr, err)
		c.recordError(cerr)
		c.logger.Warn("connection refused", zap.String("addr", c.addr), zap.Error(err))
		return cerr
	}

	tr := &transport{conn: conn, done: make(chan struct{})}
	c.mu.Lock()
	if c.attempt != a {
		c.mu.Unlock()
		_ = conn.Close()
		return newError(KindDisconnected, "disconnected while connecting", nil)
	}
	c.transport = tr
	c.transitionLocked(eventTransportUp)
	c.mu.Unlock()

	go c.readLoop(tr)

	_, err = c.roundTrip(ctx, tr, Packet{Type: PacketTypeAuth, Body: c.cfg.Password}, true)
	switch {
	case errors.Is(err, ErrAuthenticationFailed):
		// The read loop closes the connection too; whichever gets there first wins.
		_ = c.teardown(tr, eventAuthRejected, newError(KindDisconnected, "authorization rejected", nil))
		c.recordError(err)
		c.logger.Warn("authorization rejected", zap.String("addr", c.addr))
		return err
	case err != nil:
		_ = c.teardown(tr, eventClosed, newError(KindDisconnected, "authorization failed", err))
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport != tr {
		return newError(KindDisconnected, "connection closed during authorization", nil)
	}
	c.transitionLocked(eventAuthAccepted)
	c.logger.Debug("authorized", zap.String("addr", c.addr))
	return nil
}

// readLoop feeds everything read from tr into a [Reassembler] and hands the resulting packets to the
// registry until the connection closes.
func (c *Client) readLoop(tr *transport) {
	defer close(tr.done)

	var s Reassembler
	buf := make([]byte, readChunkSize)
	for {
		n, err := tr.conn.Read(buf)
		if n > 0 {
			packets, ferr := s.Feed(buf[:n])
			for _, p := range packets {
				c.logPacket("received packet", p)
				switch c.reqs.resolve(p) {
				case resolvedNothing:
					c.logger.Debug("ignoring packet without a pending request",
						zap.Int32("id", p.ID), zap.Int32("type", p.Type))
				case resolvedAuthFailure:
					_ = c.teardown(tr, eventAuthRejected, newError(KindDisconnected, "authorization rejected", nil))
					return
				}
			}

			if ferr != nil {
				c.recordError(ferr)
				c.logger.Warn("discarding undecodable data", zap.String("addr", c.addr), zap.Error(ferr))
				if errors.Is(ferr, ErrEmptyResponsePacket) {
					c.reqs.rejectSole(newError(KindEmptyResponsePacket, "", nil))
				}
				if s.Err() != nil {
					_ = c.teardown(tr, eventClosed, newError(KindDisconnected, "stream can't be framed", s.Err()))
					return
				}
			}
		}

		if err != nil {
			if !c.current(tr) {
				return
			}
			if isTimeout(err) {
				c.recordError(err)
				c.logger.Warn("read timed out", zap.String("addr", c.addr), zap.Error(err))
				continue
			}

			cause := newError(KindDisconnected, "server closed the connection", nil)
			if errors.Is(err, io.EOF) {
				if serr := s.Close(); serr != nil {
					c.recordError(serr)
				}
				c.logger.Debug("server closed the connection", zap.String("addr", c.addr))
			} else {
				cause = newError(KindDisconnected, "", err)
				c.recordError(err)
				c.logger.Warn("connection failed", zap.String("addr", c.addr), zap.Error(err))
			}
			_ = c.teardown(tr, eventClosed, cause)
			return
		}
	}
}

// isTimeout reports whether err is a timeout, after which the connection may still be read.
func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// current reports whether tr is still the client's transport.
func (c *Client) current(tr *transport) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport == tr
}

// teardown closes tr if it is still the client's transport, failing every pending request with cause
// before letting go of it.
func (c *Client) teardown(tr *transport, e event, cause error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.transport != tr {
		return nil
	}
	if n := c.reqs.rejectAll(cause); n > 0 {
		c.logger.Debug("failed pending requests", zap.Int("count", n), zap.Error(cause))
	}
	c.transport = nil
	c.attempt = nil
	c.transitionLocked(e)
	return tr.conn.Close()
}

// transitionLocked applies e to the client state. c.mu must be held.
func (c *Client) transitionLocked(e event) {
	next, ok := transition(c.state, e)
	if !ok {
		c.logger.Debug("ignoring invalid state transition",
			zap.Stringer("state", c.state), zap.Stringer("event", e))
		return
	}
	c.logger.Debug("state transition",
		zap.Stringer("from", c.state), zap.Stringer("to", next), zap.Stringer("event", e))
	c.state = next
}

func (c *Client) recordError(err error) {
	c.errMu.Lock()
	defer c.errMu.Unlock()
	c.errs = append(c.errs, err)
}

// loadAndIncrementSeq returns and then increments the receiving client's seq, wrapping around to
// zero when [math.MaxInt32] is reached.
func (c *Client) loadAndIncrementSeq() int32 {
	var seq int32
	swapped := false
	for !swapped {
		seq = c.seq.Load()
		switch {
		case seq < 0:
			swapped = c.seq.CompareAndSwap(seq, 1)
			seq = 0

		case seq == math.MaxInt32:
			swapped = c.seq.CompareAndSwap(seq, 0)

		default:
			swapped = c.seq.CompareAndSwap(seq, seq+1)
		}
	}
	return seq
}

// logPacket sends a log record containing the provided log message and packet to the client's
// logger for handling. When the logger is not enabled for debug records, this function is
// essentially a NOP. If the provided packet is an outbound authorization packet, its body and length
// are obfuscated to prevent leaking a plaintext password into logs.
func (c *Client) logPacket(msg string, packet Packet) {
	ce := c.logger.Check(zap.DebugLevel, msg)
	if ce == nil {
		return
	}

	// Unless the client is explicitly configured to log outbound authorization packets, scrub the
	// password when applicable.
	if packet.Type == PacketTypeAuth && !c.cfg.LogOutboundAuthPackets {
		packet.Body = "xxxxx"
	}

	ce.Write(
		zap.Int32("id", packet.ID),
		zap.Int32("type", packet.Type),
		zap.String("packet", hex.EncodeToString(Encode(packet))),
	)
}
