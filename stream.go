// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"iter"
)

// readChunkSize is the buffer size used when pulling bytes off a transport.
const readChunkSize = MaximumPacketSize + 4

// Reassembler turns a byte stream delivered in arbitrarily sized chunks into discrete packets. A
// single packet may span many chunks and a single chunk may carry many packets. A Reassembler is bound
// to one stream and cannot be reused once that stream ends.
//
// Reassembler is not safe for concurrent use.
type Reassembler struct {
	buf []byte

	// err is set once the stream can no longer be framed. It is returned by every later call.
	err error
}

// Feed appends chunk to the pending bytes and returns every packet completed by it, in stream order.
//
// A frame whose payload can't be decoded is consumed and skipped; its error is joined into the
// returned error while the packets around it are still returned. A negative length field leaves no
// way to find the next frame, so it poisons the Reassembler: see [Reassembler.Err].
func (s *Reassembler) Feed(chunk []byte) ([]Packet, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.buf = append(s.buf, chunk...)

	var (
		packets []Packet
		errs    []error
	)
	off := 0
	for len(s.buf)-off >= 4 {
		size := int32(binary.LittleEndian.Uint32(s.buf[off : off+4]))
		if size < 0 {
			s.err = newError(KindMalformedPacket, fmt.Sprintf("negative declared size %d", size), nil)
			s.buf = nil
			return packets, errors.Join(append(errs, s.err)...)
		}
		if int64(len(s.buf)-off-4) < int64(size) {
			break
		}
		end := off + 4 + int(size)

		p, err := Decode(s.buf[off+4 : end])
		if err != nil {
			errs = append(errs, err)
		} else {
			packets = append(packets, p)
		}
		off = end
	}

	// Retain only the residual bytes, in a fresh array.
	if off > 0 {
		s.buf = append(s.buf[:0:0], s.buf[off:]...)
	}

	return packets, errors.Join(errs...)
}

// Buffered returns the number of bytes held that don't yet form a complete packet.
func (s *Reassembler) Buffered() int {
	return len(s.buf)
}

// Err returns the error that stopped the Reassembler from framing the stream, if any.
func (s *Reassembler) Err() error {
	return s.err
}

// Close signals that the underlying stream has ended. If part of a packet is still buffered an
// [ErrIncompleteStream] error is returned rather than dropping it silently.
func (s *Reassembler) Close() error {
	if s.err != nil {
		return s.err
	}
	s.err = newError(KindIncompleteStream, "stream already closed", nil)
	if n := len(s.buf); n > 0 {
		s.buf = nil
		return newError(KindIncompleteStream, fmt.Sprintf("%d bytes of a truncated packet", n), nil)
	}
	return nil
}

// ReadPackets returns a sequence of the packets read from r. Errors are yielded alongside a zero
// [Packet]. Undecodable frames don't end the sequence; a read error, an unframeable stream, or a
// truncated final packet does. A clean end of stream simply ends the sequence.
func ReadPackets(r io.Reader) iter.Seq2[Packet, error] {
	return func(yield func(Packet, error) bool) {
		var s Reassembler
		chunk := make([]byte, readChunkSize)
		for {
			n, readErr := r.Read(chunk)
			if n > 0 {
				packets, err := s.Feed(chunk[:n])
				for _, p := range packets {
					if !yield(p, nil) {
						return
					}
				}
				if err != nil {
					if !yield(Packet{}, err) || s.Err() != nil {
						return
					}
				}
			}

			if readErr != nil {
				if errors.Is(readErr, io.EOF) {
					if err := s.Close(); err != nil {
						yield(Packet{}, err)
					}
					return
				}
				yield(Packet{}, readErr)
				return
			}
		}
	}
}
