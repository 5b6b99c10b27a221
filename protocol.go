// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// WrapperSize is the cumulative size of non-body bytes that contribute to calculation of the packet
// size that precedes a binary packet. Eight bytes are accounted for by the packet ID and type,
// while two bytes are accounted for by the null byte termination of the body and packet. The packet
// size itself is not included in the size calculation.
const WrapperSize = 8 + 2

// MaximumPacketSize is the largest packet size the protocol documentation allows servers to accept.
// The codec itself does not enforce it; callers that build commands from user input may.
const MaximumPacketSize = 4096

const (
	// PacketTypeAuth represents a client authorization request packet. It indicates that the body
	// will contain the server password.
	PacketTypeAuth = 3

	// PacketTypeAuthResponse represents a server authorization response packet. If authorization
	// failed, the packet ID will have a value of -1 rather than that of the matching client request
	// packet.
	PacketTypeAuthResponse = 2

	// PacketTypeExecCommand represents a client request packet that contains a command to be executed
	// by the server.
	PacketTypeExecCommand = 2

	// PacketTypeResponseValue represents a server response packet that contains the output of a
	// server command initiated by a [PacketTypeExecCommand] client request packet.
	PacketTypeResponseValue = 0
)

// authFailureID is the packet ID a server echoes on a [PacketTypeAuthResponse] packet to reject a
// password.
const authFailureID = -1

// Packet is a singular RCON protocol packet, either as a request from a client or a response from
// a server.
type Packet struct {
	// ID is a field chosen by the client which can be used to correlate request packets with
	// response packets. The singular case where a response will not carry the ID of its request is
	// auth failure, where the [Packet.Type] will be [PacketTypeAuthResponse] and this field will have
	// a value of -1.
	ID int32

	// Type indicates the purpose of the packet. It is normally one of [PacketTypeAuth],
	// [PacketTypeAuthResponse], [PacketTypeExecCommand], or [PacketTypeResponseValue], but unknown
	// values are carried through untouched.
	Type int32

	// Body contains the data relevant to the provided packet type. This will be the RCON password for
	// the server, the command to be executed, or the server's response to a request. It's possible
	// that the body is empty.
	Body string
}

// Encode returns the wire representation of p: a little-endian length, ID and type followed by the
// body and two null bytes. The length covers everything after itself.
func Encode(p Packet) []byte {
	size := WrapperSize + len(p.Body)
	b := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(b[0:4], uint32(size))
	binary.LittleEndian.PutUint32(b[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(b[8:12], uint32(p.Type))
	copy(b[12:], p.Body)
	// The two trailing terminators are already zero.
	return b
}

// Decode parses a packet payload, which is everything following the length field of a frame. The
// final two bytes are taken to be the null terminators and are not part of the body.
func Decode(payload []byte) (Packet, error) {
	if len(payload) == 0 {
		return Packet{}, newError(KindEmptyResponsePacket, "", ErrMalformedPacket)
	}
	if len(payload) < WrapperSize {
		return Packet{}, newError(
			KindMalformedPacket,
			fmt.Sprintf("payload of %d bytes is shorter than the %d byte minimum", len(payload), WrapperSize),
			nil,
		)
	}

	return Packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: int32(binary.LittleEndian.Uint32(payload[4:8])),
		Body: string(payload[8 : len(payload)-2]),
	}, nil
}

// MarshalBinary encodes the receiving [Packet] into binary form and returns the result. This
// satisfies the [encoding.BinaryMarshaler] interface.
func (p Packet) MarshalBinary() ([]byte, error) {
	return Encode(p), nil
}

// WriteTo writes a binary representation of the packet to [io.Writer] w. This method satisfies the
// [io.WriterTo] interface.
func (p Packet) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(Encode(p))
	return int64(n), err
}

// UnmarshalBinary decodes a complete binary frame b, including its length field, into the receiving
// [Packet]. This satisfies the [encoding.BinaryUnmarshaler] interface.
func (p *Packet) UnmarshalBinary(b []byte) error {
	r := bytes.NewReader(b)
	_, err := p.ReadFrom(r)
	if err != nil {
		return err
	}
	if r.Len() != 0 {
		return newError(KindMalformedPacket, fmt.Sprintf("%d trailing bytes after packet", r.Len()), nil)
	}
	return nil
}

// ReadFrom reads a binary representation of a packet into the receiving [Packet] instance. This
// method satisfies the [io.ReaderFrom] interface.
func (p *Packet) ReadFrom(r io.Reader) (int64, error) {
	// Keep track of bytes read.
	n := int64(0)

	// Read the provided packet size.
	var sizeField [4]byte
	m, err := io.ReadFull(r, sizeField[:])
	n += int64(m)
	if err == io.ErrUnexpectedEOF {
		return n, newError(KindIncompleteStream, "", err)
	}
	if err != nil {
		return n, err
	}
	packetSize := int32(binary.LittleEndian.Uint32(sizeField[:]))

	// A size smaller than the wrapper can't describe a packet.
	if packetSize < WrapperSize {
		return n, newError(KindMalformedPacket, fmt.Sprintf("declared size %d is too small", packetSize), nil)
	}

	payload := make([]byte, packetSize)
	m, err = io.ReadFull(r, payload)
	n += int64(m)
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return n, newError(KindIncompleteStream, "", err)
		}
		return n, err
	}

	*p, err = Decode(payload)
	return n, err
}

// EqualTo determines if the provided Packet content matches the receiving Packet content.
func (p Packet) EqualTo(p2 Packet) bool {
	return p == p2
}
