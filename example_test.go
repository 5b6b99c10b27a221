// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package rcon_test

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/schultz-is/rcon-go/v2"
)

func ExamplePacket_WriteTo() {
	var buf bytes.Buffer

	p := rcon.Packet{
		ID:   42,
		Type: rcon.PacketTypeExecCommand,
		Body: "info",
	}
	n, err := p.WriteTo(&buf)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Wrote %d bytes: %0x\n", n, buf.Bytes())

	// Output:
	// Wrote 18 bytes: 0e0000002a00000002000000696e666f0000
}

func ExamplePacket_ReadFrom() {
	bs, err := hex.DecodeString("0e0000002a00000002000000696e666f0000")
	if err != nil {
		log.Fatal(err)
	}
	rdr := bytes.NewReader(bs)

	var p rcon.Packet
	n, err := p.ReadFrom(rdr)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Read %d bytes: %#v\n", n, p)

	// Output:
	// Read 18 bytes: rcon.Packet{ID:42, Type:2, Body:"info"}
}

func ExampleReassembler_Feed() {
	stream := append(
		rcon.Encode(rcon.Packet{ID: 1, Type: rcon.PacketTypeResponseValue, Body: "first"}),
		rcon.Encode(rcon.Packet{ID: 2, Type: rcon.PacketTypeResponseValue, Body: "second"})...,
	)

	var s rcon.Reassembler
	for _, chunk := range [][]byte{stream[:7], stream[7:20], stream[20:]} {
		packets, err := s.Feed(chunk)
		if err != nil {
			log.Fatal(err)
		}
		for _, p := range packets {
			fmt.Printf("%d: %s\n", p.ID, p.Body)
		}
	}

	// Output:
	// 1: first
	// 2: second
}

func ExampleClient_Send() {
	c, err := rcon.NewClient(rcon.ClientConfig{
		Host:     "192.0.2.1",
		Port:     27015,
		Password: "super secret password",
		Timeout:  3 * time.Second,
		Logger:   zap.NewExample(),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if err := c.Connect(ctx); err != nil {
		log.Fatal(err)
	}
	defer c.Disconnect()

	result, err := c.Send(ctx, "ping")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Send result: %q\n", result)
}

func ExampleClient_Session() {
	c, err := rcon.NewClient(rcon.ClientConfig{Host: "192.0.2.1", Password: "super secret password"})
	if err != nil {
		log.Fatal(err)
	}

	err = c.Session(context.Background(), func(ctx context.Context) error {
		for _, cmd := range []string{"say Restarting in 10s", "save-all"} {
			if _, err := c.Send(ctx, cmd); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, rcon.ErrAuthenticationFailed) {
		log.Fatal("wrong RCON password")
	}
	if err != nil {
		log.Fatal(err)
	}
}
