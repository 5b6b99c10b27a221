// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

/*
Package rcon provides mechanisms for interacting with the Source RCON protocol as described by
Valve Software at https://developer.valvesoftware.com/wiki/Source_RCON_Protocol.

The package is layered. [Encode] and [Decode] handle the binary packet format, a [Reassembler] turns an
arbitrarily chunked byte stream into packets, and [Client] ties both to a single TCP connection. A
Client authorizes once per connection and then multiplexes any number of concurrent [Client.Send] calls
over it, matching each response to its request by packet ID.

	c, err := rcon.NewClient(rcon.ClientConfig{Host: "192.0.2.1", Password: "hunter2"})
	if err != nil {
		log.Fatal(err)
	}
	err = c.Session(ctx, func(ctx context.Context) error {
		out, err := c.Send(ctx, "status")
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil
	})

Failures are reported as [*Error] values whose kind can be tested with [errors.Is] against the exported
sentinels, e.g. errors.Is(err, rcon.ErrAuthenticationFailed).
*/
package rcon
