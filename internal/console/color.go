// Copyright 2024 Matt Schultz <schultz@sent.com>. All rights reserved.
// Use of this source code is governed by an ISC license that can be found in the LICENSE file.

package console

import (
	"fmt"
	"io"
	"strings"
)

// RenderMode selects how formatting codes in server output are handled.
type RenderMode int

const (
	// RenderANSI converts formatting codes to ANSI escape sequences.
	RenderANSI RenderMode = iota

	// RenderPlain removes formatting codes.
	RenderPlain

	// RenderRaw leaves output untouched.
	RenderRaw
)

// sectionSign introduces a Minecraft formatting code; the code is the byte that follows it.
const sectionSign = "§"

const ansiReset = "\033[0m"

var ansiCodes = map[byte]string{
	'0': "\033[0;30m",   // black
	'1': "\033[0;34m",   // dark blue
	'2': "\033[0;32m",   // dark green
	'3': "\033[0;36m",   // dark aqua
	'4': "\033[0;31m",   // dark red
	'5': "\033[0;35m",   // dark purple
	'6': "\033[0;33m",   // gold
	'7': "\033[0;37m",   // gray
	'8': "\033[0;1;30m", // dark gray
	'9': "\033[0;1;34m", // blue
	'a': "\033[0;1;32m", // green
	'b': "\033[0;1;36m", // aqua
	'c': "\033[0;1;31m", // red
	'd': "\033[0;1;35m", // light purple
	'e': "\033[0;1;33m", // yellow
	'f': "\033[0;1;37m", // white
	'l': "\033[1m",      // bold
	'n': "\033[4m",      // underline
	'o': "\033[3m",      // italic
	'r': ansiReset,
}

// Render applies mode to text.
func Render(text string, mode RenderMode) string {
	if mode == RenderRaw || !strings.Contains(text, sectionSign) {
		return text
	}

	var b strings.Builder
	b.Grow(len(text))
	for {
		i := strings.Index(text, sectionSign)
		if i < 0 {
			break
		}
		writeLines(&b, text[:i], mode)
		text = text[i+len(sectionSign):]
		if text == "" {
			break
		}
		if mode == RenderANSI {
			b.WriteString(ansiCodes[lower(text[0])])
		}
		text = text[1:]
	}
	writeLines(&b, text, mode)

	if mode == RenderANSI {
		b.WriteString(ansiReset)
	}
	return b.String()
}

// writeLines writes s, resetting colors at each line break in ANSI mode.
func writeLines(b *strings.Builder, s string, mode RenderMode) {
	if mode == RenderANSI {
		s = strings.ReplaceAll(s, "\n", ansiReset+"\n")
	}
	b.WriteString(s)
}

func lower(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// Printer writes command output to a terminal.
type Printer struct {
	Out    io.Writer
	Mode   RenderMode
	Silent bool
}

// Print renders text and writes it, adding a trailing newline unless in raw mode.
func (p Printer) Print(text string) error {
	if p.Silent || text == "" {
		return nil
	}
	text = Render(text, p.Mode)
	if p.Mode != RenderRaw && !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	_, err := fmt.Fprint(p.Out, text)
	return err
}
