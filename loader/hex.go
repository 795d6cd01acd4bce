/*
   Hex image loader.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
*/

// Package loader reads program images into a hart's address space: the
// simulator's own hex format, and standard ELF executables.
package loader

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rcornwell/rvsim/emu/memory"
)

// LoadHex reads the simulator's hex image format from r into mem: a
// line starting with '@' sets the current address (the rest of the
// line is a hex address); any other non-blank line is a
// whitespace-separated list of hex byte pairs written sequentially
// starting at the current address.
func LoadHex(mem *memory.Memory, r io.Reader) error {
	scanner := bufio.NewScanner(r)
	var addr uint64
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "@") {
			v, err := strconv.ParseUint(strings.TrimSpace(line[1:]), 16, 64)
			if err != nil {
				return fmt.Errorf("loader: line %d: bad address %q: %w", lineNo, line, err)
			}
			addr = v
			continue
		}
		for _, field := range strings.Fields(line) {
			b, err := strconv.ParseUint(field, 16, 8)
			if err != nil {
				return fmt.Errorf("loader: line %d: bad byte %q: %w", lineNo, field, err)
			}
			if err := mem.LoadBytes(addr, []byte{byte(b)}); err != nil {
				return fmt.Errorf("loader: line %d: %w", lineNo, err)
			}
			addr++
		}
	}
	return scanner.Err()
}
