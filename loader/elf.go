/*
   ELF image loader.

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

package loader

import (
	"debug/elf"
	"fmt"
	"io"

	"github.com/rcornwell/rvsim/emu/memory"
)

// Image names the addresses an ELF load resolved from well-known
// symbols, zero when the symbol was absent.
type Image struct {
	Entry     uint64
	ToHost    uint64
	ConsoleIO uint64
	GlobalPtr uint64
	Finish    uint64
	End       uint64
}

// LoadELF copies every loadable (PT_LOAD) segment from r into mem at
// its virtual address and resolves the well-known symbols this
// simulator honors.
func LoadELF(mem *memory.Memory, r io.ReaderAt) (Image, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return Image{}, fmt.Errorf("loader: %w", err)
	}
	defer f.Close()

	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD || prog.Filesz == 0 {
			continue
		}
		data := make([]byte, prog.Filesz)
		if _, err := io.ReadFull(prog.Open(), data); err != nil {
			return Image{}, fmt.Errorf("loader: reading segment at %#x: %w", prog.Vaddr, err)
		}
		if err := mem.LoadBytes(prog.Vaddr, data); err != nil {
			return Image{}, fmt.Errorf("loader: %w", err)
		}
	}

	img := Image{Entry: f.Entry}
	syms, err := f.Symbols()
	if err != nil {
		// A stripped binary simply has no symbol table; only the
		// entry point and PT_LOAD segments are mandatory.
		return img, nil
	}
	for _, s := range syms {
		switch s.Name {
		case "tohost":
			img.ToHost = s.Value
		case "__sim_console_io":
			img.ConsoleIO = s.Value
		case "__global_pointer$":
			img.GlobalPtr = s.Value
		case "_finish":
			img.Finish = s.Value
		case "_end":
			img.End = s.Value
		}
	}
	return img, nil
}
