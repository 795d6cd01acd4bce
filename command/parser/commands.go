/*
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

package parser

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/rcornwell/rvsim/command/session"
	"github.com/rcornwell/rvsim/emu/disassemble"
	"github.com/rcornwell/rvsim/emu/trigger"
)

// resource names one addressable thing examine/deposit can reach.
type resource struct {
	kind string // "reg", "freg", "csr", "mem", "pc"
	num  uint64
	size int // byte width, only meaningful for "mem"
}

func parseResource(line *cmdLine) (resource, error) {
	kind := line.getWord()
	switch kind {
	case "pc":
		return resource{kind: "pc"}, nil
	case "reg", "freg", "csr":
		numStr := line.getWord()
		n, err := strconv.ParseUint(numStr, 0, 16)
		if err != nil {
			return resource{}, fmt.Errorf("bad %s number %q: %w", kind, numStr, err)
		}
		return resource{kind: kind, num: n}, nil
	case "mem":
		addrStr := line.getWord()
		addr, err := strconv.ParseUint(addrStr, 16, 64)
		if err != nil {
			return resource{}, fmt.Errorf("bad address %q: %w", addrStr, err)
		}
		size := 4
		if sizeStr := line.getWord(); sizeStr != "" {
			s, err := strconv.Atoi(sizeStr)
			if err != nil || (s != 1 && s != 2 && s != 4 && s != 8) {
				return resource{}, fmt.Errorf("mem size must be 1, 2, 4 or 8: %q", sizeStr)
			}
			size = s
		}
		return resource{kind: "mem", num: addr, size: size}, nil
	default:
		return resource{}, errors.New("unknown resource: " + kind)
	}
}

func resourceComplete(_ *cmdLine) []string {
	return []string{"reg", "freg", "csr", "mem", "pc"}
}

func step(_ *cmdLine, sess *session.Session) (bool, error) {
	res := sess.Step()
	// Show the next instruction to execute, the way every stop lands the
	// user looking at what comes next.
	if d, err := sess.Disassemble(sess.Hart.PC); err == nil {
		fmt.Fprintf(sess.Out, "pc=%#x reason=%s  %s\n", sess.Hart.PC, res.Reason.String(), disassemble.Instruction(sess.Hart.PC, d))
		return false, nil
	}
	fmt.Fprintf(sess.Out, "pc=%#x reason=%s\n", sess.Hart.PC, res.Reason.String())
	return false, nil
}

func cont(_ *cmdLine, sess *session.Session) (bool, error) {
	sess.Continue()
	return false, nil
}

func stop(_ *cmdLine, sess *session.Session) (bool, error) {
	sess.StopRun()
	return false, nil
}

func examine(line *cmdLine, sess *session.Session) (bool, error) {
	res, err := parseResource(line)
	if err != nil {
		return false, err
	}
	switch res.kind {
	case "pc":
		fmt.Fprintf(sess.Out, "pc = %#x\n", sess.Hart.PC)
	case "reg":
		fmt.Fprintf(sess.Out, "x%d = %#x\n", res.num, sess.Hart.PeekIntReg(uint8(res.num)))
	case "freg":
		fmt.Fprintf(sess.Out, "f%d = %#x\n", res.num, sess.Hart.PeekFPReg(uint8(res.num)))
	case "csr":
		v, reset, wm, pm, err := sess.Hart.PeekCSR(uint16(res.num))
		if err != nil {
			return false, err
		}
		fmt.Fprintf(sess.Out, "csr %#x = %#x (reset=%#x writeMask=%#x pokeMask=%#x)\n", res.num, v, reset, wm, pm)
	case "mem":
		v, err := sess.Hart.PeekMemory(res.num, res.size)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(sess.Out, "mem[%#x] = %#x\n", res.num, v)
	}
	return false, nil
}

func deposit(line *cmdLine, sess *session.Session) (bool, error) {
	res, err := parseResource(line)
	if err != nil {
		return false, err
	}
	valStr := line.getWord()
	val, err := strconv.ParseUint(valStr, 0, 64)
	if err != nil {
		return false, fmt.Errorf("bad value %q: %w", valStr, err)
	}
	switch res.kind {
	case "pc":
		sess.Hart.PC = val
	case "reg":
		sess.Hart.PokeIntReg(uint8(res.num), val)
	case "freg":
		sess.Hart.PokeFPReg(uint8(res.num), val)
	case "csr":
		return false, sess.Hart.PokeCSR(uint16(res.num), val)
	case "mem":
		return false, sess.Hart.PokeMemory(res.num, res.size, val)
	}
	return false, nil
}

func setBreak(line *cmdLine, sess *session.Session) (bool, error) {
	addrStr := line.getWord()
	addr, err := strconv.ParseUint(addrStr, 16, 64)
	if err != nil {
		return false, fmt.Errorf("bad breakpoint address %q: %w", addrStr, err)
	}
	triggers := sess.Hart.Triggers()
	for i := 0; i < triggers.Count(); i++ {
		if triggers.Get(i).Kind == trigger.None {
			triggers.Set(i, trigger.Trigger{
				Kind: trigger.Address, Match: trigger.Eq, Value: addr,
				Execute: true, M: true, S: true, U: true,
			})
			fmt.Fprintf(sess.Out, "breakpoint %d set at %#x\n", i, addr)
			return false, nil
		}
	}
	return false, errors.New("no free trigger slots")
}

func deleteBreak(line *cmdLine, sess *session.Session) (bool, error) {
	numStr := line.getWord()
	n, err := strconv.Atoi(numStr)
	if err != nil {
		return false, fmt.Errorf("bad trigger number %q: %w", numStr, err)
	}
	sess.Hart.Triggers().Set(n, trigger.Trigger{})
	return false, nil
}

func show(line *cmdLine, sess *session.Session) (bool, error) {
	what := line.getWord()
	switch what {
	case "", "pc":
		d, err := sess.Disassemble(sess.Hart.PC)
		if err != nil {
			fmt.Fprintf(sess.Out, "pc = %#x\n", sess.Hart.PC)
			return false, nil
		}
		fmt.Fprintf(sess.Out, "pc = %#x  %s\n", sess.Hart.PC, disassemble.Instruction(sess.Hart.PC, d))
	case "regs":
		for i := 0; i < 32; i++ {
			fmt.Fprintf(sess.Out, "x%-2d = %#016x%s", i, sess.Hart.PeekIntReg(uint8(i)), sep(i))
		}
	case "priv":
		fmt.Fprintf(sess.Out, "priv = %d\n", sess.Hart.Priv())
	case "counters":
		mc, mi := sess.Hart.Counters()
		fmt.Fprintf(sess.Out, "mcycle = %d  minstret = %d\n", mc, mi)
	default:
		return false, errors.New("unknown show target: " + what)
	}
	return false, nil
}

func sep(i int) string {
	if i%4 == 3 {
		return "\n"
	}
	return "  "
}

func traceCmd(line *cmdLine, sess *session.Session) (bool, error) {
	switch line.getWord() {
	case "status", "":
		fmt.Fprintf(sess.Out, "tracing enabled = %v\n", sess.Tracer != nil)
	default:
		return false, errors.New("trace can only be toggled via the trace config option")
	}
	return false, nil
}

func quit(_ *cmdLine, _ *session.Session) (bool, error) {
	return true, nil
}
