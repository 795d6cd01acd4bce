/*
   Debug trigger module.

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

// Package trigger implements the hart's debug-trigger module: a small
// bounded array of match units (address, data, instruction-count), with
// support for chaining adjacent even/odd pairs so both must fire before
// either takes its action. Modeled as a fixed-size unit array the way
// the channel subsystem this was ported from kept one chanDev per
// control-unit slot.
package trigger

// Kind identifies what a trigger matches against.
type Kind uint8

const (
	None Kind = iota
	Address
	Data
	ICount
)

// MatchOp is the comparison a trigger applies.
type MatchOp uint8

const (
	Eq MatchOp = iota
	Ge
	Le
)

// Trigger is one entry of the trigger module, loosely modeled on the
// mcontrol/icount CSR layout: a kind, a comparison, an operand, and
// which access types arm it.
type Trigger struct {
	Kind    Kind
	Match   MatchOp
	Value   uint64
	Execute bool
	Load    bool
	Store   bool
	M       bool // fires in machine mode
	S       bool // fires in supervisor mode
	U       bool // fires in user mode
	Chain   bool // chained with the next (odd-indexed) trigger
	Break   bool // action on fire: raise a breakpoint exception instead of entering debug mode
	Count   uint32 // icount remaining

	hit bool
}

// Unit is the hart's trigger module: a fixed array of Trigger slots plus
// the currently selected index (tselect).
type Unit struct {
	triggers   []Trigger
	selected   int
	firedBreak bool
}

// NewUnit builds a trigger unit with n slots.
func NewUnit(n int) *Unit {
	return &Unit{triggers: make([]Trigger, n)}
}

// Select and Selected implement tselect.
func (u *Unit) Select(idx int) {
	if idx >= 0 && idx < len(u.triggers) {
		u.selected = idx
	}
}
func (u *Unit) Selected() int { return u.selected }

// Count returns the number of trigger slots (tinfo's reported depth).
func (u *Unit) Count() int { return len(u.triggers) }

// Get and Set read/write the trigger at idx (tdata1/tdata2); an
// out-of-range idx reads as a zero Trigger and is ignored on write.
func (u *Unit) Get(idx int) Trigger {
	if idx < 0 || idx >= len(u.triggers) {
		return Trigger{}
	}
	return u.triggers[idx]
}

func (u *Unit) Set(idx int, t Trigger) {
	if idx >= 0 && idx < len(u.triggers) {
		u.triggers[idx] = t
	}
}

// chainGroupFires evaluates whether a trigger at idx, together with any
// trigger it chains to, has now fully matched. Chaining links an
// even-indexed trigger to the following odd-indexed one; both must have
// hit before either fires. A hit is remembered across accesses, so the
// two halves can match on different accesses.
func (u *Unit) chainGroupFires(idx int, hitNow bool) bool {
	t := &u.triggers[idx]
	if !t.Chain {
		return hitNow
	}
	partner := idx + 1
	if idx%2 == 1 {
		partner = idx - 1
	}
	if partner < 0 || partner >= len(u.triggers) {
		return hitNow
	}
	if hitNow {
		t.hit = true
	}
	return t.hit && u.triggers[partner].hit
}

func compare(op MatchOp, lhs, rhs uint64) bool {
	switch op {
	case Eq:
		return lhs == rhs
	case Ge:
		return lhs >= rhs
	case Le:
		return lhs <= rhs
	}
	return false
}

// CheckFetch evaluates address/instruction triggers against a fetched
// PC and reports whether debug mode should be entered.
func (u *Unit) CheckFetch(pc uint64, priv uint8) bool {
	return u.checkAccess(pc, priv, func(t *Trigger) bool { return t.Execute })
}

// CheckLoad evaluates data triggers against a load address.
func (u *Unit) CheckLoad(addr uint64, priv uint8) bool {
	return u.checkAccess(addr, priv, func(t *Trigger) bool { return t.Load })
}

// CheckStore evaluates data triggers against a store address.
func (u *Unit) CheckStore(addr uint64, priv uint8) bool {
	return u.checkAccess(addr, priv, func(t *Trigger) bool { return t.Store })
}

func (u *Unit) checkAccess(val uint64, priv uint8, arm func(*Trigger) bool) bool {
	fired := false
	for i := range u.triggers {
		t := &u.triggers[i]
		if t.Kind == None || !arm(t) {
			continue
		}
		if !privilegeArmed(t, priv) {
			continue
		}
		hit := compare(t.Match, val, t.Value)
		if u.chainGroupFires(i, hit) {
			fired = true
			u.firedBreak = t.Break
		}
	}
	return fired
}

// FiredBreak reports whether the most recently fired trigger was
// configured to raise a breakpoint exception rather than enter debug
// mode.
func (u *Unit) FiredBreak() bool { return u.firedBreak }

func privilegeArmed(t *Trigger, priv uint8) bool {
	switch priv {
	case 3:
		return t.M
	case 1:
		return t.S
	default:
		return t.U
	}
}

// TickICount decrements every armed icount trigger by one retired
// instruction and reports whether any has reached zero.
func (u *Unit) TickICount() bool {
	fired := false
	for i := range u.triggers {
		t := &u.triggers[i]
		if t.Kind != ICount || t.Count == 0 {
			continue
		}
		t.Count--
		if t.Count == 0 {
			fired = true
			u.firedBreak = t.Break
		}
	}
	return fired
}
