/*
   Hart memory: flat address space with region attributes.

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

// Package memory implements the hart address space: a flat byte backing
// store split into attributed regions (RAM, ICCM/DCCM, memory-mapped
// registers) shared across harts, plus the bookkeeping a load/store
// pipeline needs on top of it (LR/SC reservations, AMO serialization,
// write notification for decode-cache invalidation).
package memory

import (
	"errors"
	"fmt"
	"sync"
)

// Attr is a bitmask of region attributes, named after the data model's
// per-region attribute set.
type Attr uint8

const (
	Read Attr = 1 << iota
	Write
	Exec
	ICCM
	DCCM
	MemMappedRegister
	Pristine
)

// Region describes one attributed window of the address space.
type Region struct {
	Name string
	Base uint64
	Size uint64
	Attr Attr
	// WriteMask, when non-zero and Attr has MemMappedRegister, is ANDed
	// against every store into the region before it is applied -- bits
	// clear in the mask are read-only hardware fields.
	WriteMask uint64
}

func (r Region) contains(addr uint64) bool {
	return addr >= r.Base && addr < r.Base+r.Size
}

var (
	// ErrBusError is returned for an access outside any mapped region.
	ErrBusError = errors.New("bus error: unmapped address")
	// ErrAccessFault is returned for an access that violates a region's
	// read/write/exec attribute.
	ErrAccessFault = errors.New("access fault: attribute violation")
	// ErrMisaligned is returned by the aligned accessors.
	ErrMisaligned = errors.New("misaligned access")
)

// WriteNotifyFunc is called after every successful store made through
// WriteByte, WriteHalf, WriteWord or WriteDouble, so a hart's decode
// cache can invalidate entries that alias self-modified code. The
// *Locked writes used by AMO handlers do not call it.
type WriteNotifyFunc func(addr uint64, size int)

// Memory is the address space shared across harts in a session. It owns
// its own mutex rather than living as a package-level global, since the
// data model explicitly treats it as an object shared across harts
// instead of single-CPU state.
type Memory struct {
	mu      sync.Mutex
	backing []byte
	regions []Region

	resvValid bool
	resvAddr  uint64
	resvSize  uint64
	resvHart  int

	notify []WriteNotifyFunc
}

// New creates a Memory of the given byte size with no regions mapped.
// Callers add regions with AddRegion before use; an address with no
// matching region reads/writes ErrBusError.
func New(size uint64) *Memory {
	return &Memory{backing: make([]byte, size)}
}

// AddRegion maps a region into the address space. Regions must not
// overlap; callers build the map once at configuration time.
func (m *Memory) AddRegion(r Region) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.regions {
		if r.Base < e.Base+e.Size && e.Base < r.Base+r.Size {
			return fmt.Errorf("region %q overlaps %q", r.Name, e.Name)
		}
	}
	if r.Base+r.Size > uint64(len(m.backing)) {
		return fmt.Errorf("region %q exceeds backing store size", r.Name)
	}
	m.regions = append(m.regions, r)
	return nil
}

// OnWrite registers a callback invoked after each successful
// WriteByte/WriteHalf/WriteWord/WriteDouble store.
func (m *Memory) OnWrite(fn WriteNotifyFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notify = append(m.notify, fn)
}

func (m *Memory) findRegion(addr uint64) *Region {
	for i := range m.regions {
		if m.regions[i].contains(addr) {
			return &m.regions[i]
		}
	}
	return nil
}

func (m *Memory) checkAttr(addr uint64, size uint64, need Attr) (*Region, error) {
	r := m.findRegion(addr)
	last := m.findRegion(addr + size - 1)
	if r == nil || last == nil || r.Base != last.Base {
		return nil, ErrBusError
	}
	if r.Attr&need == 0 {
		return nil, ErrAccessFault
	}
	return r, nil
}

// ReadByte, ReadHalf, ReadWord and ReadDouble read naturally-sized
// little-endian values, checking alignment and the Read attribute.
func (m *Memory) ReadByte(addr uint64) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkAttr(addr, 1, Read)
	if err != nil {
		return 0, err
	}
	return m.backing[addr], nil
}

func (m *Memory) ReadHalf(addr uint64) (uint16, error) {
	if addr&1 != 0 {
		return 0, ErrMisaligned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkAttr(addr, 2, Read)
	if err != nil {
		return 0, err
	}
	return uint16(m.backing[addr]) | uint16(m.backing[addr+1])<<8, nil
}

func (m *Memory) ReadWord(addr uint64) (uint32, error) {
	if addr&3 != 0 {
		return 0, ErrMisaligned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkAttr(addr, 4, Read)
	if err != nil {
		return 0, err
	}
	b := m.backing[addr : addr+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (m *Memory) ReadDouble(addr uint64) (uint64, error) {
	if addr&7 != 0 {
		return 0, ErrMisaligned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkAttr(addr, 8, Read)
	if err != nil {
		return 0, err
	}
	lo := uint64(m.backing[addr]) | uint64(m.backing[addr+1])<<8 |
		uint64(m.backing[addr+2])<<16 | uint64(m.backing[addr+3])<<24
	hi := uint64(m.backing[addr+4]) | uint64(m.backing[addr+5])<<8 |
		uint64(m.backing[addr+6])<<16 | uint64(m.backing[addr+7])<<24
	return lo | hi<<32, nil
}

// FetchHalf reads the first halfword of an instruction, requiring Exec
// instead of Read, so the caller can decide if a 32-bit fetch follows.
func (m *Memory) FetchHalf(addr uint64) (uint16, error) {
	if addr&1 != 0 {
		return 0, ErrMisaligned
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkAttr(addr, 2, Exec)
	if err != nil {
		return 0, err
	}
	return uint16(m.backing[addr]) | uint16(m.backing[addr+1])<<8, nil
}

func (m *Memory) writeBytes(addr uint64, size uint64, attr Attr, raw []byte) error {
	m.mu.Lock()
	r, err := m.checkAttr(addr, size, attr)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	if r.Attr&MemMappedRegister != 0 && r.WriteMask != 0 {
		mask := r.WriteMask
		for i := range raw {
			cur := m.backing[addr+uint64(i)]
			raw[i] = (raw[i] & byte(mask>>(8*uint(i)))) | (cur &^ byte(mask>>(8*uint(i))))
		}
	}
	copy(m.backing[addr:addr+size], raw)
	if r.Attr&Pristine != 0 {
		r.Attr &^= Pristine
	}
	m.clearReservationLocked(addr, size)
	notify := m.notify
	m.mu.Unlock()
	for _, fn := range notify {
		fn(addr, int(size))
	}
	return nil
}

func (m *Memory) WriteByte(addr uint64, v uint8) error {
	return m.writeBytes(addr, 1, Write, []byte{v})
}

func (m *Memory) WriteHalf(addr uint64, v uint16) error {
	if addr&1 != 0 {
		return ErrMisaligned
	}
	return m.writeBytes(addr, 2, Write, []byte{byte(v), byte(v >> 8)})
}

func (m *Memory) WriteWord(addr uint64, v uint32) error {
	if addr&3 != 0 {
		return ErrMisaligned
	}
	return m.writeBytes(addr, 4, Write, []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)})
}

func (m *Memory) WriteDouble(addr uint64, v uint64) error {
	if addr&7 != 0 {
		return ErrMisaligned
	}
	raw := make([]byte, 8)
	for i := range raw {
		raw[i] = byte(v >> (8 * uint(i)))
	}
	return m.writeBytes(addr, 8, Write, raw)
}

// SetReservation establishes an LR reservation of size bytes at addr
// for a hart; any write overlapping [addr, addr+size) cancels it.
func (m *Memory) SetReservation(hart int, addr, size uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resvValid = true
	m.resvAddr = addr
	m.resvSize = size
	m.resvHart = hart
}

// CheckAndClearReservation implements SC: it returns true (success) only
// when the calling hart still owns a matching reservation, and clears it
// either way, matching the architectural rule that SC always clears any
// reservation held by the executing hart.
func (m *Memory) CheckAndClearReservation(hart int, addr uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	ok := m.resvValid && m.resvHart == hart && m.resvAddr == addr
	m.resvValid = false
	return ok
}

// ClearReservation drops any reservation held by the given hart, used
// by the trap pipeline and xRET/FENCE paths, which architecturally
// cancel an in-flight LR/SC sequence.
func (m *Memory) ClearReservation(hart int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.resvValid && m.resvHart == hart {
		m.resvValid = false
	}
}

func (m *Memory) clearReservationLocked(addr, size uint64) {
	if m.resvValid && addr < m.resvAddr+m.resvSize && m.resvAddr < addr+size {
		m.resvValid = false
	}
}

// Lock and Unlock serialize AMO read-modify-write sequences across
// harts; the Memory's single mutex is the coarse model the data model
// allows in place of true bus-level atomicity.
func (m *Memory) Lock()   { m.mu.Lock() }
func (m *Memory) Unlock() { m.mu.Unlock() }

// ReadWordLocked and WriteWordLocked are used by AMO handlers while the
// caller already holds Lock/Unlock.
func (m *Memory) ReadWordLocked(addr uint64) (uint32, error) {
	_, err := m.checkAttr(addr, 4, Read)
	if err != nil {
		return 0, err
	}
	b := m.backing[addr : addr+4]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

func (m *Memory) WriteWordLocked(addr uint64, v uint32) error {
	r, err := m.checkAttr(addr, 4, Write)
	if err != nil {
		return err
	}
	raw := []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
	if r.Attr&MemMappedRegister != 0 && r.WriteMask != 0 {
		mask := r.WriteMask
		for i := range raw {
			cur := m.backing[addr+uint64(i)]
			raw[i] = (raw[i] & byte(mask>>(8*uint(i)))) | (cur &^ byte(mask>>(8*uint(i))))
		}
	}
	copy(m.backing[addr:addr+4], raw)
	m.clearReservationLocked(addr, 4)
	return nil
}

func (m *Memory) ReadDoubleLocked(addr uint64) (uint64, error) {
	_, err := m.checkAttr(addr, 8, Read)
	if err != nil {
		return 0, err
	}
	lo := uint64(m.backing[addr]) | uint64(m.backing[addr+1])<<8 |
		uint64(m.backing[addr+2])<<16 | uint64(m.backing[addr+3])<<24
	hi := uint64(m.backing[addr+4]) | uint64(m.backing[addr+5])<<8 |
		uint64(m.backing[addr+6])<<16 | uint64(m.backing[addr+7])<<24
	return lo | hi<<32, nil
}

func (m *Memory) WriteDoubleLocked(addr uint64, v uint64) error {
	r, err := m.checkAttr(addr, 8, Write)
	if err != nil {
		return err
	}
	raw := make([]byte, 8)
	for i := range raw {
		raw[i] = byte(v >> (8 * uint(i)))
	}
	if r.Attr&MemMappedRegister != 0 && r.WriteMask != 0 {
		mask := r.WriteMask
		for i := range raw {
			cur := m.backing[addr+uint64(i)]
			raw[i] = (raw[i] & byte(mask>>(8*uint(i)))) | (cur &^ byte(mask>>(8*uint(i))))
		}
	}
	copy(m.backing[addr:addr+8], raw)
	m.clearReservationLocked(addr, 8)
	return nil
}

// LoadBytes bulk-loads an image into memory, bypassing attribute checks;
// used by the ELF and hex loaders at configuration time.
func (m *Memory) LoadBytes(addr uint64, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if addr+uint64(len(data)) > uint64(len(m.backing)) {
		return fmt.Errorf("load at 0x%x size %d exceeds memory size %d", addr, len(data), len(m.backing))
	}
	copy(m.backing[addr:], data)
	return nil
}

// ResetMemoryMappedRegs zeroes every memory-mapped-register region,
// for a reset that does not want image-preloaded register values to
// survive. An ordinary reset leaves them alone so ELF-loaded values
// carry across.
func (m *Memory) ResetMemoryMappedRegs() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.regions {
		if r.Attr&MemMappedRegister == 0 {
			continue
		}
		for i := r.Base; i < r.Base+r.Size; i++ {
			m.backing[i] = 0
		}
	}
}

// Size returns the size of the backing store.
func (m *Memory) Size() uint64 { return uint64(len(m.backing)) }

// RegionAttr reports the attribute set of the region covering addr, so
// callers outside this package (the load/store path's DCCM-enqueue and
// DCCM/non-DCCM mismatch checks) can branch on it without duplicating
// the region table here. ok is false for an unmapped address.
func (m *Memory) RegionAttr(addr uint64) (attr Attr, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.findRegion(addr)
	if r == nil {
		return 0, false
	}
	return r.Attr, true
}
