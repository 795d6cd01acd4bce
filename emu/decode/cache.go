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

package decode

// Cache is a direct-mapped decode cache, one slot per address-tagged
// entry, the same style as a hardware TLB: a power-of-two slot count
// indexed by the low bits of the fetch address, with the full address
// kept as a tag to detect aliasing.
type Cache struct {
	slots []cacheSlot
	mask  uint64
}

type cacheSlot struct {
	valid bool
	tag   uint64
	dec   Decoded
}

// NewCache builds a cache with the given slot count, rounded up to the
// next power of two.
func NewCache(slots int) *Cache {
	n := 1
	for n < slots {
		n <<= 1
	}
	return &Cache{slots: make([]cacheSlot, n), mask: uint64(n - 1)}
}

// Lookup returns a cached decode for addr, if present and still valid.
func (c *Cache) Lookup(addr uint64) (Decoded, bool) {
	idx := (addr >> 1) & c.mask
	s := &c.slots[idx]
	if s.valid && s.tag == addr {
		return s.dec, true
	}
	return Decoded{}, false
}

// Insert stores a decode for addr, evicting whatever aliased the slot.
func (c *Cache) Insert(addr uint64, dec Decoded) {
	idx := (addr >> 1) & c.mask
	c.slots[idx] = cacheSlot{valid: true, tag: addr, dec: dec}
}

// Invalidate drops any cached entry whose instruction overlaps
// [addr, addr+size), called after a store that might be self-modifying
// code. The window reaches two bytes below addr: a 32-bit instruction
// tagged at addr-2 spans the written byte even though its own address
// does not.
func (c *Cache) Invalidate(addr uint64, size int) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.valid && s.tag+2 >= addr && s.tag < addr+uint64(size) {
			s.valid = false
		}
	}
}

// InvalidateAll clears the whole cache, used on a FENCE.I.
func (c *Cache) InvalidateAll() {
	for i := range c.slots {
		c.slots[i].valid = false
	}
}
