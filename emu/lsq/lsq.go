/*
   Speculative load/store queue.

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

// Package lsq implements the hart's bounded load/store queues: ring
// buffers of in-flight memory operations that can be rolled back on an
// imprecise bus error, modeled as a fixed-size slot array the way the
// channel subsystem this was ported from tracked in-flight unit-record
// operations in a fixed chanDev array.
package lsq

// Entry is one in-flight memory operation. Stores carry the bytes they
// wrote (Data) and the bytes they overwrote (PrevData), so a later
// imprecise bus error can roll the memory back. Loads carry the
// destination register and the value it held before the load (PrevData),
// so a later imprecise bus error can roll the register back; Valid turns
// false once a later instruction overwrites that register directly,
// matching the data model's "stall semantics" for load-queue entries.
type Entry struct {
	Seq      uint64
	Addr     uint64
	Size     uint8
	IsStore  bool
	Data     uint64 // store: new bytes written
	PrevData uint64 // store: bytes overwritten; load: prior register contents
	RegIx    uint8  // load: destination register
	Valid    bool   // load: false once its register has been overwritten
	PC       uint64
}

// Queue is a bounded, ring-buffered FIFO of in-flight operations.
type Queue struct {
	ring     []Entry
	head     int
	count    int
	nextSeq  uint64
	capacity int
}

// New creates a queue with the given capacity.
func New(capacity int) *Queue {
	return &Queue{ring: make([]Entry, capacity), capacity: capacity}
}

// Full reports whether the queue has no free slot.
func (q *Queue) Full() bool { return q.count == q.capacity }

// Len reports the number of in-flight entries.
func (q *Queue) Len() int { return q.count }

// Push enqueues a new operation, assigning it the next sequence number.
// The data model bounds each queue by a maxStoreQueueSize with FIFO
// eviction, so a Push into a full queue silently retires the oldest
// entry to make room rather than stalling; the returned bool is false
// only to report that an eviction happened, for callers that care.
func (q *Queue) Push(e Entry) (uint64, bool) {
	evicted := false
	if q.Full() {
		q.Pop()
		evicted = true
	}
	e.Seq = q.nextSeq
	q.nextSeq++
	idx := (q.head + q.count) % q.capacity
	q.ring[idx] = e
	q.count++
	return e.Seq, !evicted
}

// Pop retires the oldest (head) entry in program order.
func (q *Queue) Pop() (Entry, bool) {
	if q.count == 0 {
		return Entry{}, false
	}
	e := q.ring[q.head]
	q.head = (q.head + 1) % q.capacity
	q.count--
	return e, true
}

// Peek returns the oldest entry without retiring it.
func (q *Queue) Peek() (Entry, bool) {
	if q.count == 0 {
		return Entry{}, false
	}
	return q.ring[q.head], true
}

// RollbackAfter discards every entry with Seq greater than the given
// sequence number, used when an imprecise bus error surfaces after
// younger operations have already been admitted to the queue.
func (q *Queue) RollbackAfter(seq uint64) {
	kept := make([]Entry, 0, q.count)
	for i := 0; i < q.count; i++ {
		e := q.ring[(q.head+i)%q.capacity]
		if e.Seq <= seq {
			kept = append(kept, e)
		}
	}
	q.head = 0
	q.count = len(kept)
	copy(q.ring, kept)
}

// Reset empties the queue entirely, used on an exception that discards
// all speculative state.
func (q *Queue) Reset() {
	q.head, q.count = 0, 0
}

// ForEach walks the queue oldest-entry-first, letting the callback
// mutate entries in place (used to turn Valid off on a register
// overwrite without disturbing queue order or other entries' indices).
func (q *Queue) ForEach(fn func(e *Entry)) {
	for i := 0; i < q.count; i++ {
		fn(&q.ring[(q.head+i)%q.capacity])
	}
}

// Entries returns a snapshot of the queue's contents, oldest first.
func (q *Queue) Entries() []Entry {
	out := make([]Entry, q.count)
	for i := range out {
		out[i] = q.ring[(q.head+i)%q.capacity]
	}
	return out
}

// RemoveTarget drops the first load entry whose RegIx matches rd,
// implementing the "remove any pending load-queue entry whose target is
// rs1" dependency-stall rule a new load/store applies before it runs.
func (q *Queue) RemoveTarget(rd uint8) {
	entries := q.Entries()
	for i, e := range entries {
		if !e.IsStore && e.RegIx == rd {
			entries = append(entries[:i], entries[i+1:]...)
			q.replace(entries)
			return
		}
	}
}

// RemoveAt removes the entry at queue position i (0 = oldest).
func (q *Queue) RemoveAt(i int) {
	entries := q.Entries()
	if i < 0 || i >= len(entries) {
		return
	}
	entries = append(entries[:i], entries[i+1:]...)
	q.replace(entries)
}

// ReplaceAll rebuilds the queue from entries, oldest first, preserving
// their Seq values. Used by the rollback paths that need to trim,
// patch or drop arbitrary entries in a single pass rather than one
// RemoveAt/RemoveTarget call at a time.
func (q *Queue) ReplaceAll(entries []Entry) {
	q.replace(entries)
}

// replace rebuilds the ring from entries, oldest first, preserving
// sequence numbers and capacity.
func (q *Queue) replace(entries []Entry) {
	q.head, q.count = 0, 0
	for _, e := range entries {
		idx := (q.head + q.count) % q.capacity
		q.ring[idx] = e
		q.count++
	}
}
