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
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
   SOFTWARE.
*/

// Package event is a relative-time callback scheduler: a sorted linked
// list of pending events, each holding the number of cycles remaining
// until it fires relative to the event ahead of it, so advancing time
// is a single subtraction against the head instead of a scan of every
// pending event.
package event

// Callback fires when an event's delay expires.
type Callback func(id int)

type eventEntry struct {
	time int // cycles remaining, relative to the previous entry
	id   int // caller-chosen tag, used to find/cancel a specific event
	cb   Callback
	prev *eventEntry
	next *eventEntry
}

// Scheduler owns a list of pending events. It is a value the caller
// constructs and keeps (typically one per hart session) rather than a
// package-level global, so multiple simulated sessions don't share
// timers.
type Scheduler struct {
	head *eventEntry
	tail *eventEntry
}

// New builds an empty scheduler.
func New() *Scheduler { return &Scheduler{} }

// Add schedules cb to fire after the given number of cycles. A delay of
// zero runs the callback immediately, synchronously.
func (s *Scheduler) Add(id int, cb Callback, delay int) {
	if delay <= 0 {
		cb(id)
		return
	}
	ev := &eventEntry{id: id, cb: cb, time: delay}

	cur := s.head
	if cur == nil {
		s.head = ev
		s.tail = ev
		return
	}
	for cur != nil {
		if ev.time <= cur.time {
			cur.time -= ev.time
			ev.prev = cur.prev
			ev.next = cur
			cur.prev = ev
			if ev.prev != nil {
				ev.prev.next = ev
			} else {
				s.head = ev
			}
			return
		}
		ev.time -= cur.time
		cur = cur.next
	}
	ev.prev = s.tail
	s.tail.next = ev
	s.tail = ev
}

// Cancel removes the first pending event with the given id.
func (s *Scheduler) Cancel(id int) {
	cur := s.head
	for cur != nil {
		if cur.id == id {
			if cur.next != nil {
				cur.next.time += cur.time
				cur.next.prev = cur.prev
			} else {
				s.tail = cur.prev
			}
			if cur.prev != nil {
				cur.prev.next = cur.next
			} else {
				s.head = cur.next
			}
			return
		}
		cur = cur.next
	}
}

// Advance moves time forward by t cycles, firing every event whose
// delay has now expired.
func (s *Scheduler) Advance(t int) {
	cur := s.head
	if cur == nil {
		return
	}
	cur.time -= t
	for cur != nil && cur.time <= 0 {
		// Unlink before firing so a callback that schedules a new event
		// (a periodic timer re-arming itself) sees a consistent list.
		s.head = cur.next
		if s.head != nil {
			s.head.prev = nil
		} else {
			s.tail = nil
		}
		cur.cb(cur.id)
		cur = s.head
	}
}

// Pending reports whether any event is still scheduled.
func (s *Scheduler) Pending() bool { return s.head != nil }
